package kvbucket

// ReadonlyStorage is the read half of a flat key-value store.
type ReadonlyStorage interface {
	// Get returns the value stored under key, or nil if there is none.
	// Any error is a storage failure; it is passed to callers unchanged.
	Get(key []byte) ([]byte, error)
}

// Storage is a flat key-value store (in-memory, Bolt, LevelDB, a journal,
// or a host-provided one).
type Storage interface {
	ReadonlyStorage

	// Set creates or overwrites the value stored under key.
	Set(key, value []byte) error
}

// StorageFunc adapts a pair of functions to Storage. Handy when a host
// environment exposes get/set as plain callbacks.
type StorageFunc struct {
	GetFunc func(key []byte) ([]byte, error)
	SetFunc func(key, value []byte) error
}

func (f StorageFunc) Get(key []byte) ([]byte, error) { return f.GetFunc(key) }

func (f StorageFunc) Set(key, value []byte) error { return f.SetFunc(key, value) }
