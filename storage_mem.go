package kvbucket

import (
	"bytes"
	"slices"
	"sort"
	"sync"
)

// MemStorage is a transient in-memory Storage, intended for tests and for
// hosts that keep their state in memory anyway.
//
// Each Get and Set is guarded by a mutex, but sequences of calls are not.
type MemStorage struct {
	mu    sync.Mutex
	items []memKV // sorted by key
}

type memKV struct {
	key   []byte
	value []byte
}

func NewMemStorage() *MemStorage {
	return &MemStorage{}
}

func (s *MemStorage) Get(key []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.find(key)
	if !ok {
		return nil, nil
	}
	return cloneValue(s.items[i].value), nil
}

func (s *MemStorage) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value)
	return nil
}

// setLocked stores a nil value as an empty one, the way Bolt and LevelDB do.
func (s *MemStorage) setLocked(key, value []byte) {
	if value == nil {
		value = []byte{}
	} else {
		value = cloneValue(value)
	}
	i, ok := s.find(key)
	if ok {
		s.items[i].value = value
		return
	}
	s.items = slices.Insert(s.items, i, memKV{key: slices.Clone(key), value: value})
}

// Len returns the number of keys stored.
func (s *MemStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *MemStorage) each(f func(key, value []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kv := range s.items {
		f(kv.key, kv.value)
	}
}

func (s *MemStorage) find(key []byte) (idx int, ok bool) {
	items := s.items
	i := sort.Search(len(items), func(i int) bool {
		return bytes.Compare(items[i].key, key) >= 0
	})
	if i < len(items) && bytes.Equal(items[i].key, key) {
		return i, true
	}
	return i, false
}

// cloneValue copies v, keeping an empty value distinct from a missing one.
func cloneValue(v []byte) []byte {
	if v == nil {
		return nil
	}
	return append(make([]byte, 0, len(v)), v...)
}
