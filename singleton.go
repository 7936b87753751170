package kvbucket

// Singleton is a single value of type T stored under a namespace.
type Singleton[T any] struct {
	ts  *TypedStorage[T]
	key []byte
}

func NewSingleton[T any](st Storage, typ *Type[T], namespaces ...[]byte) *Singleton[T] {
	return &Singleton[T]{Typed(st, typ), ComposePrefix(namespaces...)}
}

// Key returns the physical key the singleton is stored under.
func (s *Singleton[T]) Key() []byte {
	return s.key
}

func (s *Singleton[T]) Save(v *T) error {
	return s.ts.Save(s.key, v)
}

func (s *Singleton[T]) Load() (*T, error) {
	return s.ts.Load(s.key)
}

func (s *Singleton[T]) MayLoad() (*T, error) {
	return s.ts.MayLoad(s.key)
}

func (s *Singleton[T]) Update(f func(v *T) (*T, error)) (*T, error) {
	return s.ts.Update(s.key, f)
}

type ReadonlySingleton[T any] struct {
	ts  *ReadonlyTypedStorage[T]
	key []byte
}

func ReadSingleton[T any](st ReadonlyStorage, typ *Type[T], namespaces ...[]byte) *ReadonlySingleton[T] {
	return &ReadonlySingleton[T]{TypedRead(st, typ), ComposePrefix(namespaces...)}
}

func (s *ReadonlySingleton[T]) Key() []byte {
	return s.key
}

func (s *ReadonlySingleton[T]) Load() (*T, error) {
	return s.ts.Load(s.key)
}

func (s *ReadonlySingleton[T]) MayLoad() (*T, error) {
	return s.ts.MayLoad(s.key)
}
