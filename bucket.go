package kvbucket

// Bucket is a collection of values of one type under a namespace.
type Bucket[T any] struct {
	TypedStorage[T]
	prefix *PrefixedStorage
}

func NewBucket[T any](st Storage, typ *Type[T], namespace []byte) *Bucket[T] {
	return NewMultilevelBucket(st, typ, namespace)
}

// NewMultilevelBucket creates a bucket under a nested namespace, e.g.
// ("users", "settings").
func NewMultilevelBucket[T any](st Storage, typ *Type[T], namespaces ...[]byte) *Bucket[T] {
	ps := Prefixed(st, namespaces...)
	return &Bucket[T]{*Typed(ps, typ), ps}
}

// Prefix returns the composed namespace prefix of the bucket.
func (b *Bucket[T]) Prefix() []byte {
	return b.prefix.Prefix()
}

// ReadonlyBucket is the read-only version of Bucket.
type ReadonlyBucket[T any] struct {
	ReadonlyTypedStorage[T]
	prefix *ReadonlyPrefixedStorage
}

func ReadBucket[T any](st ReadonlyStorage, typ *Type[T], namespaces ...[]byte) *ReadonlyBucket[T] {
	ps := PrefixedRead(st, namespaces...)
	return &ReadonlyBucket[T]{*TypedRead(ps, typ), ps}
}

func (b *ReadonlyBucket[T]) Prefix() []byte {
	return b.prefix.Prefix()
}
