package kvbucket

import (
	"bytes"
	"slices"
)

// indexEntry is persisted under indexPrefix ++ derivedKey and lists all
// primary keys whose records currently map to derivedKey.
type indexEntry struct {
	Refs [][]byte `msgpack:"refs"`
}

var indexEntryType = DefineType[indexEntry]("IndexEntry")

// Index maintains a reverse mapping from a key derived from T to the primary
// keys of the records it was derived from.
//
// An index does not observe the records it covers. Call Write wherever the
// record itself is saved, passing both the previous and the new version.
//
// Per index, counting the caller's own load and save of the record: a create
// is 2 reads + 2 writes, an update that moves the derived key is 3 reads +
// 3 writes, and an update that keeps it adds nothing.
type Index[T any] struct {
	prefix []byte
	fn     func(row *T) []byte
}

func NewIndex[T any](namespace []byte, fn func(row *T) []byte) *Index[T] {
	return NewMultilevelIndex(fn, namespace)
}

func NewMultilevelIndex[T any](fn func(row *T) []byte, namespaces ...[]byte) *Index[T] {
	if fn == nil {
		panic("kvbucket: index function must not be nil")
	}
	return &Index[T]{
		prefix: ComposePrefix(namespaces...),
		fn:     fn,
	}
}

func (idx *Index[T]) Prefix() []byte {
	return idx.prefix
}

// Key returns the storage key of the index entry row belongs to.
func (idx *Index[T]) Key(row *T) []byte {
	return joinKey(idx.prefix, idx.fn(row))
}

// Write reconciles the index after the record at pk changed from old to
// row. Pass old == nil for a newly created record.
//
// The remove and the add are separate writes. If the add fails, pk is
// left out of the index until the next successful Write.
func (idx *Index[T]) Write(st Storage, pk []byte, old, row *T) error {
	newKey := idx.Key(row)
	if old != nil {
		oldKey := idx.Key(old)
		if bytes.Equal(oldKey, newKey) {
			return nil
		}
		err := RemoveRef(st, oldKey, pk)
		if err != nil {
			return err
		}
	}
	return AddRef(st, newKey, pk)
}

// Remove drops pk from the entry old maps to. Use it when the record itself
// is deleted.
func (idx *Index[T]) Remove(st Storage, pk []byte, old *T) error {
	return RemoveRef(st, idx.Key(old), pk)
}

// ReadRefs returns the primary keys of all records that map to the same
// index entry as template. Only the fields the index function reads need to
// be set in template.
func (idx *Index[T]) ReadRefs(st ReadonlyStorage, template *T) ([][]byte, error) {
	entry, err := loadRefs(st, idx.Key(template))
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.Refs, nil
}

// AddRef appends pk to the index entry stored at idxKey, creating the entry
// if needed. It does not check for duplicates: adding the same pk twice
// lists it twice.
func AddRef(st Storage, idxKey, pk []byte) error {
	ts := Typed(st, indexEntryType)
	entry, err := ts.MayLoad(idxKey)
	if err != nil {
		return err
	}
	if entry == nil {
		entry = &indexEntry{}
	}
	entry.Refs = append(entry.Refs, slices.Clone(pk))
	return ts.Save(idxKey, entry)
}

// RemoveRef removes every occurrence of pk from the index entry at idxKey.
// The entry must exist (it is created by AddRef); a missing entry fails
// with *NotFoundError. An entry that loses its last reference is saved as
// an empty list, not deleted.
func RemoveRef(st Storage, idxKey, pk []byte) error {
	ts := Typed(st, indexEntryType)
	entry, err := ts.Load(idxKey)
	if err != nil {
		return err
	}
	entry.Refs = slices.DeleteFunc(entry.Refs, func(ref []byte) bool {
		return bytes.Equal(ref, pk)
	})
	return ts.Save(idxKey, entry)
}

func loadRefs(st ReadonlyStorage, idxKey []byte) (*indexEntry, error) {
	return TypedRead(st, indexEntryType).MayLoad(idxKey)
}
