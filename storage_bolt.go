package kvbucket

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

const DefaultBoltBucket = "kv"

type BoltOptions struct {
	// Bucket is the Bolt bucket holding the flat key space. Defaults to
	// DefaultBoltBucket.
	Bucket    string
	Timeout   time.Duration
	IsTesting bool
	MmapSize  int
	Logger    *slog.Logger
}

func (o *BoltOptions) fillDefaults() {
	if o.Bucket == "" {
		o.Bucket = DefaultBoltBucket
	}
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// BoltStorage keeps the flat key space in a single Bolt bucket.
//
// Get and Set each run in their own transaction. Use Update to run a whole
// read-modify-write sequence (Bucket.Update, NextVal, Index.Write) in a
// single write transaction; Bolt allows only one at a time, which gives
// callers the mutual exclusion the rest of this package does not.
type BoltStorage struct {
	bdb    *bbolt.DB
	buck   []byte
	owned  bool
	logger *slog.Logger
}

func OpenBolt(path string, opt BoltOptions) (*BoltStorage, error) {
	opt.fillDefaults()
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("kvbucket: %w", err)
	}
	s, err := newBoltStorage(bdb, opt.Bucket, opt.Logger)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	s.owned = true
	s.logger.Debug("kvbucket: opened bolt storage", "path", path, "bucket", opt.Bucket)
	return s, nil
}

// NewBoltStorage uses a Bolt database opened by the caller, creating bucket
// if it does not exist yet. Close does not close bdb.
func NewBoltStorage(bdb *bbolt.DB, bucket string) (*BoltStorage, error) {
	return newBoltStorage(bdb, bucket, slog.Default())
}

func newBoltStorage(bdb *bbolt.DB, bucket string, logger *slog.Logger) (*BoltStorage, error) {
	if bucket == "" {
		bucket = DefaultBoltBucket
	}
	s := &BoltStorage{
		bdb:    bdb,
		buck:   []byte(bucket),
		logger: logger,
	}
	err := bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(s.buck)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("kvbucket: creating bucket %q: %w", bucket, err)
	}
	return s, nil
}

func (s *BoltStorage) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *BoltStorage) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.View(func(st ReadonlyStorage) error {
		var err error
		value, err = st.Get(key)
		return err
	})
	return value, err
}

func (s *BoltStorage) Set(key, value []byte) error {
	return s.Update(func(st Storage) error {
		return st.Set(key, value)
	})
}

// Update runs f inside a single write transaction. If f returns an error,
// none of its writes are committed.
func (s *BoltStorage) Update(f func(st Storage) error) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		return f(boltBucketStorage{nonNil(btx.Bucket(s.buck))})
	})
}

// View runs f inside a single read-only transaction.
func (s *BoltStorage) View(f func(st ReadonlyStorage) error) error {
	return s.bdb.View(func(btx *bbolt.Tx) error {
		return f(boltBucketStorage{nonNil(btx.Bucket(s.buck))})
	})
}

func (s *BoltStorage) Close() error {
	if !s.owned {
		return nil
	}
	err := s.bdb.Close()
	if err != nil && !errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return fmt.Errorf("kvbucket: closing: %w", err)
	}
	return nil
}

// BoltBucketStorage adapts a bucket of a transaction managed by the caller.
// It is valid only until that transaction ends.
func BoltBucketStorage(b *bbolt.Bucket) Storage {
	return boltBucketStorage{b}
}

type boltBucketStorage struct {
	b *bbolt.Bucket
}

// Get copies the value: Bolt's slices are only valid within the transaction.
func (b boltBucketStorage) Get(key []byte) ([]byte, error) {
	return cloneValue(b.b.Get(key)), nil
}

func (b boltBucketStorage) Set(key, value []byte) error {
	return b.b.Put(key, value)
}

func nonNil[T any](v *T) *T {
	if v == nil {
		panic("nil")
	}
	return v
}
