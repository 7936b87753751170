package kvbucket

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

type LevelDBOptions struct {
	// Sync makes every write fsync before returning.
	Sync bool
	// NoCompression disables LevelDB's own snappy block compression.
	NoCompression bool
	Logger        *slog.Logger
}

func (o *LevelDBOptions) fillDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func (o *LevelDBOptions) dbOptions() *opt.Options {
	dopt := &opt.Options{
		NoSync: !o.Sync,
	}
	if o.NoCompression {
		dopt.Compression = opt.NoCompression
	}
	return dopt
}

// LevelDBStorage keeps the flat key space in a LevelDB database.
type LevelDBStorage struct {
	db    *leveldb.DB
	wopt  *opt.WriteOptions
	owned bool
}

func OpenLevelDB(path string, o LevelDBOptions) (*LevelDBStorage, error) {
	o.fillDefaults()
	db, err := leveldb.OpenFile(path, o.dbOptions())
	if err != nil {
		return nil, fmt.Errorf("kvbucket: %w", err)
	}
	s := NewLevelDBStorage(db)
	s.wopt = &opt.WriteOptions{Sync: o.Sync}
	s.owned = true
	o.Logger.Debug("kvbucket: opened leveldb storage", "path", path)
	return s, nil
}

// NewLevelDBStorage uses a database opened by the caller. Close does not
// close db.
func NewLevelDBStorage(db *leveldb.DB) *LevelDBStorage {
	return &LevelDBStorage{db: db}
}

func (s *LevelDBStorage) LevelDB() *leveldb.DB {
	return s.db
}

func (s *LevelDBStorage) Get(key []byte) ([]byte, error) {
	return levelGet(s.db.Get(key, nil))
}

func (s *LevelDBStorage) Set(key, value []byte) error {
	return s.db.Put(key, value, s.wopt)
}

// Update runs f against a LevelDB transaction, committing it if f succeeds
// and discarding it otherwise, including when f panics. Writes made outside
// the transaction block until it ends.
func (s *LevelDBStorage) Update(f func(st Storage) error) error {
	tr, err := s.db.OpenTransaction()
	if err != nil {
		return err
	}
	var committed bool
	defer func() {
		if !committed {
			tr.Discard()
		}
	}()

	err = f(levelTxStorage{tr})
	if err != nil {
		return err
	}
	committed = true
	return tr.Commit()
}

func (s *LevelDBStorage) Close() error {
	if !s.owned {
		return nil
	}
	err := s.db.Close()
	if err != nil && !errors.Is(err, leveldb.ErrClosed) {
		return fmt.Errorf("kvbucket: closing: %w", err)
	}
	return nil
}

type levelTxStorage struct {
	tr *leveldb.Transaction
}

func (s levelTxStorage) Get(key []byte) ([]byte, error) {
	return levelGet(s.tr.Get(key, nil))
}

func (s levelTxStorage) Set(key, value []byte) error {
	return s.tr.Put(key, value, nil)
}

func levelGet(value []byte, err error) ([]byte, error) {
	if err == leveldb.ErrNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}
