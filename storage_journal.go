package kvbucket

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/andreyvit/kvbucket/journal"
)

type JournalOptions struct {
	// FileName is the segment file name pattern. Defaults to "kv-*.wal".
	FileName    string
	MaxFileSize int64
	Now         func() time.Time
	Logger      *slog.Logger
	Verbose     bool
}

func (o *JournalOptions) fillDefaults() {
	if o.FileName == "" {
		o.FileName = "kv-*.wal"
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// JournalStorage keeps the whole key space in memory and appends every Set
// to a journal, replaying it on open.
type JournalStorage struct {
	mut sync.Mutex
	mem *MemStorage
	j   *journal.Journal
}

// OpenJournal replays the journal in dir, creating dir if needed, and opens
// it for writing.
func OpenJournal(dir string, o JournalOptions) (*JournalStorage, error) {
	o.fillDefaults()
	err := os.MkdirAll(dir, 0o777)
	if err != nil {
		return nil, fmt.Errorf("kvbucket: %w", err)
	}

	j := journal.New(dir, journal.Options{
		FileName:    o.FileName,
		MaxFileSize: o.MaxFileSize,
		Now:         o.Now,
		Logger:      o.Logger,
		Verbose:     o.Verbose,
		DebugName:   "kvbucket",
	})
	s := &JournalStorage{
		mem: NewMemStorage(),
		j:   j,
	}

	n, err := j.Replay(s.apply)
	if err != nil {
		return nil, fmt.Errorf("kvbucket: replaying journal: %w", err)
	}
	err = j.StartWriting()
	if err != nil {
		return nil, fmt.Errorf("kvbucket: %w", err)
	}
	o.Logger.Debug("kvbucket: opened journal storage", "dir", dir, "records", n, "keys", s.mem.Len())
	return s, nil
}

func (s *JournalStorage) apply(ts uint32, data []byte) error {
	key, value, err := decodeSetRecord(data)
	if err != nil {
		return err
	}
	return s.mem.Set(key, value)
}

func (s *JournalStorage) Journal() *journal.Journal {
	return s.j
}

func (s *JournalStorage) Get(key []byte) ([]byte, error) {
	return s.mem.Get(key)
}

// Set returns once the change is committed to the journal. The in-memory
// copy is only updated after that.
func (s *JournalStorage) Set(key, value []byte) error {
	s.mut.Lock()
	defer s.mut.Unlock()

	err := s.j.WriteRecord(0, encodeSetRecord(key, value))
	if err != nil {
		return err
	}
	err = s.j.Commit()
	if err != nil {
		return err
	}
	return s.mem.Set(key, value)
}

func (s *JournalStorage) Mem() *MemStorage {
	return s.mem
}

func (s *JournalStorage) Close() error {
	s.j.FinishWriting()
	return nil
}

// set record = key:varbytes value:varbytes
func encodeSetRecord(key, value []byte) []byte {
	return appendVarbytes(appendVarbytes(nil, key), value)
}

func decodeSetRecord(data []byte) (key, value []byte, err error) {
	dec := makeByteDecoder(data)
	key, err = dec.VarBytes()
	if err != nil {
		return nil, nil, err
	}
	value, err = dec.VarBytes()
	if err != nil {
		return nil, nil, err
	}
	if !dec.Empty() {
		return nil, nil, dataErrf(data, dec.Off(), nil, "trailing bytes in journal record")
	}
	return key, value, nil
}
