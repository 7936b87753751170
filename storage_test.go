package kvbucket

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/syndtr/goleveldb/leveldb"
	lstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"go.etcd.io/bbolt"
)

type backend struct {
	name string
	open func(t *testing.T) Storage
}

var backends = []backend{
	{"mem", func(t *testing.T) Storage {
		return NewMemStorage()
	}},
	{"bolt", func(t *testing.T) Storage {
		return openTestBolt(t)
	}},
	{"leveldb", func(t *testing.T) Storage {
		return openTestLevelDB(t)
	}},
	{"journal", func(t *testing.T) Storage {
		s := must(OpenJournal(t.TempDir(), JournalOptions{}))
		t.Cleanup(func() { s.Close() })
		return s
	}},
	{"func", func(t *testing.T) Storage {
		m := make(map[string][]byte)
		return StorageFunc{
			GetFunc: func(key []byte) ([]byte, error) {
				return bytes.Clone(m[string(key)]), nil
			},
			SetFunc: func(key, value []byte) error {
				m[string(key)] = append([]byte{}, value...)
				return nil
			},
		}
	}},
	{"logged", func(t *testing.T) Storage {
		return WithLogging(NewMemStorage(), slog.New(slog.NewTextHandler(&testLogWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug})), LogOptions{})
	}},
}

func openTestBolt(t *testing.T) *BoltStorage {
	s := must(OpenBolt(filepath.Join(t.TempDir(), "kv.db"), BoltOptions{IsTesting: true}))
	t.Cleanup(func() { s.Close() })
	return s
}

func openTestLevelDB(t *testing.T) *LevelDBStorage {
	db := must(leveldb.Open(lstorage.NewMemStorage(), nil))
	t.Cleanup(func() { db.Close() })
	return NewLevelDBStorage(db)
}

type testLogWriter struct{ t testing.TB }

func (w *testLogWriter) Write(buf []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(buf), "\n"))
	return len(buf), nil
}

func TestStorage_conformance(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			st := b.open(t)

			v, err := st.Get([]byte("missing"))
			if err != nil || v != nil {
				t.Fatalf("Get(missing) = %x, %v; wanted nil, nil", v, err)
			}

			ensure(st.Set([]byte("k"), []byte("v1")))
			deepEqual(t, must(st.Get([]byte("k"))), []byte("v1"))

			ensure(st.Set([]byte("k"), []byte("v2")))
			deepEqual(t, must(st.Get([]byte("k"))), []byte("v2"))

			ensure(st.Set([]byte("empty"), []byte{}))
			v = must(st.Get([]byte("empty")))
			if v == nil || len(v) != 0 {
				t.Fatalf("Get(empty) = %#v, wanted empty non-nil", v)
			}

			// a nil value is stored as an empty one
			ensure(st.Set([]byte("nil"), nil))
			v = must(st.Get([]byte("nil")))
			if v == nil || len(v) != 0 {
				t.Fatalf("Get(nil) = %#v, wanted empty non-nil", v)
			}

			val := []byte("abc")
			ensure(st.Set([]byte("alias"), val))
			val[0] = 'z'
			got := must(st.Get([]byte("alias")))
			deepEqual(t, got, []byte("abc"))
			got[0] = 'y'
			deepEqual(t, must(st.Get([]byte("alias"))), []byte("abc"))
		})
	}
}

func TestStorage_typedScenario(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			st := b.open(t)
			people := NewBucket(st, personType, []byte("people"))
			ids := NewSequence(st, []byte("seq"), []byte("people"))

			for _, p := range []Person{{"A", 30}, {"B", 30}, {"C", 40}} {
				id := must(NextVal(ids))
				pk := []byte{byte(id)}
				ensure(people.Save(pk, &p))
				ensure(byAge.Write(st, pk, nil, &p))
			}

			deepEqual(t, must(CurrVal(ids)), uint64(3))
			deepEqual(t, must(byAge.ReadRefs(st, &Person{Age: 30})), [][]byte{{1}, {2}})

			old := must(people.Load([]byte{2}))
			p := must(people.Update([]byte{2}, func(p *Person) (*Person, error) {
				p.Age = 40
				return p, nil
			}))
			ensure(byAge.Write(st, []byte{2}, old, p))
			deepEqual(t, must(byAge.ReadRefs(st, &Person{Age: 30})), [][]byte{{1}})
			deepEqual(t, must(byAge.ReadRefs(st, &Person{Age: 40})), [][]byte{{3}, {2}})
		})
	}
}

func TestBoltStorage_Update(t *testing.T) {
	s := openTestBolt(t)
	errBoom := errors.New("boom")

	err := s.Update(func(st Storage) error {
		must(NextVal(NewSequence(st, []byte("seq"))))
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("Update = %v, wanted %v", err, errBoom)
	}
	deepEqual(t, must(CurrVal(NewSequence(s, []byte("seq")))), uint64(0))

	ensure(s.Update(func(st Storage) error {
		seq := NewSequence(st, []byte("seq"))
		must(NextVal(seq))
		must(NextVal(seq))
		return nil
	}))
	deepEqual(t, must(CurrVal(NewSequence(s, []byte("seq")))), uint64(2))

	ensure(s.View(func(st ReadonlyStorage) error {
		deepEqual(t, must(CurrVal(NewSequence(StorageFunc{GetFunc: st.Get}, []byte("seq")))), uint64(2))
		return nil
	}))

	stats := must(s.Stats())
	deepEqual(t, stats.Keys, 1)
}

func TestBoltStorage_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	s := must(OpenBolt(path, BoltOptions{IsTesting: true, Bucket: "things"}))
	ensure(s.Set([]byte("k"), []byte("v")))
	ensure(s.Close())
	ensure(s.Close())

	s = must(OpenBolt(path, BoltOptions{IsTesting: true, Bucket: "things"}))
	defer s.Close()
	deepEqual(t, must(s.Get([]byte("k"))), []byte("v"))

	other := must(NewBoltStorage(s.Bolt(), "other"))
	if v := must(other.Get([]byte("k"))); v != nil {
		t.Errorf("other bucket Get = %x, wanted nil", v)
	}
}

func TestBoltBucketStorage(t *testing.T) {
	s := openTestBolt(t)
	errBoom := errors.New("boom")

	err := s.Bolt().Update(func(btx *bbolt.Tx) error {
		st := BoltBucketStorage(btx.Bucket([]byte(DefaultBoltBucket)))
		ensure(NewBucket(st, personType, []byte("people")).Save([]byte("k"), &Person{"A", 1}))
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("Update = %v, wanted %v", err, errBoom)
	}
	isnil(t, must(NewBucket(s, personType, []byte("people")).MayLoad([]byte("k"))))

	ensure(s.Bolt().Update(func(btx *bbolt.Tx) error {
		st := BoltBucketStorage(btx.Bucket([]byte(DefaultBoltBucket)))
		people := NewBucket(st, personType, []byte("people"))
		ensure(people.Save([]byte("k"), &Person{"A", 1}))
		return byAge.Write(st, []byte("k"), nil, &Person{"A", 1})
	}))
	deepEqual(t, *must(NewBucket(s, personType, []byte("people")).Load([]byte("k"))), Person{"A", 1})
	deepEqual(t, must(byAge.ReadRefs(s, &Person{Age: 1})), [][]byte{[]byte("k")})

	ensure(s.Bolt().View(func(btx *bbolt.Tx) error {
		st := BoltBucketStorage(btx.Bucket([]byte(DefaultBoltBucket)))
		deepEqual(t, *must(ReadBucket(st, personType, []byte("people")).Load([]byte("k"))), Person{"A", 1})
		return nil
	}))
}

func TestLevelDBStorage_Update(t *testing.T) {
	s := openTestLevelDB(t)
	errBoom := errors.New("boom")

	err := s.Update(func(st Storage) error {
		ensure(st.Set([]byte("k"), []byte("v")))
		deepEqual(t, must(st.Get([]byte("k"))), []byte("v"))
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("Update = %v, wanted %v", err, errBoom)
	}
	if v := must(s.Get([]byte("k"))); v != nil {
		t.Errorf("Get after rollback = %x, wanted nil", v)
	}

	ensure(s.Update(func(st Storage) error {
		return st.Set([]byte("k"), []byte("v"))
	}))
	deepEqual(t, must(s.Get([]byte("k"))), []byte("v"))
}

func TestLevelDBStorage_Update_panic(t *testing.T) {
	s := openTestLevelDB(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("Update did not re-panic")
			}
		}()
		s.Update(func(st Storage) error {
			ensure(st.Set([]byte("k"), []byte("v")))
			panic("boom")
		})
	}()

	// the transaction is gone, so plain writes go through
	ensure(s.Set([]byte("other"), []byte("1")))
	deepEqual(t, must(s.Get([]byte("other"))), []byte("1"))
	if v := must(s.Get([]byte("k"))); v != nil {
		t.Errorf("Get after panic = %x, wanted nil", v)
	}
}

func TestLevelDBStorage_reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ldb")
	s := must(OpenLevelDB(path, LevelDBOptions{}))
	ensure(NewBucket(s, personType, []byte("people")).Save([]byte("k"), &Person{"A", 1}))
	ensure(s.Close())
	ensure(s.Close())

	s = must(OpenLevelDB(path, LevelDBOptions{Sync: true, NoCompression: true}))
	defer s.Close()
	deepEqual(t, *must(NewBucket(s, personType, []byte("people")).Load([]byte("k"))), Person{"A", 1})
}

func TestJournalStorage_reopen(t *testing.T) {
	dir := t.TempDir()
	s := must(OpenJournal(dir, JournalOptions{}))
	people := NewBucket(s, personType, []byte("people"))
	ensure(people.Save([]byte("k1"), &Person{"A", 1}))
	ensure(people.Save([]byte("k2"), &Person{"B", 2}))
	ensure(people.Save([]byte("k1"), &Person{"A", 3}))
	ensure(s.Set([]byte("empty"), []byte{}))
	ensure(s.Set([]byte("nil"), nil))
	if v := must(s.Get([]byte("nil"))); v == nil {
		t.Fatalf("Get(nil) before reopen = nil, wanted empty")
	}
	ensure(s.Close())

	s = must(OpenJournal(dir, JournalOptions{}))
	defer s.Close()
	people = NewBucket(s, personType, []byte("people"))
	deepEqual(t, *must(people.Load([]byte("k1"))), Person{"A", 3})
	deepEqual(t, *must(people.Load([]byte("k2"))), Person{"B", 2})
	deepEqual(t, must(s.Get([]byte("empty"))), []byte{})
	deepEqual(t, must(s.Get([]byte("nil"))), []byte{})
	deepEqual(t, s.Mem().Len(), 4)

	names := must(s.Journal().FileNames())
	deepEqual(t, len(names), 1)
}

func TestJournalStorage_badRecord(t *testing.T) {
	_, _, err := decodeSetRecord(x("05 6162"))
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("decodeSetRecord = %v, wanted *DataError", err)
	}
	_, _, err = decodeSetRecord(append(encodeSetRecord([]byte("k"), []byte("v")), 0))
	if !errors.As(err, &de) {
		t.Fatalf("decodeSetRecord(trailing) = %v, wanted *DataError", err)
	}
	k, v := must2(decodeSetRecord(encodeSetRecord([]byte("k"), []byte("v"))))
	deepEqual(t, k, []byte("k"))
	deepEqual(t, v, []byte("v"))
}

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	errDisk := errors.New("disk on fire")
	cs := &countingStorage{st: NewMemStorage(), err: errDisk}
	st := WithLogging(cs, logger, LogOptions{Name: "main"})

	ensure(st.Set([]byte("k"), []byte("v")))
	must(st.Get([]byte("k")))
	out := buf.String()
	for _, s := range []string{`msg="kvbucket: set" storage=main key=6b val=76`, `msg="kvbucket: get" storage=main key=6b val=76`} {
		if !strings.Contains(out, s) {
			t.Errorf("log = %q, wanted it to contain %q", out, s)
		}
	}

	buf.Reset()
	cs.failOn = "get"
	_, err := st.Get([]byte("k"))
	if err != errDisk {
		t.Fatalf("Get = %v, wanted %v", err, errDisk)
	}
	if out := buf.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "disk on fire") {
		t.Errorf("log = %q, wanted an error record", out)
	}

	buf.Reset()
	st = WithLogging(NewMemStorage(), logger, LogOptions{SuppressValues: true, Level: slog.LevelInfo})
	ensure(st.Set([]byte("k"), []byte("secret")))
	if out := buf.String(); !strings.Contains(out, "level=INFO") || !strings.Contains(out, "val_len=6") || strings.Contains(out, "736563726574") {
		t.Errorf("log = %q, wanted suppressed value at INFO", out)
	}
}

func TestMemStorage_Dump(t *testing.T) {
	st := NewMemStorage()
	ensure(NewBucket(st, settingsType, []byte("users")).Save([]byte("k1"), &Settings{"dark"}))
	ensure(NewMultilevelBucket(st, settingsType, []byte("a b"), []byte("c")).Save([]byte{}, &Settings{}))
	ensure(st.Set([]byte("zz"), []byte{1}))

	deepEqual(t, st.Dump(), strings.Join([]string{
		`"a b"/c/ <empty> = 81a174a0`,
		`users/ 6b31 = 81a174a46461726b`,
		`7a7a = 01`,
		``,
	}, "\n"))

	stats := st.Stats()
	deepEqual(t, stats.Keys, 3)
}

func must2[A, B any](a A, b B, err error) (A, B) {
	if err != nil {
		panic(err)
	}
	return a, b
}
