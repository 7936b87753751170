package kvbucket

import (
	"encoding/binary"
	"encoding/hex"
	"reflect"
	"strings"
	"testing"
)

type (
	Person struct {
		Name string `msgpack:"name" json:"name"`
		Age  int    `msgpack:"age" json:"age"`
	}

	Settings struct {
		Theme string `msgpack:"t" json:"theme"`
	}
)

var (
	personType     = DefineType[Person]("Person")
	personJSONType = DefineType[Person]("PersonJSON", JSON)
	personSnappy   = DefineType[Person]("PersonSnappy", Snappy)
	settingsType   = DefineType[Settings]("Settings")

	byAge = NewIndex([]byte("by_age"), func(p *Person) []byte {
		return binary.BigEndian.AppendUint32(nil, uint32(p.Age))
	})
)

// countingStorage counts calls made to the underlying storage.
type countingStorage struct {
	st     Storage
	gets   int
	sets   int
	failOn string
	err    error
}

func (s *countingStorage) Get(key []byte) ([]byte, error) {
	s.gets++
	if s.failOn == "get" {
		return nil, s.err
	}
	return s.st.Get(key)
}

func (s *countingStorage) Set(key, value []byte) error {
	s.sets++
	if s.failOn == "set" {
		return s.err
	}
	return s.st.Set(key, value)
}

func (s *countingStorage) reset() {
	s.gets, s.sets = 0, 0
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isnil[T any, P ~*T](t testing.TB, a P) {
	if a != nil {
		t.Helper()
		t.Errorf("** got &%v, wanted nil", *a)
	}
}

func isnonnil[T any](t testing.TB, a *T) {
	if a == nil {
		t.Helper()
		t.Errorf("** got nil %T, wanted non-nil", a)
	}
}

func x(data string) []byte {
	data = strings.ReplaceAll(data, " ", "")
	return must(hex.DecodeString(data))
}

func mustPanic(t testing.TB, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Helper()
			t.Errorf("** %s did not panic", name)
		}
	}()
	f()
}
