package kvbucket

import (
	"errors"
	"testing"
)

func TestBucket_basics(t *testing.T) {
	st := NewMemStorage()
	people := NewBucket(st, personType, []byte("people"))

	isnil(t, must(people.MayLoad([]byte("k1"))))
	ensure(people.Save([]byte("k1"), &Person{"Bob", 30}))
	deepEqual(t, *must(people.Load([]byte("k1"))), Person{"Bob", 30})

	// stored under the composed prefix
	raw := must(st.Get(x("0006 70656f706c65 ffff 6b31")))
	deepEqual(t, *must(personType.Decode(raw)), Person{"Bob", 30})
	deepEqual(t, people.Prefix(), x("0006 70656f706c65 ffff"))
}

func TestBucket_isolation(t *testing.T) {
	st := NewMemStorage()
	people := NewBucket(st, personType, []byte("people"))
	others := NewBucket(st, personType, []byte("peopl"))
	nested := NewMultilevelBucket(st, personType, []byte("people"), []byte("x"))

	ensure(people.Save([]byte("k"), &Person{"A", 1}))
	ensure(others.Save([]byte("ek"), &Person{"B", 2}))
	ensure(nested.Save([]byte("k"), &Person{"C", 3}))

	deepEqual(t, *must(people.Load([]byte("k"))), Person{"A", 1})
	deepEqual(t, *must(others.Load([]byte("ek"))), Person{"B", 2})
	deepEqual(t, *must(nested.Load([]byte("k"))), Person{"C", 3})
	isnil(t, must(others.MayLoad([]byte("k"))))
	deepEqual(t, st.Len(), 3)
}

func TestBucket_differentTypes(t *testing.T) {
	st := NewMemStorage()
	people := NewBucket(st, personType, []byte("people"))
	settings := NewMultilevelBucket(st, settingsType, []byte("people"), []byte("settings"))

	ensure(people.Save([]byte("u1"), &Person{"A", 1}))
	ensure(settings.Save([]byte("u1"), &Settings{"dark"}))

	deepEqual(t, *must(people.Load([]byte("u1"))), Person{"A", 1})
	deepEqual(t, *must(settings.Load([]byte("u1"))), Settings{"dark"})
}

func TestBucket_Update(t *testing.T) {
	st := NewMemStorage()
	people := NewBucket(st, personType, []byte("people"))
	ensure(people.Save([]byte("k"), &Person{"A", 1}))

	p := must(people.Update([]byte("k"), func(p *Person) (*Person, error) {
		p.Name = "B"
		return p, nil
	}))
	deepEqual(t, *p, Person{"B", 1})

	_, err := people.Update([]byte("nope"), func(p *Person) (*Person, error) {
		return p, nil
	})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Update = %v, wanted *NotFoundError", err)
	}
	// the key is the one the caller passed, not the physical one
	deepEqual(t, nf.Key, []byte("nope"))
}

func TestReadBucket(t *testing.T) {
	st := NewMemStorage()
	ensure(NewBucket(st, personType, []byte("people")).Save([]byte("k"), &Person{"A", 1}))

	ro := ReadBucket(st, personType, []byte("people"))
	deepEqual(t, *must(ro.Load([]byte("k"))), Person{"A", 1})
	isnil(t, must(ro.MayLoad([]byte("z"))))
	deepEqual(t, ro.Prefix(), KeyPrefix([]byte("people")))
}
