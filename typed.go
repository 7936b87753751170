package kvbucket

import "fmt"

// Type describes how values of T are written to storage. The name is used
// only for error attribution, and should be stable for a given T.
//
// Define types once, at package level, like tables in a schema:
//
//	var personType = kvbucket.DefineType[Person]("Person")
type Type[T any] struct {
	name            string
	enc             encodingMethod
	comp            compressionMethod
	suppressContent bool
}

type typeOpt int

const (
	// Snappy compresses encoded values with snappy.
	Snappy = typeOpt(1 + iota)
	// SuppressContentWhenLogging keeps raw stored bytes out of error messages.
	SuppressContentWhenLogging
)

// DefineType returns a Type named name. Options are MsgPack (default), JSON,
// Snappy and SuppressContentWhenLogging.
func DefineType[T any](name string, opts ...any) *Type[T] {
	if name == "" {
		panic("kvbucket: type name must not be empty")
	}
	typ := &Type[T]{
		name: name,
		enc:  defaultValueEncoding,
	}
	for _, opt := range opts {
		switch opt := opt.(type) {
		case encodingMethod:
			typ.enc = opt
		case typeOpt:
			switch opt {
			case Snappy:
				typ.comp = snappyCompression
			case SuppressContentWhenLogging:
				typ.suppressContent = true
			default:
				panic(fmt.Errorf("invalid option %T %v", opt, opt))
			}
		default:
			panic(fmt.Errorf("invalid option %T %v", opt, opt))
		}
	}
	return typ
}

func (typ *Type[T]) Name() string {
	return typ.name
}

func (typ *Type[T]) String() string {
	return typ.name
}

func (typ *Type[T]) Encode(v *T) ([]byte, error) {
	data, err := typ.enc.encodeValue(v)
	if err != nil {
		return nil, &EncodeError{typ.name, err}
	}
	return typ.comp.compress(data), nil
}

func (typ *Type[T]) Decode(data []byte) (*T, error) {
	raw, err := typ.comp.decompress(data)
	if err != nil {
		return nil, typ.decodeErr(data, err)
	}
	v := new(T)
	err = typ.enc.decodeValue(raw, v)
	if err != nil {
		return nil, typ.decodeErr(data, err)
	}
	return v, nil
}

func (typ *Type[T]) decodeErr(data []byte, err error) error {
	e := &DecodeError{Type: typ.name, Err: err}
	if !typ.suppressContent {
		e.Data = cloneValue(data)
	}
	return e
}

// DecodeOptional decodes data, treating nil as a missing value.
func (typ *Type[T]) DecodeOptional(data []byte) (*T, error) {
	if data == nil {
		return nil, nil
	}
	return typ.Decode(data)
}

// DecodeRequired decodes data, failing with *NotFoundError if it is nil.
func (typ *Type[T]) DecodeRequired(data []byte) (*T, error) {
	if data == nil {
		return nil, &NotFoundError{Type: typ.name}
	}
	return typ.Decode(data)
}

func Serialize[T any](typ *Type[T], v *T) ([]byte, error) {
	return typ.Encode(v)
}

func Deserialize[T any](typ *Type[T], data []byte) (*T, error) {
	return typ.DecodeRequired(data)
}

func MayDeserialize[T any](typ *Type[T], data []byte) (*T, error) {
	return typ.DecodeOptional(data)
}

// ReadonlyTypedStorage loads values of a single type from a ReadonlyStorage.
type ReadonlyTypedStorage[T any] struct {
	st  ReadonlyStorage
	typ *Type[T]
}

// TypedRead returns a read-only typed view of st.
func TypedRead[T any](st ReadonlyStorage, typ *Type[T]) *ReadonlyTypedStorage[T] {
	return &ReadonlyTypedStorage[T]{st, typ}
}

func (ts *ReadonlyTypedStorage[T]) Type() *Type[T] {
	return ts.typ
}

// Load fails with *NotFoundError if there is no value at key, and with
// *DecodeError if the stored bytes do not parse.
func (ts *ReadonlyTypedStorage[T]) Load(key []byte) (*T, error) {
	data, err := ts.st.Get(key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, &NotFoundError{Type: ts.typ.name, Key: cloneValue(key)}
	}
	return ts.typ.Decode(data)
}

// MayLoad returns nil if there is no value at key.
func (ts *ReadonlyTypedStorage[T]) MayLoad(key []byte) (*T, error) {
	data, err := ts.st.Get(key)
	if err != nil {
		return nil, err
	}
	return ts.typ.DecodeOptional(data)
}

// TypedStorage saves and loads values of a single type.
type TypedStorage[T any] struct {
	ReadonlyTypedStorage[T]
	st Storage
}

// Typed returns a typed view of st. Keys are used as given.
func Typed[T any](st Storage, typ *Type[T]) *TypedStorage[T] {
	return &TypedStorage[T]{ReadonlyTypedStorage[T]{st, typ}, st}
}

func (ts *TypedStorage[T]) Save(key []byte, v *T) error {
	data, err := ts.typ.Encode(v)
	if err != nil {
		return err
	}
	return ts.st.Set(key, data)
}

// Update loads the value at key, passes it to f and saves the result.
// Nothing is written if the value is missing or f fails; f's error is
// returned as is.
//
// Update is not atomic: a concurrent writer of the same key can slip in
// between the load and the save.
func (ts *TypedStorage[T]) Update(key []byte, f func(v *T) (*T, error)) (*T, error) {
	v, err := ts.Load(key)
	if err != nil {
		return nil, err
	}
	v, err = f(v)
	if err != nil {
		return nil, err
	}
	err = ts.Save(key, v)
	if err != nil {
		return nil, err
	}
	return v, nil
}
