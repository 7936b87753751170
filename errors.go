package kvbucket

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound matches any *NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Msg)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	buf.WriteString(": ")
	writeDataExcerpt(&buf, e.Data)
	return buf.String()
}

func writeDataExcerpt(buf *strings.Builder, data []byte) {
	const prefixLen = 64
	const suffixLen = 32
	n := len(data)
	if n <= prefixLen+suffixLen {
		fmt.Fprintf(buf, "(%d) %x", n, data)
	} else {
		fmt.Fprintf(buf, "(%d) %x...%x", n, data[:prefixLen], data[n-suffixLen:])
	}
}

// NotFoundError is returned when a required value is missing, including
// when RemoveRef targets an index entry that was never created.
type NotFoundError struct {
	Type string
	Key  []byte
}

func (e *NotFoundError) Error() string {
	if e.Key == nil {
		return e.Type + " not found"
	}
	return fmt.Sprintf("%s not found at %s", e.Type, hexstr(e.Key))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DecodeError is returned when stored bytes do not parse as the expected type.
type DecodeError struct {
	Type string
	Data []byte // nil when the type suppresses content
	Err  error
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Error() string {
	var buf strings.Builder
	buf.WriteString("failed to decode ")
	buf.WriteString(e.Type)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	if e.Data != nil {
		buf.WriteString(": ")
		writeDataExcerpt(&buf, e.Data)
	}
	return buf.String()
}

// EncodeError is returned when a value cannot be serialized.
type EncodeError struct {
	Type string
	Err  error
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode %s: %v", e.Type, e.Err)
}

// IsNotFound is shorthand for errors.Is(err, ErrNotFound).
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
