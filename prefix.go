package kvbucket

import (
	"encoding/binary"
	"fmt"
)

const (
	segmentHeaderLen = 2

	// prefixTerminator closes every composed prefix. It can never be a length
	// header, which is what keeps composed prefixes prefix-free.
	prefixTerminator = 0xFFFF

	// MaxSegmentLen is the longest namespace segment ComposePrefix accepts.
	MaxSegmentLen = prefixTerminator - 1
)

// ComposePrefix encodes a namespace as a key prefix:
//
//	len1:16 seg1 len2:16 seg2 ... lenN:16 segN 0xFFFF
//
// Lengths are big-endian. For distinct segment lists the results are never
// equal and never a prefix of one another.
//
// Namespaces are static identifiers, so an empty list or a segment longer
// than MaxSegmentLen is a programming error and panics.
func ComposePrefix(segments ...[]byte) []byte {
	if len(segments) == 0 {
		panic("kvbucket: namespace must have at least one segment")
	}
	n := segmentHeaderLen
	for _, seg := range segments {
		if len(seg) > MaxSegmentLen {
			panic(fmt.Errorf("kvbucket: namespace segment too long: %d bytes, max %d", len(seg), MaxSegmentLen))
		}
		n += segmentHeaderLen + len(seg)
	}
	buf := make([]byte, 0, n)
	for _, seg := range segments {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(seg)))
		buf = append(buf, seg...)
	}
	return binary.BigEndian.AppendUint16(buf, prefixTerminator)
}

// KeyPrefix is the single-level case of ComposePrefix.
func KeyPrefix(namespace []byte) []byte {
	return ComposePrefix(namespace)
}

// KeyPrefixNested is ComposePrefix under the name used at call sites that
// build nested namespaces.
func KeyPrefixNested(namespaces ...[]byte) []byte {
	return ComposePrefix(namespaces...)
}

// SplitPrefix decodes a key produced under some composed prefix back into its
// namespace segments and the remaining caller key.
func SplitPrefix(key []byte) (segments [][]byte, rest []byte, err error) {
	d := makeByteDecoder(key)
	for {
		hdr, err := d.Raw(segmentHeaderLen)
		if err != nil {
			return nil, nil, err
		}
		n := binary.BigEndian.Uint16(hdr)
		if n == prefixTerminator {
			if len(segments) == 0 {
				return nil, nil, dataErrf(key, d.Off(), nil, "invalid prefix: no segments")
			}
			return segments, d.Buf, nil
		}
		seg, err := d.Raw(int(n))
		if err != nil {
			return nil, nil, err
		}
		segments = append(segments, seg)
	}
}

func joinKey(prefix, key []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(key))
	buf = append(buf, prefix...)
	return append(buf, key...)
}

// Prefixed returns a view of st in which every key is prepended with the
// composed prefix of namespaces.
func Prefixed(st Storage, namespaces ...[]byte) *PrefixedStorage {
	return &PrefixedStorage{ReadonlyPrefixedStorage{ComposePrefix(namespaces...), st}, st}
}

// PrefixedRead is the read-only version of Prefixed.
func PrefixedRead(st ReadonlyStorage, namespaces ...[]byte) *ReadonlyPrefixedStorage {
	return &ReadonlyPrefixedStorage{ComposePrefix(namespaces...), st}
}

// ReadonlyPrefixedStorage reads keys of a single namespace.
type ReadonlyPrefixedStorage struct {
	prefix []byte
	st     ReadonlyStorage
}

func (s *ReadonlyPrefixedStorage) Prefix() []byte {
	return s.prefix
}

func (s *ReadonlyPrefixedStorage) Get(key []byte) ([]byte, error) {
	return s.st.Get(joinKey(s.prefix, key))
}

// PrefixedStorage reads and writes keys of a single namespace.
type PrefixedStorage struct {
	ReadonlyPrefixedStorage
	st Storage
}

func (s *PrefixedStorage) Set(key, value []byte) error {
	return s.st.Set(joinKey(s.prefix, key), value)
}
