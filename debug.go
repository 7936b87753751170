package kvbucket

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Dump lists every key and value, one pair per line, in key order.
//
// Keys built by ComposePrefix are shown as their namespace segments joined
// by "/", followed by the caller key in hex:
//
//	users/ 6b31 = 81a46e616d65a3426f62
//
// Keys that do not parse as a composed prefix are shown fully in hex.
func (s *MemStorage) Dump() string {
	var buf strings.Builder
	s.each(func(key, value []byte) {
		writeDumpKey(&buf, key)
		buf.WriteString(" = ")
		buf.WriteString(hexstr(value))
		buf.WriteByte('\n')
	})
	return buf.String()
}

func writeDumpKey(w *strings.Builder, key []byte) {
	segments, rest, err := SplitPrefix(key)
	if err != nil {
		w.WriteString(hexstr(key))
		return
	}
	for i, seg := range segments {
		if i > 0 {
			w.WriteByte('/')
		}
		writeDumpSegment(w, seg)
	}
	w.WriteString("/ ")
	w.WriteString(hexstr(rest))
}

func writeDumpSegment(w *strings.Builder, seg []byte) {
	if isPlainSegment(seg) {
		w.Write(seg)
	} else {
		fmt.Fprintf(w, "%q", seg)
	}
}

func isPlainSegment(seg []byte) bool {
	if len(seg) == 0 || !utf8.Valid(seg) {
		return false
	}
	for _, b := range seg {
		if b <= ' ' || b == '/' || b == '"' || b == 0x7f {
			return false
		}
	}
	return true
}
