package kvbucket

import (
	"encoding/json"

	"go.etcd.io/bbolt"
)

type StorageStats struct {
	Keys int

	DataSize  int
	DataAlloc int
}

// Stats reports the size of the Bolt bucket holding the key space.
func (s *BoltStorage) Stats() (StorageStats, error) {
	var result StorageStats
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		bs := nonNil(btx.Bucket(s.buck)).Stats()
		result = StorageStats{
			Keys:      bs.KeyN,
			DataSize:  bs.LeafInuse,
			DataAlloc: bs.BranchAlloc + bs.LeafAlloc,
		}
		return nil
	})
	return result, err
}

// Stats reports the number of keys and the bytes they and their values
// occupy.
func (s *MemStorage) Stats() StorageStats {
	var result StorageStats
	s.each(func(key, value []byte) {
		result.Keys++
		result.DataSize += len(key) + len(value)
	})
	result.DataAlloc = result.DataSize
	return result
}

// Loggable renders v as JSON for log messages, honoring
// SuppressContentWhenLogging.
func (typ *Type[T]) Loggable(v *T) string {
	if v == nil {
		return "<none>"
	}
	if typ.suppressContent {
		return "<suppressed>"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(data)
}
