package journal

import (
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

type pendingRecord struct {
	ts   uint32
	data []byte
}

// Replay calls fn for every committed record, oldest first, and returns the
// number of records delivered.
//
// Within a segment, replay ends at the first corrupted or truncated spot
// and the rest of that segment is dropped. Every writing session starts a
// new segment, so a torn tail belongs to a session that did not finish, and
// replay moves on to the next segment. An error returned by fn stops
// Replay and is returned as is.
//
// Call Replay before StartWriting; it does not see records of the current
// writing session.
func (j *Journal) Replay(fn func(ts uint32, data []byte) error) (int, error) {
	names, err := j.segmentNames()
	if err != nil {
		return 0, err
	}

	var count int
	for _, name := range names {
		seq, _, _, err := j.parseSegmentName(name)
		if err != nil {
			return count, err
		}
		buf, err := os.ReadFile(filepath.Join(j.dir, name))
		if err != nil {
			return count, err
		}

		n, clean, err := j.replaySegment(buf, seq, fn)
		count += n
		if err != nil {
			return count, err
		}
		if !clean {
			j.logger.LogAttrs(j.context, slog.LevelWarn, "journal: dropping damaged tail", slog.String("jrnl", j.debugName), slog.String("file", name), slog.Int("records", n))
		}
	}

	j.writeLock.Lock()
	if uint64(count) > j.writeRec {
		j.writeRec = uint64(count)
	}
	j.writeLock.Unlock()

	return count, nil
}

// replaySegment delivers the committed records of a single segment file.
// clean is false if the segment ends in anything but a commit.
func (j *Journal) replaySegment(buf []byte, seq uint32, fn func(ts uint32, data []byte) error) (n int, clean bool, err error) {
	var h segmentHeader
	err = j.decodeHeader(buf, &h, seq)
	if err == errCorruptedFile {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}

	hash := xxhash.New()
	hash.Write(buf[:segmentHeaderSize])
	buf = buf[segmentHeaderSize:]

	ts := h.Timestamp
	var pending []pendingRecord
	for len(buf) > 0 {
		if buf[0]&recordFlagCommit != 0 {
			if len(buf) < 8 {
				return n, false, nil
			}
			stored := binary.LittleEndian.Uint64(buf[:8])
			if stored != hash.Sum64()|uint64(recordFlagCommit) {
				return n, false, nil
			}
			hash.Write(buf[:8])
			buf = buf[8:]

			for _, rec := range pending {
				err := fn(rec.ts, rec.data)
				if err != nil {
					return n, false, err
				}
				n++
			}
			pending = pending[:0]
			continue
		}

		sizeAndFlags, sn := binary.Uvarint(buf)
		if sn <= 0 {
			return n, false, nil
		}
		tsDelta, tn := binary.Uvarint(buf[sn:])
		if tn <= 0 || tsDelta > 0xFFFF_FFFF {
			return n, false, nil
		}
		hlen := sn + tn
		size := sizeAndFlags >> recordFlagShift
		if size > uint64(len(buf)-hlen) {
			return n, false, nil
		}
		end := hlen + int(size)
		hash.Write(buf[:end])

		ts += uint32(tsDelta)
		pending = append(pending, pendingRecord{ts, buf[hlen:end]})
		buf = buf[end:]
	}
	return n, len(pending) == 0, nil
}
