package kvbucket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
	"github.com/vmihailenco/msgpack/v5"
)

type encodingMethod int

const (
	MsgPack encodingMethod = iota
	JSON

	defaultValueEncoding = MsgPack
)

func (enc encodingMethod) String() string {
	switch enc {
	case MsgPack:
		return "msgpack"
	case JSON:
		return "json"
	default:
		return fmt.Sprintf("encoding(%d)", int(enc))
	}
}

func (enc encodingMethod) encodeValue(v any) ([]byte, error) {
	switch enc {
	case MsgPack:
		var buf bytes.Buffer
		e := msgpack.GetEncoder()
		e.Reset(&buf)
		e.SetSortMapKeys(true)
		err := e.Encode(v)
		msgpack.PutEncoder(e)
		if err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case JSON:
		return json.Marshal(v)
	default:
		panic("unsupported encoding")
	}
}

func (enc encodingMethod) decodeValue(data []byte, ptr any) error {
	switch enc {
	case MsgPack:
		var r bytes.Reader
		r.Reset(data)
		d := msgpack.GetDecoder()
		d.Reset(&r)
		err := d.Decode(ptr)
		msgpack.PutDecoder(d)
		if err == nil && r.Len() != 0 {
			err = fmt.Errorf("%d trailing bytes", r.Len())
		}
		return err
	case JSON:
		return json.Unmarshal(data, ptr)
	default:
		panic("unsupported encoding")
	}
}

type compressionMethod int

const (
	noCompression compressionMethod = iota
	snappyCompression
)

func (c compressionMethod) compress(data []byte) []byte {
	switch c {
	case noCompression:
		return data
	case snappyCompression:
		return snappy.Encode(nil, data)
	default:
		panic("unsupported compression")
	}
}

func (c compressionMethod) decompress(data []byte) ([]byte, error) {
	switch c {
	case noCompression:
		return data, nil
	case snappyCompression:
		return snappy.Decode(nil, data)
	default:
		panic("unsupported compression")
	}
}
