package collections

import (
	"bytes"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// decoderFor returns a deserializer for eventual.DeserializeAs.
func decoderFor[T any]() func(io.Reader) (T, error) {
	return func(r io.Reader) (T, error) {
		var v T
		dec := msgpack.GetDecoder()
		dec.Reset(r)
		err := dec.Decode(&v)
		msgpack.PutDecoder(dec)
		if err != nil {
			return v, fmt.Errorf("decode %T: %w", v, err)
		}
		return v, nil
	}
}
