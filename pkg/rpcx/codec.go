package rpcx

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// CodecName is passed to grpc.CallContentSubtype on every client call so
// the channel negotiates this codec instead of the default proto one.
const CodecName = "gob"

func init() {
	encoding.RegisterCodec(gobCodec{})
}

// gobCodec implements encoding.Codec (google.golang.org/grpc/encoding)
// entirely over encoding/gob. Laser's RPC messages are plain structs with
// no interfaces or unexported fields, so gob's reflective encoding round
// trips them without per-message registration.
type gobCodec struct{}

func (gobCodec) Name() string { return CodecName }

func (gobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("rpcx: gob marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("rpcx: gob unmarshal: %w", err)
	}
	return nil
}
