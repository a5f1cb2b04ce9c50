package netkit

import (
	"encoding/json"
	"fmt"
)

// Codec converts between a Go value and its wire representation. It is a
// compile-time bound in place of a runtime "sendable/encodable" cast:
// StructuredBody.Encode and Response decoding both go through this
// interface rather than type-switching on any.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
	ContentType() string
}

// JSONCodec is the default Codec, used to decode responses for Endpoints
// that do not specify one. StructuredBody does not fall back to it: a
// StructuredBody without a Codec fails to encode.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return data, nil
}

func (JSONCodec) Decode(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}

func (JSONCodec) ContentType() string { return "application/json" }

// DefaultCodec is the package-level JSONCodec instance engines fall back to.
var DefaultCodec Codec = JSONCodec{}
