package codec

import (
    "encoding"
    "fmt"
)

type wireCodec struct{}

// Wire returns the canonical binary codec. Values must implement
// encoding.BinaryMarshaler; targets encoding.BinaryUnmarshaler.
// Content-Type: application/x-beamlink
func Wire() Codec { return wireCodec{} }

func (wireCodec) ContentType() string { return "application/x-beamlink" }

func (wireCodec) Marshal(v any) ([]byte, error) {
    m, ok := v.(encoding.BinaryMarshaler)
    if !ok {
        return nil, fmt.Errorf("wire: value does not implement encoding.BinaryMarshaler: %T", v)
    }
    return m.MarshalBinary()
}

func (wireCodec) Unmarshal(data []byte, v any) error {
    u, ok := v.(encoding.BinaryUnmarshaler)
    if !ok {
        return fmt.Errorf("wire: target does not implement encoding.BinaryUnmarshaler: %T", v)
    }
    return u.UnmarshalBinary(data)
}
