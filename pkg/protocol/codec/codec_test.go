package codec

import (
    "bytes"
    "encoding/binary"
    "errors"
    "testing"
)

type pair struct{ A, B uint16 }

func (p pair) MarshalBinary() ([]byte, error) {
    b := make([]byte, 4)
    binary.LittleEndian.PutUint16(b[0:2], p.A)
    binary.LittleEndian.PutUint16(b[2:4], p.B)
    return b, nil
}

func (p *pair) UnmarshalBinary(b []byte) error {
    if len(b) != 4 { return errors.New("pair: need 4 bytes") }
    p.A = binary.LittleEndian.Uint16(b[0:2])
    p.B = binary.LittleEndian.Uint16(b[2:4])
    return nil
}

func TestJSONCodec(t *testing.T) {
    c := JSON()
    in := map[string]any{"a": 1, "b": "x"}
    b, err := c.Marshal(in)
    if err != nil { t.Fatalf("marshal: %v", err) }
    var out map[string]any
    if err := c.Unmarshal(b, &out); err != nil { t.Fatalf("unmarshal: %v", err) }
    if out["a"].(float64) != 1 || out["b"].(string) != "x" {
        t.Fatalf("roundtrip mismatch: %#v", out)
    }
}

func TestCBORCodec(t *testing.T) {
    c, err := CBOR()
    if err != nil { t.Fatalf("new cbor: %v", err) }
    in := map[string]any{"n": 42}
    b, err := c.Marshal(in)
    if err != nil { t.Fatalf("marshal: %v", err) }
    var out map[string]any
    if err := c.Unmarshal(b, &out); err != nil { t.Fatalf("unmarshal: %v", err) }
    if n, ok := out["n"].(uint64); !ok || n != 42 {
        t.Fatalf("roundtrip mismatch: %#v", out)
    }
}

func TestCBORDeterministic(t *testing.T) {
    c, err := CBOR()
    if err != nil { t.Fatalf("new cbor: %v", err) }
    a, _ := c.Marshal(map[string]int{"b": 2, "a": 1, "c": 3})
    b, _ := c.Marshal(map[string]int{"c": 3, "a": 1, "b": 2})
    if !bytes.Equal(a, b) { t.Fatalf("canonical encoding differs: %x vs %x", a, b) }
}

func TestWireCodec(t *testing.T) {
    c := Wire()
    b, err := c.Marshal(pair{A: 1, B: 0x0203})
    if err != nil { t.Fatalf("marshal: %v", err) }
    if !bytes.Equal(b, []byte{1, 0, 3, 2}) { t.Fatalf("bytes = %x", b) }
    var out pair
    if err := c.Unmarshal(b, &out); err != nil { t.Fatalf("unmarshal: %v", err) }
    if out != (pair{A: 1, B: 0x0203}) { t.Fatalf("roundtrip mismatch: %+v", out) }
}

func TestWireCodecRejectsPlainValues(t *testing.T) {
    c := Wire()
    if _, err := c.Marshal(map[string]int{"a": 1}); err == nil { t.Fatalf("expected marshal error") }
    var s string
    if err := c.Unmarshal([]byte{1}, &s); err == nil { t.Fatalf("expected unmarshal error") }
}

func TestRegistry(t *testing.T) {
    r := NewRegistry()
    if r.Get("application/x-beamlink") == nil || r.Get("application/json") == nil {
        t.Fatalf("default codecs missing")
    }
    if r.Get("application/cbor") != nil { t.Fatalf("cbor registered by default") }
    c, _ := CBOR()
    r.Register(c)
    if r.Get("application/cbor") == nil { t.Fatalf("cbor not registered") }
}
