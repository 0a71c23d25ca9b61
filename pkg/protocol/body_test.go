package protocol

import (
    "reflect"
    "testing"

    "beamlink/pkg/protocol/codec"
)

func TestEncodeDecodeBodyJSON(t *testing.T) {
    reg := codec.NewRegistry()
    in := map[string]any{"x": 1, "y": "z"}
    b, err := EncodeBody(reg, FormatJSON, in)
    if err != nil { t.Fatalf("encode: %v", err) }
    if b[0] != byte(FormatJSON) { t.Fatalf("format prefix mismatch") }
    var out map[string]any
    f, err := DecodeBody(reg, b, &out)
    if err != nil { t.Fatalf("decode: %v", err) }
    if f != FormatJSON { t.Fatalf("format mismatch") }
    if out["y"] != "z" { t.Fatalf("value mismatch: %#v", out) }
}

func TestEncodeDecodeBodyCBORFallback(t *testing.T) {
    // cbor is not registered; CodecFor builds one on demand
    reg := codec.NewRegistry()
    job := exampleJob()
    b, err := EncodeBody(reg, FormatCBOR, job)
    if err != nil { t.Fatalf("encode: %v", err) }
    var out Job
    if _, err := DecodeBody(reg, b, &out); err != nil { t.Fatalf("decode: %v", err) }
    if !reflect.DeepEqual(out, job) { t.Fatalf("job mismatch:\n got %+v\nwant %+v", out, job) }
}

func TestEncodeDecodeBodyWire(t *testing.T) {
    reg := codec.NewRegistry()
    job := exampleJob()
    b, err := EncodeBody(reg, FormatWire, job)
    if err != nil { t.Fatalf("encode: %v", err) }
    raw, _ := job.MarshalBinary()
    if len(b) != len(raw)+1 { t.Fatalf("body len = %d, want %d", len(b), len(raw)+1) }
    var out Job
    f, err := DecodeBody(reg, b, &out)
    if err != nil { t.Fatalf("decode: %v", err) }
    if f != FormatWire || !reflect.DeepEqual(out, job) { t.Fatalf("roundtrip mismatch") }
}

func TestDecodeBodyErrors(t *testing.T) {
    reg := codec.NewRegistry()
    var out Job
    if _, err := DecodeBody(reg, nil, &out); err == nil { t.Fatalf("expected error for empty payload") }
    if _, err := DecodeBody(reg, []byte{0x7f, 0x00}, &out); err == nil { t.Fatalf("expected error for unknown format") }
}

func TestParseFormat(t *testing.T) {
    for name, want := range map[string]Format{"wire": FormatWire, "cbor": FormatCBOR, "json": FormatJSON} {
        got, err := ParseFormat(name)
        if err != nil || got != want { t.Fatalf("ParseFormat(%q) = %v, %v", name, got, err) }
    }
    if _, err := ParseFormat("xml"); err == nil { t.Fatalf("expected error") }
}
