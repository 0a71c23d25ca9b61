package protocol

import (
    "errors"
    "testing"
)

func TestHeaderRoundtrip(t *testing.T) {
    h := Header{Version: Version, Type: MsgResponse, Flags: FlagRetry | FlagDebug, Seq: 0xBEEF, PayloadLen: 1234, PayloadCRC: 0xDEADBEEF}
    b, err := h.MarshalBinary()
    if err != nil { t.Fatalf("marshal: %v", err) }
    if len(b) != headerSize { t.Fatalf("header size = %d", len(b)) }
    if b[0] != 0x4c || b[1] != 0x42 { t.Fatalf("magic bytes = %x", b[:2]) }

    var h2 Header
    if err := h2.UnmarshalBinary(b); err != nil { t.Fatalf("unmarshal: %v", err) }
    if h2 != h { t.Fatalf("headers differ: %#v vs %#v", h2, h) }
}

func TestHeaderRejects(t *testing.T) {
    good := Header{Version: Version, Type: MsgCommand}
    base, _ := good.MarshalBinary()

    var h Header
    if err := h.UnmarshalBinary(base[:headerSize-1]); !errors.Is(err, ErrShortHeader) {
        t.Fatalf("short: %v", err)
    }
    bad := append([]byte(nil), base...)
    bad[0] = 'X'
    if err := h.UnmarshalBinary(bad); !errors.Is(err, ErrBadMagic) { t.Fatalf("magic: %v", err) }
    bad = append([]byte(nil), base...)
    bad[2] = 9
    if err := h.UnmarshalBinary(bad); !errors.Is(err, ErrBadVersion) { t.Fatalf("version: %v", err) }
    big := good
    big.PayloadLen = MaxPayload + 1
    bb, _ := big.MarshalBinary()
    if err := h.UnmarshalBinary(bb); !errors.Is(err, ErrTooLarge) { t.Fatalf("too large: %v", err) }
}
