package stream

import (
    "bytes"
    "io"
    "net"
    "testing"
)

func TestFramerRoundtrip(t *testing.T) {
    var buf bytes.Buffer
    f := New(&buf)
    msgs := [][]byte{[]byte("a"), {}, bytes.Repeat([]byte{0xAB}, 5000)}
    for _, m := range msgs {
        if err := f.SendBytes(m); err != nil { t.Fatalf("send: %v", err) }
    }
    if got := buf.Bytes()[:4]; !bytes.Equal(got, []byte{1, 0, 0, 0}) { t.Fatalf("prefix = %x", got) }
    for i, m := range msgs {
        got, err := f.RecvBytes()
        if err != nil { t.Fatalf("recv %d: %v", i, err) }
        if !bytes.Equal(got, m) { t.Fatalf("frame %d mismatch", i) }
    }
    if _, err := f.RecvBytes(); err != io.EOF { t.Fatalf("want EOF, got %v", err) }
}

func TestFramerSizeBound(t *testing.T) {
    var buf bytes.Buffer
    f := New(&buf)
    f.SetMax(8)
    if err := f.SendBytes(make([]byte, 9)); err == nil { t.Fatalf("expected send error") }
    buf.Write([]byte{0xff, 0xff, 0xff, 0x7f})
    if _, err := f.RecvBytes(); err == nil { t.Fatalf("expected size error") }
}

func TestFramerTruncated(t *testing.T) {
    f := New(bytes.NewBuffer([]byte{4, 0, 0, 0, 1, 2}))
    if _, err := f.RecvBytes(); err != io.ErrUnexpectedEOF { t.Fatalf("want ErrUnexpectedEOF, got %v", err) }
}

func TestFramerOverPipe(t *testing.T) {
    c1, c2 := net.Pipe()
    defer c1.Close(); defer c2.Close()
    a, b := New(c1), New(c2)
    go func() { _ = a.SendBytes([]byte("ping")) }()
    got, err := b.RecvBytes()
    if err != nil || string(got) != "ping" { t.Fatalf("recv = %q, %v", got, err) }
}
