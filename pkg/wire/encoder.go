package wire

import (
    "fmt"
    "math"
    "time"

    "google.golang.org/protobuf/encoding/protowire"
)

// Encoder appends primitives to an internal buffer. The zero value is ready
// to use.
type Encoder struct {
    buf []byte
}

// NewEncoder returns an encoder with capacity preallocated.
func NewEncoder(capacity int) *Encoder { return &Encoder{buf: make([]byte, 0, capacity)} }

// Bytes returns the encoded buffer. It aliases the encoder's storage.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int { return len(e.buf) }

// Reset empties the buffer while keeping its capacity.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

func (e *Encoder) Uint32(v uint32) { e.buf = protowire.AppendVarint(e.buf, uint64(v)) }

func (e *Encoder) Uint64(v uint64) { e.buf = protowire.AppendVarint(e.buf, v) }

// Variant writes an enum discriminant.
func (e *Encoder) Variant(v uint32) { e.Uint32(v) }

// SeqLen writes a sequence length prefix.
func (e *Encoder) SeqLen(n int) { e.Uint64(uint64(n)) }

func (e *Encoder) Float64(f float64) { e.buf = protowire.AppendFixed64(e.buf, math.Float64bits(f)) }

// Complex128 writes the real part followed by the imaginary part.
func (e *Encoder) Complex128(c complex128) {
    e.Float64(real(c))
    e.Float64(imag(c))
}

func (e *Encoder) String(s string) {
    e.SeqLen(len(s))
    e.buf = append(e.buf, s...)
}

// Uint32s writes a length-prefixed sequence of varint u32 values.
func (e *Encoder) Uint32s(vs []uint32) {
    e.SeqLen(len(vs))
    for _, v := range vs {
        e.Uint32(v)
    }
}

// Duration writes d as (whole seconds, sub-second nanoseconds).
func (e *Encoder) Duration(d time.Duration) error {
    if d < 0 {
        return fmt.Errorf("wire: negative duration %s: %w", d, ErrRange)
    }
    e.Uint64(uint64(d / time.Second))
    e.Uint32(uint32(d % time.Second))
    return nil
}
