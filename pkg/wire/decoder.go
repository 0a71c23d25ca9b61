package wire

import (
    "math"
    "time"
    "unicode/utf8"

    "google.golang.org/protobuf/encoding/protowire"
)

// maxDurationSecs is the largest whole-second count representable as a
// time.Duration.
const maxDurationSecs = uint64(math.MaxInt64 / int64(time.Second))

// Decoder consumes primitives from a byte slice. It never reads past the end
// of its input and never panics on malformed data.
type Decoder struct {
    buf []byte
    off int
}

func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.off }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

// Finish reports an error if unread bytes remain.
func (d *Decoder) Finish() error {
    if d.off != len(d.buf) {
        return d.fail("", ErrTrailing)
    }
    return nil
}

func (d *Decoder) fail(what string, err error) error {
    return &Error{Offset: d.off, What: what, Err: err}
}

func (d *Decoder) varint(what string) (uint64, error) {
    v, n := protowire.ConsumeVarint(d.buf[d.off:])
    if n < 0 {
        // protowire reports -1 for short input and a different code for
        // varints longer than ten bytes.
        if n == -1 { return 0, d.fail(what, ErrTruncated) }
        return 0, d.fail(what, ErrOverflow)
    }
    if n != protowire.SizeVarint(v) {
        return 0, d.fail(what, ErrNonCanonical)
    }
    d.off += n
    return v, nil
}

func (d *Decoder) Uint64(what string) (uint64, error) { return d.varint(what) }

func (d *Decoder) Uint32(what string) (uint32, error) {
    start := d.off
    v, err := d.varint(what)
    if err != nil { return 0, err }
    if v > math.MaxUint32 {
        d.off = start
        return 0, d.fail(what, ErrOverflow)
    }
    return uint32(v), nil
}

// Variant reads an enum discriminant.
func (d *Decoder) Variant(what string) (uint32, error) { return d.Uint32(what) }

// SeqLen reads a sequence length prefix. minElem is the smallest encoded
// size of one element; lengths that cannot fit in the remaining input are
// rejected before anything is allocated.
func (d *Decoder) SeqLen(what string, minElem int) (int, error) {
    start := d.off
    v, err := d.varint(what)
    if err != nil { return 0, err }
    if minElem < 1 { minElem = 1 }
    if v > uint64(d.Remaining()/minElem) {
        d.off = start
        return 0, d.fail(what, ErrLength)
    }
    return int(v), nil
}

func (d *Decoder) Float64(what string) (float64, error) {
    v, n := protowire.ConsumeFixed64(d.buf[d.off:])
    if n < 0 {
        return 0, d.fail(what, ErrTruncated)
    }
    d.off += n
    return math.Float64frombits(v), nil
}

func (d *Decoder) Complex128(what string) (complex128, error) {
    re, err := d.Float64(what)
    if err != nil { return 0, err }
    im, err := d.Float64(what)
    if err != nil { return 0, err }
    return complex(re, im), nil
}

func (d *Decoder) String(what string) (string, error) {
    n, err := d.SeqLen(what, 1)
    if err != nil { return "", err }
    b := d.buf[d.off : d.off+n]
    if !utf8.Valid(b) {
        return "", d.fail(what, ErrInvalidUTF8)
    }
    d.off += n
    return string(b), nil
}

// Uint32s reads a length-prefixed sequence of varint u32 values. An empty
// sequence decodes as nil.
func (d *Decoder) Uint32s(what string) ([]uint32, error) {
    n, err := d.SeqLen(what, 1)
    if err != nil { return nil, err }
    if n == 0 { return nil, nil }
    out := make([]uint32, n)
    for i := range out {
        if out[i], err = d.Uint32(what); err != nil { return nil, err }
    }
    return out, nil
}

// Duration reads a (seconds, nanoseconds) pair.
func (d *Decoder) Duration(what string) (time.Duration, error) {
    start := d.off
    secs, err := d.Uint64(what)
    if err != nil { return 0, err }
    nanos, err := d.Uint32(what)
    if err != nil { return 0, err }
    if nanos >= uint32(time.Second) {
        d.off = start
        return 0, d.fail(what, ErrRange)
    }
    if secs > maxDurationSecs {
        d.off = start
        return 0, d.fail(what, ErrOverflow)
    }
    total := time.Duration(secs) * time.Second
    if total > time.Duration(math.MaxInt64)-time.Duration(nanos) {
        d.off = start
        return 0, d.fail(what, ErrOverflow)
    }
    return total + time.Duration(nanos), nil
}
