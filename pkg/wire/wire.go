// Package wire implements the compact, deterministic binary primitives used on
// the command/response channel.
//
// The format has no padding and no self-describing tags:
//
//   - unsigned integers are LEB128 varints (minimal length only)
//   - f64 is 8 bytes little-endian IEEE-754
//   - enum discriminants are varint u32 in declaration order
//   - strings and sequences carry a varint length prefix
//   - fixed-size arrays are written element by element with no prefix
//   - durations are (seconds u64, nanoseconds u32)
//
// Decoding is strict: anything that would not re-encode to the same bytes is
// rejected, so encode(decode(b)) == b holds for every accepted input.
package wire

import (
    "errors"
    "fmt"
)

var (
    ErrTruncated      = errors.New("unexpected end of input")
    ErrOverflow       = errors.New("integer overflow")
    ErrNonCanonical   = errors.New("non-canonical varint")
    ErrTrailing       = errors.New("trailing bytes")
    ErrInvalidUTF8    = errors.New("invalid utf-8 string")
    ErrLength         = errors.New("length exceeds remaining input")
    ErrRange          = errors.New("value out of range")
    ErrUnknownVariant = errors.New("unknown enum discriminant")
)

// Error describes a decoding failure at a byte offset.
type Error struct {
    Offset int
    What   string
    Err    error
}

func (e *Error) Error() string {
    if e.What == "" {
        return fmt.Sprintf("wire: offset %d: %v", e.Offset, e.Err)
    }
    return fmt.Sprintf("wire: %s at offset %d: %v", e.What, e.Offset, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
