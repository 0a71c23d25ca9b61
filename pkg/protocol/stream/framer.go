package stream

import (
    "bufio"
    "encoding/binary"
    "fmt"
    "io"
    "sync"

    "beamlink/pkg/protocol"
)

// MaxFrame bounds one length-prefixed message: a full protocol frame.
const MaxFrame = protocol.MaxPayload + 16

// Framer sends and receives length-prefixed messages (u32 LE) over an
// io.ReadWriter. SendBytes is safe for concurrent use; RecvBytes expects a
// single reader.
type Framer struct {
    mu  sync.Mutex
    br  *bufio.Reader
    bw  *bufio.Writer
    max int
}

func New(rw io.ReadWriter) *Framer { return NewSplit(rw, rw) }

// NewSplit builds a framer from separate read and write halves.
func NewSplit(r io.Reader, w io.Writer) *Framer {
    return &Framer{br: bufio.NewReader(r), bw: bufio.NewWriter(w), max: MaxFrame}
}

// SetMax changes the receive size bound. Values <= 0 restore MaxFrame.
func (f *Framer) SetMax(n int) {
    if n <= 0 { n = MaxFrame }
    f.max = n
}

func (f *Framer) SendBytes(b []byte) error {
    if len(b) > f.max { return fmt.Errorf("stream: frame of %d bytes exceeds %d", len(b), f.max) }
    f.mu.Lock(); defer f.mu.Unlock()
    var lenbuf [4]byte
    binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(b)))
    if _, err := f.bw.Write(lenbuf[:]); err != nil { return err }
    if _, err := f.bw.Write(b); err != nil { return err }
    return f.bw.Flush()
}

func (f *Framer) RecvBytes() ([]byte, error) {
    var lenbuf [4]byte
    if _, err := io.ReadFull(f.br, lenbuf[:]); err != nil { return nil, err }
    n := binary.LittleEndian.Uint32(lenbuf[:])
    if uint64(n) > uint64(f.max) { return nil, fmt.Errorf("stream: invalid frame size %d", n) }
    buf := make([]byte, n)
    if _, err := io.ReadFull(f.br, buf); err != nil { return nil, err }
    return buf, nil
}
