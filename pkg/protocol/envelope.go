package protocol

import (
    "fmt"
    "hash/crc32"
    "io"
)

// Envelope is a header + payload wrapper for a single channel transfer.
type Envelope struct {
    Header  Header
    Payload []byte
}

// HasFlag checks whether a flag is set.
func (e *Envelope) HasFlag(flag uint16) bool { return (e.Header.Flags & flag) != 0 }

// SetFlag sets/unsets a flag.
func (e *Envelope) SetFlag(flag uint16, on bool) {
    if on {
        e.Header.Flags |= flag
    } else {
        e.Header.Flags &^= flag
    }
}

func (e *Envelope) seal() error {
    if len(e.Payload) > MaxPayload {
        return fmt.Errorf("%w: %d", ErrTooLarge, len(e.Payload))
    }
    if e.Header.Version == 0 { e.Header.Version = Version }
    e.Header.PayloadLen = uint32(len(e.Payload))
    e.Header.PayloadCRC = crc32.ChecksumIEEE(e.Payload)
    return nil
}

func (e *Envelope) verify() error {
    if crc32.ChecksumIEEE(e.Payload) != e.Header.PayloadCRC {
        return ErrBadCRC
    }
    return nil
}

// WriteTo writes header + payload to w.
func (e *Envelope) WriteTo(w io.Writer) (int64, error) {
    if err := e.seal(); err != nil { return 0, err }
    hb, err := e.Header.MarshalBinary()
    if err != nil {
        return 0, err
    }
    n1, err := w.Write(hb)
    if err != nil {
        return int64(n1), err
    }
    n2, err := w.Write(e.Payload)
    return int64(n1 + n2), err
}

// ReadFrom reads header + payload from r.
func (e *Envelope) ReadFrom(r io.Reader) (int64, error) {
    hb := make([]byte, headerSize)
    if _, err := io.ReadFull(r, hb); err != nil {
        return 0, err
    }
    if err := e.Header.UnmarshalBinary(hb); err != nil {
        return 0, err
    }
    if e.Header.PayloadLen > 0 {
        e.Payload = make([]byte, int(e.Header.PayloadLen))
        if _, err := io.ReadFull(r, e.Payload); err != nil {
            return 0, err
        }
    } else {
        e.Payload = nil
    }
    n := int64(headerSize + int(e.Header.PayloadLen))
    return n, e.verify()
}

// EncodeFrame returns header+payload as a single byte slice.
func (e *Envelope) EncodeFrame() ([]byte, error) {
    if err := e.seal(); err != nil { return nil, err }
    hb, err := e.Header.MarshalBinary()
    if err != nil { return nil, err }
    out := make([]byte, headerSize+len(e.Payload))
    copy(out, hb)
    copy(out[headerSize:], e.Payload)
    return out, nil
}

// DecodeFrame parses a single frame from buf. Bytes after the frame are
// rejected.
func (e *Envelope) DecodeFrame(buf []byte) error {
    if len(buf) < headerSize {
        return io.ErrUnexpectedEOF
    }
    if err := e.Header.UnmarshalBinary(buf[:headerSize]); err != nil {
        return err
    }
    need := int(e.Header.PayloadLen)
    if headerSize+need > len(buf) {
        return io.ErrUnexpectedEOF
    }
    if headerSize+need < len(buf) {
        return fmt.Errorf("frame: %d trailing bytes", len(buf)-headerSize-need)
    }
    e.Payload = append(e.Payload[:0], buf[headerSize:headerSize+need]...)
    return e.verify()
}
