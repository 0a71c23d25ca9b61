package protocol

import (
    "encoding/binary"
    "errors"
    "fmt"
)

// Fixed header layout (16 bytes) preceding every command or response on a
// channel. All integer fields are little-endian.
//
//  0  ..1   Magic   'B''L' (0x424c)
//  2        Version u8
//  3        Type    u8
//  4  ..5   Flags   u16
//  6  ..7   Seq     u16 (a response echoes its command's seq)
//  8  ..11  PayloadLen u32
//  12 ..15  PayloadCRC u32 (CRC-32 IEEE of the payload)
const (
    headerSize = 16
    magicWord  = uint16(0x424c) // 'B''L'

    // Version is the framing version written by this package.
    Version uint8 = 1

    // MaxPayload bounds a single frame's payload.
    MaxPayload = 16 << 20
)

var (
    ErrShortHeader = errors.New("short header")
    ErrBadMagic    = errors.New("bad magic")
    ErrBadVersion  = errors.New("unsupported version")
    ErrBadCRC      = errors.New("payload crc mismatch")
    ErrTooLarge    = errors.New("payload too large")
)

// Header describes metadata for an envelope.
type Header struct {
    Version    uint8
    Type       uint8
    Flags      uint16
    Seq        uint16
    PayloadLen uint32
    PayloadCRC uint32
}

// MarshalBinary encodes header to a 16-byte buffer.
func (h *Header) MarshalBinary() ([]byte, error) {
    buf := make([]byte, headerSize)
    binary.LittleEndian.PutUint16(buf[0:2], magicWord)
    buf[2] = h.Version
    buf[3] = h.Type
    binary.LittleEndian.PutUint16(buf[4:6], h.Flags)
    binary.LittleEndian.PutUint16(buf[6:8], h.Seq)
    binary.LittleEndian.PutUint32(buf[8:12], h.PayloadLen)
    binary.LittleEndian.PutUint32(buf[12:16], h.PayloadCRC)
    return buf, nil
}

// UnmarshalBinary decodes header from a 16-byte buffer.
func (h *Header) UnmarshalBinary(buf []byte) error {
    if len(buf) < headerSize {
        return ErrShortHeader
    }
    if binary.LittleEndian.Uint16(buf[0:2]) != magicWord {
        return ErrBadMagic
    }
    if buf[2] != Version {
        return fmt.Errorf("%w: %d", ErrBadVersion, buf[2])
    }
    h.Version = buf[2]
    h.Type = buf[3]
    h.Flags = binary.LittleEndian.Uint16(buf[4:6])
    h.Seq = binary.LittleEndian.Uint16(buf[6:8])
    h.PayloadLen = binary.LittleEndian.Uint32(buf[8:12])
    h.PayloadCRC = binary.LittleEndian.Uint32(buf[12:16])
    if h.PayloadLen > MaxPayload {
        return fmt.Errorf("%w: %d", ErrTooLarge, h.PayloadLen)
    }
    return nil
}
