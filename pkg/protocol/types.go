package protocol

// Message types carried in Header.Type.
const (
    MsgUnknown  uint8 = iota
    MsgCommand        // host -> device
    MsgResponse       // device -> host
)

// Flags bitmask (uint16)
const (
    FlagNone     uint16 = 0
    FlagRetry    uint16 = 1 << 0 // command resent after a transport timeout
    FlagDebug    uint16 = 1 << 1 // device should log the exchange at debug level
)

// ContentType is an optional hint for archive decoding. Not serialized in
// the header.
const (
    ContentUnknown = "application/octet-stream"
    ContentWire    = "application/x-beamlink"
    ContentCBOR    = "application/cbor"
    ContentJSON    = "application/json"
)
