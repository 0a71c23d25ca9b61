package protocol

import "strconv"

// Identifiers are opaque 32-bit handles. Equality, ordering and hashing are
// those of the underlying integer; uniqueness is up to the caller.
type (
    JobID    uint32
    EventID  uint32
    BeamID   uint32
    TxDataID uint32
)

func (id JobID) String() string    { return "job:" + strconv.FormatUint(uint64(id), 10) }
func (id EventID) String() string  { return "event:" + strconv.FormatUint(uint64(id), 10) }
func (id BeamID) String() string   { return "beam:" + strconv.FormatUint(uint64(id), 10) }
func (id TxDataID) String() string { return "txdata:" + strconv.FormatUint(uint64(id), 10) }
