package protocol

import (
    "fmt"

    "beamlink/pkg/wire"
)

// CommandKind is the wire discriminant of a Command variant.
type CommandKind uint32

const (
    CmdJob CommandKind = iota
    CmdState
    CmdTxData
    CmdPowerConfig
    CmdConfig
)

func (k CommandKind) String() string {
    switch k {
    case CmdJob:
        return "job"
    case CmdState:
        return "state"
    case CmdTxData:
        return "tx_data"
    case CmdPowerConfig:
        return "power_config"
    case CmdConfig:
        return "config"
    default:
        return fmt.Sprintf("command(%d)", uint32(k))
    }
}

// Command is an action issued by the host. The variant set is closed: Job,
// StateCommand, TxData, PowerConfigCommand and ConfigCommand.
type Command interface {
    CommandKind() CommandKind
    isCommand()
}

// StateCommand queries the radio state.
type StateCommand struct{}

// PowerConfigCommand sets power configuration.
type PowerConfigCommand struct{}

// ConfigCommand sets general configuration.
type ConfigCommand struct{}

func (Job) CommandKind() CommandKind                { return CmdJob }
func (StateCommand) CommandKind() CommandKind       { return CmdState }
func (TxData) CommandKind() CommandKind             { return CmdTxData }
func (PowerConfigCommand) CommandKind() CommandKind { return CmdPowerConfig }
func (ConfigCommand) CommandKind() CommandKind      { return CmdConfig }

func (Job) isCommand()                {}
func (StateCommand) isCommand()       {}
func (TxData) isCommand()             {}
func (PowerConfigCommand) isCommand() {}
func (ConfigCommand) isCommand()      {}

// EncodeCommand returns the canonical encoding of c.
func EncodeCommand(c Command) ([]byte, error) {
    e := wire.NewEncoder(64)
    if err := AppendCommand(e, c); err != nil { return nil, err }
    return e.Bytes(), nil
}

// AppendCommand writes c to e.
func AppendCommand(e *wire.Encoder, c Command) error {
    switch v := c.(type) {
    case Job:
        e.Variant(uint32(CmdJob))
        return v.encode(e)
    case *Job:
        if v == nil { return fmt.Errorf("protocol: nil job") }
        e.Variant(uint32(CmdJob))
        return v.encode(e)
    case TxData:
        e.Variant(uint32(CmdTxData))
        v.encode(e)
    case *TxData:
        if v == nil { return fmt.Errorf("protocol: nil tx data") }
        e.Variant(uint32(CmdTxData))
        v.encode(e)
    case StateCommand, *StateCommand, PowerConfigCommand, *PowerConfigCommand, ConfigCommand, *ConfigCommand:
        e.Variant(uint32(c.CommandKind()))
    case nil:
        return fmt.Errorf("protocol: nil command")
    default:
        return fmt.Errorf("protocol: unsupported command type %T", c)
    }
    return nil
}

// DecodeCommand parses exactly one command from b. Truncated, malformed or
// over-long input is an error; it never panics.
func DecodeCommand(b []byte) (Command, error) {
    d := wire.NewDecoder(b)
    kind, err := d.Variant("command")
    if err != nil { return nil, err }
    var c Command
    switch CommandKind(kind) {
    case CmdJob:
        c, err = decodeJob(d)
    case CmdState:
        c = StateCommand{}
    case CmdTxData:
        c, err = decodeTxData(d)
    case CmdPowerConfig:
        c = PowerConfigCommand{}
    case CmdConfig:
        c = ConfigCommand{}
    default:
        return nil, &wire.Error{Offset: 0, What: "command", Err: wire.ErrUnknownVariant}
    }
    if err != nil { return nil, err }
    if err := d.Finish(); err != nil { return nil, err }
    return c, nil
}
