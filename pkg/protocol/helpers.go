package protocol

import "fmt"

// NewCommandEnvelope encodes c and wraps it in a command frame with the given
// sequence number.
func NewCommandEnvelope(seq uint16, c Command) (Envelope, error) {
    b, err := EncodeCommand(c)
    if err != nil { return Envelope{}, err }
    e := Envelope{Header: Header{Version: Version, Type: MsgCommand, Seq: seq}, Payload: b}
    return e, e.seal()
}

// NewResponseEnvelope encodes r as the answer to the command frame carrying
// seq.
func NewResponseEnvelope(seq uint16, r Response) (Envelope, error) {
    b, err := EncodeResponse(r)
    if err != nil { return Envelope{}, err }
    e := Envelope{Header: Header{Version: Version, Type: MsgResponse, Seq: seq}, Payload: b}
    return e, e.seal()
}

// Command decodes the payload of a command frame.
func (e *Envelope) Command() (Command, error) {
    if e.Header.Type != MsgCommand {
        return nil, fmt.Errorf("frame: type %d is not a command", e.Header.Type)
    }
    return DecodeCommand(e.Payload)
}

// Response decodes the payload of a response frame.
func (e *Envelope) Response() (Response, error) {
    if e.Header.Type != MsgResponse {
        return nil, fmt.Errorf("frame: type %d is not a response", e.Header.Type)
    }
    return DecodeResponse(e.Payload)
}
