package protocol

import (
    "fmt"

    "beamlink/pkg/wire"
)

// ResponseKind is the wire discriminant of a Response variant.
type ResponseKind uint32

const (
    RespJobResults ResponseKind = iota
    RespConfig
    RespParseError
    RespRejected
    RespPartialJobResults
)

func (k ResponseKind) String() string {
    switch k {
    case RespJobResults:
        return "job_results"
    case RespConfig:
        return "config_response"
    case RespParseError:
        return "parse_error"
    case RespRejected:
        return "rejected"
    case RespPartialJobResults:
        return "partial_job_results"
    default:
        return fmt.Sprintf("response(%d)", uint32(k))
    }
}

// RejectCode classifies an execution-time rejection.
type RejectCode uint32

const (
    // CodeInvalidJob: a timing or shape invariant does not hold.
    CodeInvalidJob RejectCode = iota
    // CodeUnknownTxData: a TxEvent references TxData that was never loaded.
    CodeUnknownTxData
    // CodeDriverFault: the radio driver failed.
    CodeDriverFault
    // CodeUnsupported: the endpoint does not implement the command.
    CodeUnsupported
    // CodeStoreFull: TxData does not fit in the endpoint's store.
    CodeStoreFull
    // CodeAborted: execution was cancelled.
    CodeAborted
    // CodeInternal: the endpoint failed while handling the command.
    CodeInternal
    // CodeResultTooLarge: the job's results would not fit in one response.
    CodeResultTooLarge
)

func (c RejectCode) String() string {
    switch c {
    case CodeInvalidJob:
        return "invalid_job"
    case CodeUnknownTxData:
        return "unknown_tx_data"
    case CodeDriverFault:
        return "driver_fault"
    case CodeUnsupported:
        return "unsupported"
    case CodeStoreFull:
        return "store_full"
    case CodeAborted:
        return "aborted"
    case CodeInternal:
        return "internal"
    case CodeResultTooLarge:
        return "result_too_large"
    default:
        return fmt.Sprintf("code(%d)", uint32(c))
    }
}

// Response answers exactly one Command. The variant set is closed:
// JobResults, ConfigResponse, ParseError, Rejected and PartialJobResults.
type Response interface {
    ResponseKind() ResponseKind
    isResponse()
}

// ConfigResponse acknowledges a command that produces no data.
type ConfigResponse struct{}

// ParseError reports a command that could not be decoded.
type ParseError struct {
    Msg string
}

func (e ParseError) Error() string { return "parse error: " + e.Msg }

// NewParseError reports a decode failure back to the sender.
func NewParseError(err error) ParseError { return ParseError{Msg: err.Error()} }

// Rejected reports a command that decoded but was refused before producing
// any data.
type Rejected struct {
    Code RejectCode
    Msg  string
}

func (r Rejected) Error() string { return fmt.Sprintf("rejected (%s): %s", r.Code, r.Msg) }

// PartialJobResults carries what was captured before execution stopped.
type PartialJobResults struct {
    Results JobResults
    Code    RejectCode
    Msg     string
}

func (JobResults) ResponseKind() ResponseKind        { return RespJobResults }
func (ConfigResponse) ResponseKind() ResponseKind    { return RespConfig }
func (ParseError) ResponseKind() ResponseKind        { return RespParseError }
func (Rejected) ResponseKind() ResponseKind          { return RespRejected }
func (PartialJobResults) ResponseKind() ResponseKind { return RespPartialJobResults }

func (JobResults) isResponse()        {}
func (ConfigResponse) isResponse()    {}
func (ParseError) isResponse()        {}
func (Rejected) isResponse()          {}
func (PartialJobResults) isResponse() {}

// EncodeResponse returns the canonical encoding of r.
func EncodeResponse(r Response) ([]byte, error) {
    e := wire.NewEncoder(64)
    if err := AppendResponse(e, r); err != nil { return nil, err }
    return e.Bytes(), nil
}

// AppendResponse writes r to e.
func AppendResponse(e *wire.Encoder, r Response) error {
    switch v := r.(type) {
    case JobResults:
        e.Variant(uint32(RespJobResults))
        v.encode(e)
    case *JobResults:
        if v == nil { return fmt.Errorf("protocol: nil job results") }
        e.Variant(uint32(RespJobResults))
        v.encode(e)
    case ConfigResponse, *ConfigResponse:
        e.Variant(uint32(RespConfig))
    case ParseError:
        v.encode(e)
    case *ParseError:
        if v == nil { return fmt.Errorf("protocol: nil parse error") }
        v.encode(e)
    case Rejected:
        v.encode(e)
    case *Rejected:
        if v == nil { return fmt.Errorf("protocol: nil rejection") }
        v.encode(e)
    case PartialJobResults:
        v.encode(e)
    case *PartialJobResults:
        if v == nil { return fmt.Errorf("protocol: nil partial results") }
        v.encode(e)
    case nil:
        return fmt.Errorf("protocol: nil response")
    default:
        return fmt.Errorf("protocol: unsupported response type %T", r)
    }
    return nil
}

// DecodeResponse parses exactly one response from b.
func DecodeResponse(b []byte) (Response, error) {
    d := wire.NewDecoder(b)
    kind, err := d.Variant("response")
    if err != nil { return nil, err }
    var r Response
    switch ResponseKind(kind) {
    case RespJobResults:
        r, err = decodeJobResults(d)
    case RespConfig:
        r = ConfigResponse{}
    case RespParseError:
        var msg string
        msg, err = d.String("parse_error.msg")
        r = ParseError{Msg: msg}
    case RespRejected:
        r, err = decodeRejected(d)
    case RespPartialJobResults:
        r, err = decodePartial(d)
    default:
        return nil, &wire.Error{Offset: 0, What: "response", Err: wire.ErrUnknownVariant}
    }
    if err != nil { return nil, err }
    if err := d.Finish(); err != nil { return nil, err }
    return r, nil
}

func (p *ParseError) encode(e *wire.Encoder) {
    e.Variant(uint32(RespParseError))
    e.String(p.Msg)
}

func (r *Rejected) encode(e *wire.Encoder) {
    e.Variant(uint32(RespRejected))
    e.Uint32(uint32(r.Code))
    e.String(r.Msg)
}

func (p *PartialJobResults) encode(e *wire.Encoder) {
    e.Variant(uint32(RespPartialJobResults))
    p.Results.encode(e)
    e.Uint32(uint32(p.Code))
    e.String(p.Msg)
}

func decodeRejected(d *wire.Decoder) (Rejected, error) {
    var r Rejected
    code, err := d.Uint32("rejected.code")
    if err != nil { return r, err }
    r.Code = RejectCode(code)
    r.Msg, err = d.String("rejected.msg")
    return r, err
}

func decodePartial(d *wire.Decoder) (PartialJobResults, error) {
    var p PartialJobResults
    res, err := decodeJobResults(d)
    if err != nil { return p, err }
    p.Results = res
    code, err := d.Uint32("partial.code")
    if err != nil { return p, err }
    p.Code = RejectCode(code)
    p.Msg, err = d.String("partial.msg")
    return p, err
}
