package host

import (
    "errors"
    "fmt"

    "beamlink/pkg/protocol"
)

var (
    // ErrClosed is returned once the client's stream has been closed.
    ErrClosed = errors.New("host: client closed")
    // ErrUnexpectedResponse means the device answered with a variant that
    // does not fit the command.
    ErrUnexpectedResponse = errors.New("host: unexpected response")
)

// RejectedError is returned when the device refused a command.
type RejectedError struct {
    Code protocol.RejectCode
    Msg  string
}

func (e *RejectedError) Error() string { return fmt.Sprintf("device rejected command (%s): %s", e.Code, e.Msg) }

// PartialError is returned by RunJob when execution stopped early. Results
// holds every RxData captured before the stop.
type PartialError struct {
    Results protocol.JobResults
    Code    protocol.RejectCode
    Msg     string
}

func (e *PartialError) Error() string {
    return fmt.Sprintf("job %s stopped after %d rx data (%s): %s", e.Results.ID, len(e.Results.RxData), e.Code, e.Msg)
}

// RemoteParseError is returned when the device could not decode what was
// sent.
type RemoteParseError struct {
    Msg string
}

func (e *RemoteParseError) Error() string { return "device could not parse command: " + e.Msg }

// responseError maps error-carrying responses to Go errors. Other variants
// yield nil.
func responseError(r protocol.Response) error {
    switch v := r.(type) {
    case protocol.Rejected:
        return &RejectedError{Code: v.Code, Msg: v.Msg}
    case protocol.ParseError:
        return &RemoteParseError{Msg: v.Msg}
    case protocol.PartialJobResults:
        return &PartialError{Results: v.Results, Code: v.Code, Msg: v.Msg}
    }
    return nil
}
