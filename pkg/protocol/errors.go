package protocol

import (
    "errors"
    "fmt"
)

// Validation failures. A *ValidationError wraps one of these.
var (
    ErrZeroDuration      = errors.New("job duration must be positive")
    ErrZeroRepeats       = errors.New("num_repeats must be at least 1")
    ErrScheduleOverflow  = errors.New("duration * num_repeats overflows")
    ErrNilEvent          = errors.New("nil event")
    ErrNegativeTiming    = errors.New("negative event start or duration")
    ErrEventBounds       = errors.New("event ends after job duration")
    ErrEmptyBeams        = errors.New("rx event has no steering vectors")
    ErrDuplicateBeam     = errors.New("duplicate beam id in rx event")
    ErrNaNCoefficient    = errors.New("NaN steering coefficient")
    ErrCoefficientCount  = errors.New("steering vector needs exactly 16 coefficients")
    ErrUnknownTxData     = errors.New("tx event references unknown tx data")
    ErrResultsMismatch   = errors.New("results do not match job")
)

// ValidationError locates a rule violation inside a Job. Event is the index
// into Job.Events, or -1 for job-level fields.
type ValidationError struct {
    Job   JobID
    Event int
    Err   error
}

func (e *ValidationError) Error() string {
    if e.Event < 0 {
        return fmt.Sprintf("invalid %s: %v", e.Job, e.Err)
    }
    return fmt.Sprintf("invalid %s event %d: %v", e.Job, e.Event, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Code maps the violation to the rejection code reported to the host.
func (e *ValidationError) Code() RejectCode {
    if errors.Is(e.Err, ErrUnknownTxData) {
        return CodeUnknownTxData
    }
    return CodeInvalidJob
}
