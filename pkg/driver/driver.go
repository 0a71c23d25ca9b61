// Package driver defines the boundary between job execution and the radio
// hardware.
package driver

import (
    "context"
    "errors"
    "math"
    "time"

    "beamlink/pkg/protocol"
)

// ErrFault reports a radio failure while executing a slot.
var ErrFault = errors.New("radio driver fault")

// Driver executes individual slots of a job. Calls for one job arrive in
// timeline order from a single goroutine, bracketed by Begin.
type Driver interface {
    // Begin marks the start of job execution; slot offsets are relative to
    // this instant.
    Begin(ctx context.Context, job *protocol.Job) error
    // Transmit sends samples on the event's beam.
    Transmit(ctx context.Context, slot protocol.Slot, ev protocol.TxEvent, samples []uint32) error
    // Receive captures one beam per requested steering vector, in request
    // order.
    Receive(ctx context.Context, slot protocol.Slot, ev protocol.RxEvent) ([]protocol.Beam, error)
    // RxSamples is the number of samples per beam Receive returns for ev.
    RxSamples(ev protocol.RxEvent) int
}

// SampleCount is the number of samples a slot of length d produces at
// rateHz. Every slot yields at least one sample.
func SampleCount(d time.Duration, rateHz float64) int {
    n := math.Floor(float64(d) * rateHz / float64(time.Second))
    if n < 1 || math.IsNaN(n) { return 1 }
    if n > math.MaxInt32 { return math.MaxInt32 }
    return int(n)
}
