// Package stub implements an in-memory radio for host-side testing and
// demos. Received samples are a deterministic function of the slot and the
// beam, so results can be checked without hardware.
package stub

import (
    "context"
    "fmt"
    "sync"
    "time"

    "beamlink/pkg/driver"
    "beamlink/pkg/protocol"
)

// Options configures the stub radio.
type Options struct {
    SampleRateHz float64
    // RealTime sleeps until each slot's scheduled offset before executing it.
    RealTime bool
    // MaxRxSamples caps the samples per beam. Zero means no cap.
    MaxRxSamples int
}

// TxRecord is one logged transmission.
type TxRecord struct {
    Job      protocol.JobID
    Repeat   uint32
    Event    int
    TxDataID protocol.TxDataID
    Beam     protocol.BeamID
    Samples  int
}

// Driver implements driver.Driver without hardware.
type Driver struct {
    opts Options

    mu        sync.Mutex
    job       protocol.JobID
    start     time.Time
    slots     int
    failAfter int // < 0 disables fault injection
    txLog     ringBuffer
}

func New(opts Options) *Driver {
    if opts.SampleRateHz <= 0 { opts.SampleRateHz = 1e6 }
    return &Driver{opts: opts, failAfter: -1}
}

var _ driver.Driver = (*Driver)(nil)

// FailAfter makes the slot following the next n slots fail with
// driver.ErrFault. A negative n disables injection.
func (d *Driver) FailAfter(n int) {
    d.mu.Lock(); defer d.mu.Unlock()
    d.failAfter = n
}

func (d *Driver) Begin(ctx context.Context, job *protocol.Job) error {
    d.mu.Lock(); defer d.mu.Unlock()
    d.job = job.ID
    d.start = time.Now()
    return ctx.Err()
}

func (d *Driver) Transmit(ctx context.Context, slot protocol.Slot, ev protocol.TxEvent, samples []uint32) error {
    if err := d.enter(ctx, slot); err != nil { return err }
    d.mu.Lock()
    d.txLog.push(TxRecord{Job: d.job, Repeat: slot.Repeat, Event: slot.Index, TxDataID: ev.TxDataID, Beam: ev.SteeringVec.ID, Samples: len(samples)})
    d.mu.Unlock()
    return nil
}

func (d *Driver) Receive(ctx context.Context, slot protocol.Slot, ev protocol.RxEvent) ([]protocol.Beam, error) {
    if err := d.enter(ctx, slot); err != nil { return nil, err }
    d.mu.Lock()
    job := d.job
    d.mu.Unlock()
    n := d.RxSamples(ev)
    beams := make([]protocol.Beam, len(ev.SteeringVecs))
    for i, sv := range ev.SteeringVecs {
        data := make([]uint32, n)
        for k := range data {
            data[k] = Sample(job, slot.Repeat, slot.Index, sv.ID, k)
        }
        beams[i] = protocol.Beam{ID: sv.ID, Data: data}
    }
    return beams, nil
}

func (d *Driver) RxSamples(ev protocol.RxEvent) int {
    n := driver.SampleCount(ev.Duration, d.opts.SampleRateHz)
    if d.opts.MaxRxSamples > 0 && n > d.opts.MaxRxSamples { n = d.opts.MaxRxSamples }
    return n
}

// enter counts the slot, applies fault injection and real-time pacing.
func (d *Driver) enter(ctx context.Context, slot protocol.Slot) error {
    d.mu.Lock()
    if d.failAfter == 0 {
        d.failAfter = -1
        d.mu.Unlock()
        return fmt.Errorf("%w: injected at repeat %d event %d", driver.ErrFault, slot.Repeat, slot.Index)
    }
    if d.failAfter > 0 { d.failAfter-- }
    d.slots++
    start := d.start
    d.mu.Unlock()

    if !d.opts.RealTime {
        return ctx.Err()
    }
    wait := time.Until(start.Add(slot.At))
    if wait <= 0 { return ctx.Err() }
    t := time.NewTimer(wait)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}

// Slots returns the number of slots executed since creation.
func (d *Driver) Slots() int {
    d.mu.Lock(); defer d.mu.Unlock()
    return d.slots
}

// GetTxLog returns the most recent transmissions, oldest first.
func (d *Driver) GetTxLog() []TxRecord {
    d.mu.Lock(); defer d.mu.Unlock()
    return d.txLog.snapshot()
}

// Sample is the value the stub reports for sample k of beam b in the given
// slot.
func Sample(job protocol.JobID, repeat uint32, event int, beam protocol.BeamID, k int) uint32 {
    x := uint32(job)*0x9E3779B1 ^ repeat*0x85EBCA77 ^ uint32(event)*0xC2B2AE3D ^ uint32(beam)*0x27D4EB2F ^ uint32(k)
    x ^= x >> 16
    x *= 0x7FEB352D
    x ^= x >> 15
    x *= 0x846CA68B
    x ^= x >> 16
    return x
}

const ringCapacity = 256

type ringBuffer struct {
    data       [ringCapacity]TxRecord
    head, tail int // head = next pop, tail = next push
    count      int
}

func (rb *ringBuffer) push(r TxRecord) {
    if rb.count == ringCapacity {
        // overwrite the oldest to keep memory bounded
        rb.head = (rb.head + 1) % ringCapacity
        rb.count--
    }
    rb.data[rb.tail] = r
    rb.tail = (rb.tail + 1) % ringCapacity
    rb.count++
}

func (rb *ringBuffer) snapshot() []TxRecord {
    out := make([]TxRecord, rb.count)
    i := rb.head
    for c := 0; c < rb.count; c++ {
        out[c] = rb.data[i]
        i = (i + 1) % ringCapacity
    }
    return out
}
