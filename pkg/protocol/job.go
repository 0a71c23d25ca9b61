package protocol

import (
    "fmt"
    "math"
    "time"

    "beamlink/pkg/wire"
)

// Job is an ordered timeline of events replayed NumRepeats times with period
// Duration. Events may interleave Tx and Rx in any order and are processed in
// the given sequence.
type Job struct {
    ID         JobID
    Duration   time.Duration
    NumRepeats uint32
    Events     []Event
}

// Slot is one scheduled execution of an event.
type Slot struct {
    Repeat uint32
    // Index is the position of the event in Job.Events.
    Index int
    Event Event
    // At is the absolute offset from the start of the job.
    At time.Duration
}

// End returns the absolute end offset of the slot.
func (s Slot) End() time.Duration { return s.At + s.Event.Length() }

// TotalDuration returns Duration * NumRepeats. It is only meaningful for a
// job that passed Validate.
func (j *Job) TotalDuration() time.Duration { return j.Duration * time.Duration(j.NumRepeats) }

// HasRx reports whether the job contains at least one RxEvent.
func (j *Job) HasRx() bool { return j.RxEventCount() > 0 }

// RxEventCount returns the number of RxEvents in one period.
func (j *Job) RxEventCount() int {
    n := 0
    for _, ev := range j.Events {
        if _, ok := AsRx(ev); ok { n++ }
    }
    return n
}

// Validate checks the timing and shape invariants that do not depend on
// state held by the executing endpoint.
func (j *Job) Validate() error { return j.ValidateWith(nil) }

// ValidateWith is Validate plus a TxData existence check. A nil known skips
// the check.
func (j *Job) ValidateWith(known func(TxDataID) bool) error {
    jobErr := func(err error) error { return &ValidationError{Job: j.ID, Event: -1, Err: err} }
    if j.Duration <= 0 {
        return jobErr(ErrZeroDuration)
    }
    if j.NumRepeats < 1 {
        return jobErr(ErrZeroRepeats)
    }
    if j.Duration > time.Duration(math.MaxInt64/int64(j.NumRepeats)) {
        return jobErr(ErrScheduleOverflow)
    }
    for i, ev := range j.Events {
        if err := j.validateEvent(ev, known); err != nil {
            return &ValidationError{Job: j.ID, Event: i, Err: err}
        }
    }
    return nil
}

func (j *Job) validateEvent(ev Event, known func(TxDataID) bool) error {
    tx, isTx := AsTx(ev)
    rx, isRx := AsRx(ev)
    switch {
    case isTx:
        ev = tx
    case isRx:
        ev = rx
    case ev == nil || isNilEvent(ev):
        return ErrNilEvent
    default:
        return fmt.Errorf("protocol: unsupported event type %T", ev)
    }
    start, dur := ev.Start(), ev.Length()
    if start < 0 || dur < 0 {
        return ErrNegativeTiming
    }
    // start + dur <= Duration, written so it cannot overflow
    if start > j.Duration || dur > j.Duration-start {
        return fmt.Errorf("%w: ends at %s, job lasts %s", ErrEventBounds, start+dur, j.Duration)
    }
    if isTx {
        if err := tx.SteeringVec.Validate(); err != nil { return err }
        if known != nil && !known(tx.TxDataID) {
            return fmt.Errorf("%w: %s", ErrUnknownTxData, tx.TxDataID)
        }
        return nil
    }
    if len(rx.SteeringVecs) == 0 {
        return ErrEmptyBeams
    }
    seen := make(map[BeamID]struct{}, len(rx.SteeringVecs))
    for _, sv := range rx.SteeringVecs {
        if _, dup := seen[sv.ID]; dup {
            return fmt.Errorf("%w: %s", ErrDuplicateBeam, sv.ID)
        }
        seen[sv.ID] = struct{}{}
        if err := sv.Validate(); err != nil { return err }
    }
    return nil
}

// isNilEvent reports nil pointers to the event structs.
func isNilEvent(ev Event) bool {
    switch v := ev.(type) {
    case *TxEvent:
        return v == nil
    case *RxEvent:
        return v == nil
    }
    return false
}

// EachSlot walks the schedule in execution order: every event of
// repetition 0, then every event of repetition 1, and so on. Repetition r
// starts exactly r*Duration after the job starts. Iteration stops at the
// first error fn returns. j must have passed Validate.
func (j *Job) EachSlot(fn func(Slot) error) error {
    for r := uint32(0); r < j.NumRepeats; r++ {
        base := time.Duration(r) * j.Duration
        for i, ev := range j.Events {
            if err := fn(Slot{Repeat: r, Index: i, Event: ev, At: base + ev.Start()}); err != nil {
                return err
            }
        }
    }
    return nil
}

// maxTimelinePrealloc caps the capacity Timeline reserves up front.
const maxTimelinePrealloc = 1 << 12

// Timeline materializes EachSlot. Long schedules should be walked with
// EachSlot instead.
func (j *Job) Timeline() []Slot {
    n := uint64(len(j.Events)) * uint64(j.NumRepeats)
    if n > maxTimelinePrealloc { n = maxTimelinePrealloc }
    out := make([]Slot, 0, n)
    _ = j.EachSlot(func(s Slot) error { out = append(out, s); return nil })
    return out
}

func (j *Job) encode(e *wire.Encoder) error {
    e.Uint32(uint32(j.ID))
    if err := e.Duration(j.Duration); err != nil { return err }
    e.Uint32(j.NumRepeats)
    e.SeqLen(len(j.Events))
    for _, ev := range j.Events {
        if err := encodeEvent(e, ev); err != nil { return err }
    }
    return nil
}

func decodeJob(d *wire.Decoder) (Job, error) {
    var j Job
    id, err := d.Uint32("job.id")
    if err != nil { return j, err }
    j.ID = JobID(id)
    if j.Duration, err = d.Duration("job.duration"); err != nil { return j, err }
    if j.NumRepeats, err = d.Uint32("job.num_repeats"); err != nil { return j, err }
    // smallest event: discriminant + two zero durations + an empty list
    n, err := d.SeqLen("job.events", 6)
    if err != nil { return j, err }
    if n > 0 { j.Events = make([]Event, n) }
    for i := range j.Events {
        if j.Events[i], err = decodeEvent(d); err != nil { return j, err }
    }
    return j, nil
}

// MarshalBinary encodes the job body without a command discriminant.
func (j Job) MarshalBinary() ([]byte, error) {
    e := wire.NewEncoder(64 + len(j.Events)*steeringVecSize)
    if err := j.encode(e); err != nil { return nil, err }
    return e.Bytes(), nil
}

// UnmarshalBinary decodes a job body produced by MarshalBinary.
func (j *Job) UnmarshalBinary(b []byte) error {
    d := wire.NewDecoder(b)
    v, err := decodeJob(d)
    if err != nil { return err }
    if err := d.Finish(); err != nil { return err }
    *j = v
    return nil
}
