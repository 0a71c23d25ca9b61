package protocol

import (
    "fmt"
    "time"

    "beamlink/pkg/wire"
)

// EventKind is the wire discriminant of an Event variant.
type EventKind uint32

const (
    EventTx EventKind = iota
    EventRx
)

func (k EventKind) String() string {
    switch k {
    case EventTx:
        return "tx"
    case EventRx:
        return "rx"
    default:
        return fmt.Sprintf("event(%d)", uint32(k))
    }
}

// Event is a timed slot within a Job. The set of variants is closed:
// TxEvent and RxEvent.
type Event interface {
    Kind() EventKind
    // Start is the offset from the beginning of the job period.
    Start() time.Duration
    // Length is how long the slot lasts.
    Length() time.Duration
    // End is Start()+Length().
    End() time.Duration
    isEvent()
}

// TxEvent transmits a previously loaded waveform on a single beam.
type TxEvent struct {
    StartAt     time.Duration `json:"start_ns"`
    Duration    time.Duration `json:"duration_ns"`
    TxDataID    TxDataID      `json:"tx_data_id"`
    SteeringVec SteeringVec   `json:"steering_vec"`
}

func (TxEvent) Kind() EventKind           { return EventTx }
func (ev TxEvent) Start() time.Duration  { return ev.StartAt }
func (ev TxEvent) Length() time.Duration { return ev.Duration }
func (ev TxEvent) End() time.Duration    { return ev.StartAt + ev.Duration }
func (TxEvent) isEvent()                  {}

// RxEvent captures samples on one or more simultaneous beams; the radio
// produces one output stream per steering vector.
type RxEvent struct {
    StartAt      time.Duration `json:"start_ns"`
    Duration     time.Duration `json:"duration_ns"`
    SteeringVecs []SteeringVec `json:"steering_vecs"`
}

func (RxEvent) Kind() EventKind           { return EventRx }
func (ev RxEvent) Start() time.Duration  { return ev.StartAt }
func (ev RxEvent) Length() time.Duration { return ev.Duration }
func (ev RxEvent) End() time.Duration    { return ev.StartAt + ev.Duration }
func (RxEvent) isEvent()                  {}

// BeamIDs lists the requested beams in order.
func (ev RxEvent) BeamIDs() []BeamID {
    out := make([]BeamID, len(ev.SteeringVecs))
    for i, sv := range ev.SteeringVecs {
        out[i] = sv.ID
    }
    return out
}

// AsTx returns the TxEvent behind ev, whether stored by value or pointer.
func AsTx(ev Event) (TxEvent, bool) {
    switch v := ev.(type) {
    case TxEvent:
        return v, true
    case *TxEvent:
        if v != nil { return *v, true }
    }
    return TxEvent{}, false
}

// AsRx returns the RxEvent behind ev, whether stored by value or pointer.
func AsRx(ev Event) (RxEvent, bool) {
    switch v := ev.(type) {
    case RxEvent:
        return v, true
    case *RxEvent:
        if v != nil { return *v, true }
    }
    return RxEvent{}, false
}

func encodeEvent(e *wire.Encoder, ev Event) error {
    if tx, ok := AsTx(ev); ok {
        e.Variant(uint32(EventTx))
        if err := encodeTiming(e, tx.StartAt, tx.Duration); err != nil { return err }
        e.Uint32(uint32(tx.TxDataID))
        tx.SteeringVec.encode(e)
        return nil
    }
    if rx, ok := AsRx(ev); ok {
        e.Variant(uint32(EventRx))
        if err := encodeTiming(e, rx.StartAt, rx.Duration); err != nil { return err }
        e.SeqLen(len(rx.SteeringVecs))
        for _, sv := range rx.SteeringVecs {
            sv.encode(e)
        }
        return nil
    }
    return fmt.Errorf("protocol: unsupported event type %T", ev)
}

func encodeTiming(e *wire.Encoder, start, dur time.Duration) error {
    if err := e.Duration(start); err != nil { return err }
    return e.Duration(dur)
}

func decodeTiming(d *wire.Decoder) (start, dur time.Duration, err error) {
    if start, err = d.Duration("event.start"); err != nil { return }
    dur, err = d.Duration("event.duration")
    return
}

func decodeEvent(d *wire.Decoder) (Event, error) {
    off := d.Offset()
    kind, err := d.Variant("event")
    if err != nil { return nil, err }
    switch EventKind(kind) {
    case EventTx:
        start, dur, err := decodeTiming(d)
        if err != nil { return nil, err }
        id, err := d.Uint32("event.tx_data_id")
        if err != nil { return nil, err }
        sv, err := decodeSteeringVec(d)
        if err != nil { return nil, err }
        return TxEvent{StartAt: start, Duration: dur, TxDataID: TxDataID(id), SteeringVec: sv}, nil
    case EventRx:
        start, dur, err := decodeTiming(d)
        if err != nil { return nil, err }
        n, err := d.SeqLen("event.steering_vecs", steeringVecSize)
        if err != nil { return nil, err }
        var svs []SteeringVec
        if n > 0 { svs = make([]SteeringVec, n) }
        for i := range svs {
            if svs[i], err = decodeSteeringVec(d); err != nil { return nil, err }
        }
        return RxEvent{StartAt: start, Duration: dur, SteeringVecs: svs}, nil
    default:
        return nil, &wire.Error{Offset: off, What: "event", Err: wire.ErrUnknownVariant}
    }
}
