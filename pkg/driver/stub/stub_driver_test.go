package stub

import (
    "context"
    "errors"
    "testing"
    "time"

    "beamlink/pkg/driver"
    "beamlink/pkg/protocol"
)

func TestReceiveDeterministic(t *testing.T) {
    d := New(Options{SampleRateHz: 1e6})
    job := &protocol.Job{ID: 4, Duration: time.Millisecond, NumRepeats: 1}
    ev := protocol.RxEvent{Duration: 10 * time.Microsecond, SteeringVecs: []protocol.SteeringVec{
        protocol.UniformSteeringVec(2, 1), protocol.UniformSteeringVec(1, 1),
    }}
    slot := protocol.Slot{Repeat: 0, Index: 3, Event: ev}
    ctx := context.Background()
    if err := d.Begin(ctx, job); err != nil { t.Fatalf("begin: %v", err) }
    a, err := d.Receive(ctx, slot, ev)
    if err != nil { t.Fatalf("receive: %v", err) }
    b, _ := d.Receive(ctx, slot, ev)
    if len(a) != 2 || a[0].ID != 2 || a[1].ID != 1 { t.Fatalf("beams = %+v", a) }
    if len(a[0].Data) != 10 { t.Fatalf("samples = %d", len(a[0].Data)) }
    for k := range a[0].Data {
        if a[0].Data[k] != b[0].Data[k] || a[0].Data[k] != Sample(4, 0, 3, 2, k) { t.Fatalf("sample %d not deterministic", k) }
    }
    if a[0].Data[0] == a[1].Data[0] { t.Fatalf("beams should differ") }
}

func TestTxLogAndFaultInjection(t *testing.T) {
    d := New(Options{})
    ctx := context.Background()
    _ = d.Begin(ctx, &protocol.Job{ID: 1})
    ev := protocol.TxEvent{TxDataID: 6, SteeringVec: protocol.UniformSteeringVec(3, 1)}
    d.FailAfter(2)
    for i := 0; i < 2; i++ {
        if err := d.Transmit(ctx, protocol.Slot{Repeat: uint32(i)}, ev, make([]uint32, 5)); err != nil { t.Fatalf("tx %d: %v", i, err) }
    }
    if err := d.Transmit(ctx, protocol.Slot{Repeat: 2}, ev, nil); !errors.Is(err, driver.ErrFault) { t.Fatalf("expected fault, got %v", err) }
    if err := d.Transmit(ctx, protocol.Slot{Repeat: 3}, ev, nil); err != nil { t.Fatalf("fault should fire once: %v", err) }

    log := d.GetTxLog()
    if len(log) != 3 || log[0].TxDataID != 6 || log[0].Beam != 3 || log[0].Samples != 5 || log[2].Repeat != 3 {
        t.Fatalf("tx log = %+v", log)
    }
    if d.Slots() != 3 { t.Fatalf("slots = %d", d.Slots()) }
}

func TestRealTimePacing(t *testing.T) {
    d := New(Options{RealTime: true})
    ctx := context.Background()
    _ = d.Begin(ctx, &protocol.Job{ID: 1})
    start := time.Now()
    if err := d.Transmit(ctx, protocol.Slot{At: 30 * time.Millisecond}, protocol.TxEvent{}, nil); err != nil { t.Fatalf("tx: %v", err) }
    if el := time.Since(start); el < 25*time.Millisecond { t.Fatalf("slot ran early after %s", el) }

    cctx, cancel := context.WithCancel(ctx)
    cancel()
    if err := d.Transmit(cctx, protocol.Slot{At: time.Hour}, protocol.TxEvent{}, nil); !errors.Is(err, context.Canceled) {
        t.Fatalf("expected cancel, got %v", err)
    }
}

func TestRingBufferBounded(t *testing.T) {
    var rb ringBuffer
    for i := 0; i < ringCapacity+10; i++ { rb.push(TxRecord{Repeat: uint32(i)}) }
    s := rb.snapshot()
    if len(s) != ringCapacity || s[0].Repeat != 10 { t.Fatalf("len=%d first=%d", len(s), s[0].Repeat) }
}

func TestRxSamplesCap(t *testing.T) {
    ev := protocol.RxEvent{Duration: time.Second, SteeringVecs: []protocol.SteeringVec{protocol.UniformSteeringVec(0, 1)}}
    if n := New(Options{SampleRateHz: 1e3}).RxSamples(ev); n != 1000 { t.Fatalf("uncapped = %d", n) }
    d := New(Options{SampleRateHz: 1e6, MaxRxSamples: 16})
    if n := d.RxSamples(ev); n != 16 { t.Fatalf("capped = %d", n) }
    ctx := context.Background()
    _ = d.Begin(ctx, &protocol.Job{ID: 2})
    beams, err := d.Receive(ctx, protocol.Slot{Event: ev}, ev)
    if err != nil || len(beams[0].Data) != 16 { t.Fatalf("receive = %d samples, %v", len(beams[0].Data), err) }
}
