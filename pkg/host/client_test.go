package host

import (
    "context"
    "errors"
    "net"
    "testing"
    "time"

    "beamlink/pkg/config"
    "beamlink/pkg/device"
    "beamlink/pkg/driver/stub"
    "beamlink/pkg/netstack"
    "beamlink/pkg/protocol"
    "beamlink/pkg/protocol/stream"
    "beamlink/pkg/txstore"
)

func exampleJob() protocol.Job {
    sv := protocol.UniformSteeringVec(0, complex(1, 1))
    return protocol.Job{
        ID:         7,
        Duration:   10 * time.Millisecond,
        NumRepeats: 10,
        Events: []protocol.Event{
            protocol.TxEvent{StartAt: 0, Duration: 400 * time.Microsecond, TxDataID: 0, SteeringVec: sv},
            protocol.RxEvent{StartAt: 500 * time.Microsecond, Duration: 400 * time.Microsecond, SteeringVecs: []protocol.SteeringVec{sv}},
        },
    }
}

// startDevice serves a stub device on an in-memory address and returns a
// connected client.
func startDevice(t *testing.T, name string) (*Client, *stub.Driver) {
    t.Helper()
    ctx, cancel := context.WithCancel(context.Background())
    st := txstore.New(txstore.Options{})
    drv := stub.New(stub.Options{SampleRateHz: 1e5})
    ep := device.New(st, drv, nil)
    stack, err := netstack.Serve(ctx, []config.TransportConfig{{Kind: "mem", Listen: []string{name}}}, ep.SessionHandler())
    if err != nil { t.Fatalf("serve: %v", err) }
    c, err := Dial(ctx, netstack.SharedMem(), name, 3, Options{Timeout: 5 * time.Second}, netstack.Options{BackoffInitial: time.Millisecond})
    if err != nil { t.Fatalf("dial: %v", err) }
    t.Cleanup(func() {
        _ = c.Close()
        stack.Close()
        cancel()
        st.Close()
    })
    return c, drv
}

func TestRunJobEndToEnd(t *testing.T) {
    c, drv := startDevice(t, "host-e2e")
    ctx := context.Background()
    if err := c.LoadTxData(ctx, protocol.TxData{ID: 0, Samples: []uint32{1, 2, 3, 4}}); err != nil { t.Fatalf("load: %v", err) }
    res, err := c.RunJob(ctx, exampleJob())
    if err != nil { t.Fatalf("run: %v", err) }
    if res.ID != 7 || len(res.RxData) != 10 { t.Fatalf("results = %d entries for %s", len(res.RxData), res.ID) }
    if got, want := res.RxData[9].Beams[0].Data[0], stub.Sample(7, 9, 1, 0, 0); got != want { t.Fatalf("sample = %d want %d", got, want) }
    if n := len(drv.GetTxLog()); n != 10 { t.Fatalf("transmissions = %d", n) }

    for _, f := range []func(context.Context) error{c.QueryState, c.Configure, c.ConfigurePower} {
        if err := f(ctx); err != nil { t.Fatalf("unit command: %v", err) }
    }
}

func TestRunJobTxOnly(t *testing.T) {
    c, _ := startDevice(t, "host-txonly")
    ctx := context.Background()
    _ = c.LoadTxData(ctx, protocol.TxData{ID: 0})
    job := exampleJob()
    job.Events = job.Events[:1]
    res, err := c.RunJob(ctx, job)
    if err != nil || res.ID != 7 || len(res.RxData) != 0 { t.Fatalf("tx only: %+v %v", res, err) }
}

func TestRunJobErrors(t *testing.T) {
    c, drv := startDevice(t, "host-errors")
    ctx := context.Background()

    _, err := c.RunJob(ctx, exampleJob())
    var rej *RejectedError
    if !errors.As(err, &rej) || rej.Code != protocol.CodeUnknownTxData { t.Fatalf("unknown tx data: %v", err) }

    bad := exampleJob()
    bad.NumRepeats = 0
    if _, err := c.RunJob(ctx, bad); !errors.Is(err, protocol.ErrZeroRepeats) { t.Fatalf("local validation: %v", err) }

    _ = c.LoadTxData(ctx, protocol.TxData{ID: 0})
    drv.FailAfter(5)
    _, err = c.RunJob(ctx, exampleJob())
    var pe *PartialError
    if !errors.As(err, &pe) || pe.Code != protocol.CodeDriverFault || len(pe.Results.RxData) != 2 {
        t.Fatalf("partial: %v", err)
    }
}

type pipeStream struct {
    *stream.Framer
    c net.Conn
}

func (p pipeStream) Close() error { return p.c.Close() }

// fakeDevice answers every command frame with the responses reply returns.
func fakeDevice(t *testing.T, reply func(seq uint16) []protocol.Envelope) *Client {
    t.Helper()
    a, b := net.Pipe()
    dev := stream.New(b)
    go func() {
        defer b.Close()
        for {
            raw, err := dev.RecvBytes()
            if err != nil { return }
            var env protocol.Envelope
            if err := env.DecodeFrame(raw); err != nil { return }
            for _, out := range reply(env.Header.Seq) {
                frame, _ := out.EncodeFrame()
                if err := dev.SendBytes(frame); err != nil { return }
            }
        }
    }()
    c := New(pipeStream{stream.New(a), a}, Options{})
    t.Cleanup(func() { _ = c.Close() })
    return c
}

func TestStaleResponsesAreDiscarded(t *testing.T) {
    c := fakeDevice(t, func(seq uint16) []protocol.Envelope {
        stale, _ := protocol.NewResponseEnvelope(seq-1, protocol.Rejected{Code: protocol.CodeInternal, Msg: "old"})
        cur, _ := protocol.NewResponseEnvelope(seq, protocol.ConfigResponse{})
        return []protocol.Envelope{stale, cur}
    })
    for i := 0; i < 3; i++ {
        if err := c.QueryState(context.Background()); err != nil { t.Fatalf("query %d: %v", i, err) }
    }
}

func TestRemoteParseError(t *testing.T) {
    c := fakeDevice(t, func(seq uint16) []protocol.Envelope {
        env, _ := protocol.NewResponseEnvelope(seq, protocol.ParseError{Msg: "truncated"})
        return []protocol.Envelope{env}
    })
    var pe *RemoteParseError
    if err := c.LoadTxData(context.Background(), protocol.TxData{ID: 1}); !errors.As(err, &pe) || pe.Msg != "truncated" {
        t.Fatalf("err = %v", err)
    }
}

func TestUnexpectedResponse(t *testing.T) {
    c := fakeDevice(t, func(seq uint16) []protocol.Envelope {
        env, _ := protocol.NewResponseEnvelope(seq, protocol.JobResults{ID: 1})
        return []protocol.Envelope{env}
    })
    if err := c.Configure(context.Background()); !errors.Is(err, ErrUnexpectedResponse) { t.Fatalf("err = %v", err) }
}

func TestDoHonorsDeadline(t *testing.T) {
    c := fakeDevice(t, func(uint16) []protocol.Envelope { return nil })
    ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
    defer cancel()
    if _, err := c.Do(ctx, protocol.StateCommand{}); !errors.Is(err, context.DeadlineExceeded) { t.Fatalf("err = %v", err) }
    if _, err := c.Do(context.Background(), protocol.StateCommand{}); !errors.Is(err, ErrClosed) { t.Fatalf("after abandon: %v", err) }
}
