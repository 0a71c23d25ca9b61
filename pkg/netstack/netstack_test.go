package netstack

import (
    "context"
    "errors"
    "io"
    "net"
    "sync/atomic"
    "testing"
    "time"

    "beamlink/pkg/config"
    "beamlink/pkg/transport"
    "beamlink/pkg/transport/serial"
)

func TestNewByKind(t *testing.T) {
    for _, k := range []string{"tcp", "mem", "serial"} {
        tr, err := NewByKind(k, 0)
        if err != nil { t.Fatalf("%s: %v", k, err) }
        if tr.Kind().String() != k { t.Fatalf("%s: kind = %s", k, tr.Kind()) }
    }
    var unk ErrUnknownKind
    if _, err := NewByKind("udp", 0); !errors.As(err, &unk) { t.Fatalf("udp: %v", err) }
}

func TestServeMem(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    got := make(chan string, 1)
    st, err := Serve(ctx, []config.TransportConfig{{Kind: "mem", Listen: []string{"netstack-test"}}}, func(ctx context.Context, s transport.Session) {
        stream, err := s.AcceptStream(ctx)
        if err != nil { return }
        b, err := stream.RecvBytes()
        if err != nil { return }
        got <- string(b)
        _ = stream.SendBytes(b)
    })
    if err != nil { t.Fatalf("serve: %v", err) }
    defer st.Close()
    if st.ActiveListeners() != 1 { t.Fatalf("listeners = %d", st.ActiveListeners()) }

    sess, err := DialWithBackoff(ctx, SharedMem(), "netstack-test", 3, Options{BackoffInitial: time.Millisecond})
    if err != nil { t.Fatalf("dial: %v", err) }
    defer sess.Close()
    s, _ := sess.OpenStream(ctx)
    if err := s.SendBytes([]byte("ping")); err != nil { t.Fatalf("send: %v", err) }
    if v := <-got; v != "ping" { t.Fatalf("handler got %q", v) }
    if b, err := s.RecvBytes(); err != nil || string(b) != "ping" { t.Fatalf("echo = %q, %v", b, err) }
}

func TestServeNothingStarted(t *testing.T) {
    if _, err := Serve(context.Background(), []config.TransportConfig{{Kind: "nope", Listen: []string{"x"}}}, nil); err == nil {
        t.Fatalf("expected error")
    }
}

func TestDialWithBackoffGivesUp(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    start := time.Now()
    _, err := DialWithBackoff(ctx, SharedMem(), "nobody-listens", 3, Options{BackoffInitial: 5 * time.Millisecond, BackoffMax: 10 * time.Millisecond})
    if err == nil { t.Fatalf("expected error") }
    if time.Since(start) < 15*time.Millisecond { t.Fatalf("did not back off") }
}

func TestAcceptRetriesAfterOpenFailure(t *testing.T) {
    prevInitial, prevMax := acceptRetryInitial, acceptRetryMax
    acceptRetryInitial, acceptRetryMax = 5*time.Millisecond, 10*time.Millisecond
    defer func() { acceptRetryInitial, acceptRetryMax = prevInitial, prevMax }()

    var opens atomic.Int32
    tr := &serial.Transport{Baud: serial.DefaultBaud, Open: func(string, int) (io.ReadWriteCloser, error) {
        if opens.Add(1) == 1 { return nil, errors.New("device busy") }
        a, b := net.Pipe()
        go func() { _, _ = io.Copy(io.Discard, b) }()
        return a, nil
    }}
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    l, err := tr.Listen(ctx, "/dev/ttyTEST0")
    if err != nil { t.Fatalf("listen: %v", err) }

    st := &Stack{Sessions: transport.NewManager()}
    handled := make(chan struct{}, 4)
    done := make(chan struct{})
    go func() {
        defer close(done)
        acceptLoop(ctx, st, l, func(ctx context.Context, s transport.Session) {
            handled <- struct{}{}
            <-ctx.Done()
        })
    }()

    select {
    case <-handled:
    case <-done:
        t.Fatalf("accept loop exited after a failed open; opens = %d", opens.Load())
    case <-ctx.Done():
        t.Fatalf("no session after %d opens", opens.Load())
    }
    if n := opens.Load(); n != 2 { t.Fatalf("opens = %d, want 2", n) }

    cancel()
    select {
    case <-done:
    case <-time.After(2 * time.Second):
        t.Fatalf("accept loop did not stop on cancel")
    }
    st.wg.Wait()
}

func TestAcceptStopsOnClosedListener(t *testing.T) {
    tr := SharedMem()
    l, err := tr.Listen(context.Background(), "accept-closed")
    if err != nil { t.Fatalf("listen: %v", err) }
    _ = l.Close()
    done := make(chan struct{})
    go func() {
        defer close(done)
        acceptLoop(context.Background(), &Stack{Sessions: transport.NewManager()}, l, func(context.Context, transport.Session) {})
    }()
    select {
    case <-done:
    case <-time.After(2 * time.Second):
        t.Fatalf("accept loop kept retrying a closed listener")
    }
}
