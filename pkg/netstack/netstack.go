// Package netstack builds transports from configuration, serves inbound
// sessions and dials with backoff.
package netstack

import (
    "context"
    "sync"
    "sync/atomic"
    "time"

    "go.uber.org/zap"

    "beamlink/pkg/config"
    "beamlink/pkg/transport"
    "beamlink/pkg/transport/mem"
    tquic "beamlink/pkg/transport/quic"
    tserial "beamlink/pkg/transport/serial"
    ttcp "beamlink/pkg/transport/tcp"
)

// Options tunes dial retries.
type Options struct {
    BackoffInitial time.Duration
    BackoffMax     time.Duration
    BackoffJitter  time.Duration
}

// OptionsFromConfig converts the net section of the config.
func OptionsFromConfig(n config.NetConfig) Options {
    return Options{BackoffInitial: n.BackoffInitial(), BackoffMax: n.BackoffMax(), BackoffJitter: n.BackoffJitter()}
}

// Handler serves one session until it ends. The session is closed when
// the handler returns.
type Handler func(ctx context.Context, s transport.Session)

// Stack tracks the listeners and sessions started by Serve.
type Stack struct {
    Sessions *transport.Manager

    activeListeners int64
    wg              sync.WaitGroup
    mu              sync.Mutex
    closers         []func()
}

func (st *Stack) ActiveListeners() int64 { return atomic.LoadInt64(&st.activeListeners) }

// Close stops listeners, closes live sessions and waits for handlers.
func (st *Stack) Close() {
    st.mu.Lock()
    for i := len(st.closers) - 1; i >= 0; i-- { st.closers[i]() }
    st.closers = nil
    st.mu.Unlock()
    st.Sessions.CloseAll()
    st.wg.Wait()
}

func (st *Stack) addCloser(f func()) { st.mu.Lock(); defer st.mu.Unlock(); st.closers = append(st.closers, f) }

// Serve builds transports per config and listens on every listen address,
// handing each accepted session to h on its own goroutine. Listen failures
// are logged and skipped; Serve fails only when nothing could be started.
func Serve(ctx context.Context, cfg []config.TransportConfig, h Handler) (*Stack, error) {
    st := &Stack{Sessions: transport.NewManager()}
    var firstErr error
    for _, tc := range cfg {
        tr, err := NewByKind(tc.Kind, tc.Baud)
        if err != nil {
            zap.L().Warn("transport kind not available", zap.String("kind", tc.Kind), zap.Error(err))
            if firstErr == nil { firstErr = err }
            continue
        }
        for _, addr := range tc.Listen {
            l, err := tr.Listen(ctx, addr)
            if err != nil {
                zap.L().Error("listen failed", zap.String("kind", tr.Kind().String()), zap.String("addr", addr), zap.Error(err))
                if firstErr == nil { firstErr = err }
                continue
            }
            zap.L().Info("listening", zap.String("kind", tr.Kind().String()), zap.String("addr", l.Addr().String()))
            st.addCloser(func() { _ = l.Close() })
            atomic.AddInt64(&st.activeListeners, 1)
            st.wg.Add(1)
            go func() {
                defer st.wg.Done()
                defer atomic.AddInt64(&st.activeListeners, -1)
                acceptLoop(ctx, st, l, h)
            }()
        }
    }
    if st.ActiveListeners() == 0 && firstErr != nil {
        return nil, firstErr
    }
    return st, nil
}

var (
    sharedMemOnce sync.Once
    sharedMem     *mem.Transport
)

// SharedMem returns the process-wide in-memory transport, so a host and a
// device built from config in the same process can reach each other.
func SharedMem() *mem.Transport {
    sharedMemOnce.Do(func() { sharedMem = mem.New() })
    return sharedMem
}

// NewByKind constructs a Transport by string kind. baud applies to serial
// links only.
func NewByKind(kind string, baud int) (transport.Transport, error) {
    k, err := transport.ParseKind(kind)
    if err != nil { return nil, ErrUnknownKind(kind) }
    switch k {
    case transport.KindTCP:
        return ttcp.New(), nil
    case transport.KindQUIC:
        return tquic.New()
    case transport.KindMem:
        return SharedMem(), nil
    case transport.KindSerial:
        return tserial.New(baud), nil
    default:
        return nil, ErrUnknownKind(kind)
    }
}

// Basic typed error for unknown kinds
type ErrUnknownKind string
func (e ErrUnknownKind) Error() string { return "unknown transport kind: " + string(e) }
