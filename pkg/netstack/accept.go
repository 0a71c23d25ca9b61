package netstack

import (
    "context"
    "errors"
    "net"
    "time"

    "go.uber.org/zap"

    "beamlink/pkg/transport"
)

// Accept errors other than a closed listener are retried: a serial port
// that is busy or unplugged comes back without restarting the device.
var (
    acceptRetryInitial = 250 * time.Millisecond
    acceptRetryMax     = 10 * time.Second
)

func acceptLoop(ctx context.Context, st *Stack, l transport.Listener, h Handler) {
    backoff := acceptRetryInitial
    for {
        s, err := l.Accept(ctx)
        if err != nil {
            if ctx.Err() != nil || errors.Is(err, transport.ErrListenerClosed) || errors.Is(err, net.ErrClosed) {
                return
            }
            wait := withJitter(backoff, backoff/4)
            zap.L().Warn("accept failed", zap.String("addr", l.Addr().String()), zap.Duration("retry_in", wait), zap.Error(err))
            t := time.NewTimer(wait)
            select {
            case <-ctx.Done():
                t.Stop()
                return
            case <-t.C:
            }
            if backoff < acceptRetryMax {
                backoff *= 2
                if backoff > acceptRetryMax { backoff = acceptRetryMax }
            }
            continue
        }
        backoff = acceptRetryInitial
        peer := s.Peer()
        zap.L().Info("inbound session", zap.String("peer", string(peer.ID)), zap.String("kind", s.TransportKind().String()), zap.String("raddr", s.RemoteAddr().String()))
        if old := st.Sessions.AddSession(s); old != nil && old != s {
            zap.L().Info("replaced session", zap.String("peer", string(peer.ID)))
        }
        st.wg.Add(1)
        go func() {
            defer st.wg.Done()
            defer func() {
                st.Sessions.RemoveSession(s)
                _ = s.Close()
                zap.L().Info("session closed", zap.String("peer", string(peer.ID)))
            }()
            h(ctx, s)
        }()
    }
}
