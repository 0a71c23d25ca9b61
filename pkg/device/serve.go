package device

import (
    "context"
    "errors"
    "io"
    "net"

    "go.uber.org/zap"

    "beamlink/pkg/protocol"
    "beamlink/pkg/transport"
)

// Serve answers frames from st until the stream ends or ctx is done. Each
// command frame gets exactly one response frame carrying the same seq.
func (ep *Endpoint) Serve(ctx context.Context, st transport.Stream) error {
    stop := make(chan struct{})
    defer close(stop)
    go func() {
        select {
        case <-ctx.Done():
            _ = st.Close()
        case <-stop:
        }
    }()
    for {
        b, err := st.RecvBytes()
        if err != nil {
            if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) { return nil }
            return err
        }
        out := ep.exchange(ctx, b)
        if err := st.SendBytes(out); err != nil { return err }
    }
}

// exchange turns one received frame into one response frame.
func (ep *Endpoint) exchange(ctx context.Context, frame []byte) []byte {
    var env protocol.Envelope
    var resp protocol.Response
    if err := env.DecodeFrame(frame); err != nil {
        zap.L().Warn("bad frame", zap.Int("bytes", len(frame)), zap.Error(err))
        resp = ep.parseError(err)
    } else if env.Header.Type != protocol.MsgCommand {
        resp = ep.parseError(errors.New("frame is not a command"))
    } else {
        log := zap.L().Debug
        if env.HasFlag(protocol.FlagDebug) { log = zap.L().Info }
        log("command frame", zap.Uint16("seq", env.Header.Seq), zap.Int("bytes", len(env.Payload)), zap.Bool("retry", env.HasFlag(protocol.FlagRetry)))
        resp = ep.handlePayload(ctx, env.Payload)
    }

    seq := env.Header.Seq
    out, err := encodeResponseFrame(seq, resp)
    if err != nil {
        zap.L().Error("response not encodable", zap.Uint16("seq", seq), zap.Stringer("kind", resp.ResponseKind()), zap.Error(err))
        out, _ = encodeResponseFrame(seq, protocol.Rejected{Code: protocol.CodeInternal, Msg: err.Error()})
    }
    return out
}

func encodeResponseFrame(seq uint16, resp protocol.Response) ([]byte, error) {
    env, err := protocol.NewResponseEnvelope(seq, resp)
    if err != nil { return nil, err }
    return env.EncodeFrame()
}

// SessionHandler adapts Serve to a netstack handler.
func (ep *Endpoint) SessionHandler() func(ctx context.Context, s transport.Session) {
    return func(ctx context.Context, s transport.Session) {
        if ep.metrics != nil {
            ep.metrics.Sessions.Inc()
            defer ep.metrics.Sessions.Dec()
        }
        st, err := s.AcceptStream(ctx)
        if err != nil {
            zap.L().Warn("no command stream", zap.String("peer", string(s.Peer().ID)), zap.Error(err))
            return
        }
        if err := ep.Serve(ctx, st); err != nil {
            zap.L().Info("session ended", zap.String("peer", string(s.Peer().ID)), zap.Error(err))
        }
    }
}
