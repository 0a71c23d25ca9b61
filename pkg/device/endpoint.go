// Package device executes host commands against a radio driver.
package device

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "go.uber.org/zap"

    "beamlink/pkg/driver"
    "beamlink/pkg/observability"
    "beamlink/pkg/protocol"
    "beamlink/pkg/txstore"
)

// Endpoint owns the TxData store and the radio. Commands from any number of
// sessions may be handled concurrently; jobs are executed one at a time.
type Endpoint struct {
    store   *txstore.Store
    drv     driver.Driver
    metrics *observability.Metrics

    radio sync.Mutex
}

// New builds an endpoint. m may be nil.
func New(store *txstore.Store, drv driver.Driver, m *observability.Metrics) *Endpoint {
    return &Endpoint{store: store, drv: drv, metrics: m}
}

// Handle executes one decoded command and returns its response. It never
// panics: a failure inside handling becomes Rejected{CodeInternal}.
func (ep *Endpoint) Handle(ctx context.Context, cmd protocol.Command) (resp protocol.Response) {
    defer func() {
        if r := recover(); r != nil {
            zap.L().Error("command handler panicked", zap.Any("panic", r), zap.Stack("stack"))
            resp = protocol.Rejected{Code: protocol.CodeInternal, Msg: fmt.Sprintf("internal error: %v", r)}
        }
        ep.observe(resp)
    }()
    if ep.metrics != nil && cmd != nil {
        ep.metrics.Commands.WithLabelValues(cmd.CommandKind().String()).Inc()
    }
    switch c := cmd.(type) {
    case protocol.Job:
        return ep.runJob(ctx, &c)
    case *protocol.Job:
        return ep.runJob(ctx, c)
    case protocol.TxData:
        return ep.loadTxData(c)
    case *protocol.TxData:
        return ep.loadTxData(*c)
    case protocol.StateCommand, protocol.PowerConfigCommand, protocol.ConfigCommand,
        *protocol.StateCommand, *protocol.PowerConfigCommand, *protocol.ConfigCommand:
        return protocol.ConfigResponse{}
    default:
        return protocol.Rejected{Code: protocol.CodeUnsupported, Msg: fmt.Sprintf("unsupported command %T", cmd)}
    }
}

// HandleBytes decodes a command payload, executes it and returns the
// encoded response payload. Undecodable input yields a ParseError.
func (ep *Endpoint) HandleBytes(ctx context.Context, payload []byte) []byte {
    out, err := protocol.EncodeResponse(ep.handlePayload(ctx, payload))
    if err != nil {
        out, _ = protocol.EncodeResponse(protocol.Rejected{Code: protocol.CodeInternal, Msg: err.Error()})
    }
    return out
}

func (ep *Endpoint) handlePayload(ctx context.Context, payload []byte) protocol.Response {
    cmd, err := protocol.DecodeCommand(payload)
    if err != nil {
        zap.L().Warn("command decode failed", zap.Int("bytes", len(payload)), zap.Error(err))
        return ep.parseError(err)
    }
    return ep.Handle(ctx, cmd)
}

func (ep *Endpoint) parseError(err error) protocol.Response {
    if ep.metrics != nil { ep.metrics.ParseErrors.Inc() }
    resp := protocol.NewParseError(err)
    ep.observe(resp)
    return resp
}

func (ep *Endpoint) loadTxData(td protocol.TxData) protocol.Response {
    if err := ep.store.Put(td); err != nil {
        code := protocol.CodeInternal
        if errors.Is(err, txstore.ErrFull) { code = protocol.CodeStoreFull }
        zap.L().Warn("tx data refused", zap.Stringer("tx_data", td.ID), zap.Int("samples", len(td.Samples)), zap.Error(err))
        return protocol.Rejected{Code: code, Msg: err.Error()}
    }
    if ep.metrics != nil { ep.metrics.StoreBytes.Set(float64(ep.store.Stats().Bytes)) }
    zap.L().Debug("tx data loaded", zap.Stringer("tx_data", td.ID), zap.Int("samples", len(td.Samples)))
    return protocol.ConfigResponse{}
}

func (ep *Endpoint) observe(resp protocol.Response) {
    if ep.metrics == nil || resp == nil { return }
    ep.metrics.Responses.WithLabelValues(resp.ResponseKind().String()).Inc()
    switch r := resp.(type) {
    case protocol.Rejected:
        ep.metrics.Rejections.WithLabelValues(r.Code.String()).Inc()
    case protocol.PartialJobResults:
        ep.metrics.Rejections.WithLabelValues(r.Code.String()).Inc()
    }
}

func (ep *Endpoint) runJob(ctx context.Context, job *protocol.Job) protocol.Response {
    log := zap.L().With(zap.Stringer("job", job.ID))
    if err := job.ValidateWith(ep.store.Has); err != nil {
        code := protocol.CodeInvalidJob
        var ve *protocol.ValidationError
        if errors.As(err, &ve) { code = ve.Code() }
        log.Info("job rejected", zap.Stringer("code", code), zap.Error(err))
        return protocol.Rejected{Code: code, Msg: err.Error()}
    }

    if need := job.ResultsSizeBound(ep.drv.RxSamples); need > protocol.MaxPayload {
        log.Info("job rejected", zap.Stringer("code", protocol.CodeResultTooLarge), zap.Uint64("result_bytes", need))
        return protocol.Rejected{Code: protocol.CodeResultTooLarge, Msg: fmt.Sprintf("results need up to %d bytes, limit is %d", need, protocol.MaxPayload)}
    }

    // snapshot waveforms so expiry or replacement cannot change a running job
    waves := make(map[protocol.TxDataID][]uint32)
    for _, ev := range job.Events {
        tx, ok := protocol.AsTx(ev)
        if !ok { continue }
        if _, seen := waves[tx.TxDataID]; seen { continue }
        td, ok := ep.store.Get(tx.TxDataID)
        if !ok {
            return protocol.Rejected{Code: protocol.CodeUnknownTxData, Msg: fmt.Sprintf("%v: %s", protocol.ErrUnknownTxData, tx.TxDataID)}
        }
        waves[tx.TxDataID] = td.Samples
    }

    ep.radio.Lock()
    defer ep.radio.Unlock()

    start := time.Now()
    res, err := ep.execute(ctx, job, waves)
    elapsed := time.Since(start)
    if ep.metrics != nil { ep.metrics.JobSeconds.Observe(elapsed.Seconds()) }

    if err != nil {
        code := protocol.CodeDriverFault
        if ctx.Err() != nil && errors.Is(err, ctx.Err()) { code = protocol.CodeAborted }
        log.Warn("job stopped", zap.Stringer("code", code), zap.Int("rx_data", len(res.RxData)), zap.Duration("elapsed", elapsed), zap.Error(err))
        if len(res.RxData) > 0 {
            return protocol.PartialJobResults{Results: res, Code: code, Msg: err.Error()}
        }
        return protocol.Rejected{Code: code, Msg: err.Error()}
    }
    log.Info("job executed", zap.Uint32("repeats", job.NumRepeats), zap.Int("events", len(job.Events)), zap.Int("rx_data", len(res.RxData)), zap.Duration("elapsed", elapsed))
    if !job.HasRx() {
        return protocol.ConfigResponse{}
    }
    return res
}

// execute replays the timeline. On error, res holds what was captured.
func (ep *Endpoint) execute(ctx context.Context, job *protocol.Job, waves map[protocol.TxDataID][]uint32) (protocol.JobResults, error) {
    res := protocol.JobResults{ID: job.ID}
    if err := ep.drv.Begin(ctx, job); err != nil { return res, err }
    err := job.EachSlot(func(s protocol.Slot) error {
        if err := ctx.Err(); err != nil { return err }
        if tx, ok := protocol.AsTx(s.Event); ok {
            return ep.drv.Transmit(ctx, s, tx, waves[tx.TxDataID])
        }
        rx, _ := protocol.AsRx(s.Event)
        beams, err := ep.drv.Receive(ctx, s, rx)
        if err != nil { return err }
        if err := checkBeams(rx, beams); err != nil {
            return fmt.Errorf("%w: repeat %d event %d: %v", driver.ErrFault, s.Repeat, s.Index, err)
        }
        if ep.metrics != nil {
            n := 0
            for _, b := range beams { n += len(b.Data) }
            ep.metrics.RxSamples.Add(float64(n))
        }
        res.RxData = append(res.RxData, protocol.RxData{ID: protocol.EventID(s.Index), Beams: beams})
        return nil
    })
    return res, err
}

// checkBeams requires exactly one beam per requested steering vector, in
// request order.
func checkBeams(rx protocol.RxEvent, beams []protocol.Beam) error {
    if len(beams) != len(rx.SteeringVecs) {
        return fmt.Errorf("driver returned %d beams, want %d", len(beams), len(rx.SteeringVecs))
    }
    for i, sv := range rx.SteeringVecs {
        if beams[i].ID != sv.ID {
            return fmt.Errorf("beam %d is %s, want %s", i, beams[i].ID, sv.ID)
        }
    }
    return nil
}
