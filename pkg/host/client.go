// Package host drives a beamlink device: it loads waveforms, submits jobs
// and collects results over any transport.
package host

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "beamlink/pkg/netstack"
    "beamlink/pkg/protocol"
    "beamlink/pkg/transport"
)

// Options tunes a Client.
type Options struct {
    // Timeout bounds one exchange when the caller's context has no deadline.
    Timeout time.Duration
    // Debug asks the device to log every exchange.
    Debug bool
}

// Client issues one command at a time and waits for its response. It is
// safe for concurrent use; exchanges are serialized.
type Client struct {
    st   transport.Stream
    sess transport.Session
    opts Options

    mu     sync.Mutex
    seq    uint16
    closed bool
}

// New wraps an open command stream.
func New(st transport.Stream, opts Options) *Client {
    return &Client{st: st, opts: opts}
}

// Dial connects to a device and opens its command stream.
func Dial(ctx context.Context, tr transport.Transport, address string, attempts int, opts Options, nopts netstack.Options) (*Client, error) {
    sess, err := netstack.DialWithBackoff(ctx, tr, address, attempts, nopts)
    if err != nil { return nil, err }
    st, err := sess.OpenStream(ctx)
    if err != nil {
        _ = sess.Close()
        return nil, fmt.Errorf("open command stream: %w", err)
    }
    c := New(st, opts)
    c.sess = sess
    return c, nil
}

// Close releases the stream and its session.
func (c *Client) Close() error {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.closeLocked()
}

func (c *Client) closeLocked() error {
    if c.closed { return nil }
    c.closed = true
    err := c.st.Close()
    if c.sess != nil {
        if serr := c.sess.Close(); err == nil { err = serr }
    }
    return err
}

// Do sends cmd and returns the device's response. If ctx ends before the
// response arrives the stream is closed, since a late response would
// otherwise be read as the answer to the next command.
func (c *Client) Do(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
    if c.opts.Timeout > 0 {
        if _, ok := ctx.Deadline(); !ok {
            var cancel context.CancelFunc
            ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
            defer cancel()
        }
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.closed { return nil, ErrClosed }
    if err := ctx.Err(); err != nil { return nil, err }

    c.seq++
    seq := c.seq
    env, err := protocol.NewCommandEnvelope(seq, cmd)
    if err != nil { return nil, err }
    env.SetFlag(protocol.FlagDebug, c.opts.Debug)
    frame, err := env.EncodeFrame()
    if err != nil { return nil, err }

    log := zap.L().With(zap.String("exchange", uuid.NewString()), zap.Uint16("seq", seq), zap.Stringer("command", cmd.CommandKind()))
    stop := context.AfterFunc(ctx, func() { _ = c.st.Close() })
    resp, err := c.exchange(log, seq, frame)
    if !stop() {
        c.closed = true
        if c.sess != nil { _ = c.sess.Close() }
        log.Warn("exchange abandoned", zap.Error(ctx.Err()))
        return nil, ctx.Err()
    }
    if err != nil {
        log.Warn("exchange failed", zap.Error(err))
        return nil, err
    }
    log.Debug("exchange done", zap.Stringer("response", resp.ResponseKind()))
    return resp, nil
}

func (c *Client) exchange(log *zap.Logger, seq uint16, frame []byte) (protocol.Response, error) {
    start := time.Now()
    if err := c.st.SendBytes(frame); err != nil { return nil, fmt.Errorf("send: %w", err) }
    for {
        b, err := c.st.RecvBytes()
        if err != nil { return nil, fmt.Errorf("recv: %w", err) }
        var env protocol.Envelope
        if err := env.DecodeFrame(b); err != nil { return nil, fmt.Errorf("response frame: %w", err) }
        if env.Header.Seq != seq {
            log.Info("discarding stale response", zap.Uint16("got_seq", env.Header.Seq))
            continue
        }
        resp, err := env.Response()
        if err != nil { return nil, err }
        log.Debug("response received", zap.Duration("rtt", time.Since(start)), zap.Int("bytes", len(env.Payload)))
        return resp, nil
    }
}

// LoadTxData stores a waveform on the device.
func (c *Client) LoadTxData(ctx context.Context, td protocol.TxData) error {
    return c.expectAck(ctx, td)
}

// QueryState sends a StateCommand.
func (c *Client) QueryState(ctx context.Context) error {
    return c.expectAck(ctx, protocol.StateCommand{})
}

// Configure sends a ConfigCommand.
func (c *Client) Configure(ctx context.Context) error {
    return c.expectAck(ctx, protocol.ConfigCommand{})
}

// ConfigurePower sends a PowerConfigCommand.
func (c *Client) ConfigurePower(ctx context.Context) error {
    return c.expectAck(ctx, protocol.PowerConfigCommand{})
}

func (c *Client) expectAck(ctx context.Context, cmd protocol.Command) error {
    resp, err := c.Do(ctx, cmd)
    if err != nil { return err }
    if err := responseError(resp); err != nil { return err }
    if _, ok := resp.(protocol.ConfigResponse); !ok {
        return fmt.Errorf("%w: %s for %s", ErrUnexpectedResponse, resp.ResponseKind(), cmd.CommandKind())
    }
    return nil
}

// RunJob validates job, executes it on the device and checks the results
// against the job's timeline. A job without RxEvents yields empty results.
// On an early stop the error is a *PartialError carrying what was captured.
func (c *Client) RunJob(ctx context.Context, job protocol.Job) (protocol.JobResults, error) {
    if err := job.Validate(); err != nil { return protocol.JobResults{}, err }
    resp, err := c.Do(ctx, job)
    if err != nil { return protocol.JobResults{}, err }
    if err := responseError(resp); err != nil {
        if pe, ok := err.(*PartialError); ok {
            if cerr := pe.Results.CheckAgainst(&job, true); cerr != nil { return protocol.JobResults{}, cerr }
        }
        return protocol.JobResults{}, err
    }
    switch r := resp.(type) {
    case protocol.JobResults:
        if err := r.CheckAgainst(&job, false); err != nil { return protocol.JobResults{}, err }
        return r, nil
    case protocol.ConfigResponse:
        if job.HasRx() {
            return protocol.JobResults{}, fmt.Errorf("%w: acknowledgement for a job with rx events", ErrUnexpectedResponse)
        }
        return protocol.JobResults{ID: job.ID}, nil
    }
    return protocol.JobResults{}, fmt.Errorf("%w: %s", ErrUnexpectedResponse, resp.ResponseKind())
}
