package netstack

import (
    "context"
    "math/rand"
    "time"

    "go.uber.org/zap"

    "beamlink/pkg/transport"
)

const (
    defaultBackoffInitial = 500 * time.Millisecond
    defaultBackoffMax     = 30 * time.Second
)

// DialWithBackoff dials address until it succeeds, attempts are exhausted
// or ctx is done. attempts <= 0 retries forever. The delay doubles after
// each failure up to opts.BackoffMax, plus up to opts.BackoffJitter.
func DialWithBackoff(ctx context.Context, tr transport.Transport, address string, attempts int, opts Options) (transport.Session, error) {
    backoff := opts.BackoffInitial
    if backoff <= 0 { backoff = defaultBackoffInitial }
    maxBackoff := opts.BackoffMax
    if maxBackoff <= 0 { maxBackoff = defaultBackoffMax }

    for i := 1; ; i++ {
        sess, err := tr.Dial(ctx, address)
        if err == nil {
            zap.L().Info("dialed", zap.String("kind", tr.Kind().String()), zap.String("addr", address), zap.Int("attempt", i))
            return sess, nil
        }
        if ctx.Err() != nil { return nil, ctx.Err() }
        if attempts > 0 && i >= attempts { return nil, err }
        wait := withJitter(backoff, opts.BackoffJitter)
        zap.L().Warn("dial failed", zap.String("kind", tr.Kind().String()), zap.String("addr", address), zap.Duration("retry_in", wait), zap.Error(err))
        t := time.NewTimer(wait)
        select {
        case <-ctx.Done():
            t.Stop()
            return nil, ctx.Err()
        case <-t.C:
        }
        if backoff < maxBackoff {
            backoff *= 2
            if backoff > maxBackoff { backoff = maxBackoff }
        }
    }
}

func withJitter(d, jitter time.Duration) time.Duration {
    if jitter <= 0 { return d }
    return d + time.Duration(rand.Int63n(int64(jitter)))
}
