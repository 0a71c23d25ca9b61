package observability

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.uber.org/zap"
)

// Metrics groups the device-side collectors on a private registry.
type Metrics struct {
    Registry *prometheus.Registry

    Commands     *prometheus.CounterVec
    Responses    *prometheus.CounterVec
    ParseErrors  prometheus.Counter
    Rejections   *prometheus.CounterVec
    JobSeconds   prometheus.Histogram
    RxSamples    prometheus.Counter
    StoreBytes   prometheus.Gauge
    Sessions     prometheus.Gauge
}

// NewMetrics registers the beamlink collectors plus Go runtime and process
// collectors.
func NewMetrics() *Metrics {
    reg := prometheus.NewRegistry()
    m := &Metrics{
        Registry: reg,
        Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "beamlink", Name: "commands_total", Help: "Commands received, by kind.",
        }, []string{"kind"}),
        Responses: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "beamlink", Name: "responses_total", Help: "Responses sent, by kind.",
        }, []string{"kind"}),
        ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "beamlink", Name: "parse_errors_total", Help: "Frames or commands that failed to decode.",
        }),
        Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: "beamlink", Name: "rejections_total", Help: "Rejected or partially executed commands, by code.",
        }, []string{"code"}),
        JobSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
            Namespace: "beamlink", Name: "job_execution_seconds", Help: "Wall time spent executing jobs.",
            Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
        }),
        RxSamples: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: "beamlink", Name: "rx_samples_total", Help: "Samples returned in job results.",
        }),
        StoreBytes: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "beamlink", Name: "txstore_bytes", Help: "Bytes of TxData held by the device.",
        }),
        Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: "beamlink", Name: "sessions", Help: "Host sessions currently served.",
        }),
    }
    reg.MustRegister(m.Commands, m.Responses, m.ParseErrors, m.Rejections, m.JobSeconds, m.RxSamples, m.StoreBytes, m.Sessions)
    reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
    return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ServeMetrics serves m on addr until ctx is done. An empty addr is a no-op.
func ServeMetrics(ctx context.Context, addr, path string, m *Metrics) {
    if addr == "" { return }
    mux := http.NewServeMux()
    mux.Handle(path, m.Handler())
    srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
    go func() {
        <-ctx.Done()
        sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        _ = srv.Shutdown(sctx)
    }()
    go func() {
        zap.L().Info("metrics listening", zap.String("addr", addr), zap.String("path", path))
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            zap.L().Error("metrics server failed", zap.Error(err))
        }
    }()
}
