package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "strings"
    "syscall"

    "go.uber.org/zap"

    "beamlink/pkg/config"
    "beamlink/pkg/device"
    "beamlink/pkg/driver/stub"
    "beamlink/pkg/netstack"
    "beamlink/pkg/observability"
    "beamlink/pkg/txstore"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }
    if opts.Listen != "" {
        tc, err := listenOverride(opts.Listen)
        if err != nil {
            _, _ = os.Stderr.WriteString(err.Error() + "\n")
            return 2
        }
        cfg.Transports = []config.TransportConfig{tc}
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    zap.L().Info("beamlink-device started", zap.String("app", cfg.AppName))
    zap.L().Info("effective configuration", zap.Any("config", cfg))

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    metrics := observability.NewMetrics()
    observability.ServeMetrics(ctx, cfg.Metrics.Addr, cfg.Metrics.Path, metrics)

    store := txstore.New(txstore.Options{
        Shards:   cfg.Device.TxStore.Shards,
        TTL:      cfg.Device.TxStore.TTL(),
        MaxBytes: uint64(cfg.Device.TxStore.MaxBytes),
    })
    defer store.Close()

    drv := stub.New(stub.Options{
        SampleRateHz: cfg.Device.SampleRateHz,
        RealTime:     cfg.Device.RealTime,
        MaxRxSamples: cfg.Device.MaxRxSamples,
    })
    ep := device.New(store, drv, metrics)

    stack, err := netstack.Serve(ctx, cfg.Transports, ep.SessionHandler())
    if err != nil {
        zap.L().Error("failed to start transports", zap.Error(err))
        return 1
    }
    defer stack.Close()

    zap.L().Info("device is running; press Ctrl+C to exit", zap.Int64("listeners", stack.ActiveListeners()))
    <-ctx.Done()
    zap.L().Info("shutting down", zap.Int("sessions", stack.Sessions.Len()))
    return 0
}

// listenOverride parses "kind:address".
func listenOverride(s string) (config.TransportConfig, error) {
    kind, addr, ok := strings.Cut(s, ":")
    if !ok || kind == "" || addr == "" {
        return config.TransportConfig{}, fmt.Errorf("-listen wants kind:address, got %q", s)
    }
    return config.TransportConfig{Kind: kind, Listen: []string{addr}}, nil
}
