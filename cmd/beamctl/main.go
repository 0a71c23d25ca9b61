package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "os"
    "time"

    "go.uber.org/zap"

    "beamlink/pkg/config"
    "beamlink/pkg/host"
    "beamlink/pkg/jobfile"
    "beamlink/pkg/netstack"
    "beamlink/pkg/observability"
    "beamlink/pkg/protocol"
    "beamlink/pkg/protocol/codec"
    "beamlink/pkg/transport/serial"
)

func main() { os.Exit(run(os.Args[1:])) }

// run returns the process exit code: 1 on failure, 2 on bad flags, 3 when
// the job stopped early and partial results were kept.
func run(args []string) int {
    fs := flag.NewFlagSet("beamctl", flag.ContinueOnError)
    cfgPath := fs.String("config", "", "Path to YAML config file")
    kind := fs.String("kind", "", "transport kind: tcp|quic|serial|mem (overrides host.kind)")
    addr := fs.String("addr", "", "device address (overrides host.address)")
    jobPath := fs.String("job", "", "YAML job file; the built-in demo job when empty")
    out := fs.String("out", "", "write results to this file")
    format := fs.String("format", "wire", "archive format: wire|cbor|json")
    state := fs.Bool("state", false, "send a state query and exit")
    timeout := fs.Duration("timeout", 0, "per-exchange timeout (overrides host.timeout_ms)")
    debug := fs.Bool("debug", false, "ask the device to log every exchange")
    ports := fs.Bool("ports", false, "list serial ports and exit")
    if err := fs.Parse(args); err != nil { return 2 }

    if *ports {
        names, err := serial.Ports()
        if err != nil { return failf("list ports: %v", err) }
        for _, n := range names { fmt.Println(n) }
        return 0
    }

    cfg, err := config.Load(*cfgPath)
    if err != nil { return failf("load config: %v", err) }
    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil { return failf("setup logger: %v", err) }
    defer func() { _ = logger.Sync() }()

    hc := cfg.Host
    if *kind != "" { hc.Kind = *kind }
    if *addr != "" { hc.Address = *addr }
    if *timeout > 0 { hc.TimeoutMS = int(timeout.Milliseconds()) }

    archive, err := protocol.ParseFormat(*format)
    if err != nil { return failf("%v", err) }

    f := jobfile.Demo()
    if *jobPath != "" {
        if f, err = jobfile.Load(*jobPath); err != nil { return failf("job file: %v", err) }
    }

    ctx := context.Background()
    tr, err := netstack.NewByKind(hc.Kind, hc.SerialBaud)
    if err != nil { return failf("new transport: %v", err) }
    dialTimeout := hc.Timeout()
    if dialTimeout <= 0 { dialTimeout = 30 * time.Second }
    dctx, cancel := context.WithTimeout(ctx, dialTimeout)
    c, err := host.Dial(dctx, tr, hc.Address, 3, host.Options{Timeout: hc.Timeout(), Debug: *debug}, netstack.OptionsFromConfig(cfg.Net))
    cancel()
    if err != nil { return failf("dial %s %s: %v", hc.Kind, hc.Address, err) }
    defer c.Close()

    if *state {
        if err := c.QueryState(ctx); err != nil { return failf("state: %v", err) }
        fmt.Println("device ok")
        return 0
    }

    for _, td := range f.TxData {
        if err := c.LoadTxData(ctx, td); err != nil { return failf("load tx data %s: %v", td.ID, err) }
    }
    start := time.Now()
    res, err := c.RunJob(ctx, f.Job)
    var partial *host.PartialError
    if errors.As(err, &partial) {
        zap.L().Warn("job stopped early", zap.Stringer("code", partial.Code), zap.String("msg", partial.Msg))
        res = partial.Results
    } else if err != nil {
        return failf("run %s: %v", f.Job.ID, err)
    }
    printSummary(res, time.Since(start))

    if *out != "" {
        b, err := protocol.EncodeBody(codec.NewRegistry(), archive, res)
        if err != nil { return failf("encode results: %v", err) }
        if err := os.WriteFile(*out, b, 0o644); err != nil { return failf("write results: %v", err) }
        fmt.Printf("wrote %d bytes (%s) to %s\n", len(b), archive, *out)
    }
    if partial != nil { return 3 }
    return 0
}

func printSummary(res protocol.JobResults, took time.Duration) {
    samples := 0
    for _, rd := range res.RxData {
        for _, b := range rd.Beams { samples += len(b.Data) }
    }
    fmt.Printf("%s: %d rx data, %d samples in %s\n", res.ID, len(res.RxData), samples, took.Round(time.Microsecond))
    for i, rd := range res.RxData {
        if i == 4 && len(res.RxData) > 5 {
            fmt.Printf("  ... %d more\n", len(res.RxData)-4)
            break
        }
        for _, b := range rd.Beams {
            fmt.Printf("  [%d] %s %s: %d samples\n", i, rd.ID, b.ID, len(b.Data))
        }
    }
}

func failf(format string, a ...any) int {
    _, _ = fmt.Fprintf(os.Stderr, format+"\n", a...)
    return 1
}
