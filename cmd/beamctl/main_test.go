package main

import (
    "context"
    "os"
    "path/filepath"
    "testing"

    "beamlink/pkg/config"
    "beamlink/pkg/device"
    "beamlink/pkg/driver/stub"
    "beamlink/pkg/netstack"
    "beamlink/pkg/protocol"
    "beamlink/pkg/protocol/codec"
    "beamlink/pkg/txstore"
)

func serveDevice(t *testing.T, name string) {
    t.Helper()
    ctx, cancel := context.WithCancel(context.Background())
    st := txstore.New(txstore.Options{})
    ep := device.New(st, stub.New(stub.Options{SampleRateHz: 1e5}), nil)
    stack, err := netstack.Serve(ctx, []config.TransportConfig{{Kind: "mem", Listen: []string{name}}}, ep.SessionHandler())
    if err != nil { t.Fatalf("serve: %v", err) }
    t.Cleanup(func() {
        stack.Close()
        cancel()
        st.Close()
    })
}

func TestRunDemoJobWritesResults(t *testing.T) {
    serveDevice(t, "beamctl-demo")
    out := filepath.Join(t.TempDir(), "results.bin")
    if code := run([]string{"-kind", "mem", "-addr", "beamctl-demo", "-out", out}); code != 0 { t.Fatalf("exit code = %d", code) }
    b, err := os.ReadFile(out)
    if err != nil { t.Fatalf("read: %v", err) }
    var res protocol.JobResults
    f, err := protocol.DecodeBody(codec.NewRegistry(), b, &res)
    if err != nil || f != protocol.FormatWire { t.Fatalf("decode: %s %v", f, err) }
    if len(res.RxData) == 0 { t.Fatalf("no rx data in %s", out) }
}

func TestRunExitCodes(t *testing.T) {
    serveDevice(t, "beamctl-state")
    cases := []struct {
        name string
        args []string
        want int
    }{
        {"state", []string{"-kind", "mem", "-addr", "beamctl-state", "-state"}, 0},
        {"bad flag", []string{"-nope"}, 2},
        {"bad format", []string{"-kind", "mem", "-addr", "beamctl-state", "-format", "xml"}, 1},
        {"missing job file", []string{"-kind", "mem", "-addr", "beamctl-state", "-job", filepath.Join(t.TempDir(), "none.yaml")}, 1},
    }
    for _, tc := range cases {
        if got := run(tc.args); got != tc.want { t.Fatalf("%s: exit code = %d want %d", tc.name, got, tc.want) }
    }
}
