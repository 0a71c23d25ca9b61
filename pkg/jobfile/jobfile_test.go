package jobfile

import (
    "errors"
    "os"
    "path/filepath"
    "testing"
    "time"

    "beamlink/pkg/protocol"
)

const demo = `
id: 3
duration: 10ms
num_repeats: 10
tx_data:
  - id: 0
    samples: [1, 2, 3]
  - id: 1
    fill: {value: 7, count: 4}
events:
  - tx: {start_at: 0s, duration: 400us, tx_data: 0, steering: {id: 0, uniform: [1, 1]}}
  - rx:
      start_at: 500us
      duration: 400us
      steering:
        - {id: 0, uniform: [1, 0]}
        - id: 1
          coefficients: [[1,0],[0,1],[1,0],[0,1],[1,0],[0,1],[1,0],[0,1],[1,0],[0,1],[1,0],[0,1],[1,0],[0,1],[1,0],[0,1]]
`

func TestParse(t *testing.T) {
    f, err := Parse([]byte(demo))
    if err != nil { t.Fatalf("parse: %v", err) }
    j := f.Job
    if j.ID != 3 || j.Duration != 10*time.Millisecond || j.NumRepeats != 10 || len(j.Events) != 2 { t.Fatalf("job = %+v", j) }
    tx, ok := protocol.AsTx(j.Events[0])
    if !ok || tx.Duration != 400*time.Microsecond || tx.SteeringVec.Coefficients[15] != complex(1, 1) { t.Fatalf("tx = %+v", tx) }
    rx, ok := protocol.AsRx(j.Events[1])
    if !ok || rx.StartAt != 500*time.Microsecond || len(rx.SteeringVecs) != 2 { t.Fatalf("rx = %+v", rx) }
    if rx.SteeringVecs[1].Coefficients[1] != complex(0, 1) { t.Fatalf("coefficients = %v", rx.SteeringVecs[1].Coefficients) }
    if len(f.TxData) != 2 || len(f.TxData[1].Samples) != 4 || f.TxData[1].Samples[3] != 7 { t.Fatalf("tx data = %+v", f.TxData) }
}

func TestParseRejects(t *testing.T) {
    cases := []struct {
        name string
        doc  string
        want error
    }{
        {"unknown tx data", "id: 1\nduration: 1ms\nnum_repeats: 1\nevents:\n  - tx: {duration: 1us, tx_data: 9, steering: {id: 0, uniform: [1, 0]}}\n", protocol.ErrUnknownTxData},
        {"out of bounds", "id: 1\nduration: 1ms\nnum_repeats: 1\nevents:\n  - rx: {start_at: 900us, duration: 200us, steering: [{id: 0, uniform: [1, 0]}]}\n", protocol.ErrEventBounds},
        {"both kinds", "id: 1\nduration: 1ms\nnum_repeats: 1\nevents:\n  - tx: {}\n    rx: {}\n", ErrMalformed},
        {"short pair", "id: 1\nduration: 1ms\nnum_repeats: 1\nevents:\n  - rx: {steering: [{id: 0, uniform: [1]}]}\n", ErrMalformed},
        {"coefficient count", "id: 1\nduration: 1ms\nnum_repeats: 1\nevents:\n  - rx: {steering: [{id: 0, coefficients: [[1, 0]]}]}\n", protocol.ErrCoefficientCount},
        {"duplicate tx data", "tx_data:\n  - {id: 1}\n  - {id: 1}\n", ErrMalformed},
        {"zero repeats", "id: 1\nduration: 1ms\n", protocol.ErrZeroRepeats},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            if _, err := Parse([]byte(tc.doc)); !errors.Is(err, tc.want) { t.Fatalf("err = %v, want %v", err, tc.want) }
        })
    }
    if _, err := Parse([]byte("duration: soon\n")); err == nil { t.Fatalf("bad duration accepted") }
}

func TestLoad(t *testing.T) {
    p := filepath.Join(t.TempDir(), "job.yaml")
    if err := os.WriteFile(p, []byte(demo), 0o644); err != nil { t.Fatal(err) }
    f, err := Load(p)
    if err != nil || f.Job.ID != 3 { t.Fatalf("load: %v", err) }
    if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) { t.Fatalf("missing: %v", err) }
}

func TestDemoIsValid(t *testing.T) {
    d := Demo()
    if err := d.Job.ValidateWith(func(id protocol.TxDataID) bool { return id == d.TxData[0].ID }); err != nil { t.Fatalf("demo: %v", err) }
    if d.Job.RxEventCount() != 1 || len(d.Job.Timeline()) != 20 { t.Fatalf("timeline = %d slots", len(d.Job.Timeline())) }
}
