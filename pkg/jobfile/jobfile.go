// Package jobfile reads job descriptions written in YAML.
//
//  id: 3
//  duration: 10ms
//  num_repeats: 10
//  tx_data:
//    - id: 0
//      samples: [1, 2, 3]
//  events:
//    - tx: {start_at: 0s, duration: 400us, tx_data: 0, steering: {id: 0, uniform: [1, 1]}}
//    - rx:
//        start_at: 500us
//        duration: 400us
//        steering:
//          - {id: 0, uniform: [1, 0]}
//          - {id: 1, coefficients: [[1, 0], [0, 1], ...]}
package jobfile

import (
    "errors"
    "fmt"
    "os"
    "time"

    "gopkg.in/yaml.v3"

    "beamlink/pkg/protocol"
)

// File is the decoded content of a job file.
type File struct {
    Job    protocol.Job
    TxData []protocol.TxData
}

type fileDoc struct {
    ID         uint32        `yaml:"id"`
    Duration   time.Duration `yaml:"duration"`
    NumRepeats uint32        `yaml:"num_repeats"`
    TxData     []txDataDoc   `yaml:"tx_data"`
    Events     []eventDoc    `yaml:"events"`
}

type txDataDoc struct {
    ID      uint32   `yaml:"id"`
    Samples []uint32 `yaml:"samples"`
    // Fill repeats Value Count times when Samples is empty.
    Fill *struct {
        Value uint32 `yaml:"value"`
        Count int    `yaml:"count"`
    } `yaml:"fill"`
}

type eventDoc struct {
    Tx *struct {
        StartAt  time.Duration `yaml:"start_at"`
        Duration time.Duration `yaml:"duration"`
        TxData   uint32        `yaml:"tx_data"`
        Steering steeringDoc   `yaml:"steering"`
    } `yaml:"tx"`
    Rx *struct {
        StartAt  time.Duration `yaml:"start_at"`
        Duration time.Duration `yaml:"duration"`
        Steering []steeringDoc `yaml:"steering"`
    } `yaml:"rx"`
}

type steeringDoc struct {
    ID           uint32      `yaml:"id"`
    Uniform      []float64   `yaml:"uniform"`
    Coefficients [][]float64 `yaml:"coefficients"`
}

var ErrMalformed = errors.New("jobfile: malformed")

// Load reads and parses the job file at path.
func Load(path string) (*File, error) {
    raw, err := os.ReadFile(path)
    if err != nil { return nil, err }
    f, err := Parse(raw)
    if err != nil { return nil, fmt.Errorf("%s: %w", path, err) }
    return f, nil
}

// Parse decodes a job file and validates the job against the TxData it
// declares.
func Parse(raw []byte) (*File, error) {
    var doc fileDoc
    if err := yaml.Unmarshal(raw, &doc); err != nil { return nil, err }

    out := &File{Job: protocol.Job{ID: protocol.JobID(doc.ID), Duration: doc.Duration, NumRepeats: doc.NumRepeats}}
    known := make(map[protocol.TxDataID]bool, len(doc.TxData))
    for i, td := range doc.TxData {
        v := protocol.TxData{ID: protocol.TxDataID(td.ID), Samples: td.Samples}
        if len(v.Samples) == 0 && td.Fill != nil {
            if td.Fill.Count < 0 { return nil, fmt.Errorf("%w: tx_data %d: negative fill count", ErrMalformed, i) }
            v.Samples = make([]uint32, td.Fill.Count)
            for k := range v.Samples { v.Samples[k] = td.Fill.Value }
        }
        if known[v.ID] { return nil, fmt.Errorf("%w: tx_data %d: duplicate id %d", ErrMalformed, i, td.ID) }
        known[v.ID] = true
        out.TxData = append(out.TxData, v)
    }

    for i, ed := range doc.Events {
        ev, err := ed.event()
        if err != nil { return nil, fmt.Errorf("event %d: %w", i, err) }
        out.Job.Events = append(out.Job.Events, ev)
    }
    if err := out.Job.ValidateWith(func(id protocol.TxDataID) bool { return known[id] }); err != nil {
        return nil, err
    }
    return out, nil
}

func (ed eventDoc) event() (protocol.Event, error) {
    switch {
    case ed.Tx != nil && ed.Rx == nil:
        sv, err := ed.Tx.Steering.steeringVec()
        if err != nil { return nil, err }
        return protocol.TxEvent{StartAt: ed.Tx.StartAt, Duration: ed.Tx.Duration, TxDataID: protocol.TxDataID(ed.Tx.TxData), SteeringVec: sv}, nil
    case ed.Rx != nil && ed.Tx == nil:
        rx := protocol.RxEvent{StartAt: ed.Rx.StartAt, Duration: ed.Rx.Duration}
        for _, sd := range ed.Rx.Steering {
            sv, err := sd.steeringVec()
            if err != nil { return nil, err }
            rx.SteeringVecs = append(rx.SteeringVecs, sv)
        }
        return rx, nil
    }
    return nil, fmt.Errorf("%w: set exactly one of tx or rx", ErrMalformed)
}

func (sd steeringDoc) steeringVec() (protocol.SteeringVec, error) {
    id := protocol.BeamID(sd.ID)
    switch {
    case sd.Uniform != nil && sd.Coefficients == nil:
        c, err := pair(sd.Uniform)
        if err != nil { return protocol.SteeringVec{}, err }
        return protocol.UniformSteeringVec(id, c), nil
    case sd.Coefficients != nil && sd.Uniform == nil:
        coeffs := make([]complex128, len(sd.Coefficients))
        for i, p := range sd.Coefficients {
            c, err := pair(p)
            if err != nil { return protocol.SteeringVec{}, fmt.Errorf("coefficient %d: %w", i, err) }
            coeffs[i] = c
        }
        return protocol.NewSteeringVec(id, coeffs)
    }
    return protocol.SteeringVec{}, fmt.Errorf("%w: steering %d needs exactly one of uniform or coefficients", ErrMalformed, sd.ID)
}

func pair(p []float64) (complex128, error) {
    if len(p) != 2 { return 0, fmt.Errorf("%w: want [re, im], got %d values", ErrMalformed, len(p)) }
    return complex(p[0], p[1]), nil
}
