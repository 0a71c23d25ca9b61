package protocol

import (
    "encoding/json"
    "fmt"
    "time"

    cbor "github.com/fxamacker/cbor/v2"
)

// Document forms used by the JSON and CBOR codecs. Complex coefficients are
// written as [re, im] pairs and events as {"tx": ...} / {"rx": ...}.

var cborEnc = func() cbor.EncMode {
    em, err := cbor.CanonicalEncOptions().EncMode()
    if err != nil { panic(err) }
    return em
}()

type steeringVecDoc struct {
    ID           BeamID      `json:"id"`
    Coefficients [][]float64 `json:"coefficients"`
}

func (sv SteeringVec) doc() steeringVecDoc {
    pairs := make([][]float64, NumElements)
    for i, c := range sv.Coefficients {
        pairs[i] = []float64{real(c), imag(c)}
    }
    return steeringVecDoc{ID: sv.ID, Coefficients: pairs}
}

func (d steeringVecDoc) steeringVec() (SteeringVec, error) {
    if len(d.Coefficients) != NumElements {
        return SteeringVec{}, fmt.Errorf("%w: got %d coefficients", ErrCoefficientCount, len(d.Coefficients))
    }
    sv := SteeringVec{ID: d.ID}
    for i, p := range d.Coefficients {
        if len(p) != 2 {
            return SteeringVec{}, fmt.Errorf("protocol: coefficient %d must be [re, im], got %d values", i, len(p))
        }
        sv.Coefficients[i] = complex(p[0], p[1])
    }
    return sv, nil
}

func (sv SteeringVec) MarshalJSON() ([]byte, error) { return json.Marshal(sv.doc()) }

func (sv *SteeringVec) UnmarshalJSON(b []byte) error {
    var d steeringVecDoc
    if err := json.Unmarshal(b, &d); err != nil { return err }
    v, err := d.steeringVec()
    if err != nil { return err }
    *sv = v
    return nil
}

func (sv SteeringVec) MarshalCBOR() ([]byte, error) { return cborEnc.Marshal(sv.doc()) }

func (sv *SteeringVec) UnmarshalCBOR(b []byte) error {
    var d steeringVecDoc
    if err := cbor.Unmarshal(b, &d); err != nil { return err }
    v, err := d.steeringVec()
    if err != nil { return err }
    *sv = v
    return nil
}

type eventDoc struct {
    Tx *TxEvent `json:"tx,omitempty"`
    Rx *RxEvent `json:"rx,omitempty"`
}

type jobDoc struct {
    ID         JobID         `json:"id"`
    Duration   time.Duration `json:"duration_ns"`
    NumRepeats uint32        `json:"num_repeats"`
    Events     []eventDoc    `json:"events"`
}

func (j Job) doc() (jobDoc, error) {
    d := jobDoc{ID: j.ID, Duration: j.Duration, NumRepeats: j.NumRepeats, Events: make([]eventDoc, len(j.Events))}
    for i, ev := range j.Events {
        if tx, ok := AsTx(ev); ok {
            d.Events[i].Tx = &tx
        } else if rx, ok := AsRx(ev); ok {
            d.Events[i].Rx = &rx
        } else {
            return d, fmt.Errorf("protocol: unsupported event type %T", ev)
        }
    }
    return d, nil
}

func (d jobDoc) job() (Job, error) {
    j := Job{ID: d.ID, Duration: d.Duration, NumRepeats: d.NumRepeats}
    if len(d.Events) > 0 { j.Events = make([]Event, len(d.Events)) }
    for i, ed := range d.Events {
        switch {
        case ed.Tx != nil && ed.Rx == nil:
            j.Events[i] = *ed.Tx
        case ed.Rx != nil && ed.Tx == nil:
            j.Events[i] = *ed.Rx
        default:
            return Job{}, fmt.Errorf("protocol: event %d must set exactly one of tx or rx", i)
        }
    }
    return j, nil
}

func (j Job) MarshalJSON() ([]byte, error) {
    d, err := j.doc()
    if err != nil { return nil, err }
    return json.Marshal(d)
}

func (j *Job) UnmarshalJSON(b []byte) error {
    var d jobDoc
    if err := json.Unmarshal(b, &d); err != nil { return err }
    v, err := d.job()
    if err != nil { return err }
    *j = v
    return nil
}

func (j Job) MarshalCBOR() ([]byte, error) {
    d, err := j.doc()
    if err != nil { return nil, err }
    return cborEnc.Marshal(d)
}

func (j *Job) UnmarshalCBOR(b []byte) error {
    var d jobDoc
    if err := cbor.Unmarshal(b, &d); err != nil { return err }
    v, err := d.job()
    if err != nil { return err }
    *j = v
    return nil
}
