package protocol

import (
    "errors"
    "fmt"
    "math"

    "beamlink/pkg/wire"
)

// JobResults carries the samples captured while executing the Job with the
// same ID.
type JobResults struct {
    ID     JobID    `json:"id"`
    RxData []RxData `json:"rx_data"`
}

// RxData holds the output of one executed RxEvent. ID is the position of
// that event in Job.Events.
type RxData struct {
    ID    EventID `json:"id"`
    Beams []Beam  `json:"beams"`
}

// Beam is the sample stream formed by one requested steering vector.
type Beam struct {
    ID   BeamID   `json:"id"`
    Data []uint32 `json:"data"`
}

// Beam returns the beam with the given id.
func (r *RxData) Beam(id BeamID) (Beam, bool) {
    for _, b := range r.Beams {
        if b.ID == id { return b, true }
    }
    return Beam{}, false
}

// CheckAgainst verifies that res is what executing job produces: one RxData
// per executed RxEvent slot in execution order, each with exactly one Beam
// per requested steering vector in request order. With partial set, a
// prefix of that sequence is accepted.
func (res *JobResults) CheckAgainst(job *Job, partial bool) error {
    if res.ID != job.ID {
        return fmt.Errorf("%w: results for %s, job is %s", ErrResultsMismatch, res.ID, job.ID)
    }
    i := 0
    err := job.EachSlot(func(s Slot) error {
        rx, ok := AsRx(s.Event)
        if !ok { return nil }
        if i >= len(res.RxData) {
            if partial { return errStop }
            return fmt.Errorf("%w: missing rx data for repeat %d event %d", ErrResultsMismatch, s.Repeat, s.Index)
        }
        got := res.RxData[i]
        i++
        if int(got.ID) != s.Index {
            return fmt.Errorf("%w: rx data %d is for %s, want event %d", ErrResultsMismatch, i-1, got.ID, s.Index)
        }
        if len(got.Beams) != len(rx.SteeringVecs) {
            return fmt.Errorf("%w: %s has %d beams, want %d", ErrResultsMismatch, got.ID, len(got.Beams), len(rx.SteeringVecs))
        }
        for k, sv := range rx.SteeringVecs {
            if got.Beams[k].ID != sv.ID {
                return fmt.Errorf("%w: %s beam %d is %s, want %s", ErrResultsMismatch, got.ID, k, got.Beams[k].ID, sv.ID)
            }
        }
        return nil
    })
    if err != nil && err != errStop { return err }
    if i != len(res.RxData) {
        return fmt.Errorf("%w: %d unexpected rx data entries", ErrResultsMismatch, len(res.RxData)-i)
    }
    return nil
}

var errStop = errors.New("stop slot walk")

// maxVarint32 is the longest encoding of a u32.
const maxVarint32 = 5

// ResultsSizeBound returns an upper bound on the encoded size of the
// response to j, given the samples per beam each RxEvent produces. The
// result saturates at math.MaxUint64.
func (j *Job) ResultsSizeBound(samples func(RxEvent) int) uint64 {
    var perRepeat uint64
    for _, ev := range j.Events {
        rx, ok := AsRx(ev)
        if !ok { continue }
        n := samples(rx)
        if n < 0 { n = 0 }
        beam := uint64(2*maxVarint32) + uint64(n)*maxVarint32
        perRepeat += 2*maxVarint32 + uint64(len(rx.SteeringVecs))*beam
    }
    // variant, job id, rx_data length, partial code and message
    const fixed = 1 + maxVarint32 + 2*maxVarint32 + maxVarint32 + 256
    if perRepeat > 0 && uint64(j.NumRepeats) > (math.MaxUint64-fixed)/perRepeat {
        return math.MaxUint64
    }
    return fixed + perRepeat*uint64(j.NumRepeats)
}

func (res *JobResults) encode(e *wire.Encoder) {
    e.Uint32(uint32(res.ID))
    e.SeqLen(len(res.RxData))
    for _, rd := range res.RxData {
        e.Uint32(uint32(rd.ID))
        e.SeqLen(len(rd.Beams))
        for _, b := range rd.Beams {
            e.Uint32(uint32(b.ID))
            e.Uint32s(b.Data)
        }
    }
}

func decodeJobResults(d *wire.Decoder) (JobResults, error) {
    var res JobResults
    id, err := d.Uint32("job_results.id")
    if err != nil { return res, err }
    res.ID = JobID(id)
    n, err := d.SeqLen("job_results.rx_data", 2)
    if err != nil { return res, err }
    if n > 0 { res.RxData = make([]RxData, n) }
    for i := range res.RxData {
        rd := &res.RxData[i]
        eid, err := d.Uint32("rx_data.id")
        if err != nil { return res, err }
        rd.ID = EventID(eid)
        nb, err := d.SeqLen("rx_data.beams", 2)
        if err != nil { return res, err }
        if nb > 0 { rd.Beams = make([]Beam, nb) }
        for k := range rd.Beams {
            bid, err := d.Uint32("beam.id")
            if err != nil { return res, err }
            rd.Beams[k].ID = BeamID(bid)
            if rd.Beams[k].Data, err = d.Uint32s("beam.data"); err != nil { return res, err }
        }
    }
    return res, nil
}

func (res JobResults) MarshalBinary() ([]byte, error) {
    e := wire.NewEncoder(64)
    res.encode(e)
    return e.Bytes(), nil
}

func (res *JobResults) UnmarshalBinary(b []byte) error {
    d := wire.NewDecoder(b)
    v, err := decodeJobResults(d)
    if err != nil { return err }
    if err := d.Finish(); err != nil { return err }
    *res = v
    return nil
}
