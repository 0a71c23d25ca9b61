package protocol

import (
    "encoding/json"
    "reflect"
    "strings"
    "testing"

    cbor "github.com/fxamacker/cbor/v2"
)

func TestJobJSON(t *testing.T) {
    job := exampleJob()
    b, err := json.Marshal(job)
    if err != nil { t.Fatalf("marshal: %v", err) }
    s := string(b)
    for _, want := range []string{`"duration_ns":10000000`, `"tx":{`, `"rx":{`, `"coefficients":[[1,1],`} {
        if !strings.Contains(s, want) { t.Fatalf("json missing %s: %s", want, s) }
    }
    var out Job
    if err := json.Unmarshal(b, &out); err != nil { t.Fatalf("unmarshal: %v", err) }
    if !reflect.DeepEqual(out, job) { t.Fatalf("roundtrip mismatch:\n got %+v\nwant %+v", out, job) }
}

func TestJobCBOR(t *testing.T) {
    job := exampleJob()
    b, err := cbor.Marshal(job)
    if err != nil { t.Fatalf("marshal: %v", err) }
    var out Job
    if err := cbor.Unmarshal(b, &out); err != nil { t.Fatalf("unmarshal: %v", err) }
    if !reflect.DeepEqual(out, job) { t.Fatalf("roundtrip mismatch") }
}

func TestJobJSONRejects(t *testing.T) {
    cases := []string{
        `{"id":1,"duration_ns":1,"num_repeats":1,"events":[{}]}`,
        `{"id":1,"duration_ns":1,"num_repeats":1,"events":[{"tx":{},"rx":{}}]}`,
        `{"id":1,"duration_ns":1,"num_repeats":1,"events":[{"rx":{"steering_vecs":[{"id":0,"coefficients":[[1,0]]}]}}]}`,
    }
    for _, in := range cases {
        var j Job
        if err := json.Unmarshal([]byte(in), &j); err == nil { t.Fatalf("accepted %s", in) }
    }
}
