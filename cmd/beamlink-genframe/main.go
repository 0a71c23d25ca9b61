package main

import (
    "encoding/hex"
    "flag"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"

    "beamlink/pkg/jobfile"
    "beamlink/pkg/protocol"
    "beamlink/pkg/protocol/codec"
)

func main() {
    outDir := flag.String("out", "testdata/frame", "output directory for binary frames")
    flag.Parse()
    if err := os.MkdirAll(*outDir, 0o755); err != nil { log.Fatal(err) }

    demo := jobfile.Demo()

    // 1) Demo job command
    job := mustCommand(1, demo.Job)
    writeOut(*outDir, "frame_job.bin", job)

    // 2) Tx data load
    writeOut(*outDir, "frame_tx_data.bin", mustCommand(2, demo.TxData[0]))

    // 3) Results for the demo job, two samples per beam
    res := protocol.JobResults{ID: demo.Job.ID}
    for r := 0; r < int(demo.Job.NumRepeats); r++ {
        res.RxData = append(res.RxData, protocol.RxData{ID: 1, Beams: []protocol.Beam{{ID: 0, Data: []uint32{uint32(r), uint32(r) << 16}}}})
    }
    writeOut(*outDir, "frame_results.bin", mustResponse(1, res))

    // 4) Parse error answering a truncated command
    writeOut(*outDir, "frame_parse_error.bin", mustResponse(3, protocol.ParseError{Msg: "unexpected end of input"}))

    // 5) Truncated job frame
    writeOut(*outDir, "frame_truncated.bin", job[:len(job)/2])

    // 6) Results archived as JSON body
    body, err := protocol.EncodeBody(codec.NewRegistry(), protocol.FormatJSON, res)
    if err != nil { log.Fatal(err) }
    writeOut(*outDir, "results_json.body", body)

    fmt.Println("Generated frames in", *outDir)
}

func mustCommand(seq uint16, c protocol.Command) []byte {
    env, err := protocol.NewCommandEnvelope(seq, c)
    if err != nil { log.Fatal(err) }
    return mustFrame(&env)
}

func mustResponse(seq uint16, r protocol.Response) []byte {
    env, err := protocol.NewResponseEnvelope(seq, r)
    if err != nil { log.Fatal(err) }
    return mustFrame(&env)
}

func mustFrame(e *protocol.Envelope) []byte {
    b, err := e.EncodeFrame()
    if err != nil { log.Fatal(err) }
    return b
}

func writeOut(dir, name string, b []byte) {
    p := filepath.Join(dir, name)
    if err := os.WriteFile(p, b, 0o644); err != nil { log.Fatal(err) }
    fmt.Printf("%-24s %5d bytes  head: %s\n", name, len(b), shortHex(b, 32))
}

func shortHex(b []byte, n int) string {
    if len(b) == 0 { return "" }
    if n > len(b) { n = len(b) }
    enc := hex.EncodeToString(b[:n])
    if len(b) > n { enc += "..." }
    var out []string
    for i := 0; i < len(enc); i += 4 {
        j := i + 4
        if j > len(enc) { j = len(enc) }
        out = append(out, enc[i:j])
    }
    return strings.Join(out, " ")
}
