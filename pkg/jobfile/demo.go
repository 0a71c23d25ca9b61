package jobfile

import (
    "time"

    "beamlink/pkg/protocol"
)

// DemoSamples is the length of the demo waveform.
const DemoSamples = 64

// Demo returns a ten-repeat job that transmits TxData 0 for 400us and then
// receives one beam for 400us in every 10ms repetition.
func Demo() *File {
    sv := protocol.UniformSteeringVec(0, complex(1, 0))
    wave := make([]uint32, DemoSamples)
    for i := range wave {
        // I in the low half, Q in the high half
        wave[i] = uint32(i)<<16 | uint32(DemoSamples-i)
    }
    return &File{
        Job: protocol.Job{
            ID:         0,
            Duration:   10 * time.Millisecond,
            NumRepeats: 10,
            Events: []protocol.Event{
                protocol.TxEvent{StartAt: 0, Duration: 400 * time.Microsecond, TxDataID: 0, SteeringVec: sv},
                protocol.RxEvent{StartAt: 500 * time.Microsecond, Duration: 400 * time.Microsecond, SteeringVecs: []protocol.SteeringVec{sv}},
            },
        },
        TxData: []protocol.TxData{{ID: 0, Samples: wave}},
    }
}
