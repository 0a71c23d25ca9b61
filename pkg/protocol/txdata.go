package protocol

import "beamlink/pkg/wire"

// TxData is a waveform loaded once and referenced by id from any number of
// TxEvents.
type TxData struct {
    ID      TxDataID `json:"id"`
    Samples []uint32 `json:"samples"`
}

func (t *TxData) encode(e *wire.Encoder) {
    e.Uint32(uint32(t.ID))
    e.Uint32s(t.Samples)
}

func decodeTxData(d *wire.Decoder) (TxData, error) {
    var t TxData
    id, err := d.Uint32("tx_data.id")
    if err != nil { return t, err }
    t.ID = TxDataID(id)
    t.Samples, err = d.Uint32s("tx_data.samples")
    return t, err
}

func (t TxData) MarshalBinary() ([]byte, error) {
    e := wire.NewEncoder(8 + len(t.Samples)*3)
    t.encode(e)
    return e.Bytes(), nil
}

func (t *TxData) UnmarshalBinary(b []byte) error {
    d := wire.NewDecoder(b)
    v, err := decodeTxData(d)
    if err != nil { return err }
    if err := d.Finish(); err != nil { return err }
    *t = v
    return nil
}
