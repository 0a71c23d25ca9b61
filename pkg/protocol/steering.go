package protocol

import (
    "fmt"
    "math"

    "beamlink/pkg/wire"
)

// NumElements is the number of antenna elements driven by one steering vector.
const NumElements = 16

// steeringVecSize is the encoded size of a steering vector with the smallest
// possible beam id.
const steeringVecSize = 1 + NumElements*16

// SteeringVec is a beam identifier plus one complex weight per antenna element.
// Magnitudes are not normalized or bounded here; gain limits belong to the
// radio driver.
type SteeringVec struct {
    ID           BeamID
    Coefficients [NumElements]complex128
}

// NewSteeringVec builds a steering vector from exactly NumElements
// coefficients.
func NewSteeringVec(id BeamID, coeffs []complex128) (SteeringVec, error) {
    if len(coeffs) != NumElements {
        return SteeringVec{}, fmt.Errorf("%w: got %d coefficients, want %d", ErrCoefficientCount, len(coeffs), NumElements)
    }
    sv := SteeringVec{ID: id}
    copy(sv.Coefficients[:], coeffs)
    return sv, nil
}

// UniformSteeringVec applies the same weight to every element.
func UniformSteeringVec(id BeamID, c complex128) SteeringVec {
    sv := SteeringVec{ID: id}
    for i := range sv.Coefficients {
        sv.Coefficients[i] = c
    }
    return sv
}

// Validate rejects coefficients with a NaN component.
func (sv SteeringVec) Validate() error {
    for i, c := range sv.Coefficients {
        if math.IsNaN(real(c)) || math.IsNaN(imag(c)) {
            return fmt.Errorf("%w: %s element %d", ErrNaNCoefficient, sv.ID, i)
        }
    }
    return nil
}

// Equal reports structural equality.
func (sv SteeringVec) Equal(o SteeringVec) bool { return sv == o }

func (sv SteeringVec) encode(e *wire.Encoder) {
    e.Uint32(uint32(sv.ID))
    for _, c := range sv.Coefficients {
        e.Complex128(c)
    }
}

func decodeSteeringVec(d *wire.Decoder) (SteeringVec, error) {
    var sv SteeringVec
    id, err := d.Uint32("steering_vec.id")
    if err != nil { return sv, err }
    sv.ID = BeamID(id)
    for i := range sv.Coefficients {
        if sv.Coefficients[i], err = d.Complex128("steering_vec.coefficients"); err != nil { return sv, err }
    }
    return sv, nil
}
