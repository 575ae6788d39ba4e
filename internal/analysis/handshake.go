package analysis

import (
	"fmt"

	"github.com/hyperjump/vexus/internal/errs"
	"gonum.org/v1/gonum/floats"
)

// Handshake holds the displacement from the query to each reference, in
// reference order.
type Handshake struct {
	Magnitudes []float64   `json:"magnitudes"`
	Directions [][]float64 `json:"directions"`
}

// Handshakes computes query − reference for every reference. The direction
// is the unit displacement, or the zero vector when the magnitude is at or
// below DirectionTolerance.
func Handshakes(query []float32, references [][]float32) (*Handshake, error) {
	dim := len(query)
	if dim == 0 {
		return nil, errs.Shape("query", 1, 0)
	}
	q := widen(query)
	out := &Handshake{
		Magnitudes: make([]float64, len(references)),
		Directions: make([][]float64, len(references)),
	}
	for i, ref := range references {
		if len(ref) != dim {
			return nil, errs.Shape(fmt.Sprintf("references[%d]", i), dim, len(ref))
		}
		delta := floats.SubTo(make([]float64, dim), q, widen(ref))
		mag := floats.Norm(delta, 2)
		out.Magnitudes[i] = mag
		if mag > DirectionTolerance {
			floats.Scale(1/mag, delta)
		} else {
			clear(delta)
		}
		out.Directions[i] = delta
	}
	return out, nil
}
