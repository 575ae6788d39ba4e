package analysis

import (
	"fmt"
	"math"

	"github.com/hyperjump/vexus/internal/errs"
	"gonum.org/v1/gonum/floats"
)

// Subspace describes how the energy of a mean-centred query spreads over
// the axes of a basis.
type Subspace struct {
	Projections   []float64 `json:"projections"`
	Probabilities []float64 `json:"probabilities"`
	// Entropy is in bits; 0 when all energy sits on one axis, log2(K) when
	// it is spread evenly.
	Entropy float64 `json:"entropy"`
	Energy  float64 `json:"total_energy"`
}

// Project centres query on mean and projects it onto basis, which is
// assumed orthonormal. Zero total energy is reported as all-zero
// probabilities and entropy, not as an error.
func Project(query, mean []float32, basis [][]float32) (*Subspace, error) {
	dim := len(query)
	if dim == 0 {
		return nil, errs.Shape("query", 1, 0)
	}
	if len(mean) != dim {
		return nil, errs.Shape("mean", dim, len(mean))
	}
	centered := floats.SubTo(make([]float64, dim), widen(query), widen(mean))

	out := &Subspace{
		Projections:   make([]float64, len(basis)),
		Probabilities: make([]float64, len(basis)),
	}
	for i, b := range basis {
		if len(b) != dim {
			return nil, errs.Shape(fmt.Sprintf("basis[%d]", i), dim, len(b))
		}
		p := floats.Dot(centered, widen(b))
		out.Projections[i] = p
		out.Energy += p * p
	}
	if out.Energy <= EnergyTolerance {
		return out, nil
	}
	for i, p := range out.Projections {
		prob := p * p / out.Energy
		out.Probabilities[i] = prob
		if prob > ProbabilityFloor {
			out.Entropy -= prob * math.Log2(prob)
		}
	}
	return out, nil
}
