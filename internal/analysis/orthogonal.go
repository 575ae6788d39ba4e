package analysis

import (
	"fmt"
	"math"

	"github.com/hyperjump/vexus/internal/errs"
	"gonum.org/v1/gonum/floats"
)

// Projection is the decomposition of a query onto the span of its candidates.
type Projection struct {
	Projection []float64 `json:"projection"`
	Residual   []float64 `json:"residual"`
	// Coefficients has one entry per input candidate: |q·u| for accepted
	// candidates, 0 for dropped ones.
	Coefficients []float64   `json:"coefficients"`
	Basis        [][]float64 `json:"basis"`
	// Accepted lists the input indices that contributed a basis vector.
	Accepted []int `json:"accepted"`
}

// OrthogonalProjection builds an orthonormal basis from candidates in input
// order (modified Gram-Schmidt) and projects query onto it. A candidate whose
// residual norm is at or below OrthoTolerance is dropped.
//
// Coefficients are magnitudes, but the projection accumulates the signed
// components, so Projection + Residual reconstructs the query exactly.
func OrthogonalProjection(query []float32, candidates [][]float32) (*Projection, error) {
	dim := len(query)
	if dim == 0 {
		return nil, errs.Shape("query", 1, 0)
	}
	for i, c := range candidates {
		if len(c) != dim {
			return nil, errs.Shape(fmt.Sprintf("candidates[%d]", i), dim, len(c))
		}
	}

	q := widen(query)
	res := &Projection{
		Projection:   make([]float64, dim),
		Coefficients: make([]float64, len(candidates)),
		Basis:        make([][]float64, 0, len(candidates)),
		Accepted:     make([]int, 0, len(candidates)),
	}
	for i, c := range candidates {
		v := widen(c)
		for _, u := range res.Basis {
			floats.AddScaled(v, -floats.Dot(v, u), u)
		}
		norm := floats.Norm(v, 2)
		if norm <= OrthoTolerance {
			continue
		}
		floats.Scale(1/norm, v)

		coeff := floats.Dot(q, v)
		res.Coefficients[i] = math.Abs(coeff)
		floats.AddScaled(res.Projection, coeff, v)
		res.Basis = append(res.Basis, v)
		res.Accepted = append(res.Accepted, i)
	}
	res.Residual = floats.SubTo(make([]float64, dim), q, res.Projection)
	return res, nil
}
