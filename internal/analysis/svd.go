package analysis

import (
	"fmt"

	"github.com/hyperjump/vexus/internal/errs"
	"gonum.org/v1/gonum/mat"
)

// Basis is the leading right-singular structure of a set of vectors.
type Basis struct {
	// Vectors holds K rows of Vᵀ, each of length Dim.
	Vectors [][]float64 `json:"vectors"`
	Values  []float64   `json:"values"`
	K       int         `json:"k"`
	Dim     int         `json:"dim"`
}

// SVD decomposes the N×D matrix whose rows are vectors and returns the first
// min(rank, maxK) right-singular vectors with their singular values, in
// descending singular-value order.
func SVD(vectors [][]float32, maxK int) (basis *Basis, err error) {
	if len(vectors) == 0 {
		return nil, errs.Shape("vectors", 1, 0)
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, errs.Shape("vectors", 1, 0)
	}
	data := make([]float64, 0, len(vectors)*dim)
	for i, row := range vectors {
		if len(row) != dim {
			return nil, errs.Shape(fmt.Sprintf("vectors[%d]", i), dim, len(row))
		}
		for _, x := range row {
			data = append(data, float64(x))
		}
	}

	// gonum panics on some malformed inputs (NaN/Inf) instead of reporting
	// non-convergence.
	defer func() {
		if r := recover(); r != nil {
			basis, err = nil, fmt.Errorf("%w: %v", errs.ErrDecompositionFailed, r)
		}
	}()

	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(len(vectors), dim, data), mat.SVDThinV); !ok {
		return nil, fmt.Errorf("%w: factorization did not converge", errs.ErrDecompositionFailed)
	}
	values := svd.Values(nil)
	var v mat.Dense
	svd.VTo(&v)
	if r, _ := v.Dims(); r != dim {
		return nil, fmt.Errorf("%w: right singular vectors unavailable", errs.ErrDecompositionFailed)
	}

	k := min(len(values), max(maxK, 0))
	basis = &Basis{
		Vectors: make([][]float64, k),
		Values:  append([]float64(nil), values[:k]...),
		K:       k,
		Dim:     dim,
	}
	for i := range k {
		// Row i of Vᵀ is column i of V.
		basis.Vectors[i] = mat.Col(nil, i, &v)
	}
	return basis, nil
}
