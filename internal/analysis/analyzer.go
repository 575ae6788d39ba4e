package analysis

import (
	"time"

	"github.com/hyperjump/vexus/internal/codec"
	"github.com/hyperjump/vexus/internal/errs"
	"github.com/hyperjump/vexus/internal/metrics"
)

// Analyzer runs the analysis routines on raw float32 buffers of a fixed
// dimension, the way an index instance receives them from its callers.
type Analyzer struct {
	dim int
}

// NewAnalyzer returns an Analyzer for vectors of length dim.
func NewAnalyzer(dim int) (*Analyzer, error) {
	if dim <= 0 {
		return nil, errs.Shape("dimensions", 1, dim)
	}
	return &Analyzer{dim: dim}, nil
}

// Dimensions returns the vector length the analyzer expects.
func (a *Analyzer) Dimensions() int { return a.dim }

// SVD decodes n row-major vectors and extracts up to maxK basis vectors.
func (a *Analyzer) SVD(buf []byte, n, maxK int) (*Basis, error) {
	defer observe("svd", time.Now())
	flat, err := codec.DecodeMatrix("vectors", buf, n, a.dim)
	if err != nil {
		return nil, err
	}
	return SVD(codec.Rows(flat, a.dim), maxK)
}

// OrthogonalProjection decodes the query and n candidates and projects the
// query onto their Gram-Schmidt basis. n may be zero.
func (a *Analyzer) OrthogonalProjection(query, candidates []byte, n int) (*Projection, error) {
	defer observe("orthogonal", time.Now())
	q, rows, err := a.decodeBatch(query, candidates, "candidates", n)
	if err != nil {
		return nil, err
	}
	return OrthogonalProjection(q, rows)
}

// Handshakes decodes the query and n references and computes each displacement.
func (a *Analyzer) Handshakes(query, references []byte, n int) (*Handshake, error) {
	defer observe("handshake", time.Now())
	q, rows, err := a.decodeBatch(query, references, "references", n)
	if err != nil {
		return nil, err
	}
	return Handshakes(q, rows)
}

// Project decodes the query, mean and k basis vectors and computes the
// subspace energy distribution.
func (a *Analyzer) Project(query, basis, mean []byte, k int) (*Subspace, error) {
	defer observe("subspace", time.Now())
	q, rows, err := a.decodeBatch(query, basis, "basis", k)
	if err != nil {
		return nil, err
	}
	m, err := codec.DecodeVector("mean", mean, a.dim)
	if err != nil {
		return nil, err
	}
	return Project(q, m, rows)
}

func (a *Analyzer) decodeBatch(query, batch []byte, field string, n int) ([]float32, [][]float32, error) {
	q, err := codec.DecodeVector("query", query, a.dim)
	if err != nil {
		return nil, nil, err
	}
	if n < 0 {
		return nil, nil, errs.Shape(field, 0, n)
	}
	if n == 0 {
		if len(batch) != 0 {
			return nil, nil, errs.Shape(field, 0, len(batch)/codec.FloatSize)
		}
		return q, nil, nil
	}
	flat, err := codec.DecodeMatrix(field, batch, n, a.dim)
	if err != nil {
		return nil, nil, err
	}
	return q, codec.Rows(flat, a.dim), nil
}

func observe(routine string, start time.Time) {
	metrics.AnalysisDuration.WithLabelValues(routine).Observe(time.Since(start).Seconds())
}
