package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/hyperjump/vexus/internal/codec"
	"github.com/hyperjump/vexus/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

const tol = 1e-6

func randomVectors(rng *rand.Rand, n, dim int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, dim)
		for j := range out[i] {
			out[i][j] = float32(rng.NormFloat64())
		}
	}
	return out
}

func TestSVD_Identity(t *testing.T) {
	b, err := SVD([][]float32{{1, 0}, {0, 1}}, 2)
	require.NoError(t, err)
	require.Equal(t, 2, b.K)
	assert.Equal(t, 2, b.Dim)
	assert.InDelta(t, 1, b.Values[0], tol)
	assert.InDelta(t, 1, b.Values[1], tol)
	assert.InDelta(t, 1, floats.Norm(b.Vectors[0], 2), tol)
	assert.InDelta(t, 1, floats.Norm(b.Vectors[1], 2), tol)
	assert.InDelta(t, 0, floats.Dot(b.Vectors[0], b.Vectors[1]), tol)
}

func TestSVD_RankDeficient(t *testing.T) {
	b, err := SVD([][]float32{{1, 1}, {2, 2}}, 5)
	require.NoError(t, err)
	require.Equal(t, 2, b.K, "k is capped by the number of singular values")
	assert.InDelta(t, math.Sqrt(10), b.Values[0], tol)
	assert.InDelta(t, 0, b.Values[1], tol)
	assert.InDelta(t, 1/math.Sqrt2, math.Abs(b.Vectors[0][0]), tol)
	assert.InDelta(t, 1/math.Sqrt2, math.Abs(b.Vectors[0][1]), tol)
}

func TestSVD_Truncates(t *testing.T) {
	vecs := randomVectors(rand.New(rand.NewSource(7)), 6, 4)
	b, err := SVD(vecs, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, b.K)
	assert.Len(t, b.Vectors, 2)
	assert.Len(t, b.Values, 2)
	assert.GreaterOrEqual(t, b.Values[0], b.Values[1])

	empty, err := SVD(vecs, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.K)
}

func TestSVD_ShapeMismatch(t *testing.T) {
	_, err := SVD(nil, 2)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
	_, err = SVD([][]float32{{1, 2}, {3}}, 2)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}

func TestOrthogonalProjection_Example(t *testing.T) {
	p, err := OrthogonalProjection(
		[]float32{1, 0, 0, 0},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}},
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, p.Accepted)
	assert.InDeltaSlice(t, []float64{1, 0, 0, 0}, p.Basis[0], tol)
	assert.InDeltaSlice(t, []float64{0, 1, 0, 0}, p.Basis[1], tol)
	assert.InDeltaSlice(t, []float64{1, 0}, p.Coefficients, tol)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 0}, p.Residual, tol)
}

func TestOrthogonalProjection_DropsDependent(t *testing.T) {
	p, err := OrthogonalProjection(
		[]float32{1, 1, 0},
		[][]float32{{1, 0, 0}, {2, 0, 0}, {0, 0, 0}, {0, 3, 0}},
	)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, p.Accepted)
	assert.InDeltaSlice(t, []float64{1, 0, 0, 1}, p.Coefficients, tol)
	assert.InDeltaSlice(t, []float64{0, 0, 0}, p.Residual, tol)
}

func TestOrthogonalProjection_SignedProjection(t *testing.T) {
	p, err := OrthogonalProjection([]float32{-2, 1}, [][]float32{{1, 0}})
	require.NoError(t, err)
	assert.InDelta(t, 2, p.Coefficients[0], tol)
	assert.InDeltaSlice(t, []float64{-2, 0}, p.Projection, tol)
	assert.InDeltaSlice(t, []float64{0, 1}, p.Residual, tol)
}

func TestOrthogonalProjection_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dim := 8
	candidates := randomVectors(rng, 5, dim)
	query := randomVectors(rng, 1, dim)[0]

	p, err := OrthogonalProjection(query, candidates)
	require.NoError(t, err)
	require.Len(t, p.Basis, 5)

	for i := range p.Basis {
		assert.InDelta(t, 1, floats.Norm(p.Basis[i], 2), tol)
		for j := i + 1; j < len(p.Basis); j++ {
			assert.InDelta(t, 0, floats.Dot(p.Basis[i], p.Basis[j]), tol, "basis %d·%d", i, j)
		}
		assert.InDelta(t, 0, floats.Dot(p.Residual, p.Basis[i]), tol, "residual·basis %d", i)
	}
	for d := range query {
		assert.InDelta(t, float64(query[d]), p.Projection[d]+p.Residual[d], tol)
	}
}

func TestOrthogonalProjection_Idempotent(t *testing.T) {
	query := []float32{3, -1, 2, 5}
	candidates := [][]float32{{2, 0, 0, 0}, {1, 1, 0, 0}, {1, 1, 1, 0}}
	first, err := OrthogonalProjection(query, candidates)
	require.NoError(t, err)
	require.Len(t, first.Basis, 3)

	basis := make([][]float32, len(first.Basis))
	for i, u := range first.Basis {
		basis[i] = make([]float32, len(u))
		for j, x := range u {
			basis[i][j] = float32(x)
		}
	}
	second, err := OrthogonalProjection(query, append(basis, basis...))
	require.NoError(t, err)
	assert.Len(t, second.Basis, len(first.Basis))
	assert.Equal(t, []int{0, 1, 2}, second.Accepted)
	assert.InDeltaSlice(t, first.Projection, second.Projection, tol)
	assert.InDeltaSlice(t, []float64{3, -1, 2, 0}, second.Projection, tol)
}

func TestOrthogonalProjection_ShapeMismatch(t *testing.T) {
	_, err := OrthogonalProjection([]float32{1, 0}, [][]float32{{1, 0, 0}})
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
	_, err = OrthogonalProjection(nil, nil)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}

func TestHandshakes(t *testing.T) {
	h, err := Handshakes([]float32{3, 4}, [][]float32{{0, 0}, {3, 4}, {3, 5}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5, 0, 1}, h.Magnitudes, tol)
	assert.InDeltaSlice(t, []float64{0.6, 0.8}, h.Directions[0], tol)
	assert.Equal(t, []float64{0, 0}, h.Directions[1])
	assert.InDeltaSlice(t, []float64{0, -1}, h.Directions[2], tol)
	for _, d := range h.Directions {
		for _, x := range d {
			assert.False(t, math.IsNaN(x))
		}
	}
}

func TestHandshakes_Empty(t *testing.T) {
	h, err := Handshakes([]float32{1, 2}, nil)
	require.NoError(t, err)
	assert.Empty(t, h.Magnitudes)
	assert.Empty(t, h.Directions)
}

func TestProject_Entropy(t *testing.T) {
	identity := func(k, dim int) [][]float32 {
		out := make([][]float32, k)
		for i := range out {
			out[i] = make([]float32, dim)
			out[i][i] = 1
		}
		return out
	}
	tests := []struct {
		name    string
		query   []float32
		mean    []float32
		basis   [][]float32
		entropy float64
		energy  float64
	}{
		{"aligned", []float32{2, 0, 0}, []float32{0, 0, 0}, identity(3, 3), 0, 4},
		{"even over two", []float32{1, 1, 0, 0}, []float32{0, 0, 0, 0}, identity(2, 4), 1, 2},
		{"even over four", []float32{2, 2, 2, 2}, []float32{1, 1, 1, 1}, identity(4, 4), 2, 4},
		{"zero energy", []float32{1, 2, 3}, []float32{1, 2, 3}, identity(3, 3), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Project(tt.query, tt.mean, tt.basis)
			require.NoError(t, err)
			assert.InDelta(t, tt.entropy, s.Entropy, tol)
			assert.InDelta(t, tt.energy, s.Energy, tol)
			if tt.energy == 0 {
				for _, p := range s.Probabilities {
					assert.Zero(t, p)
				}
			}
		})
	}
}

func TestProject_EntropyBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	b, err := SVD(randomVectors(rng, 10, 6), 4)
	require.NoError(t, err)
	basis := make([][]float32, b.K)
	for i, u := range b.Vectors {
		basis[i] = make([]float32, len(u))
		for j, x := range u {
			basis[i][j] = float32(x)
		}
	}
	mean := make([]float32, 6)
	for range 20 {
		s, err := Project(randomVectors(rng, 1, 6)[0], mean, basis)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.Entropy, 0.0)
		assert.LessOrEqual(t, s.Entropy, math.Log2(float64(b.K))+tol)
		assert.InDelta(t, 1, floats.Sum(s.Probabilities), 1e-9)
	}
}

func TestProject_ShapeMismatch(t *testing.T) {
	_, err := Project([]float32{1, 2}, []float32{1}, nil)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
	_, err = Project([]float32{1, 2}, []float32{0, 0}, [][]float32{{1}})
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}

func TestAnalyzer_Buffers(t *testing.T) {
	a, err := NewAnalyzer(4)
	require.NoError(t, err)
	q := codec.Encode([]float32{1, 0, 0, 0})
	cands := codec.EncodeMatrix([][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}})

	p, err := a.OrthogonalProjection(q, cands, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, p.Coefficients, tol)

	_, err = a.OrthogonalProjection(q, cands, 3)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
	_, err = a.OrthogonalProjection(q[:8], cands, 2)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)

	none, err := a.OrthogonalProjection(q, nil, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0, 0, 0}, none.Residual, tol)

	h, err := a.Handshakes(q, cands, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0, h.Magnitudes[0], tol)
	assert.InDelta(t, math.Sqrt2, h.Magnitudes[1], tol)

	b, err := a.SVD(cands, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, b.K)
	_, err = a.SVD(cands, 0, 1)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)

	s, err := a.Project(q, cands, codec.Encode(make([]float32, 4)), 2)
	require.NoError(t, err)
	assert.InDelta(t, 0, s.Entropy, tol)
	_, err = a.Project(q, cands, codec.Encode(make([]float32, 3)), 2)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)

	_, err = NewAnalyzer(0)
	assert.ErrorIs(t, err, errs.ErrShapeMismatch)
}
