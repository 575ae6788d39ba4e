// Package analysis explains how a query vector relates to a set of vectors:
// SVD basis extraction, Gram-Schmidt projection, pairwise displacement
// ("handshake") and subspace energy with Shannon entropy.
//
// Every routine is a pure function. Inputs are float32 as stored by the
// index; all accumulation happens in float64. Degenerate geometry (zero
// vectors, rank deficiency, zero energy) yields zeros, never NaN.
package analysis

const (
	// OrthoTolerance is the residual norm at or below which a Gram-Schmidt
	// candidate is considered linearly dependent and dropped.
	OrthoTolerance = 1e-6
	// DirectionTolerance is the displacement magnitude at or below which a
	// handshake direction is reported as the zero vector.
	DirectionTolerance = 1e-9
	// EnergyTolerance is the total energy at or below which a subspace
	// projection reports zero probabilities and zero entropy.
	EnergyTolerance = 1e-12
	// ProbabilityFloor is the probability below which an axis contributes
	// nothing to the entropy.
	ProbabilityFloor = 1e-9
)

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
