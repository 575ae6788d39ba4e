package vector

import "github.com/viterin/vek/vek32"

// SquaredL2 returns the squared Euclidean distance between a and b.
// Both must have the same length.
func SquaredL2(a, b []float32) float32 {
	d := vek32.Sub(a, b)
	return vek32.Dot(d, d)
}

// Score converts a squared L2 distance into the similarity reported to callers.
func Score(distance float32) float64 {
	return 1 - float64(distance)
}
