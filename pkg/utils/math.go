package utils

import "github.com/viterin/vek/vek32"

// NormalizeL2 scales x in place to unit L2 norm. A zero vector is left unchanged.
func NormalizeL2(x []float32) {
	norm := vek32.Norm(x)
	if norm == 0 {
		return
	}
	vek32.DivNumber_Inplace(x, norm)
}
