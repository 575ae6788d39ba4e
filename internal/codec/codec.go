// Package codec converts raw float32 byte buffers to and from vectors.
// Buffers use the host's native byte order, matching what an in-process
// caller hands over when it shares a float32 array as bytes.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/hyperjump/vexus/internal/errs"
)

// FloatSize is the width of one encoded value in bytes.
const FloatSize = 4

// Decode reinterprets buf as exactly count float32 values.
func Decode(field string, buf []byte, count int) ([]float32, error) {
	if count <= 0 || len(buf)%FloatSize != 0 || len(buf)/FloatSize != count {
		return nil, errs.Shape(field, count, len(buf)/FloatSize)
	}
	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(binary.NativeEndian.Uint32(buf[i*FloatSize:]))
	}
	return out, nil
}

// DecodeVector decodes a single vector of length dim.
func DecodeVector(field string, buf []byte, dim int) ([]float32, error) {
	if dim <= 0 {
		return nil, errs.Shape(field, dim, len(buf)/FloatSize)
	}
	return Decode(field, buf, dim)
}

// DecodeMatrix decodes rows vectors of length dim stored row-major.
func DecodeMatrix(field string, buf []byte, rows, dim int) ([]float32, error) {
	if rows <= 0 || dim <= 0 {
		return nil, errs.Shape(field, rows*dim, len(buf)/FloatSize)
	}
	return Decode(field, buf, rows*dim)
}

// Encode writes vec as native-order float32 bytes.
func Encode(vec []float32) []byte {
	out := make([]byte, len(vec)*FloatSize)
	for i, v := range vec {
		binary.NativeEndian.PutUint32(out[i*FloatSize:], math.Float32bits(v))
	}
	return out
}

// EncodeMatrix flattens rows into one buffer.
func EncodeMatrix(rows [][]float32) []byte {
	var n int
	for _, r := range rows {
		n += len(r)
	}
	out := make([]byte, 0, n*FloatSize)
	for _, r := range rows {
		out = append(out, Encode(r)...)
	}
	return out
}

// Rows splits a flat row-major slice into dim-length views.
func Rows(flat []float32, dim int) [][]float32 {
	if dim <= 0 {
		return nil
	}
	rows := make([][]float32, 0, len(flat)/dim)
	for start := 0; start+dim <= len(flat); start += dim {
		rows = append(rows, flat[start:start+dim:start+dim])
	}
	return rows
}
