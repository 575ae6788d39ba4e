// Package models defines the request and response bodies of the HTTP API.
package models

import "fmt"

const (
	// DefaultK is used when a search omits k.
	DefaultK = 10
	// MaxK caps the number of results a single search may request.
	MaxK = 1000
)

// SearchQuery is a nearest-neighbour request. Query holds dim float32 values
// in native byte order (base64 in JSON).
type SearchQuery struct {
	Query []byte `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Validate ensures the query carries a vector and normalises k.
// A zero k becomes DefaultK; k above MaxK is capped. Negative k is kept and yields no results.
func (q *SearchQuery) Validate() error {
	if len(q.Query) == 0 {
		return fmt.Errorf("query cannot be empty")
	}
	if q.K == 0 {
		q.K = DefaultK
	}
	if q.K > MaxK {
		q.K = MaxK
	}
	return nil
}

// VectorInput inserts a single vector under ID.
type VectorInput struct {
	ID     uint32 `json:"id"`
	Vector []byte `json:"vector"`
}

// Validate rejects an input without a vector.
func (v *VectorInput) Validate() error {
	if len(v.Vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}
	return nil
}

// BatchInput inserts len(IDs) vectors packed row-major in Vectors.
type BatchInput struct {
	IDs     []uint32 `json:"ids"`
	Vectors []byte   `json:"vectors"`
}

// Validate rejects an empty batch.
func (b *BatchInput) Validate() error {
	if len(b.IDs) == 0 {
		return fmt.Errorf("ids cannot be empty")
	}
	return nil
}

// SaveRequest persists the index. An empty Path uses the configured index path.
type SaveRequest struct {
	Path string `json:"path,omitempty"`
}

// RecoverRequest rebuilds vectors from the configured database.
// Empty fields fall back to the configured table and group.
type RecoverRequest struct {
	Table string `json:"table,omitempty"`
	Group string `json:"group,omitempty"`
}
