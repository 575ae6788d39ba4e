// Package vector provides the ANN engines and the growth-managed store that
// wraps them.
package vector

import "errors"

// Engine configuration shared by every store. Callers cannot tune these;
// New and Load build engines with identical settings.
const (
	// Connectivity is the number of graph neighbours kept per node.
	Connectivity = 16
	// ExpansionAdd is the candidate list size used while inserting.
	ExpansionAdd = 128
	// ExpansionSearch is the candidate list size used while searching.
	ExpansionSearch = 64
	// MetricName identifies the squared Euclidean distance in saved files.
	MetricName = "squared_l2"
)

var (
	// ErrCapacityExceeded is returned by engines asked to hold more vectors than reserved.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrEngineClosed is returned by engines used after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// Engine is the narrow ANN contract the Store drives. Keys are opaque to the
// engine; re-adding an existing key replaces its vector. Engines guard their
// own state, but the Store is their only production caller.
type Engine interface {
	Reserve(capacity int) error
	Add(key uint64, vec []float32) error
	Remove(key uint64) error
	Search(query []float32, k int) ([]Match, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Capacity() int
	Dimensions() int
	// MemoryUsage is an estimate in bytes.
	MemoryUsage() int64
	Close() error
}

// Match is one engine hit; Distance is the squared Euclidean distance.
type Match struct {
	Key      uint64
	Distance float32
}

// Result is a single store search hit; Score = 1 − distance.
type Result struct {
	ID    uint32  `json:"id"`
	Score float64 `json:"score"`
}
