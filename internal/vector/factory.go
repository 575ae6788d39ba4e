package vector

import "fmt"

// EngineType selects the ANN engine behind a store.
type EngineType string

const (
	// EngineTypeHNSW uses an approximate HNSW graph. Good for large stores.
	EngineTypeHNSW EngineType = "hnsw"
	// EngineTypeMemory uses exact brute-force search. Good for small stores (<10k vectors) and tests.
	EngineTypeMemory EngineType = "memory"
)

// EngineFactory builds an empty engine for the given dimension.
type EngineFactory func(dimensions int) (Engine, error)

// NewEngine creates an engine of the given type.
// Supported types: "hnsw" (default), "memory".
func NewEngine(engineType string, dimensions int) (Engine, error) {
	switch EngineType(engineType) {
	case EngineTypeHNSW, "":
		return NewHNSWEngine(dimensions)
	case EngineTypeMemory:
		return NewMemoryEngine(dimensions)
	default:
		return nil, fmt.Errorf("unknown engine type: %s (supported: hnsw, memory)", engineType)
	}
}

// FactoryFor returns an EngineFactory for engineType.
func FactoryFor(engineType string) EngineFactory {
	return func(dimensions int) (Engine, error) {
		return NewEngine(engineType, dimensions)
	}
}
