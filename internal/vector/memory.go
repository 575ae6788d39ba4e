package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/hyperjump/vexus/internal/errs"
)

// memoryMagic prefixes files written by MemoryEngine.
const memoryMagic = "VXM1"

// MemoryEngine is an exact brute-force engine. Search cost is linear in the
// number of vectors, so it suits small stores and tests.
type MemoryEngine struct {
	dimensions int
	capacity   int
	keys       []uint64
	vectors    [][]float32
	slots      map[uint64]int
	closed     bool
	mu         sync.RWMutex
}

// NewMemoryEngine creates an empty brute-force engine for vectors of length dimensions.
func NewMemoryEngine(dimensions int) (*MemoryEngine, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryEngine{
		dimensions: dimensions,
		keys:       make([]uint64, 0),
		vectors:    make([][]float32, 0),
		slots:      make(map[uint64]int),
	}, nil
}

// Type returns the engine type identifier.
func (m *MemoryEngine) Type() string {
	return string(EngineTypeMemory)
}

// Reserve sets the capacity. It cannot shrink below the current size.
func (m *MemoryEngine) Reserve(capacity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrEngineClosed
	}
	if capacity < len(m.keys) {
		return fmt.Errorf("reserve %d below size %d", capacity, len(m.keys))
	}
	m.capacity = capacity
	return nil
}

// Add stores a copy of vec under key, replacing any previous vector.
func (m *MemoryEngine) Add(key uint64, vec []float32) error {
	if len(vec) != m.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), m.dimensions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrEngineClosed
	}
	cp := make([]float32, m.dimensions)
	copy(cp, vec)
	if slot, ok := m.slots[key]; ok {
		m.vectors[slot] = cp
		return nil
	}
	if len(m.keys) >= m.capacity {
		return fmt.Errorf("%w: size %d, capacity %d", ErrCapacityExceeded, len(m.keys), m.capacity)
	}
	m.slots[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vectors = append(m.vectors, cp)
	return nil
}

// Remove deletes key by moving the last entry into its slot.
func (m *MemoryEngine) Remove(key uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrEngineClosed
	}
	slot, ok := m.slots[key]
	if !ok {
		return fmt.Errorf("key %d: %w", key, errs.ErrNotFound)
	}
	last := len(m.keys) - 1
	m.keys[slot], m.vectors[slot] = m.keys[last], m.vectors[last]
	m.slots[m.keys[slot]] = slot
	m.keys, m.vectors = m.keys[:last], m.vectors[:last]
	delete(m.slots, key)
	return nil
}

// Search returns the k nearest vectors by squared Euclidean distance.
func (m *MemoryEngine) Search(query []float32, k int) ([]Match, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrEngineClosed
	}
	if k <= 0 || len(m.keys) == 0 {
		return nil, nil
	}
	matches := make([]Match, len(m.keys))
	for i, vec := range m.vectors {
		matches[i] = Match{Key: m.keys[i], Distance: SquaredL2(query, vec)}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance == matches[j].Distance {
			return matches[i].Key < matches[j].Key
		}
		return matches[i].Distance < matches[j].Distance
	})
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

// Save writes the engine to path. Format (little endian): magic, dimensions (4),
// capacity (8), n (8), then per vector: key (8), vector (dimensions*4 bytes).
func (m *MemoryEngine) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrEngineClosed
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(memoryMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	header := []any{uint32(m.dimensions), uint64(m.capacity), uint64(len(m.keys))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for i, key := range m.keys {
		if err := binary.Write(w, binary.LittleEndian, key); err != nil {
			return fmt.Errorf("write key: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, m.vectors[i]); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return f.Sync()
}

// Load replaces the engine contents with the file at path. Dimensions must match.
func (m *MemoryEngine) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(memoryMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != memoryMagic {
		return fmt.Errorf("not a memory index file: %s", path)
	}
	var (
		dim      uint32
		capacity uint64
		n        uint64
	)
	for _, v := range []any{&dim, &capacity, &n} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("read header: %w", err)
		}
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}

	keys := make([]uint64, 0, n)
	vectors := make([][]float32, 0, n)
	slots := make(map[uint64]int, n)
	for i := uint64(0); i < n; i++ {
		var key uint64
		if err := binary.Read(r, binary.LittleEndian, &key); err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		vec := make([]float32, m.dimensions)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		slots[key] = len(keys)
		keys = append(keys, key)
		vectors = append(vectors, vec)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys, m.vectors, m.slots = keys, vectors, slots
	m.capacity = max(int(capacity), len(keys))
	m.closed = false
	return nil
}

// Size returns the number of vectors held.
func (m *MemoryEngine) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// Capacity returns the reserved capacity.
func (m *MemoryEngine) Capacity() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capacity
}

// Dimensions returns the vector length.
func (m *MemoryEngine) Dimensions() int { return m.dimensions }

// MemoryUsage estimates bytes held by vectors and keys.
func (m *MemoryEngine) MemoryUsage() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	perVector := int64(m.dimensions)*4 + 8 + 24
	return int64(m.capacity) * perVector
}

// Close drops all vectors.
func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys, m.vectors, m.slots = nil, nil, nil
	m.closed = true
	return nil
}
