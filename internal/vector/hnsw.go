package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"math"
	"math/rand"
	"os"
	"slices"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/hyperjump/vexus/internal/errs"
)

// hnswMagic prefixes files written by HNSWEngine. The header carries
// dimensions, capacity and the key of every graph node; the graph export
// follows.
const hnswMagic = "VXH1"

// nodeOverhead approximates per-node bookkeeping inside the graph.
const nodeOverhead = 64

// graphSeed fixes the level assignment so identical inserts build identical layers.
const graphSeed = 1

func init() {
	hnsw.RegisterDistanceFunc(MetricName, SquaredL2)
}

// HNSWEngine is an approximate engine backed by a coder/hnsw graph using
// squared Euclidean distance. The graph has no notion of capacity, so the
// engine tracks it and refuses inserts beyond it.
//
// Graph nodes are never deleted in place: removing or replacing a key
// leaves a tombstone that searches skip, and the graph is rebuilt from the
// live nodes once tombstones outnumber them or before it is saved.
type HNSWEngine struct {
	dimensions int
	capacity   int
	graph      *hnsw.Graph[uint64]
	// nodes maps a key to the graph node holding its current vector;
	// owners is the reverse. Graph nodes absent from owners are tombstones.
	nodes  map[uint64]uint64
	owners map[uint64]uint64
	next   uint64
	mu     sync.RWMutex
}

// NewHNSWEngine creates an empty graph engine for vectors of length dimensions.
func NewHNSWEngine(dimensions int) (*HNSWEngine, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	h := &HNSWEngine{dimensions: dimensions}
	h.reset(newGraph())
	return h, nil
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.M = Connectivity
	g.EfSearch = ExpansionSearch
	g.Distance = SquaredL2
	g.Rng = rand.New(rand.NewSource(graphSeed))
	return g
}

func (h *HNSWEngine) reset(g *hnsw.Graph[uint64]) {
	h.graph = g
	h.nodes = make(map[uint64]uint64)
	h.owners = make(map[uint64]uint64)
	h.next = 0
}

// Type returns the engine type identifier.
func (h *HNSWEngine) Type() string {
	return string(EngineTypeHNSW)
}

// Reserve sets the capacity. It cannot shrink below the current size.
func (h *HNSWEngine) Reserve(capacity int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph == nil {
		return ErrEngineClosed
	}
	if n := len(h.nodes); capacity < n {
		return fmt.Errorf("reserve %d below size %d", capacity, n)
	}
	h.capacity = capacity
	return nil
}

// Add inserts vec under key, replacing any previous vector for key.
func (h *HNSWEngine) Add(key uint64, vec []float32) error {
	if len(vec) != h.dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), h.dimensions)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph == nil {
		return ErrEngineClosed
	}
	old, exists := h.nodes[key]
	if !exists && len(h.nodes) >= h.capacity {
		return fmt.Errorf("%w: size %d, capacity %d", ErrCapacityExceeded, len(h.nodes), h.capacity)
	}
	if exists {
		delete(h.owners, old)
	}
	cp := make([]float32, len(vec))
	copy(cp, vec)
	h.insert(key, cp)
	h.maybeCompact()
	return nil
}

// insert adds a fresh graph node for key. The caller holds the write lock.
func (h *HNSWEngine) insert(key uint64, vec []float32) {
	node := h.next
	h.next++

	// The graph builds neighbourhoods with EfSearch; widen it for inserts.
	h.graph.EfSearch = ExpansionAdd
	h.graph.Add(hnsw.MakeNode(node, vec))
	h.graph.EfSearch = ExpansionSearch

	h.nodes[key] = node
	h.owners[node] = key
}

// Remove deletes key from the index.
func (h *HNSWEngine) Remove(key uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph == nil {
		return ErrEngineClosed
	}
	node, ok := h.nodes[key]
	if !ok {
		return fmt.Errorf("key %d: %w", key, errs.ErrNotFound)
	}
	delete(h.nodes, key)
	delete(h.owners, node)
	h.maybeCompact()
	return nil
}

func (h *HNSWEngine) tombstones() int {
	return h.graph.Len() - len(h.nodes)
}

func (h *HNSWEngine) maybeCompact() {
	if h.tombstones() > len(h.nodes) {
		h.compact()
	}
}

// compact rebuilds the graph from the live nodes in key order.
func (h *HNSWEngine) compact() {
	old := h.graph
	keys := slices.Sorted(maps.Keys(h.nodes))
	vecs := make([][]float32, len(keys))
	for i, key := range keys {
		vecs[i], _ = old.Lookup(h.nodes[key])
	}
	h.reset(newGraph())
	for i, key := range keys {
		h.insert(key, vecs[i])
	}
}

// Search returns up to k approximate nearest neighbours, closest first.
// The graph is asked for at least ExpansionSearch candidates plus one per
// tombstone, and the live ones are ranked by exact distance.
func (h *HNSWEngine) Search(query []float32, k int) ([]Match, error) {
	if len(query) != h.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), h.dimensions)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.graph == nil {
		return nil, ErrEngineClosed
	}
	if k <= 0 || len(h.nodes) == 0 {
		return nil, nil
	}
	width := min(max(k, ExpansionSearch)+h.tombstones(), h.graph.Len())
	nodes := h.graph.Search(query, width)
	matches := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		key, ok := h.owners[n.Key]
		if !ok {
			continue
		}
		matches = append(matches, Match{Key: key, Distance: SquaredL2(query, n.Value)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Save compacts the graph, then writes the header, the node keys and the
// graph export.
func (h *HNSWEngine) Save(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.graph == nil {
		return ErrEngineClosed
	}
	if h.tombstones() > 0 {
		h.compact()
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(hnswMagic); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	keys := make([]uint64, h.next)
	for node, key := range h.owners {
		keys[node] = key
	}
	for _, v := range []any{uint32(h.dimensions), uint64(h.capacity), uint64(len(keys)), keys} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := h.graph.Export(w); err != nil {
		return fmt.Errorf("export graph: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush index file: %w", err)
	}
	return f.Sync()
}

// Load replaces the graph with the one saved at path. Dimensions must match.
func (h *HNSWEngine) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic := make([]byte, len(hnswMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != hnswMagic {
		return fmt.Errorf("not an hnsw index file: %s", path)
	}
	var (
		dim      uint32
		capacity uint64
		count    uint64
	)
	for _, v := range []any{&dim, &capacity, &count} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("read header: %w", err)
		}
	}
	if int(dim) != h.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, h.dimensions)
	}
	if count > math.MaxInt32 {
		return fmt.Errorf("corrupt header: %d nodes", count)
	}
	keys := make([]uint64, count)
	if err := binary.Read(r, binary.LittleEndian, keys); err != nil {
		return fmt.Errorf("read node keys: %w", err)
	}

	g := newGraph()
	if err := g.Import(r); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}
	g.M = Connectivity
	g.EfSearch = ExpansionSearch
	g.Distance = SquaredL2
	if g.Len() != len(keys) {
		return fmt.Errorf("corrupt index: %d graph nodes, %d keys", g.Len(), len(keys))
	}
	if g.Len() > 0 && g.Dims() != h.dimensions {
		return fmt.Errorf("dimension mismatch: graph has %d, index expects %d", g.Dims(), h.dimensions)
	}

	nodes := make(map[uint64]uint64, len(keys))
	owners := make(map[uint64]uint64, len(keys))
	for node, key := range keys {
		if _, ok := g.Lookup(uint64(node)); !ok {
			return fmt.Errorf("corrupt index: node %d missing from graph", node)
		}
		if _, dup := nodes[key]; dup {
			return fmt.Errorf("corrupt index: key %d stored twice", key)
		}
		nodes[key] = uint64(node)
		owners[uint64(node)] = key
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = g
	h.nodes = nodes
	h.owners = owners
	h.next = uint64(len(keys))
	h.capacity = max(int(capacity), len(keys))
	return nil
}

// Size returns the number of live keys.
func (h *HNSWEngine) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.nodes)
}

// Capacity returns the reserved capacity.
func (h *HNSWEngine) Capacity() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.capacity
}

// Dimensions returns the vector length.
func (h *HNSWEngine) Dimensions() int { return h.dimensions }

// MemoryUsage estimates vector storage plus layer-0 neighbour lists for
// every node currently in the graph, tombstones included.
func (h *HNSWEngine) MemoryUsage() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.graph == nil {
		return 0
	}
	perNode := int64(h.dimensions)*4 + int64(2*Connectivity)*8 + nodeOverhead
	return int64(h.graph.Len()) * perNode
}

// Close releases the graph.
func (h *HNSWEngine) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.graph = nil
	h.nodes = nil
	h.owners = nil
	return nil
}
