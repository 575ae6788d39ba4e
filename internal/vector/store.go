package vector

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hyperjump/vexus/internal/codec"
	"github.com/hyperjump/vexus/internal/errs"
	"github.com/hyperjump/vexus/internal/metrics"
	"go.uber.org/zap"
)

var (
	errPoisoned = fmt.Errorf("%w: store poisoned by a panic during an earlier mutation", errs.ErrLock)
	errClosed   = fmt.Errorf("%w: store is closed", errs.ErrLock)
)

// Store is a concurrency-safe vector index of fixed dimension that grows
// its engine capacity ahead of inserts.
//
// Inserts, removals, growth and reloads hold the write lock; searches,
// stats and saves hold the read lock. A panic inside the engine while the
// write lock is held poisons the store: that call and every later call
// fail with errs.ErrLock.
type Store struct {
	mu       sync.RWMutex
	engine   Engine
	dim      int
	poisoned bool

	factory EngineFactory
	logger  *zap.Logger
}

// Stats describes the store at a point in time.
type Stats struct {
	Count       int   `json:"count"`
	Dimensions  int   `json:"dimensions"`
	Capacity    int   `json:"capacity"`
	MemoryUsage int64 `json:"memory_usage"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for growth, save and recovery events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEngine sets the engine factory. The default builds an HNSW engine.
func WithEngine(factory EngineFactory) Option {
	return func(s *Store) {
		if factory != nil {
			s.factory = factory
		}
	}
}

func newStore(dim int, opts []Option) (*Store, error) {
	if dim <= 0 {
		return nil, errs.Shape("dimensions", 1, dim)
	}
	s := &Store{
		dim:     dim,
		factory: FactoryFor(string(EngineTypeHNSW)),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// New creates an empty store with room for capacity vectors.
func New(dim, capacity int, opts ...Option) (*Store, error) {
	s, err := newStore(dim, opts)
	if err != nil {
		return nil, err
	}
	engine, err := s.factory(dim)
	if err != nil {
		return nil, errs.Engine("create", err)
	}
	if err := engine.Reserve(max(capacity, 0)); err != nil {
		_ = engine.Close()
		return nil, errs.Engine("reserve", err)
	}
	s.engine = engine
	s.publish()
	return s, nil
}

// Load opens the index saved at path. The capacity is raised to capacity
// when the saved one is smaller. Leftovers of interrupted saves are removed.
func Load(path string, dim, capacity int, opts ...Option) (*Store, error) {
	s, err := newStore(dim, opts)
	if err != nil {
		return nil, err
	}
	engine, err := s.loadEngine(path, capacity)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	if n, err := RemoveStaleTempFiles(path); err != nil {
		s.logger.Warn("failed to remove stale temp files", zap.String("path", path), zap.Error(err))
	} else if n > 0 {
		s.logger.Info("removed stale temp files", zap.String("path", path), zap.Int("count", n))
	}
	s.logger.Info("index loaded",
		zap.String("path", path),
		zap.Int("count", engine.Size()),
		zap.Int("capacity", engine.Capacity()))
	s.publish()
	return s, nil
}

func (s *Store) loadEngine(path string, capacity int) (Engine, error) {
	engine, err := s.factory(s.dim)
	if err != nil {
		return nil, errs.Engine("create", err)
	}
	if err := engine.Load(path); err != nil {
		_ = engine.Close()
		return nil, errs.Engine("load", err)
	}
	if capacity > engine.Capacity() {
		if err := engine.Reserve(capacity); err != nil {
			_ = engine.Close()
			return nil, errs.Engine("reserve", err)
		}
	}
	return engine, nil
}

// Dimensions returns the vector length accepted by the store.
func (s *Store) Dimensions() int { return s.dim }

// Insert adds buf (dim native-order float32 values) under id.
func (s *Store) Insert(id uint32, buf []byte) error {
	vec, err := codec.DecodeVector("vector", buf, s.dim)
	if err != nil {
		return err
	}
	err = s.write(func() error {
		s.grow(1)
		if err := s.engine.Add(uint64(id), vec); err != nil {
			return errs.Engine("add", err)
		}
		return nil
	})
	metrics.InsertsTotal.WithLabelValues("single", status(err)).Inc()
	return err
}

// InsertBatch adds len(ids) vectors stored row-major in buf. Inserts stop at
// the first engine failure, whose batch position is reported in
// *errs.EngineError; earlier vectors stay inserted.
func (s *Store) InsertBatch(ids []uint32, buf []byte) error {
	if len(ids) == 0 && len(buf) == 0 {
		return nil
	}
	flat, err := codec.DecodeMatrix("vectors", buf, len(ids), s.dim)
	if err != nil {
		return err
	}
	inserted := 0
	err = s.write(func() error {
		s.grow(len(ids))
		for i, id := range ids {
			if err := s.engine.Add(uint64(id), flat[i*s.dim:(i+1)*s.dim]); err != nil {
				return &errs.EngineError{Op: "add", Index: i, Err: err}
			}
			inserted++
		}
		return nil
	})
	metrics.InsertsTotal.WithLabelValues("batch", "ok").Add(float64(inserted))
	if err != nil {
		metrics.InsertsTotal.WithLabelValues("batch", "error").Inc()
	}
	return err
}

// Remove deletes id. Unknown ids fail with an engine error wrapping errs.ErrNotFound.
func (s *Store) Remove(id uint32) error {
	return s.write(func() error {
		if err := s.engine.Remove(uint64(id)); err != nil {
			return errs.Engine("remove", err)
		}
		return nil
	})
}

// Search returns up to k results ordered by descending score.
func (s *Store) Search(buf []byte, k int) ([]Result, error) {
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	query, err := codec.DecodeVector("query", buf, s.dim)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		if err := s.read("search", func() error { return nil }); err != nil {
			return nil, err
		}
		return []Result{}, nil
	}
	var matches []Match
	err = s.read("search", func() error {
		var err error
		if matches, err = s.engine.Search(query, k); err != nil {
			return errs.Engine("search", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{ID: uint32(m.Key), Score: Score(m.Distance)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// Stats reports size, dimension, capacity and estimated memory.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.read("stats", func() error {
		st = Stats{
			Count:       s.engine.Size(),
			Dimensions:  s.dim,
			Capacity:    s.engine.Capacity(),
			MemoryUsage: s.engine.MemoryUsage(),
		}
		return nil
	})
	return st, err
}

// Size returns the number of vectors, or 0 for an unusable store.
func (s *Store) Size() int {
	st, err := s.Stats()
	if err != nil {
		return 0
	}
	return st.Count
}

// Save persists the index to path through a temporary sibling file and an
// atomic rename, so readers of path never observe a partial file.
func (s *Store) Save(path string) error {
	return s.read("save", func() error {
		if err := writeAtomic(path, s.engine.Save); err != nil {
			return err
		}
		s.logger.Info("index saved", zap.String("path", path), zap.Int("count", s.engine.Size()))
		return nil
	})
}

// Reload replaces the engine with the index saved at path, keeping at least
// the current capacity. The store is unchanged when loading fails.
func (s *Store) Reload(path string) error {
	s.mu.RLock()
	capacity := 0
	if s.engine != nil {
		capacity = s.engine.Capacity()
	}
	s.mu.RUnlock()

	engine, err := s.loadEngine(path, capacity)
	if err != nil {
		return err
	}
	err = s.write(func() error {
		old := s.engine
		s.engine = engine
		return old.Close()
	})
	if err != nil {
		_ = engine.Close()
		return err
	}
	s.logger.Info("index reloaded", zap.String("path", path), zap.Int("count", engine.Size()))
	s.publish()
	return nil
}

// Close releases the engine. Later calls fail with errs.ErrLock.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return nil
	}
	err := s.engine.Close()
	s.engine = nil
	return err
}

// grow reserves ahead of an insert of n vectors when size+n would reach the
// capacity. The new capacity is the current one multiplied by 1.5 (rounded
// down) until it exceeds size+n. Failures are logged and swallowed; the
// insert itself reports whether the engine ran out of room.
func (s *Store) grow(n int) {
	size, capacity := s.engine.Size(), s.engine.Capacity()
	required := size + n
	if required < capacity {
		return
	}
	next := grownCapacity(capacity, required)
	if err := s.engine.Reserve(next); err != nil {
		metrics.GrowthEventsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("capacity growth failed",
			zap.Int("capacity", capacity),
			zap.Int("requested", next),
			zap.Error(err))
		return
	}
	metrics.GrowthEventsTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("capacity grown", zap.Int("from", capacity), zap.Int("to", next))
}

func grownCapacity(capacity, required int) int {
	next := capacity
	for next <= required {
		grown := next * 3 / 2
		if grown <= next {
			grown = next + 1
		}
		next = grown
	}
	return next
}

// write runs fn under the write lock, converting an engine panic into a
// poisoned store.
func (s *Store) write(fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			s.poisoned = true
			s.logger.Error("engine panicked under the write lock; store poisoned", zap.Any("panic", r))
			err = fmt.Errorf("%w: %v", errPoisoned, r)
			return
		}
		if s.engine != nil {
			metrics.StoreSize.Set(float64(s.engine.Size()))
			metrics.StoreCapacity.Set(float64(s.engine.Capacity()))
		}
	}()
	return fn()
}

// read runs fn under the read lock, converting an engine panic into an
// engine error. Readers cannot poison the store.
func (s *Store) read(op string, fn func() error) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.usable(); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("engine panicked under the read lock", zap.String("op", op), zap.Any("panic", r))
			err = errs.Engine(op, fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}

func (s *Store) usable() error {
	switch {
	case s.poisoned:
		return errPoisoned
	case s.engine == nil:
		return errClosed
	}
	return nil
}

func (s *Store) publish() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.engine == nil {
		return
	}
	metrics.StoreSize.Set(float64(s.engine.Size()))
	metrics.StoreCapacity.Set(float64(s.engine.Capacity()))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
