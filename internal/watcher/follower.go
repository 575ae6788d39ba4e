// Package watcher follows an index file with fsnotify and reloads it when
// another process replaces it.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Follower watches a single file and invokes onChange, debounced, after the
// file is created, rewritten or renamed into place. Temporary siblings
// written by a saving process are ignored until they are renamed over path.
type Follower struct {
	path     string
	onChange func(path string) error
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// Option configures a Follower.
type Option func(*Follower)

// WithLogger sets a logger for reload and watch events.
func WithLogger(l *zap.Logger) Option {
	return func(f *Follower) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithDebounce sets how long the file must stay quiet before onChange runs.
func WithDebounce(d time.Duration) Option {
	return func(f *Follower) {
		if d > 0 {
			f.debounce = d
		}
	}
}

// NewFollower creates a follower for path. onChange receives path and its
// error is logged; the follower keeps running either way.
func NewFollower(path string, onChange func(path string) error, opts ...Option) *Follower {
	f := &Follower{
		path:     filepath.Clean(path),
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the followed file.
func (f *Follower) Path() string { return f.path }

// Start begins watching the directory holding path, creating it when missing.
// It runs until ctx is cancelled or Stop is called.
func (f *Follower) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// The directory is watched, not the file: an atomic rename replaces the
	// inode and a watch on the old one would go silent.
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	f.watcher = watcher
	f.started = true
	f.logger.Info("following index file", zap.String("path", f.path))
	go f.run(ctx, watcher)
	return nil
}

// Run starts the follower and blocks until ctx is cancelled or Stop is called.
func (f *Follower) Run(ctx context.Context) error {
	if err := f.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-f.done:
	}
	f.Stop()
	return nil
}

func (f *Follower) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			f.Stop()
			return
		case <-f.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			f.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				f.logger.Warn("follower watch error", zap.Error(err))
			}
		}
	}
}

func (f *Follower) handleEvent(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != f.path {
		return
	}
	f.logger.Debug("follower event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		f.schedule()
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		f.cancel()
	}
}

func (f *Follower) schedule() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.debounce, f.fire)
}

func (f *Follower) fire() {
	f.mu.Lock()
	f.timer = nil
	active := f.started
	f.mu.Unlock()
	if !active || f.onChange == nil {
		return
	}
	if err := f.onChange(f.path); err != nil {
		f.logger.Warn("index reload failed", zap.String("path", f.path), zap.Error(err))
		return
	}
	f.logger.Debug("index reloaded after change", zap.String("path", f.path))
}

func (f *Follower) cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// Stop stops the follower and releases resources.
func (f *Follower) Stop() {
	f.mu.Lock()
	if !f.started {
		f.mu.Unlock()
		return
	}
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	_ = f.watcher.Close()
	f.started = false
	f.mu.Unlock()
	f.stopOnce.Do(func() { close(f.done) })
}
