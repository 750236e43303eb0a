package cache

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

var _ Cache[[]byte] = (*LRUCache[[]byte])(nil)

// Versioned is an LRU whose keys are scoped to a generation. Invalidate moves
// to a new generation, so a value computed before an invalidation is never
// served after it, even if it is stored late.
type Versioned[T any] struct {
	inner *LRUCache[T]
	gen   atomic.Uint64
}

func NewVersioned[T any](maxSize int, ttl time.Duration) *Versioned[T] {
	return &Versioned[T]{inner: NewLRUCache[T](maxSize, ttl)}
}

// Generation returns the token to pass to Get and Set.
func (v *Versioned[T]) Generation() uint64 {
	return v.gen.Load()
}

func (v *Versioned[T]) Get(gen uint64, key string) (T, bool) {
	return v.inner.Get(versionedKey(gen, key))
}

// Set stores data unless gen is already stale.
func (v *Versioned[T]) Set(gen uint64, key string, data T) {
	if gen != v.gen.Load() {
		return
	}
	v.inner.Set(versionedKey(gen, key), data)
}

func (v *Versioned[T]) Invalidate() {
	v.gen.Add(1)
	v.inner.Purge()
}

func (v *Versioned[T]) CleanExpired() int {
	return v.inner.CleanExpired()
}

func (v *Versioned[T]) Size() int {
	return v.inner.Size()
}

func versionedKey(gen uint64, key string) string {
	return strconv.FormatUint(gen, 10) + "|" + key
}

// Manager periodically drops expired entries from registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	go m.cleanup(ctx, interval)
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) cleanup(ctx context.Context, interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
