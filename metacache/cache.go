// Package metacache is a read-mostly cache for remote metadata.
//
// Entries are served from memory without locking. After RefreshInterval an
// access schedules a background reload on a bounded worker pool and keeps
// returning the cached value; after ExpireAfterWrite the entry is dropped and
// the next access loads it synchronously. Loads and refreshes of one key are
// collapsed into a single call.
package metacache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hugr-lab/airport-openapi/internal/recovery"
	"github.com/hugr-lab/airport-openapi/metrics"
)

const (
	DefaultExpireAfterWrite = 10 * time.Minute
	DefaultSweepInterval    = time.Minute
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("metadata cache closed")

// Loader fetches the value for a key. found=false with a nil error means the
// key is known to be absent, which is cached like a value.
type Loader[K comparable, V any] func(ctx context.Context, key K) (value V, found bool, err error)

// Config configures a Cache.
type Config struct {
	// ExpireAfterWrite is the maximum age of an entry, counted from its last
	// successful load. Defaults to DefaultExpireAfterWrite.
	ExpireAfterWrite time.Duration

	// RefreshInterval is how long an entry is served without scheduling a
	// reload. Zero disables background refresh.
	RefreshInterval time.Duration

	// RefreshWorkers bounds concurrent background reloads. Minimum 1.
	RefreshWorkers int

	// SweepInterval is how often expired entries are removed.
	// Defaults to DefaultSweepInterval. Negative disables the janitor.
	SweepInterval time.Duration

	// Logger for refresh failures. OPTIONAL: slog.Default() if nil.
	Logger *slog.Logger

	// Now overrides the clock. OPTIONAL: time.Now if nil.
	Now func() time.Time
}

type snapshot[V any] struct {
	value   V
	found   bool
	written time.Time
}

type entry[V any] struct {
	snap       atomic.Pointer[snapshot[V]]
	refreshing atomic.Bool
}

type result[V any] struct {
	value V
	found bool
}

// Cache maps keys to loaded values. It is safe for concurrent use.
type Cache[K comparable, V any] struct {
	cfg     Config
	keyFn   func(K) string
	load    Loader[K, V]
	entries sync.Map // string -> *entry[V]
	group   singleflight.Group
	pool    *ants.Pool
	logger  *slog.Logger
	now     func() time.Time

	// tomb marks an entry the sweeper has claimed for removal; nothing is
	// stored into an entry once it holds tomb.
	tomb *snapshot[V]

	size   atomic.Int64
	closed atomic.Bool
	stop   chan struct{}
	done   chan struct{}
}

// New creates a cache. keyFn must map equal keys to equal strings and is
// used for single-flight grouping.
func New[K comparable, V any](cfg Config, keyFn func(K) string, load Loader[K, V]) (*Cache[K, V], error) {
	if keyFn == nil || load == nil {
		return nil, fmt.Errorf("metacache: key function and loader are required")
	}
	if cfg.ExpireAfterWrite <= 0 {
		cfg.ExpireAfterWrite = DefaultExpireAfterWrite
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.RefreshWorkers < 1 {
		cfg.RefreshWorkers = 1
	}
	if cfg.RefreshInterval < 0 {
		cfg.RefreshInterval = 0
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Cache[K, V]{
		cfg:    cfg,
		keyFn:  keyFn,
		load:   load,
		logger: logger.With("component", "metacache"),
		now:    now,
		tomb:   &snapshot[V]{},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if cfg.RefreshInterval > 0 {
		pool, err := ants.NewPool(cfg.RefreshWorkers,
			ants.WithNonblocking(true),
			ants.WithPanicHandler(func(v any) {
				c.logger.Error("Metadata refresh panicked", "panic", v)
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("metacache: create refresh pool: %w", err)
		}
		c.pool = pool
	}

	if cfg.SweepInterval > 0 {
		go c.janitor(cfg.SweepInterval)
	} else {
		close(c.done)
	}
	return c, nil
}

// Get returns the value for key, loading it on a miss.
// The bool is false when the loader reported the key as absent.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if c.closed.Load() {
		return zero, false, ErrClosed
	}

	k := c.keyFn(key)
	now := c.now()

	if v, ok := c.entries.Load(k); ok {
		e := v.(*entry[V])
		if snap := e.snap.Load(); snap != nil && snap != c.tomb {
			age := now.Sub(snap.written)
			if age < c.cfg.ExpireAfterWrite {
				metrics.MetadataCacheHits.Inc()
				if c.pool != nil && age >= c.cfg.RefreshInterval {
					c.scheduleRefresh(k, key, e)
				}
				return snap.value, snap.found, nil
			}
		}
	}

	metrics.MetadataCacheMisses.Inc()
	return c.loadSync(ctx, k, key)
}

// loadSync performs a single-flight load. The shared load is detached from
// the caller's cancellation so one caller giving up does not fail the others.
func (c *Cache[K, V]) loadSync(ctx context.Context, k string, key K) (V, bool, error) {
	var zero V

	ch := c.group.DoChan(k, c.loadFunc(context.WithoutCancel(ctx), k, key, "metadata load"))

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		r := res.Val.(result[V])
		return r.value, r.found, nil
	}
}

// loadFunc is the single-flight body shared by cold loads and refreshes.
// A loader panic must not escape it: when a DoChan caller is waiting,
// singleflight re-raises the panic on its own goroutine.
func (c *Cache[K, V]) loadFunc(ctx context.Context, k string, key K, operation string) func() (any, error) {
	return func() (any, error) {
		r, err := recovery.RecoverToValue(c.logger, operation, func() (result[V], error) {
			value, found, err := c.load(ctx, key)
			return result[V]{value: value, found: found}, err
		})
		if err != nil {
			return nil, err
		}
		if !c.closed.Load() {
			c.store(k, r.value, r.found)
		}
		return r, nil
	}
}

func (c *Cache[K, V]) store(k string, value V, found bool) {
	snap := &snapshot[V]{value: value, found: found, written: c.now()}
	for {
		v, loaded := c.entries.LoadOrStore(k, &entry[V]{})
		if !loaded {
			c.size.Add(1)
			metrics.MetadataCacheEntries.Inc()
		}
		e := v.(*entry[V])
		cur := e.snap.Load()
		if cur == c.tomb {
			// Claimed by a sweep: finish the removal and store into a new entry.
			c.remove(k, e)
			continue
		}
		if e.snap.CompareAndSwap(cur, snap) {
			return
		}
	}
}

// remove deletes e if it is still the entry for k.
func (c *Cache[K, V]) remove(k string, e *entry[V]) bool {
	if !c.entries.CompareAndDelete(k, e) {
		return false
	}
	c.size.Add(-1)
	metrics.MetadataCacheEntries.Dec()
	return true
}

// scheduleRefresh submits a background reload unless one is in flight.
func (c *Cache[K, V]) scheduleRefresh(k string, key K, e *entry[V]) {
	if !e.refreshing.CompareAndSwap(false, true) {
		return
	}

	err := c.pool.Submit(func() {
		defer e.refreshing.Store(false)
		recovery.Recover(c.logger, "metadata refresh", func() {
			c.refresh(k, key)
		})
	})
	if err != nil {
		e.refreshing.Store(false)
		metrics.MetadataCacheRefreshes.WithLabelValues("rejected").Inc()
		c.logger.Debug("Metadata refresh not scheduled", "key", k, "error", err)
	}
}

func (c *Cache[K, V]) refresh(k string, key K) {
	_, err, _ := c.group.Do(k, c.loadFunc(context.Background(), k, key, "metadata refresh"))
	if err != nil {
		metrics.MetadataCacheRefreshes.WithLabelValues("error").Inc()
		c.logger.Warn("Metadata refresh failed; serving stale entry", "key", k, "error", err)
		return
	}
	metrics.MetadataCacheRefreshes.WithLabelValues("ok").Inc()
}

// Invalidate drops the entry for key.
func (c *Cache[K, V]) Invalidate(key K) {
	if _, ok := c.entries.LoadAndDelete(c.keyFn(key)); ok {
		c.size.Add(-1)
		metrics.MetadataCacheEntries.Dec()
	}
}

// Len returns the number of cached entries, expired ones included until the
// next sweep.
func (c *Cache[K, V]) Len() int {
	return int(c.size.Load())
}

// Sweep removes expired entries. An entry is only removed if its expired
// snapshot is still current, so a concurrent load or refresh is never lost.
func (c *Cache[K, V]) Sweep() int {
	now := c.now()
	removed := 0
	c.entries.Range(func(k, v any) bool {
		e := v.(*entry[V])
		snap := e.snap.Load()
		if snap == nil || snap == c.tomb || now.Sub(snap.written) < c.cfg.ExpireAfterWrite {
			return true
		}
		if e.snap.CompareAndSwap(snap, c.tomb) && c.remove(k.(string), e) {
			removed++
		}
		return true
	})
	return removed
}

func (c *Cache[K, V]) janitor(every time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Debug("Swept expired metadata", "removed", n)
			}
		}
	}
}

// Close stops the janitor and the refresh pool. In-flight refreshes are
// allowed to finish but their results are discarded.
func (c *Cache[K, V]) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.stop)
	<-c.done
	if c.pool != nil {
		c.pool.Release()
	}
	metrics.MetadataCacheEntries.Sub(float64(c.size.Swap(0)))
}
