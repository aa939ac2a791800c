// Package cache holds loaded datasets keyed by source locator. Entries
// never expire on their own; callers invalidate or refresh explicitly.
package cache

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/smukkama/aqeu-dashboard/internal/airquality"
	"github.com/smukkama/aqeu-dashboard/internal/loader"
	"github.com/smukkama/aqeu-dashboard/internal/metrics"
)

// Fetcher downloads raw source bytes
type Fetcher interface {
	FetchRaw(ctx context.Context, source string) ([]byte, error)
}

// Store is a shared second tier holding raw source bytes
type Store interface {
	Get(ctx context.Context, source string) ([]byte, bool, error)
	Set(ctx context.Context, source string, data []byte) error
	Delete(ctx context.Context, source string) error
}

// DefaultLoadTimeout bounds a shared load, which outlives the request that
// started it
const DefaultLoadTimeout = time.Minute

type entry struct {
	dataset *airquality.Dataset
}

// Cache is a scoped dataset cache. It is safe for concurrent use;
// concurrent misses for the same source share one load.
type Cache struct {
	fetcher     Fetcher
	store       Store
	recorder    *metrics.Recorder
	loadTimeout time.Duration

	mu      sync.RWMutex
	entries map[string]entry
	gen     map[string]uint64
	group   singleflight.Group
}

// Option configures a Cache
type Option func(*Cache)

// WithStore adds a shared second tier
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// WithRecorder records hits, misses and fetches
func WithRecorder(r *metrics.Recorder) Option {
	return func(c *Cache) { c.recorder = r }
}

// WithLoadTimeout overrides DefaultLoadTimeout
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// New creates an empty cache
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher:     fetcher,
		entries:     make(map[string]entry),
		gen:         make(map[string]uint64),
		loadTimeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the dataset for source, loading it on a miss
func (c *Cache) Get(ctx context.Context, source string) (*airquality.Dataset, error) {
	c.mu.RLock()
	e, ok := c.entries[source]
	gen := c.gen[source]
	c.mu.RUnlock()

	c.recorder.ObserveCache("memory", ok)
	if ok {
		return e.dataset, nil
	}

	// Loads are shared per generation, so a load started before an
	// invalidation is never joined by callers arriving after it. The load
	// runs detached from ctx; each caller stops waiting on its own ctx.
	key := fmt.Sprintf("%s#%d", source, gen)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		ds, err := c.load(loadCtx, source)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// An invalidation during the load means this result is already stale
		if c.gen[source] == gen {
			c.entries[source] = entry{dataset: ds}
		}
		c.mu.Unlock()

		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*airquality.Dataset), nil
	}
}

// Invalidate drops the in-process entry for source. It reports whether an
// entry was present.
func (c *Cache) Invalidate(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen[source]++
	if _, ok := c.entries[source]; !ok {
		return false
	}
	delete(c.entries, source)
	return true
}

// Refresh discards every cached copy of source, including the shared
// tier, and loads it again from the origin.
func (c *Cache) Refresh(ctx context.Context, source string) (*airquality.Dataset, error) {
	c.Invalidate(source)
	if c.store != nil {
		if err := c.store.Delete(ctx, source); err != nil {
			log.WithField("source", source).Warnf("Shared cache delete failed: %v", err)
		}
	}
	return c.Get(ctx, source)
}

// Keys returns the cached source locators, sorted
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Cache) load(ctx context.Context, source string) (*airquality.Dataset, error) {
	logger := log.WithField("source", source)

	if c.store != nil {
		data, ok, err := c.store.Get(ctx, source)
		switch {
		case err != nil:
			logger.Warnf("Shared cache unavailable, fetching from origin: %v", err)
		case ok:
			c.recorder.ObserveCache("redis", true)
			ds, err := loader.Parse(bytes.NewReader(data), source)
			if err == nil {
				logger.WithField("rows", len(ds.Observations)).Info("Loaded dataset from shared cache")
				return ds, nil
			}
			logger.Warnf("Discarding unreadable shared cache entry: %v", err)
		default:
			c.recorder.ObserveCache("redis", false)
		}
	}

	start := time.Now()
	data, err := c.fetcher.FetchRaw(ctx, source)
	var ds *airquality.Dataset
	if err == nil {
		ds, err = loader.Parse(bytes.NewReader(data), source)
	}
	c.recorder.ObserveFetch(time.Since(start), err)
	if err != nil {
		logger.Errorf("Dataset load failed: %v", err)
		return nil, err
	}

	logger.WithFields(log.Fields{
		"rows":     len(ds.Observations),
		"duration": time.Since(start),
	}).Info("Fetched dataset")

	if c.store != nil {
		if err := c.store.Set(ctx, source, data); err != nil {
			logger.Warnf("Shared cache write failed: %v", err)
		}
	}

	return ds, nil
}
