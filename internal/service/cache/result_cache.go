package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"FinInfluence/internal/domain/models"
	"FinInfluence/internal/domain/repository"
	pkgcache "FinInfluence/pkg/cache"
	"FinInfluence/pkg/logger"
)

// Entry is one cached analysis. Timestamp is when it was computed and never
// changes afterwards.
type Entry struct {
	Key       string                       `json:"key"`
	Graph     models.Graph                 `json:"graph"`
	Sources   map[string]models.DataSource `json:"sources,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`

	seq uint64
}

// Computed is what a miss produces before it is stamped and stored.
type Computed struct {
	Graph   models.Graph
	Sources map[string]models.DataSource
}

// remotePrefix namespaces result entries inside the shared tier.
const remotePrefix = "result"

type ComputeFunc func(ctx context.Context) (*Computed, error)

type Options struct {
	Capacity int
	// Shared tier; nil keeps the cache process-local.
	Remote    pkgcache.Service
	RemoteTTL time.Duration
}

// ResultCache is a capacity-bounded map of analyses keyed by snapshot
// content. When full, the entry with the oldest timestamp goes first.
// Concurrent misses for one key run the computation once.
type ResultCache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	capacity int
	seq      uint64

	group     singleflight.Group
	remote    pkgcache.Service
	remoteTTL time.Duration

	metrics repository.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

func NewResultCache(opts Options, metrics repository.Metrics, log *logger.Logger) *ResultCache {
	if opts.Capacity < 1 {
		opts.Capacity = 10
	}
	return &ResultCache{
		entries:   make(map[string]*Entry, opts.Capacity+1),
		capacity:  opts.Capacity,
		remote:    opts.Remote,
		remoteTTL: opts.RemoteTTL,
		metrics:   metrics,
		logger:    log,
		now:       time.Now,
	}
}

func (c *ResultCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// Put stores a freshly computed result stamped with the current time.
func (c *ResultCache) Put(key string, res *Computed) (*Entry, error) {
	e := &Entry{Key: key, Graph: res.Graph, Sources: res.Sources, Timestamp: c.now()}
	if err := c.store(e); err != nil {
		return nil, err
	}
	return e, nil
}

// store inserts e and evicts at most one entry, all under one lock.
func (c *ResultCache) store(e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storeLocked(e)
}

func (c *ResultCache) storeLocked(e *Entry) error {
	c.seq++
	e.seq = c.seq
	c.entries[e.Key] = e

	if len(c.entries) > c.capacity {
		c.evictOldestLocked()
	}
	size := len(c.entries)
	c.metrics.RecordCacheSize(size)

	if size > c.capacity {
		return &models.CacheCapacityInvariantViolation{Size: size, Capacity: c.capacity}
	}
	return nil
}

// promote copies a shared-tier hit into the local tier. A hit older than
// everything in a full local tier would be its own eviction victim, so it is
// served without being inserted.
func (c *ResultCache) promote(e *Entry) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[e.Key]; !ok && len(c.entries) >= c.capacity {
		if oldest := c.oldestLocked(); oldest != nil && e.Timestamp.Before(oldest.Timestamp) {
			return false, nil
		}
	}
	return true, c.storeLocked(e)
}

func (c *ResultCache) oldestLocked() *Entry {
	var oldest *Entry
	for _, e := range c.entries {
		if oldest == nil ||
			e.Timestamp.Before(oldest.Timestamp) ||
			(e.Timestamp.Equal(oldest.Timestamp) && e.seq < oldest.seq) {
			oldest = e
		}
	}
	return oldest
}

func (c *ResultCache) evictOldestLocked() {
	if oldest := c.oldestLocked(); oldest != nil {
		delete(c.entries, oldest.Key)
		c.logger.Debug("result cache evicted entry", logger.String("key", oldest.Key))
	}
}

func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every local entry and every result mirrored in the shared tier.
func (c *ResultCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*Entry, c.capacity+1)
	c.metrics.RecordCacheSize(0)
	c.mu.Unlock()

	if c.remote == nil {
		return nil
	}
	if err := c.remote.DeleteByPattern(ctx, pkgcache.BuildPattern(remotePrefix+":")); err != nil {
		return fmt.Errorf("clear shared cache: %w", err)
	}
	return nil
}

type outcome struct {
	entry  *Entry
	cached bool
}

// GetOrCompute returns the entry for key and whether it was served from a
// cache tier. On a full miss compute runs once per key no matter how many
// callers are waiting; its context is detached from any single caller's
// cancellation.
func (c *ResultCache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (*Entry, bool, error) {
	if e, ok := c.Get(key); ok {
		return e, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		if e, ok := c.Get(key); ok {
			return outcome{e, true}, nil
		}
		if e, ok := c.loadRemote(ctx, key); ok {
			return outcome{e, true}, nil
		}

		res, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		e, err := c.Put(key, res)
		if err != nil {
			return nil, err
		}
		c.saveRemote(ctx, e)
		return outcome{e, false}, nil
	})
	if err != nil {
		return nil, false, err
	}
	o := v.(outcome)
	return o.entry, o.cached, nil
}

func (c *ResultCache) loadRemote(ctx context.Context, key string) (*Entry, bool) {
	if c.remote == nil {
		return nil, false
	}
	var e Entry
	if err := c.remote.Get(ctx, remoteKey(key), &e); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			c.logger.Warn("shared cache read failed", logger.String("key", key), logger.Error(err))
		}
		return nil, false
	}
	if e.Key != key {
		// Hash collision on the shared tier.
		return nil, false
	}
	stored, err := c.promote(&e)
	if err != nil {
		c.logger.Error("result cache store failed", logger.Error(err))
		return nil, false
	}
	if !stored {
		c.logger.Debug("shared cache hit older than local tier, served without promotion",
			logger.String("key", key))
	}
	return &e, true
}

func (c *ResultCache) saveRemote(ctx context.Context, e *Entry) {
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, remoteKey(e.Key), e, c.remoteTTL); err != nil {
		c.logger.Warn("shared cache write failed", logger.String("key", e.Key), logger.Error(err))
	}
}

func remoteKey(key string) string {
	return pkgcache.GenerateKey(remotePrefix, pkgcache.HashKey(key))
}
