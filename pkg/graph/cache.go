package graph

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/singleflight"

	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/metrics"
	"github.com/michaeltoohig/unofficial-vfsc-graph/pkg/models"
)

type GraphBuilder interface {
	Build(ctx context.Context) (*Graph, error)
}

// VersionStore is a counter shared between processes. Bumping it
// invalidates the cached graph of every process watching it.
type VersionStore interface {
	Current(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
}

// Cache holds one graph snapshot per process. Snapshots expire after the TTL
// and are dropped by Invalidate; concurrent rebuilds are coalesced.
type Cache struct {
	builder  GraphBuilder
	ttl      time.Duration
	versions VersionStore
	logger   ectologger.Logger
	now      func() time.Time

	mu            sync.RWMutex
	graph         *Graph
	builtAt       time.Time
	generation    uint64
	remoteVersion int64

	group singleflight.Group
}

type CacheOption func(*Cache)

// WithVersionStore enables cross-process invalidation.
func WithVersionStore(v VersionStore) CacheOption {
	return func(c *Cache) { c.versions = v }
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(builder GraphBuilder, ttl time.Duration, logger ectologger.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		builder: builder,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached graph, building it when missing or stale.
func (c *Cache) Get(ctx context.Context) (*Graph, error) {
	remote, remoteOK := c.readRemoteVersion(ctx)

	c.mu.RLock()
	g, builtAt, gen, seen := c.graph, c.builtAt, c.generation, c.remoteVersion
	c.mu.RUnlock()

	fresh := c.live(g, builtAt)
	if fresh && remoteOK && remote != seen {
		fresh = false
	}
	if fresh {
		metrics.GraphCacheRequests.WithLabelValues("hit").Inc()
		return g, nil
	}
	metrics.GraphCacheRequests.WithLabelValues("miss").Inc()

	result, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		c.mu.RLock()
		current, currentAt := c.graph, c.builtAt
		c.mu.RUnlock()
		if current != g && c.live(current, currentAt) {
			return current, nil
		}

		built, err := c.builder.Build(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.graph = built
			c.builtAt = c.now()
			if remoteOK {
				c.remoteVersion = remote
			}
		}
		c.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Graph), nil
}

// live reports whether g, built at builtAt, is within the TTL. A TTL of zero
// or less never expires.
func (c *Cache) live(g *Graph, builtAt time.Time) bool {
	return g != nil && (c.ttl <= 0 || c.now().Sub(builtAt) < c.ttl)
}

// Invalidate drops the cached graph here and, when a version store is
// configured, in every other process.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.graph = nil
	c.generation++
	c.mu.Unlock()

	if c.versions == nil {
		return nil
	}
	version, err := c.versions.Bump(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.remoteVersion = version
	c.mu.Unlock()
	return nil
}

// OnApplied invalidates the graph after a company change is committed.
func (c *Cache) OnApplied(ctx context.Context, _ *models.ApplyResult) error {
	return c.Invalidate(ctx)
}

func (c *Cache) readRemoteVersion(ctx context.Context) (int64, bool) {
	if c.versions == nil {
		return 0, false
	}
	version, err := c.versions.Current(ctx)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to read graph version, using local cache state")
		return 0, false
	}
	return version, true
}
