package clientcache

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"k8s.io/apimachinery/pkg/util/clock"

	"github.com/G-Research/engine-dispatch/internal/common/dispatcherrors"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/configuration"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/domain"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/metrics"
	"github.com/G-Research/engine-dispatch/internal/dispatcher/plugin"
)

// Cache hands out execution clients, loading each (artifact, type) pair at most once.
//
// Artifacts whose path contains one of the configured stable path markers are cached: concurrent
// requests for the same client share a single load, and the resulting client is kept until it has
// been idle for IdleTimeout or is pushed out by newer clients once MaxEntries is reached.
// Any other artifact is considered volatile (e.g. uploaded for a single run) and is loaded afresh
// on every request.
//
// Evicted clients implementing io.Closer are closed. Failed loads are never cached.
type Cache struct {
	config  configuration.ClientCacheConfiguration
	loader  plugin.Loader
	clock   clock.Clock
	metrics *metrics.Metrics

	loads singleflight.Group

	// mu protects entries and evicted.
	mu      sync.Mutex
	entries *simplelru.LRU
	// Clients evicted while holding mu; closed once mu is released.
	evicted []domain.ExecutionClient
}

type entry struct {
	client     domain.ExecutionClient
	lastAccess time.Time
}

func New(
	config configuration.ClientCacheConfiguration,
	loader plugin.Loader,
	clock clock.Clock,
	metrics *metrics.Metrics,
) (*Cache, error) {
	c := &Cache{
		config:  config,
		loader:  loader,
		clock:   clock,
		metrics: metrics,
	}
	entries, err := simplelru.NewLRU(config.MaxEntries, c.onEvict)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	c.entries = entries
	return c, nil
}

// IsStable returns true if clients loaded from artifactPath may be cached.
func (c *Cache) IsStable(artifactPath string) bool {
	for _, marker := range c.config.StablePathMarkers {
		if strings.Contains(artifactPath, marker) {
			return true
		}
	}
	return false
}

// Acquire returns the execution client of type typeId from artifactPath.
// Load failures are returned as *dispatcherrors.ErrLoad.
func (c *Cache) Acquire(artifactPath string, typeId string) (domain.ExecutionClient, error) {
	if !c.IsStable(artifactPath) {
		c.metrics.RecordCacheRequest("volatile")
		return c.load(artifactPath, typeId)
	}

	key := cacheKey(artifactPath, typeId)
	if client, ok := c.get(key); ok {
		c.metrics.RecordCacheRequest("hit")
		return client, nil
	}
	c.metrics.RecordCacheRequest("miss")

	result, err, _ := c.loads.Do(key, func() (interface{}, error) {
		// Another flight for this key may have finished between our miss and joining this one.
		if client, ok := c.get(key); ok {
			return client, nil
		}
		client, err := c.load(artifactPath, typeId)
		if err != nil {
			return nil, err
		}
		c.withLock(func(now time.Time) {
			c.entries.Add(key, &entry{client: client, lastAccess: now})
		})
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.ExecutionClient), nil
}

// Len returns the number of cached clients, including any that have expired but not yet been swept.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// RemoveExpired evicts every client idle for longer than IdleTimeout and returns how many were evicted.
func (c *Cache) RemoveExpired() int {
	removed := 0
	c.withLock(func(now time.Time) {
		for _, key := range c.entries.Keys() {
			value, ok := c.entries.Peek(key)
			if ok && c.expired(value.(*entry), now) {
				c.entries.Remove(key)
				removed++
			}
		}
	})
	return removed
}

// Purge evicts every cached client.
func (c *Cache) Purge() {
	c.withLock(func(time.Time) {
		c.entries.Purge()
	})
}

// Run periodically removes expired clients until ctx is cancelled.
func (c *Cache) Run(ctx context.Context) error {
	if c.config.SweepInterval <= 0 {
		log.Info("client cache sweep disabled; idle clients are evicted when next requested")
		<-ctx.Done()
		return nil
	}
	ticker := c.clock.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if removed := c.RemoveExpired(); removed > 0 {
				log.Infof("evicted %d idle execution clients", removed)
			}
		}
	}
}

func (c *Cache) get(key string) (domain.ExecutionClient, bool) {
	var client domain.ExecutionClient
	found := false
	c.withLock(func(now time.Time) {
		value, ok := c.entries.Get(key)
		if !ok {
			return
		}
		e := value.(*entry)
		if c.expired(e, now) {
			c.entries.Remove(key)
			return
		}
		e.lastAccess = now
		client, found = e.client, true
	})
	return client, found
}

func (c *Cache) load(artifactPath string, typeId string) (domain.ExecutionClient, error) {
	client, err := c.loader.Load(artifactPath, typeId)
	c.metrics.RecordLoad(err)
	if err != nil {
		var loadErr *dispatcherrors.ErrLoad
		if errors.As(err, &loadErr) {
			return nil, errors.WithStack(err)
		}
		return nil, errors.WithStack(&dispatcherrors.ErrLoad{ArtifactPath: artifactPath, TypeId: typeId, Err: err})
	}
	return client, nil
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.lastAccess) >= c.config.IdleTimeout
}

// withLock runs f while holding mu, then closes any clients f evicted once mu has been released.
func (c *Cache) withLock(f func(now time.Time)) {
	c.mu.Lock()
	f(c.clock.Now())
	evicted := c.evicted
	c.evicted = nil
	c.mu.Unlock()

	for _, client := range evicted {
		closeClient(client)
	}
}

// onEvict is called by the LRU, which is only ever used while holding mu.
func (c *Cache) onEvict(_ interface{}, value interface{}) {
	c.evicted = append(c.evicted, value.(*entry).client)
	c.metrics.RecordEviction()
}

func closeClient(client domain.ExecutionClient) {
	closer, ok := client.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		log.WithError(err).Warnf("failed to close evicted execution client for %s", client.GetMasterEndpoint())
	}
}

// Artifact paths can't contain NUL, so keys of different (path, type) pairs never collide.
func cacheKey(artifactPath string, typeId string) string {
	return artifactPath + "\x00" + typeId
}
