// Package refresh holds the snapshot cache shared by the read proxy.
// Any trigger invalidates keys; reads refetch through a single in-flight
// guard per key and store the result as a full replace.
package refresh

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"auction-relay/internal/observability"
)

const (
	// DefaultTTL is used when Options.TTL is not positive.
	DefaultTTL = 5 * time.Second
	// DefaultFetchTimeout bounds a shared refetch.
	DefaultFetchTimeout = 30 * time.Second
)

// Fetcher produces a fresh value for a key.
type Fetcher func(ctx context.Context) (interface{}, error)

// Options configures the Cache.
type Options struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	Logger       *log.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

type entry struct {
	value     interface{}
	fetchedAt time.Time
}

// Cache maps endpoint+params keys to the last fetched value.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	// gen counts invalidations per key; inflight counts callers waiting on
	// a refetch of the key. Prune keeps gen while either is live.
	gen      map[string]uint64
	inflight map[string]int
	epoch    uint64

	group        singleflight.Group
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *log.Logger
}

// NewCache creates a new Cache.
func NewCache(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Cache{
		entries:      make(map[string]*entry),
		gen:          make(map[string]uint64),
		inflight:     make(map[string]int),
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Now,
		logger:       opts.Logger,
	}
}

// Key builds a cache key from an endpoint name and its parameters.
func Key(endpoint string, params ...string) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + strings.Join(params, "&")
}

// Get returns the cached value for key while fresh. Otherwise it refetches;
// concurrent callers for the same key share one fetch.
func (c *Cache) Get(ctx context.Context, key string, fetch Fetcher) (interface{}, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.fetchedAt) < c.ttl {
		observability.RecordCacheHit(endpointOf(key))
		return e.value, nil
	}
	return c.Refresh(ctx, key, fetch)
}

// Refresh refetches key regardless of freshness. A refetch that started
// before an Invalidate of the same key is not stored.
//
// The fetch is shared by every caller of the same key, so it runs detached
// from any one caller's cancellation and is bounded by the fetch timeout.
// A caller whose ctx ends stops waiting without failing the others.
func (c *Cache) Refresh(ctx context.Context, key string, fetch Fetcher) (interface{}, error) {
	c.mu.Lock()
	gen := c.gen[key]
	epoch := c.epoch
	c.inflight[key]++
	c.mu.Unlock()

	flightKey := fmt.Sprintf("%s#%d.%d", key, epoch, gen)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		start := time.Now()
		value, err := fetch(fetchCtx)
		observability.RecordCacheMiss(endpointOf(key), time.Since(start).Seconds())
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen[key] != gen || c.epoch != epoch {
			c.logger.Printf("discarding stale refetch of %s", key)
			return value, nil
		}
		c.entries[key] = &entry{value: value, fetchedAt: c.now()}
		return value, nil
	})

	select {
	case res := <-ch:
		c.release(key)
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val, nil
	case <-ctx.Done():
		go func() {
			<-ch
			c.release(key)
		}()
		return nil, ctx.Err()
	}
}

func (c *Cache) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight[key]--
	if c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
}

// Invalidate drops the given keys. Refetches already in flight for them
// are not stored.
func (c *Cache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
		c.gen[key]++
	}
}

// InvalidatePrefix drops every key that starts with prefix and returns them.
func (c *Cache) InvalidatePrefix(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dropped []string
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			dropped = append(dropped, key)
			delete(c.entries, key)
		}
	}
	for key := range c.gen {
		if strings.HasPrefix(key, prefix) {
			c.gen[key]++
		}
	}
	return dropped
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.entries = make(map[string]*entry)
}

// Prune drops expired entries, and the invalidation counters of keys that
// are neither cached nor being refetched. It returns how many entries it
// dropped.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.entries, key)
			dropped++
		}
	}
	for key := range c.gen {
		if _, cached := c.entries[key]; cached {
			continue
		}
		if c.inflight[key] > 0 {
			continue
		}
		delete(c.gen, key)
	}
	return dropped
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func endpointOf(key string) string {
	if i := strings.IndexByte(key, '?'); i >= 0 {
		return key[:i]
	}
	return key
}
