// Package embedcache memoizes text-to-vector encoding by content hash.
//
// The cache key is a SHA-256 digest of the text. Collisions are an accepted
// trade-off of content addressing, not a correctness bug: two colliding texts
// would share one vector, which the engine tolerates.
package embedcache

import (
	"container/list"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hirewire/matchengine/internal/hash"
)

// ErrEmptyText is returned when empty or whitespace-only text is encoded.
// The encoder is never invoked on empty input and the cache never stores a
// vector for it.
var ErrEmptyText = errors.New("embedcache: empty text")

// EncodeFunc computes the embedding for text. It is the injected fallback
// used on cache misses.
type EncodeFunc func(ctx context.Context, text string) ([]float32, error)

// Options configures the cache.
type Options struct {
	// MaxEntries bounds the cache; least-recently-used entries are evicted
	// past the bound. Zero or negative means unbounded.
	MaxEntries int
}

// DefaultOptions contains the default configuration options for the cache.
var DefaultOptions = Options{
	MaxEntries: 0,
}

// Cache memoizes encoding results by content hash.
//
// Concurrent GetOrCompute calls for the same text collapse into a single
// encoder invocation via singleflight.
type Cache struct {
	mu        sync.Mutex
	items     map[string]*list.Element
	evictList *list.List
	opts      Options
	group     singleflight.Group
}

type entry struct {
	key    string
	vector []float32
}

// New creates an embedding cache.
func New(optFns ...func(o *Options)) *Cache {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Cache{
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		opts:      opts,
	}
}

// GetOrCompute returns the cached vector for text, invoking encode on a miss.
//
// Empty or whitespace-only text is rejected before encode runs. Encoder
// failures are surfaced unchanged and nothing is cached for them. The
// returned slice is a copy owned by the caller.
func (c *Cache) GetOrCompute(ctx context.Context, text string, encode EncodeFunc) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	key := hash.Content(text)

	if v, ok := c.get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under singleflight: another flight may have populated
		// the entry between the miss and Do.
		if v, ok := c.get(key); ok {
			return v, nil
		}
		vec, err := encode(ctx, text)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			return nil, ErrEmptyText
		}
		c.set(key, vec)
		return slices.Clone(vec), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Reset drops every cached vector. This is the only invalidation the cache
// supports; entries are otherwise immutable.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.evictList = list.New()
}

func (c *Cache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.evictList.MoveToFront(ent)
	return slices.Clone(ent.Value.(*entry).vector), true
}

func (c *Cache) set(key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*entry).vector = slices.Clone(vector)
		return
	}

	ent := c.evictList.PushFront(&entry{key: key, vector: slices.Clone(vector)})
	c.items[key] = ent

	if c.opts.MaxEntries > 0 && len(c.items) > c.opts.MaxEntries {
		oldest := c.evictList.Back()
		if oldest != nil {
			c.evictList.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}
