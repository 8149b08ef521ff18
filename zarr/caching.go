package zarr

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/robert-malhotra/go-anndata/internal/metrics"
)

// CachingStore caches values read from an inner store in a byte-bounded
// LRU. Concurrent reads of the same key share one inner read. Missing keys
// and errors are not cached.
type CachingStore struct {
	inner Store
	group singleflight.Group

	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
}

type cacheEntry struct {
	key   string
	value []byte
}

// NewCachingStore wraps inner with a cache of capacity bytes.
func NewCachingStore(inner Store, capacity int64) *CachingStore {
	return &CachingStore{
		inner:     inner,
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

// Get returns the cached value of key, reading it from the inner store on
// a miss. Callers must not modify the returned slice.
func (c *CachingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.lookup(key); ok {
		metrics.CacheEvents.WithLabelValues("hit").Inc()
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		metrics.CacheEvents.WithLabelValues("miss").Inc()
		data, err := c.inner.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		c.add(key, data)
		return data, nil
	})
	if shared {
		metrics.CacheEvents.WithLabelValues("shared").Inc()
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// ListDir lists the inner store.
func (c *CachingStore) ListDir(ctx context.Context, prefix string) ([]string, error) {
	return listDir(ctx, c.inner, prefix)
}

// Set writes through to the inner store and drops the cached value.
func (c *CachingStore) Set(ctx context.Context, key string, value []byte) error {
	c.Invalidate(func(k string) bool { return k == key })
	return setKey(ctx, c.inner, key, value)
}

// Invalidate removes the entries whose key matches predicate.
func (c *CachingStore) Invalidate(predicate func(key string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for key, element := range c.items {
		if predicate(key) {
			toRemove = append(toRemove, element)
		}
	}
	for _, e := range toRemove {
		c.removeElement(e)
	}
}

// Size returns the number of cached bytes.
func (c *CachingStore) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached keys.
func (c *CachingStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *CachingStore) lookup(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		c.evictList.MoveToFront(ent)
		return ent.Value.(*cacheEntry).value, true
	}
	return nil, false
}

func (c *CachingStore) add(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	itemSize := int64(len(value))
	if itemSize > c.capacity {
		return
	}
	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
	for c.size+itemSize > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.removeElement(ent)
	}
	c.items[key] = c.evictList.PushFront(&cacheEntry{key: key, value: value})
	c.size += itemSize
}

func (c *CachingStore) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*cacheEntry)
	delete(c.items, kv.key)
	c.size -= int64(len(kv.value))
}
