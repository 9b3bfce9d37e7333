package cache

import (
	"sync"
	"sync/atomic"
)

// ObjectCache maps (entity type, canonical key) to the last loaded instance.
// Each entity type owns a partition; partitions and their entries are safe for
// concurrent use. There is no eviction and no expiry.
type ObjectCache struct {
	partitions  sync.Map // entity type -> *sync.Map
	generations sync.Map // entity type -> *atomic.Uint64
	notifier    atomic.Pointer[Notifier]

	hits          atomic.Int64
	misses        atomic.Int64
	puts          atomic.Int64
	invalidations atomic.Int64
}

// NewObjectCache creates an empty object cache
func NewObjectCache() *ObjectCache {
	return &ObjectCache{}
}

// SetNotifier registers n to receive every local invalidation; nil disables it
func (c *ObjectCache) SetNotifier(n Notifier) {
	if n == nil {
		c.notifier.Store(nil)
		return
	}
	c.notifier.Store(&n)
}

// Get returns the cached instance for key, if any
func (c *ObjectCache) Get(entityType, key string) (any, bool) {
	p, ok := c.partition(entityType, false)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	v, ok := p.Load(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return v, true
}

// Put stores v under key, replacing any previous instance
func (c *ObjectCache) Put(entityType, key string, v any) {
	p, _ := c.partition(entityType, true)
	p.Store(key, v)
	c.puts.Add(1)
}

// Generation returns the invalidation generation of an entity type. Readers
// take it before querying and hand it to PutIfCurrent.
func (c *ObjectCache) Generation(entityType string) uint64 {
	return c.generation(entityType).Load()
}

// PutIfCurrent stores v under key unless an invalidation of the entity type
// happened since gen was taken. It reports whether v was kept.
func (c *ObjectCache) PutIfCurrent(entityType, key string, v any, gen uint64) bool {
	g := c.generation(entityType)
	if g.Load() != gen {
		return false
	}
	p, _ := c.partition(entityType, true)
	p.Store(key, v)
	if g.Load() != gen {
		// an invalidation raced the store
		p.CompareAndDelete(key, v)
		return false
	}
	c.puts.Add(1)
	return true
}

// Invalidate removes one key and notifies peers
func (c *ObjectCache) Invalidate(entityType, key string) {
	c.Apply(Invalidation{EntityType: entityType, Key: key})
	c.notify(Invalidation{EntityType: entityType, Key: key})
}

// InvalidateAll drops the whole partition of an entity type and notifies peers
func (c *ObjectCache) InvalidateAll(entityType string) {
	c.Apply(Invalidation{EntityType: entityType, All: true})
	c.notify(Invalidation{EntityType: entityType, All: true})
}

// Apply performs an invalidation locally without notifying peers
func (c *ObjectCache) Apply(inv Invalidation) {
	c.invalidations.Add(1)
	c.generation(inv.EntityType).Add(1)
	if inv.All {
		c.partitions.Delete(inv.EntityType)
		return
	}
	if p, ok := c.partition(inv.EntityType, false); ok {
		p.Delete(inv.Key)
	}
}

// Len returns the number of cached instances of an entity type
func (c *ObjectCache) Len(entityType string) int {
	p, ok := c.partition(entityType, false)
	if !ok {
		return 0
	}
	n := 0
	p.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Stats returns a snapshot of the cache counters
func (c *ObjectCache) Stats() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Puts:          c.puts.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

func (c *ObjectCache) partition(entityType string, create bool) (*sync.Map, bool) {
	if v, ok := c.partitions.Load(entityType); ok {
		return v.(*sync.Map), true
	}
	if !create {
		return nil, false
	}
	v, _ := c.partitions.LoadOrStore(entityType, &sync.Map{})
	return v.(*sync.Map), true
}

func (c *ObjectCache) generation(entityType string) *atomic.Uint64 {
	if v, ok := c.generations.Load(entityType); ok {
		return v.(*atomic.Uint64)
	}
	v, _ := c.generations.LoadOrStore(entityType, new(atomic.Uint64))
	return v.(*atomic.Uint64)
}

func (c *ObjectCache) notify(inv Invalidation) {
	if n := c.notifier.Load(); n != nil {
		(*n).Notify(inv)
	}
}
