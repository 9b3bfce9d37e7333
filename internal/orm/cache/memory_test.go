package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	seen []Invalidation
}

func (r *recordingNotifier) Notify(inv Invalidation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, inv)
}

func TestObjectCache_PutAndGet(t *testing.T) {
	cache := NewObjectCache()

	_, ok := cache.Get("Person", "[1]")
	assert.False(t, ok)

	cache.Put("Person", "[1]", "ann")
	v, ok := cache.Get("Person", "[1]")
	require.True(t, ok)
	assert.Equal(t, "ann", v)

	cache.Put("Person", "[1]", "bob")
	v, _ = cache.Get("Person", "[1]")
	assert.Equal(t, "bob", v)

	_, ok = cache.Get("Order", "[1]")
	assert.False(t, ok, "partitions are independent")

	assert.Equal(t, Stats{Hits: 2, Misses: 2, Puts: 2}, cache.Stats())
}

func TestObjectCache_Invalidate(t *testing.T) {
	cache := NewObjectCache()
	cache.Put("Person", "[1]", "ann")
	cache.Put("Person", "[2]", "bob")
	cache.Put("Order", "[1]", "o1")

	cache.Invalidate("Person", "[1]")
	_, ok := cache.Get("Person", "[1]")
	assert.False(t, ok)
	_, ok = cache.Get("Person", "[2]")
	assert.True(t, ok)

	cache.InvalidateAll("Person")
	assert.Equal(t, 0, cache.Len("Person"))
	assert.Equal(t, 1, cache.Len("Order"))

	// invalidating an unknown partition is a no-op
	cache.Invalidate("Nope", "[1]")
	cache.InvalidateAll("Nope")
	assert.Equal(t, int64(4), cache.Stats().Invalidations)
}

func TestObjectCache_PutIfCurrent(t *testing.T) {
	cache := NewObjectCache()

	gen := cache.Generation("Person")
	assert.True(t, cache.PutIfCurrent("Person", "[1]", "ann", gen))
	v, ok := cache.Get("Person", "[1]")
	require.True(t, ok)
	assert.Equal(t, "ann", v)

	// a reader that started before an invalidation must not publish its row
	stale := cache.Generation("Person")
	cache.Invalidate("Person", "[1]")
	assert.False(t, cache.PutIfCurrent("Person", "[1]", "ann (old)", stale))
	_, ok = cache.Get("Person", "[1]")
	assert.False(t, ok)

	stale = cache.Generation("Person")
	cache.InvalidateAll("Person")
	assert.False(t, cache.PutIfCurrent("Person", "[2]", "bob", stale))
	assert.Equal(t, 0, cache.Len("Person"))

	// remote invalidations advance the generation too
	stale = cache.Generation("Person")
	cache.Apply(Invalidation{EntityType: "Person", Key: "[9]"})
	assert.NotEqual(t, stale, cache.Generation("Person"))

	// other types are unaffected
	assert.True(t, cache.PutIfCurrent("Order", "[1]", "o1", cache.Generation("Order")))
}

func TestObjectCache_Notifier(t *testing.T) {
	cache := NewObjectCache()
	notifier := &recordingNotifier{}
	cache.SetNotifier(notifier)

	cache.Invalidate("Person", "[1]")
	cache.InvalidateAll("Order")
	cache.Apply(Invalidation{EntityType: "Person", Key: "[2]"})

	assert.Equal(t, []Invalidation{
		{EntityType: "Person", Key: "[1]"},
		{EntityType: "Order", All: true},
	}, notifier.seen)

	cache.SetNotifier(nil)
	cache.Invalidate("Person", "[3]")
	assert.Len(t, notifier.seen, 2)
}

func TestObjectCache_ConcurrentPartitions(t *testing.T) {
	cache := NewObjectCache()

	const types, keys = 8, 200
	var wg sync.WaitGroup
	for i := 0; i < types; i++ {
		for j := 0; j < keys; j++ {
			wg.Add(1)
			go func(i, j int) {
				defer wg.Done()
				cache.Put(fmt.Sprintf("T%d", i), fmt.Sprintf("[%d]", j), j)
			}(i, j)
		}
	}
	wg.Wait()

	for i := 0; i < types; i++ {
		assert.Equal(t, keys, cache.Len(fmt.Sprintf("T%d", i)))
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		values   []any
		expected string
	}{
		{"nil tuple", nil, "null"},
		{"empty tuple", []any{}, "[]"},
		{"single", []any{int64(1)}, "[1]"},
		{"composite", []any{"eu", 7}, "[eu,7]"},
		{"nil member", []any{nil, 2}, "[<nil>,2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Key(tt.values))
		})
	}

	assert.Equal(t, Key([]any{1}), Key([]any{int64(1)}), "numeric width does not change identity")
}
