// Package cache provides the identity cache of loaded entities and the
// Redis bus that carries invalidations between processes.
package cache

// Invalidation describes the removal of one cache key, or of a whole
// entity partition when All is set
type Invalidation struct {
	// Origin identifies the publishing process
	Origin     string `msgpack:"o"`
	EntityType string `msgpack:"t"`
	Key        string `msgpack:"k,omitempty"`
	All        bool   `msgpack:"a,omitempty"`
}

// Notifier is told about every local invalidation
type Notifier interface {
	Notify(inv Invalidation)
}

// Stats holds cache counters
type Stats struct {
	Hits          int64
	Misses        int64
	Puts          int64
	Invalidations int64
}
