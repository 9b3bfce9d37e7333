// Package relationships expands foreign key fields of loaded entities into
// the target instances they reference. Expansion is a single hop: targets
// are attached as loaded and their own foreign keys are left alone.
package relationships

import (
	"context"
	"errors"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

var (
	// ErrCompositeTarget is returned when a foreign key references an entity
	// whose key has more than one column
	ErrCompositeTarget = errors.New("foreign key target has a composite key")

	// ErrNoLoader is returned when a follower has nothing to load targets with
	ErrNoLoader = errors.New("no target loader configured")
)

// Loader loads one entity by its key tuple; it returns nil, nil on a miss
type Loader interface {
	LoadByKey(ctx context.Context, entity *schema.EntityDescriptor, keys []any) (any, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ctx context.Context, entity *schema.EntityDescriptor, keys []any) (any, error)

// LoadByKey calls f(ctx, entity, keys)
func (f LoaderFunc) LoadByKey(ctx context.Context, entity *schema.EntityDescriptor, keys []any) (any, error) {
	return f(ctx, entity, keys)
}
