package relationships

import (
	"context"
	"fmt"
	"reflect"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// Follower attaches the targets of foreign key fields to their owners
type Follower struct {
	registry *schema.Registry
	loader   Loader
}

// NewFollower creates a follower resolving targets through registry and
// fetching them with loader
func NewFollower(registry *schema.Registry, loader Loader) *Follower {
	if registry == nil {
		registry = schema.DefaultRegistry
	}
	return &Follower{registry: registry, loader: loader}
}

// Expands reports whether owner declares any foreign key that can be followed
func Expands(owner *schema.EntityDescriptor) bool {
	for _, f := range owner.Fields {
		if f.CanAttach() {
			return true
		}
	}
	return false
}

// Follow loads the target of every foreign key field of entity and hands it
// to the field's attach function. A zero key value or a missing target
// leaves the field unattached.
func (fw *Follower) Follow(ctx context.Context, owner *schema.EntityDescriptor, entity any) error {
	for _, f := range owner.Fields {
		if !f.CanAttach() {
			continue
		}
		if err := fw.follow(ctx, owner, f, entity); err != nil {
			return err
		}
	}
	return nil
}

// FollowAll runs Follow over every entity, stopping at the first error
func (fw *Follower) FollowAll(ctx context.Context, owner *schema.EntityDescriptor, entities []any) error {
	if !Expands(owner) {
		return nil
	}
	for _, entity := range entities {
		if err := fw.Follow(ctx, owner, entity); err != nil {
			return err
		}
	}
	return nil
}

func (fw *Follower) follow(ctx context.Context, owner *schema.EntityDescriptor, f *schema.FieldDescriptor, entity any) error {
	if fw.loader == nil {
		return ErrNoLoader
	}

	value := f.Get(entity)
	if isZero(value) {
		return nil
	}

	target, err := fw.registry.Resolve(f.ForeignKey)
	if err != nil {
		return fmt.Errorf("following %s.%s: %w", owner.Name, f.Name, err)
	}
	if len(target.PrimaryKeys) != 1 {
		return fmt.Errorf("%w: %s.%s references %s", ErrCompositeTarget, owner.Name, f.Name, target.Name)
	}

	loaded, err := fw.loader.LoadByKey(ctx, target, []any{value})
	if err != nil {
		return fmt.Errorf("following %s.%s: %w", owner.Name, f.Name, err)
	}
	if loaded == nil {
		return nil
	}
	f.Attach(entity, loaded)
	return nil
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
