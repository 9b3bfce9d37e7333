package relationships_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/daokit/internal/orm/ormtest"
	"github.com/conduit-lang/daokit/internal/orm/relationships"
	"github.com/conduit-lang/daokit/internal/orm/schema"
)

type page struct {
	ID      int64
	DocCode string
	Doc     *ormtest.Document
}

func (page) Mapping() *schema.Mapping {
	return schema.Map[page](
		schema.Column("id", func(p *page) *int64 { return &p.ID }, schema.PK()),
		schema.Column("docCode", func(p *page) *string { return &p.DocCode },
			schema.References(func(p *page, d *ormtest.Document) { p.Doc = d })),
	)
}

type recordingLoader struct {
	calls   [][]any
	targets map[int64]*ormtest.Person
	err     error
}

func (l *recordingLoader) LoadByKey(_ context.Context, entity *schema.EntityDescriptor, keys []any) (any, error) {
	l.calls = append(l.calls, keys)
	if l.err != nil {
		return nil, l.err
	}
	if entity.Name != "Person" {
		return nil, nil
	}
	p, ok := l.targets[keys[0].(int64)]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func resolve(t *testing.T, registry *schema.Registry, v any) *schema.EntityDescriptor {
	t.Helper()
	e, err := registry.ResolveOf(v)
	require.NoError(t, err)
	return e
}

func TestFollower_Follow(t *testing.T) {
	registry := schema.NewRegistry()
	orders := resolve(t, registry, ormtest.Order{})
	alice := &ormtest.Person{ID: 7, Name: "alice", Age: 30}

	t.Run("attaches loaded target", func(t *testing.T) {
		loader := &recordingLoader{targets: map[int64]*ormtest.Person{7: alice}}
		follower := relationships.NewFollower(registry, loader)

		order := &ormtest.Order{Region: "eu", Number: 1, CustomerID: 7}
		require.NoError(t, follower.Follow(context.Background(), orders, order))

		assert.Same(t, alice, order.Customer)
		require.Len(t, loader.calls, 1)
		assert.Equal(t, []any{int64(7)}, loader.calls[0])
	})

	t.Run("zero key is not followed", func(t *testing.T) {
		loader := &recordingLoader{}
		follower := relationships.NewFollower(registry, loader)

		order := &ormtest.Order{Region: "eu", Number: 2}
		require.NoError(t, follower.Follow(context.Background(), orders, order))

		assert.Nil(t, order.Customer)
		assert.Empty(t, loader.calls)
	})

	t.Run("missing target leaves owner unattached", func(t *testing.T) {
		loader := &recordingLoader{targets: map[int64]*ormtest.Person{}}
		follower := relationships.NewFollower(registry, loader)

		order := &ormtest.Order{Region: "eu", Number: 3, CustomerID: 99}
		require.NoError(t, follower.Follow(context.Background(), orders, order))

		assert.Nil(t, order.Customer)
		assert.Len(t, loader.calls, 1)
	})

	t.Run("loader failure is wrapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		follower := relationships.NewFollower(registry, &recordingLoader{err: boom})

		err := follower.Follow(context.Background(), orders, &ormtest.Order{CustomerID: 7})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "Order.customerId")
	})

	t.Run("composite target", func(t *testing.T) {
		pages := resolve(t, registry, page{})
		follower := relationships.NewFollower(registry, &recordingLoader{})

		err := follower.Follow(context.Background(), pages, &page{ID: 1, DocCode: "readme"})
		assert.ErrorIs(t, err, relationships.ErrCompositeTarget)
	})

	t.Run("no loader", func(t *testing.T) {
		follower := relationships.NewFollower(registry, nil)
		err := follower.Follow(context.Background(), orders, &ormtest.Order{CustomerID: 7})
		assert.ErrorIs(t, err, relationships.ErrNoLoader)
	})
}

func TestFollower_FollowAll(t *testing.T) {
	registry := schema.NewRegistry()
	orders := resolve(t, registry, ormtest.Order{})
	people := resolve(t, registry, ormtest.Person{})

	alice := &ormtest.Person{ID: 1, Name: "alice"}
	bob := &ormtest.Person{ID: 2, Name: "bob"}
	loader := relationships.LoaderFunc(func(_ context.Context, _ *schema.EntityDescriptor, keys []any) (any, error) {
		switch keys[0] {
		case int64(1):
			return alice, nil
		case int64(2):
			return bob, nil
		}
		return nil, nil
	})
	follower := relationships.NewFollower(registry, loader)

	first := &ormtest.Order{Number: 1, CustomerID: 1}
	second := &ormtest.Order{Number: 2, CustomerID: 2}
	require.NoError(t, follower.FollowAll(context.Background(), orders, []any{first, second}))

	assert.Same(t, alice, first.Customer)
	assert.Same(t, bob, second.Customer)

	// entities without foreign keys never reach the loader
	assert.False(t, relationships.Expands(people))
	assert.True(t, relationships.Expands(orders))
	require.NoError(t, relationships.NewFollower(registry, nil).FollowAll(context.Background(), people, []any{alice}))
}
