package crud

import (
	"context"

	"github.com/conduit-lang/daokit/internal/orm/cache"
	"github.com/conduit-lang/daokit/internal/orm/query"
)

// Delete removes the row with entity's key and returns the number of rows
// deleted. The cached instance for that key is evicted before the statement
// runs and invalidated, peers included, once it has.
func (d *DAO) Delete(ctx context.Context, entity any) (int64, error) {
	e, err := d.entityOf(entity)
	if err != nil {
		return 0, err
	}
	stmt, err := d.sql.Delete(e, entity)
	if err != nil {
		return 0, err
	}

	conn, err := d.open(ctx, e)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	keys := e.KeyValues(entity)
	d.evict(e, keys)

	result, err := conn.ExecContext(ctx, stmt.SQL, stmt.Args...)
	d.invalidate(e, keys)
	if err != nil {
		d.logEntityFailure("delete failed", e, entity, err)
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteWhere removes every row matching c's predicates. Which cached
// instances are affected is unknown, so the entity's whole cache partition
// is dropped.
func DeleteWhere[T any](ctx context.Context, d *DAO, c *query.Criteria[T]) (int64, error) {
	f, err := filterOf(c)
	if err != nil {
		return 0, err
	}
	stmt, err := d.sql.DeleteWhere(f)
	if err != nil {
		return 0, err
	}

	conn, err := d.open(ctx, f.Entity)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if d.cacheable(f.Entity) {
		d.cache.Apply(cache.Invalidation{EntityType: f.Entity.QualifiedName(), All: true})
	}

	result, err := conn.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if d.cacheable(f.Entity) {
		d.cache.InvalidateAll(f.Entity.QualifiedName())
	}
	if err != nil {
		d.logStatementFailure("delete failed", stmt, err)
		return 0, err
	}
	return result.RowsAffected()
}
