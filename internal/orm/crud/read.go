package crud

import (
	"context"
	"fmt"

	"github.com/conduit-lang/daokit/internal/orm/cache"
	"github.com/conduit-lang/daokit/internal/orm/codegen"
	"github.com/conduit-lang/daokit/internal/orm/query"
	"github.com/conduit-lang/daokit/internal/orm/relationships"
	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// Load returns the T identified by keys, given in key declaration order.
// Cacheable entities are served from the object cache when present; a miss
// queries the database, follows foreign keys and caches the result.
// It returns nil, nil when no row matches.
func Load[T any](ctx context.Context, d *DAO, keys ...any) (*T, error) {
	e, err := entityFor[T](d)
	if err != nil {
		return nil, err
	}
	v, err := d.load(ctx, e, keys, true)
	if err != nil || v == nil {
		return nil, err
	}
	return as[T](v)
}

// Get fills entity from the row matching its own key values and follows its
// foreign keys. It reports false, leaving entity untouched, when no row matches.
func (d *DAO) Get(ctx context.Context, entity any) (bool, error) {
	e, err := d.entityOf(entity)
	if err != nil {
		return false, err
	}
	stmt, err := d.sql.SelectByKey(e, entity)
	if err != nil {
		return false, err
	}

	found, err := d.fill(ctx, e, stmt, entity)
	if err != nil {
		d.logEntityFailure("get failed", e, entity, err)
		return false, err
	}
	if !found {
		return false, nil
	}

	if err := d.follower.Follow(ctx, e, entity); err != nil {
		d.logEntityFailure("following foreign keys failed", e, entity, err)
		return true, err
	}
	return true, nil
}

// Select returns every T matching c, with foreign keys followed
func Select[T any](ctx context.Context, d *DAO, c *query.Criteria[T]) ([]*T, error) {
	found, err := selectWhere(ctx, d, c, 0, true)
	if err != nil {
		return nil, err
	}
	return asSlice[T](found)
}

// SelectFirst returns the first T matching c, or nil when none does
func SelectFirst[T any](ctx context.Context, d *DAO, c *query.Criteria[T]) (*T, error) {
	found, err := selectWhere(ctx, d, c, 1, true)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return as[T](found[0])
}

// Exists reports whether any row matches c
func Exists[T any](ctx context.Context, d *DAO, c *query.Criteria[T]) (bool, error) {
	found, err := selectWhere(ctx, d, c, 1, false)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// Count returns the number of rows matching c's predicates
func Count[T any](ctx context.Context, d *DAO, c *query.Criteria[T]) (int64, error) {
	f, err := filterOf(c)
	if err != nil {
		return 0, err
	}
	stmt, err := d.sql.CountWhere(f)
	if err != nil {
		return 0, err
	}

	conn, err := d.open(ctx, f.Entity)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	var n int64
	if err := conn.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&n); err != nil {
		d.logStatementFailure("count failed", stmt, err)
		return 0, err
	}
	return n, nil
}

// Each streams the rows matching c to fn and returns how many it handled.
// The connection stays open while fn runs, so foreign keys are not followed
// and fn must not wait on another operation of a single-connection pool.
// Iteration stops at the first error returned by fn.
func Each[T any](ctx context.Context, d *DAO, c *query.Criteria[T], fn func(*T) error) (int, error) {
	f, err := filterOf(c)
	if err != nil {
		return 0, err
	}
	stmt, err := d.sql.SelectWhere(f)
	if err != nil {
		return 0, err
	}

	conn, err := d.open(ctx, f.Entity)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		d.logStatementFailure("select failed", stmt, err)
		return 0, err
	}
	defer rows.Close()

	m, err := newRowMapper(rows, f.Entity, d.converter)
	if err != nil {
		return 0, err
	}

	n := 0
	for rows.Next() {
		entity := f.Entity.New()
		if err := m.scan(rows, entity); err != nil {
			d.logStatementFailure("reading row failed", stmt, err)
			return n, err
		}
		t, err := as[T](entity)
		if err != nil {
			return n, err
		}
		if err := fn(t); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		d.logStatementFailure("reading rows failed", stmt, err)
		return n, err
	}
	return n, nil
}

func selectWhere[T any](ctx context.Context, d *DAO, c *query.Criteria[T], limit int, expand bool) ([]any, error) {
	f, err := filterOf(c)
	if err != nil {
		return nil, err
	}
	stmt, err := d.sql.SelectWhere(f)
	if err != nil {
		return nil, err
	}

	found, err := d.queryEntities(ctx, f.Entity, stmt, limit)
	if err != nil {
		return nil, err
	}
	if expand {
		if err := d.follower.FollowAll(ctx, f.Entity, found); err != nil {
			d.logStatementFailure("following foreign keys failed", stmt, err)
			return nil, err
		}
	}
	return found, nil
}

// load is the keyed read path shared by Load and foreign key expansion.
// Concurrent misses on the same key share one query. A row read before an
// invalidation of its type is returned but never cached. Only fully expanded
// instances are cached, so a shallow load of an entity with foreign keys
// reads the cache but does not fill it.
func (d *DAO) load(ctx context.Context, e *schema.EntityDescriptor, keys []any, expand bool) (any, error) {
	if d.ds == nil {
		return nil, ErrDatasourceNotConfigured
	}
	stmt, err := d.sql.SelectByKeyValues(e, keys)
	if err != nil {
		return nil, err
	}

	key := cache.Key(keys)
	var gen uint64
	if d.cacheable(e) {
		gen = d.cache.Generation(e.QualifiedName())
		if v, ok := d.cache.Get(e.QualifiedName(), key); ok {
			return v, nil
		}
	}

	// the generation keeps loads started after an invalidation out of
	// flights that may have read the previous row
	flight := fmt.Sprintf("%s|%s|%t|%d", e.QualifiedName(), key, expand, gen)
	v, err, _ := d.loads.Do(flight, func() (any, error) {
		found, err := d.queryEntities(ctx, e, stmt, 1)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, nil
		}

		entity := found[0]
		if expand {
			if err := d.follower.Follow(ctx, e, entity); err != nil {
				d.logEntityFailure("following foreign keys failed", e, entity, err)
				return nil, err
			}
		}
		if d.cacheable(e) && (expand || !relationships.Expands(e)) {
			d.cache.PutIfCurrent(e.QualifiedName(), key, entity, gen)
		}
		return entity, nil
	})
	return v, err
}

// loadTarget loads a foreign key target without expanding it further
func (d *DAO) loadTarget(ctx context.Context, e *schema.EntityDescriptor, keys []any) (any, error) {
	return d.load(ctx, e, keys, false)
}

// queryEntities runs stmt and scans up to limit entities; the connection is
// released before returning
func (d *DAO) queryEntities(ctx context.Context, e *schema.EntityDescriptor, stmt codegen.Statement, limit int) ([]any, error) {
	conn, err := d.open(ctx, e)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		d.logStatementFailure("select failed", stmt, err)
		return nil, err
	}
	defer rows.Close()

	found, err := scanEntities(rows, e, d.converter, limit)
	if err != nil {
		d.logStatementFailure("reading rows failed", stmt, err)
		return nil, err
	}
	return found, nil
}

// fill scans the first row of stmt into entity
func (d *DAO) fill(ctx context.Context, e *schema.EntityDescriptor, stmt codegen.Statement, entity any) (bool, error) {
	conn, err := d.open(ctx, e)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return false, rows.Err()
	}
	m, err := newRowMapper(rows, e, d.converter)
	if err != nil {
		return false, err
	}
	if err := m.scan(rows, entity); err != nil {
		return false, err
	}
	return true, nil
}

func as[T any](v any) (*T, error) {
	t, ok := v.(*T)
	if !ok {
		return nil, fmt.Errorf("%w: factory built %T, want %T", schema.ErrInvalidMapping, v, t)
	}
	return t, nil
}

func asSlice[T any](values []any) ([]*T, error) {
	results := make([]*T, 0, len(values))
	for _, v := range values {
		t, err := as[T](v)
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, nil
}
