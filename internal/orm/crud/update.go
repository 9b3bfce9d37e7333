package crud

import "context"

// Update writes every field of entity not named in exclude to the row with
// the entity's key and returns the number of rows affected. The cached
// instance for that key is evicted before the statement runs and invalidated,
// peers included, once it has.
func (d *DAO) Update(ctx context.Context, entity any, exclude ...string) (int64, error) {
	e, err := d.entityOf(entity)
	if err != nil {
		return 0, err
	}
	stmt, err := d.sql.Update(e, entity, exclude...)
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
		d.logEntityFailure("update failed", e, entity, err)
		return 0, err
	}
	return result.RowsAffected()
}

// Save updates entity and inserts it when no row was updated.
// It reports whether an insert happened.
func (d *DAO) Save(ctx context.Context, entity any) (bool, error) {
	n, err := d.Update(ctx, entity)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := d.Insert(ctx, entity); err != nil {
		return false, err
	}
	return true, nil
}
