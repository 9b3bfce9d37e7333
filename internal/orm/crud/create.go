package crud

import (
	"context"

	"github.com/conduit-lang/daokit/internal/orm/codegen"
	"github.com/conduit-lang/daokit/internal/orm/query"
	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// Insert writes entity as a new row and returns the number of rows inserted.
// When the entity has a serial key the generated value is written back into
// it: from LastInsertId on SQLite and MySQL, from RETURNING on PostgreSQL.
func (d *DAO) Insert(ctx context.Context, entity any) (int64, error) {
	e, err := d.entityOf(entity)
	if err != nil {
		return 0, err
	}
	stmt, err := d.sql.Insert(e, entity)
	if err != nil {
		return 0, err
	}

	conn, err := d.open(ctx, e)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	serial := e.SerialField()
	if serial != nil && d.dialect == codegen.PostgreSQL {
		var generated any
		if err := conn.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&generated); err != nil {
			d.logEntityFailure("insert failed", e, entity, err)
			return 0, err
		}
		if err := d.writeBack(e, serial, entity, generated); err != nil {
			return 0, err
		}
		return 1, nil
	}

	result, err := conn.ExecContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		d.logEntityFailure("insert failed", e, entity, err)
		return 0, err
	}
	if serial != nil {
		id, err := result.LastInsertId()
		if err != nil {
			d.logEntityFailure("reading generated key failed", e, entity, err)
			return 0, err
		}
		if err := d.writeBack(e, serial, entity, id); err != nil {
			return 0, err
		}
	}
	return result.RowsAffected()
}

// InsertIfNotExist inserts entity unless a row matching c already exists.
// It reports whether the entity was inserted.
func InsertIfNotExist[T any](ctx context.Context, d *DAO, entity *T, c *query.Criteria[T]) (bool, error) {
	if entity == nil {
		return false, ErrNilEntity
	}
	exists, err := Exists(ctx, d, c)
	if err != nil || exists {
		return false, err
	}
	if _, err := d.Insert(ctx, entity); err != nil {
		return false, err
	}
	return true, nil
}

func (d *DAO) writeBack(e *schema.EntityDescriptor, serial *schema.FieldDescriptor, entity, generated any) error {
	v, err := d.converter.Convert(serial, generated)
	if err != nil {
		d.logEntityFailure("reading generated key failed", e, entity, err)
		return err
	}
	return serial.Set(entity, v)
}
