package crud

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/spf13/cast"
)

// ScalarType lists the Go types a single-column result can be read as
type ScalarType interface {
	~int | ~int16 | ~int32 | ~int64 | ~float32 | ~float64 | ~bool | ~string
}

// Query runs a native statement and maps its rows into T by column name.
// Placeholders are passed to the driver unchanged and foreign keys are not
// followed.
func Query[T any](ctx context.Context, d *DAO, sqlText string, args ...any) ([]*T, error) {
	found, err := queryRaw[T](ctx, d, sqlText, args, 0)
	if err != nil {
		return nil, err
	}
	return asSlice[T](found)
}

// QueryFirst is Query limited to the first row; nil when there is none
func QueryFirst[T any](ctx context.Context, d *DAO, sqlText string, args ...any) (*T, error) {
	found, err := queryRaw[T](ctx, d, sqlText, args, 1)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return as[T](found[0])
}

// EachQuery streams the rows of a native statement to fn as T, mapped by
// column name, and returns how many it handled. Like Each, foreign keys are
// not followed and iteration stops at the first error returned by fn.
func EachQuery[T any](ctx context.Context, d *DAO, fn func(*T) error, sqlText string, args ...any) (int, error) {
	e, err := entityFor[T](d)
	if err != nil {
		return 0, err
	}

	conn, err := d.open(ctx, e)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		d.logger.Error("native query failed", rawFields(sqlText, args, err)...)
		return 0, err
	}
	defer rows.Close()

	m, err := newRowMapper(rows, e, d.converter)
	if err != nil {
		return 0, err
	}

	n := 0
	for rows.Next() {
		entity := e.New()
		if err := m.scan(rows, entity); err != nil {
			d.logger.Error("reading row failed", rawFields(sqlText, args, err)...)
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
		d.logger.Error("reading rows failed", rawFields(sqlText, args, err)...)
		return n, err
	}
	return n, nil
}

// Scalar returns the first column of the first row as N. A NULL reads as the
// zero value; no row at all is ErrNotFound.
func Scalar[N ScalarType](ctx context.Context, d *DAO, sqlText string, args ...any) (N, error) {
	var zero N
	conn, err := d.conn(ctx)
	if err != nil {
		return zero, err
	}
	defer conn.Close()

	var raw any
	if err := conn.QueryRowContext(ctx, sqlText, args...).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, sqlText)
		}
		d.logger.Error("scalar query failed", rawFields(sqlText, args, err)...)
		return zero, err
	}
	return castTo[N](raw)
}

// Scalars returns the first column of every row as N; NULLs read as zero
func Scalars[N ScalarType](ctx context.Context, d *DAO, sqlText string, args ...any) ([]N, error) {
	conn, err := d.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		d.logger.Error("scalar query failed", rawFields(sqlText, args, err)...)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	results := []N{}
	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		var raw any
		if len(values) > 0 {
			raw = values[0]
		}
		v, err := castTo[N](raw)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func queryRaw[T any](ctx context.Context, d *DAO, sqlText string, args []any, limit int) ([]any, error) {
	e, err := entityFor[T](d)
	if err != nil {
		return nil, err
	}

	conn, err := d.open(ctx, e)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		d.logger.Error("native query failed", rawFields(sqlText, args, err)...)
		return nil, err
	}
	defer rows.Close()

	found, err := scanEntities(rows, e, d.converter, limit)
	if err != nil {
		d.logger.Error("reading rows failed", rawFields(sqlText, args, err)...)
		return nil, err
	}
	return found, nil
}

// castTo coerces a raw column value into N
func castTo[N ScalarType](raw any) (N, error) {
	var zero N
	if raw == nil {
		return zero, nil
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	target := reflect.TypeOf(zero)
	var (
		v   any
		err error
	)
	switch target.Kind() {
	case reflect.Int:
		v, err = cast.ToIntE(raw)
	case reflect.Int16:
		v, err = cast.ToInt16E(raw)
	case reflect.Int32:
		v, err = cast.ToInt32E(raw)
	case reflect.Int64:
		v, err = cast.ToInt64E(raw)
	case reflect.Float32:
		v, err = cast.ToFloat32E(raw)
	case reflect.Float64:
		v, err = cast.ToFloat64E(raw)
	case reflect.Bool:
		v, err = cast.ToBoolE(raw)
	default:
		v, err = cast.ToStringE(raw)
	}
	if err != nil {
		return zero, fmt.Errorf("reading %T as %s: %w", raw, target, err)
	}
	return reflect.ValueOf(v).Convert(target).Interface().(N), nil
}
