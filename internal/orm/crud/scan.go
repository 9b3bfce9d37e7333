package crud

import (
	"database/sql"
	"strings"

	"github.com/conduit-lang/daokit/internal/orm/convert"
	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// rowMapper assigns the columns of a result set to entity fields by column
// name. Columns that match no field are read and dropped.
type rowMapper struct {
	fields    []*schema.FieldDescriptor
	values    []interface{}
	valuePtrs []interface{}
	converter convert.Converter
}

func newRowMapper(rows *sql.Rows, e *schema.EntityDescriptor, converter convert.Converter) (*rowMapper, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	m := &rowMapper{
		fields:    make([]*schema.FieldDescriptor, len(columns)),
		values:    make([]interface{}, len(columns)),
		valuePtrs: make([]interface{}, len(columns)),
		converter: converter,
	}
	for i, col := range columns {
		m.fields[i] = fieldForColumn(e, col)
		m.valuePtrs[i] = &m.values[i]
	}
	return m, nil
}

// scan reads the current row into target, a pointer to an entity
func (m *rowMapper) scan(rows *sql.Rows, target any) error {
	if err := rows.Scan(m.valuePtrs...); err != nil {
		return err
	}
	for i, f := range m.fields {
		if f == nil {
			continue
		}
		v, err := m.converter.Convert(f, m.values[i])
		if err != nil {
			return err
		}
		if err := f.Set(target, v); err != nil {
			return err
		}
	}
	return nil
}

// fieldForColumn matches exactly first, then case-insensitively since some
// drivers fold identifiers
func fieldForColumn(e *schema.EntityDescriptor, column string) *schema.FieldDescriptor {
	if f, ok := e.FieldByColumn(column); ok {
		return f
	}
	for _, f := range e.Fields {
		if strings.EqualFold(f.Column, column) {
			return f
		}
	}
	return nil
}

// scanEntities maps every remaining row to a new entity, stopping after
// limit rows when limit is positive
func scanEntities(rows *sql.Rows, e *schema.EntityDescriptor, converter convert.Converter, limit int) ([]any, error) {
	m, err := newRowMapper(rows, e, converter)
	if err != nil {
		return nil, err
	}

	var results []any
	for rows.Next() {
		entity := e.New()
		if err := m.scan(rows, entity); err != nil {
			return nil, err
		}
		results = append(results, entity)
		if limit > 0 && len(results) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
