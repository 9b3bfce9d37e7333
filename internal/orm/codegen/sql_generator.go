package codegen

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/conduit-lang/daokit/internal/orm/query"
	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// SQLGenerator renders DML statements for one dialect
type SQLGenerator struct {
	dialect Dialect
}

// NewSQLGenerator creates a new SQL generator for the dialect
func NewSQLGenerator(d Dialect) *SQLGenerator {
	return &SQLGenerator{dialect: d}
}

// Dialect returns the generator's dialect
func (g *SQLGenerator) Dialect() Dialect {
	return g.dialect
}

// SelectByKey renders a select of the row matching entity's key
func (g *SQLGenerator) SelectByKey(e *schema.EntityDescriptor, entity any) (Statement, error) {
	return g.SelectByKeyValues(e, e.KeyValues(entity))
}

// SelectByKeyValues renders a select of the row with the given key tuple
func (g *SQLGenerator) SelectByKeyValues(e *schema.EntityDescriptor, keys []any) (Statement, error) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(e.Table)

	args, err := g.writeKeyClause(&b, e, keys)
	if err != nil {
		return Statement{}, err
	}
	return g.finish(b.String(), args), nil
}

// Insert renders an INSERT of every non-serial field.
// On PostgreSQL the serial column is returned with RETURNING.
func (g *SQLGenerator) Insert(e *schema.EntityDescriptor, entity any) (Statement, error) {
	var columns []string
	var args []any
	for _, f := range e.Fields {
		if f.Serial {
			continue
		}
		if err := checkColumn(e, f); err != nil {
			return Statement{}, err
		}
		columns = append(columns, f.Column)
		args = append(args, g.bindValue(f, f.Get(entity)))
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(e.Table)
	switch {
	case len(columns) > 0:
		b.WriteString(" (")
		b.WriteString(strings.Join(columns, ", "))
		b.WriteString(") VALUES (")
		b.WriteString(placeholders(len(columns)))
		b.WriteString(")")
	case g.dialect == MySQL:
		b.WriteString(" () VALUES ()")
	default:
		b.WriteString(" DEFAULT VALUES")
	}

	if serial := e.SerialField(); serial != nil && g.dialect == PostgreSQL {
		b.WriteString(" RETURNING ")
		b.WriteString(serial.Column)
	}

	return g.finish(b.String(), args), nil
}

// Update renders an UPDATE of every field not named in excluded, keyed on the
// entity's primary key. Binds are the assigned values then the key values.
func (g *SQLGenerator) Update(e *schema.EntityDescriptor, entity any, excluded ...string) (Statement, error) {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		if _, ok := e.Field(name); !ok {
			return Statement{}, fmt.Errorf("%w: %s.%s", schema.ErrUnknownField, e.Name, name)
		}
		skip[name] = true
	}

	var assignments []string
	var args []any
	for _, f := range e.Fields {
		if skip[f.Name] {
			continue
		}
		if err := checkColumn(e, f); err != nil {
			return Statement{}, err
		}
		assignments = append(assignments, f.Column+" = ?")
		args = append(args, g.bindValue(f, f.Get(entity)))
	}
	if len(assignments) == 0 {
		return Statement{}, fmt.Errorf("%w: nothing to update on %s", ErrMissingMetadata, e.Name)
	}

	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(e.Table)
	b.WriteString(" SET ")
	b.WriteString(strings.Join(assignments, ", "))

	keyArgs, err := g.writeKeyClause(&b, e, e.KeyValues(entity))
	if err != nil {
		return Statement{}, err
	}
	return g.finish(b.String(), append(args, keyArgs...)), nil
}

// Delete renders a DELETE of the row matching entity's key
func (g *SQLGenerator) Delete(e *schema.EntityDescriptor, entity any) (Statement, error) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(e.Table)

	args, err := g.writeKeyClause(&b, e, e.KeyValues(entity))
	if err != nil {
		return Statement{}, err
	}
	return g.finish(b.String(), args), nil
}

// SelectWhere renders a select filtered, grouped, ordered and limited by f
func (g *SQLGenerator) SelectWhere(f *query.Filter) (Statement, error) {
	if err := checkFilter(f); err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if len(f.Distinct) > 0 {
		columns, err := columnsOf(f.Entity, f.Distinct)
		if err != nil {
			return Statement{}, err
		}
		b.WriteString("DISTINCT ")
		b.WriteString(strings.Join(columns, ", "))
	} else {
		b.WriteString("*")
	}
	b.WriteString(" FROM ")
	b.WriteString(f.Entity.Table)

	args, err := g.writeWhere(&b, f)
	if err != nil {
		return Statement{}, err
	}

	if len(f.GroupBy) > 0 {
		columns, err := columnsOf(f.Entity, f.GroupBy)
		if err != nil {
			return Statement{}, err
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(columns, ", "))
	}

	if len(f.OrderBy) > 0 {
		terms := make([]string, 0, len(f.OrderBy))
		for _, o := range f.OrderBy {
			if err := checkColumn(f.Entity, o.Field); err != nil {
				return Statement{}, err
			}
			term := o.Field.Column
			if o.Explicit {
				term += " " + o.Direction.String()
			}
			terms = append(terms, term)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	if f.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", f.Limit))
	}

	return g.finish(b.String(), args), nil
}

// DeleteWhere renders a delete of every row matching f's predicates
func (g *SQLGenerator) DeleteWhere(f *query.Filter) (Statement, error) {
	if err := checkFilter(f); err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(f.Entity.Table)

	args, err := g.writeWhere(&b, f)
	if err != nil {
		return Statement{}, err
	}
	return g.finish(b.String(), args), nil
}

// CountWhere renders a count of the rows matching f's predicates
func (g *SQLGenerator) CountWhere(f *query.Filter) (Statement, error) {
	if err := checkFilter(f); err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(f.Entity.Table)

	args, err := g.writeWhere(&b, f)
	if err != nil {
		return Statement{}, err
	}
	return g.finish(b.String(), args), nil
}

func (g *SQLGenerator) writeKeyClause(b *strings.Builder, e *schema.EntityDescriptor, keys []any) ([]any, error) {
	if len(e.PrimaryKeys) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, e.Name)
	}
	if len(keys) != len(e.PrimaryKeys) {
		return nil, fmt.Errorf("%s takes %d key values, got %d", e.Name, len(e.PrimaryKeys), len(keys))
	}

	b.WriteString(" WHERE 1=1")
	args := make([]any, 0, len(keys))
	for i, pk := range e.PrimaryKeys {
		if err := checkColumn(e, pk); err != nil {
			return nil, err
		}
		b.WriteString(" AND ")
		b.WriteString(pk.Column)
		b.WriteString(" = ?")
		args = append(args, g.bindValue(pk, keys[i]))
	}
	return args, nil
}

func (g *SQLGenerator) writeWhere(b *strings.Builder, f *query.Filter) ([]any, error) {
	b.WriteString(" WHERE 1=1")
	args := make([]any, 0, f.Arity())
	for _, p := range f.Predicates {
		if err := checkColumn(f.Entity, p.Field); err != nil {
			return nil, err
		}
		b.WriteString(" ")
		b.WriteString(p.Connector.String())
		b.WriteString(" ")
		b.WriteString(renderPredicate(p))
		for _, v := range p.Values {
			args = append(args, g.bindValue(p.Field, v))
		}
	}
	return args, nil
}

// renderPredicate renders one condition with one placeholder per bound value
func renderPredicate(p *query.Predicate) string {
	column := p.Field.Column
	switch p.Operator {
	case query.OpIsNull, query.OpIsNotNull:
		return fmt.Sprintf("%s %s", column, p.Operator)
	case query.OpBetween:
		return fmt.Sprintf("%s BETWEEN ? AND ?", column)
	case query.OpIn:
		if len(p.Values) == 0 {
			return "1=0"
		}
		return fmt.Sprintf("%s IN (%s)", column, placeholders(len(p.Values)))
	case query.OpNotIn:
		if len(p.Values) == 0 {
			return "1=1"
		}
		return fmt.Sprintf("%s NOT IN (%s)", column, placeholders(len(p.Values)))
	default:
		return fmt.Sprintf("%s %s ?", column, p.Operator)
	}
}

// bindValue prepares a field value for binding: nil becomes a NULL typed by
// the field, and booleans become 0/1 where the dialect has no native boolean
// binding.
func (g *SQLGenerator) bindValue(f *schema.FieldDescriptor, v any) any {
	if v == nil {
		return NullOf(f.Type)
	}
	if b, ok := v.(bool); ok && g.dialect != PostgreSQL {
		if b {
			return 1
		}
		return 0
	}
	return v
}

// NullOf returns the typed SQL NULL for a declared field type
func NullOf(t schema.FieldType) any {
	switch t {
	case schema.TypeText, schema.TypeUUID:
		return sql.NullString{}
	case schema.TypeDate:
		return sql.NullTime{}
	case schema.TypeDouble, schema.TypeFloat:
		return sql.NullFloat64{}
	case schema.TypeBool:
		return sql.NullBool{}
	default:
		return sql.NullInt64{}
	}
}

func (g *SQLGenerator) finish(text string, args []any) Statement {
	if args == nil {
		args = []any{}
	}
	return Statement{SQL: Rebind(g.dialect, text), Args: args}
}

func checkFilter(f *query.Filter) error {
	if f == nil {
		return fmt.Errorf("%w: nil criteria", ErrMissingMetadata)
	}
	if f.Err != nil {
		return f.Err
	}
	if f.Entity == nil {
		return fmt.Errorf("%w: criteria has no entity", schema.ErrNotAnEntity)
	}
	return nil
}

func checkColumn(e *schema.EntityDescriptor, f *schema.FieldDescriptor) error {
	if f == nil {
		return fmt.Errorf("%w: %s has a nil field", ErrMissingMetadata, e.Name)
	}
	if f.Column == "" {
		return fmt.Errorf("%w: %s.%s has no column", ErrMissingMetadata, e.Name, f.Name)
	}
	return nil
}

func columnsOf(e *schema.EntityDescriptor, fields []*schema.FieldDescriptor) ([]string, error) {
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		if err := checkColumn(e, f); err != nil {
			return nil, err
		}
		columns = append(columns, f.Column)
	}
	return columns, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
