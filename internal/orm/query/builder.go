package query

import (
	"fmt"
	"reflect"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// Unbounded disables the row limit
const Unbounded = -1

// Filter is the untyped content of a criteria, consumed by the SQL generators
type Filter struct {
	Entity     *schema.EntityDescriptor
	Predicates []*Predicate
	Distinct   []*schema.FieldDescriptor
	GroupBy    []*schema.FieldDescriptor
	OrderBy    []Ordering
	Limit      int
	Err        error
}

// Arity returns the total number of values bound by the predicates
func (f *Filter) Arity() int {
	n := 0
	for _, p := range f.Predicates {
		n += len(p.Values)
	}
	return n
}

// Criteria builds a filter over entity T.
// The first invalid call is kept as a sticky error; later calls are ignored
// and every consumer of the criteria fails with that error.
type Criteria[T any] struct {
	registry *schema.Registry
	sample   *T
	filter   Filter
}

// New creates an empty, unbounded criteria for T resolved through registry
func New[T any](registry *schema.Registry) *Criteria[T] {
	if registry == nil {
		registry = schema.DefaultRegistry
	}
	c := &Criteria[T]{
		registry: registry,
		filter:   Filter{Limit: Unbounded},
	}
	entity, err := registry.Resolve(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		c.filter.Err = err
		return c
	}
	c.filter.Entity = entity
	c.sample, _ = entity.New().(*T)
	return c
}

// Filter returns the accumulated filter
func (c *Criteria[T]) Filter() *Filter {
	return &c.filter
}

// Err returns the first error recorded while building
func (c *Criteria[T]) Err() error {
	return c.filter.Err
}

// Entity returns the descriptor of T, nil if T is not an entity
func (c *Criteria[T]) Entity() *schema.EntityDescriptor {
	return c.filter.Entity
}

// Sample returns a zero instance of T
func (c *Criteria[T]) Sample() *T {
	return c.sample
}

// Clone creates a copy of the criteria that can be extended independently
func (c *Criteria[T]) Clone() *Criteria[T] {
	clone := &Criteria[T]{
		registry: c.registry,
		sample:   c.sample,
		filter:   c.filter,
	}
	clone.filter.Predicates = append([]*Predicate(nil), c.filter.Predicates...)
	clone.filter.Distinct = append([]*schema.FieldDescriptor(nil), c.filter.Distinct...)
	clone.filter.GroupBy = append([]*schema.FieldDescriptor(nil), c.filter.GroupBy...)
	clone.filter.OrderBy = append([]Ordering(nil), c.filter.OrderBy...)
	return clone
}

// AndEquals adds "AND field = value"
func (c *Criteria[T]) AndEquals(field string, value any) *Criteria[T] {
	return c.add(And, field, OpEquals, value)
}

// OrEquals adds "OR field = value"
func (c *Criteria[T]) OrEquals(field string, value any) *Criteria[T] {
	return c.add(Or, field, OpEquals, value)
}

// AndNotEquals adds "AND field <> value"
func (c *Criteria[T]) AndNotEquals(field string, value any) *Criteria[T] {
	return c.add(And, field, OpNotEquals, value)
}

// OrNotEquals adds "OR field <> value"
func (c *Criteria[T]) OrNotEquals(field string, value any) *Criteria[T] {
	return c.add(Or, field, OpNotEquals, value)
}

// AndGreaterThan adds "AND field > value"
func (c *Criteria[T]) AndGreaterThan(field string, value any) *Criteria[T] {
	return c.add(And, field, OpGreaterThan, value)
}

// OrGreaterThan adds "OR field > value"
func (c *Criteria[T]) OrGreaterThan(field string, value any) *Criteria[T] {
	return c.add(Or, field, OpGreaterThan, value)
}

// AndGreaterOrEqual adds "AND field >= value"
func (c *Criteria[T]) AndGreaterOrEqual(field string, value any) *Criteria[T] {
	return c.add(And, field, OpGreaterOrEqual, value)
}

// OrGreaterOrEqual adds "OR field >= value"
func (c *Criteria[T]) OrGreaterOrEqual(field string, value any) *Criteria[T] {
	return c.add(Or, field, OpGreaterOrEqual, value)
}

// AndLessThan adds "AND field < value"
func (c *Criteria[T]) AndLessThan(field string, value any) *Criteria[T] {
	return c.add(And, field, OpLessThan, value)
}

// OrLessThan adds "OR field < value"
func (c *Criteria[T]) OrLessThan(field string, value any) *Criteria[T] {
	return c.add(Or, field, OpLessThan, value)
}

// AndLessOrEqual adds "AND field <= value"
func (c *Criteria[T]) AndLessOrEqual(field string, value any) *Criteria[T] {
	return c.add(And, field, OpLessOrEqual, value)
}

// OrLessOrEqual adds "OR field <= value"
func (c *Criteria[T]) OrLessOrEqual(field string, value any) *Criteria[T] {
	return c.add(Or, field, OpLessOrEqual, value)
}

// AndLike adds "AND field LIKE pattern"
func (c *Criteria[T]) AndLike(field string, pattern string) *Criteria[T] {
	return c.add(And, field, OpLike, pattern)
}

// OrLike adds "OR field LIKE pattern"
func (c *Criteria[T]) OrLike(field string, pattern string) *Criteria[T] {
	return c.add(Or, field, OpLike, pattern)
}

// AndRightLike matches values starting with prefix
func (c *Criteria[T]) AndRightLike(field string, prefix string) *Criteria[T] {
	return c.add(And, field, OpLike, prefix+"%")
}

// OrRightLike matches values starting with prefix
func (c *Criteria[T]) OrRightLike(field string, prefix string) *Criteria[T] {
	return c.add(Or, field, OpLike, prefix+"%")
}

// AndNotLike adds "AND field NOT LIKE pattern"
func (c *Criteria[T]) AndNotLike(field string, pattern string) *Criteria[T] {
	return c.add(And, field, OpNotLike, pattern)
}

// OrNotLike adds "OR field NOT LIKE pattern"
func (c *Criteria[T]) OrNotLike(field string, pattern string) *Criteria[T] {
	return c.add(Or, field, OpNotLike, pattern)
}

// AndBetween adds "AND field BETWEEN low AND high"
func (c *Criteria[T]) AndBetween(field string, low, high any) *Criteria[T] {
	return c.add(And, field, OpBetween, low, high)
}

// OrBetween adds "OR field BETWEEN low AND high"
func (c *Criteria[T]) OrBetween(field string, low, high any) *Criteria[T] {
	return c.add(Or, field, OpBetween, low, high)
}

// AndIn adds "AND field IN (...)". A single slice argument is expanded;
// an empty list matches nothing.
func (c *Criteria[T]) AndIn(field string, values ...any) *Criteria[T] {
	return c.add(And, field, OpIn, flatten(values)...)
}

// OrIn adds "OR field IN (...)"
func (c *Criteria[T]) OrIn(field string, values ...any) *Criteria[T] {
	return c.add(Or, field, OpIn, flatten(values)...)
}

// AndNotIn adds "AND field NOT IN (...)". An empty list matches everything.
func (c *Criteria[T]) AndNotIn(field string, values ...any) *Criteria[T] {
	return c.add(And, field, OpNotIn, flatten(values)...)
}

// OrNotIn adds "OR field NOT IN (...)"
func (c *Criteria[T]) OrNotIn(field string, values ...any) *Criteria[T] {
	return c.add(Or, field, OpNotIn, flatten(values)...)
}

// AndIsNull adds "AND field IS NULL"
func (c *Criteria[T]) AndIsNull(field string) *Criteria[T] {
	return c.add(And, field, OpIsNull)
}

// OrIsNull adds "OR field IS NULL"
func (c *Criteria[T]) OrIsNull(field string) *Criteria[T] {
	return c.add(Or, field, OpIsNull)
}

// AndIsNotNull adds "AND field IS NOT NULL"
func (c *Criteria[T]) AndIsNotNull(field string) *Criteria[T] {
	return c.add(And, field, OpIsNotNull)
}

// OrIsNotNull adds "OR field IS NOT NULL"
func (c *Criteria[T]) OrIsNotNull(field string) *Criteria[T] {
	return c.add(Or, field, OpIsNotNull)
}

// Distinct selects only the distinct values of the given fields
func (c *Criteria[T]) Distinct(fields ...string) *Criteria[T] {
	resolved, ok := c.lookupAll(fields)
	if ok {
		c.filter.Distinct = append(c.filter.Distinct, resolved...)
	}
	return c
}

// GroupBy adds GROUP BY fields
func (c *Criteria[T]) GroupBy(fields ...string) *Criteria[T] {
	resolved, ok := c.lookupAll(fields)
	if ok {
		c.filter.GroupBy = append(c.filter.GroupBy, resolved...)
	}
	return c
}

// OrderBy adds ORDER BY terms, each "field" or "field ASC|DESC"
func (c *Criteria[T]) OrderBy(terms ...string) *Criteria[T] {
	if c.filter.Err != nil {
		return c
	}
	orderings := make([]Ordering, 0, len(terms))
	for _, term := range terms {
		name, dir, explicit, err := parseOrdering(term)
		if err != nil {
			c.filter.Err = err
			return c
		}
		f, err := c.lookup(name)
		if err != nil {
			c.filter.Err = err
			return c
		}
		orderings = append(orderings, Ordering{Field: f, Direction: dir, Explicit: explicit})
	}
	c.filter.OrderBy = append(c.filter.OrderBy, orderings...)
	return c
}

// Limit caps the number of returned rows; a negative value removes the cap
func (c *Criteria[T]) Limit(rows int) *Criteria[T] {
	if rows < 0 {
		rows = Unbounded
	}
	c.filter.Limit = rows
	return c
}

func (c *Criteria[T]) add(conn Connector, field string, op Operator, values ...any) *Criteria[T] {
	if c.filter.Err != nil {
		return c
	}
	f, err := c.lookup(field)
	if err != nil {
		c.filter.Err = err
		return c
	}

	p := &Predicate{
		Connector: conn,
		Field:     f,
		Operator:  op,
		Values:    values,
	}
	if p.Values == nil {
		p.Values = []any{}
	}
	if err := p.validate(); err != nil {
		c.filter.Err = err
		return c
	}
	c.filter.Predicates = append(c.filter.Predicates, p)
	return c
}

func (c *Criteria[T]) lookup(field string) (*schema.FieldDescriptor, error) {
	if c.filter.Entity == nil {
		return nil, fmt.Errorf("%w: criteria has no entity", schema.ErrNotAnEntity)
	}
	f, ok := c.filter.Entity.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", schema.ErrUnknownField, c.filter.Entity.Name, field)
	}
	return f, nil
}

func (c *Criteria[T]) lookupAll(fields []string) ([]*schema.FieldDescriptor, bool) {
	if c.filter.Err != nil {
		return nil, false
	}
	resolved := make([]*schema.FieldDescriptor, 0, len(fields))
	for _, name := range fields {
		f, err := c.lookup(name)
		if err != nil {
			c.filter.Err = err
			return nil, false
		}
		resolved = append(resolved, f)
	}
	return resolved, true
}
