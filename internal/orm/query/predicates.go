// Package query provides the criteria model used to filter, order and limit
// entity selections.
package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// ErrInvalidCriteria is returned when a criterion is malformed
var ErrInvalidCriteria = errors.New("invalid criteria")

// Operator represents a comparison operator
type Operator int

const (
	OpEquals Operator = iota
	OpNotEquals
	OpGreaterThan
	OpGreaterOrEqual
	OpLessThan
	OpLessOrEqual
	OpLike
	OpNotLike
	OpBetween
	OpIn
	OpNotIn
	OpIsNull
	OpIsNotNull
)

// String returns the SQL form of the operator
func (o Operator) String() string {
	switch o {
	case OpEquals:
		return "="
	case OpNotEquals:
		return "<>"
	case OpGreaterThan:
		return ">"
	case OpGreaterOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessOrEqual:
		return "<="
	case OpLike:
		return "LIKE"
	case OpNotLike:
		return "NOT LIKE"
	case OpBetween:
		return "BETWEEN"
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "UNKNOWN"
	}
}

// Arity returns the number of values the operator binds, or -1 for any number
func (o Operator) Arity() int {
	switch o {
	case OpIsNull, OpIsNotNull:
		return 0
	case OpBetween:
		return 2
	case OpIn, OpNotIn:
		return -1
	default:
		return 1
	}
}

// Connector joins a predicate to the ones before it
type Connector int

const (
	And Connector = iota
	Or
)

// String returns the SQL keyword of the connector
func (c Connector) String() string {
	if c == Or {
		return "OR"
	}
	return "AND"
}

// Predicate is one condition of a criteria
type Predicate struct {
	Connector Connector
	Field     *schema.FieldDescriptor
	Operator  Operator
	Values    []any
}

// String renders the predicate for diagnostics
func (p *Predicate) String() string {
	column := "?"
	if p.Field != nil {
		column = p.Field.Column
	}
	if p.Operator.Arity() == 0 {
		return fmt.Sprintf("%s %s %s", p.Connector, column, p.Operator)
	}
	return fmt.Sprintf("%s %s %s %v", p.Connector, column, p.Operator, p.Values)
}

func (p *Predicate) validate() error {
	arity := p.Operator.Arity()
	if arity >= 0 && len(p.Values) != arity {
		return fmt.Errorf("%w: %s on %s takes %d values, got %d",
			ErrInvalidCriteria, p.Operator, p.Field.Name, arity, len(p.Values))
	}
	return nil
}

// Direction is a sort direction
type Direction int

const (
	Asc Direction = iota
	Desc
)

// String returns the SQL keyword of the direction
func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Ordering is one ORDER BY term
type Ordering struct {
	Field     *schema.FieldDescriptor
	Direction Direction
	// Explicit is set when the caller named a direction
	Explicit bool
}

// parseOrdering splits "field" or "field ASC|DESC"
func parseOrdering(term string) (string, Direction, bool, error) {
	parts := strings.Fields(term)
	switch len(parts) {
	case 1:
		return parts[0], Asc, false, nil
	case 2:
		switch strings.ToUpper(parts[1]) {
		case "ASC":
			return parts[0], Asc, true, nil
		case "DESC":
			return parts[0], Desc, true, nil
		}
	}
	return "", Asc, false, fmt.Errorf("%w: bad order term %q", ErrInvalidCriteria, term)
}

// flatten expands a single slice argument into its elements
func flatten(values []any) []any {
	if len(values) != 1 || values[0] == nil {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return values
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
