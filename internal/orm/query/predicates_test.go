package query

import (
	"errors"
	"testing"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

func TestOperator_String(t *testing.T) {
	tests := []struct {
		op       Operator
		expected string
		arity    int
	}{
		{OpEquals, "=", 1},
		{OpNotEquals, "<>", 1},
		{OpGreaterThan, ">", 1},
		{OpGreaterOrEqual, ">=", 1},
		{OpLessThan, "<", 1},
		{OpLessOrEqual, "<=", 1},
		{OpLike, "LIKE", 1},
		{OpNotLike, "NOT LIKE", 1},
		{OpBetween, "BETWEEN", 2},
		{OpIn, "IN", -1},
		{OpNotIn, "NOT IN", -1},
		{OpIsNull, "IS NULL", 0},
		{OpIsNotNull, "IS NOT NULL", 0},
	}

	for _, tt := range tests {
		if result := tt.op.String(); result != tt.expected {
			t.Errorf("Operator.String() = %s, want %s", result, tt.expected)
		}
		if arity := tt.op.Arity(); arity != tt.arity {
			t.Errorf("%s.Arity() = %d, want %d", tt.op, arity, tt.arity)
		}
	}
}

func TestConnector_String(t *testing.T) {
	if And.String() != "AND" || Or.String() != "OR" {
		t.Errorf("unexpected connectors %s %s", And, Or)
	}
}

func TestPredicate_Validate(t *testing.T) {
	field := &schema.FieldDescriptor{Name: "age", Column: "age"}

	valid := []*Predicate{
		{Field: field, Operator: OpEquals, Values: []any{1}},
		{Field: field, Operator: OpBetween, Values: []any{1, 2}},
		{Field: field, Operator: OpIn, Values: []any{}},
		{Field: field, Operator: OpNotIn, Values: []any{1, 2, 3}},
		{Field: field, Operator: OpIsNull, Values: []any{}},
	}
	for _, p := range valid {
		if err := p.validate(); err != nil {
			t.Errorf("%s: unexpected error %v", p, err)
		}
	}

	invalid := []*Predicate{
		{Field: field, Operator: OpEquals, Values: []any{}},
		{Field: field, Operator: OpBetween, Values: []any{1}},
		{Field: field, Operator: OpIsNotNull, Values: []any{1}},
	}
	for _, p := range invalid {
		if err := p.validate(); !errors.Is(err, ErrInvalidCriteria) {
			t.Errorf("%s: expected ErrInvalidCriteria, got %v", p, err)
		}
	}
}

func TestPredicate_String(t *testing.T) {
	field := &schema.FieldDescriptor{Name: "age", Column: "age"}

	p := &Predicate{Connector: Or, Field: field, Operator: OpGreaterThan, Values: []any{40}}
	if got := p.String(); got != "OR age > [40]" {
		t.Errorf("unexpected %q", got)
	}

	p = &Predicate{Field: field, Operator: OpIsNull}
	if got := p.String(); got != "AND age IS NULL" {
		t.Errorf("unexpected %q", got)
	}
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		term     string
		field    string
		dir      Direction
		explicit bool
		wantErr  bool
	}{
		{"name", "name", Asc, false, false},
		{"name desc", "name", Desc, true, false},
		{" age  ASC ", "age", Asc, true, false},
		{"age sideways", "", Asc, false, true},
		{"", "", Asc, false, true},
		{"a b c", "", Asc, false, true},
	}

	for _, tt := range tests {
		field, dir, explicit, err := parseOrdering(tt.term)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseOrdering(%q) error = %v, wantErr %v", tt.term, err, tt.wantErr)
			continue
		}
		if field != tt.field || dir != tt.dir || explicit != tt.explicit {
			t.Errorf("parseOrdering(%q) = %s %s %v", tt.term, field, dir, explicit)
		}
	}
}

func TestFlatten(t *testing.T) {
	if got := flatten([]any{[]int{1, 2, 3}}); len(got) != 3 || got[2] != 3 {
		t.Errorf("slice not expanded: %v", got)
	}
	if got := flatten([]any{[]byte("ab")}); len(got) != 1 {
		t.Errorf("byte slice should stay a single value: %v", got)
	}
	if got := flatten([]any{1, 2}); len(got) != 2 {
		t.Errorf("variadic values changed: %v", got)
	}
	if got := flatten([]any{[]string{}}); len(got) != 0 {
		t.Errorf("empty slice should expand to nothing: %v", got)
	}
}
