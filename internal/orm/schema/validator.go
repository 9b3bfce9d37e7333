package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError describes one inconsistency in an entity's declarations
type ValidationError struct {
	Entity  string
	Field   string
	Message string
	Hint    string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Entity != "" {
		b.WriteString(e.Entity)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString(" (hint: ")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}

	return b.String()
}

// Unwrap lets errors.Is match ErrInvalidMapping
func (e *ValidationError) Unwrap() error {
	return ErrInvalidMapping
}

// MappingValidator checks resolved entity descriptors.
// It holds no state and is safe for concurrent use.
type MappingValidator struct{}

// NewMappingValidator creates a new mapping validator
func NewMappingValidator() *MappingValidator {
	return &MappingValidator{}
}

// Validate returns every inconsistency found in entity, joined
func (v *MappingValidator) Validate(entity *EntityDescriptor, declared []*FieldDescriptor) error {
	var errs []error

	if entity.factory == nil {
		errs = append(errs, &ValidationError{Entity: entity.Name, Message: "no factory"})
	}

	errs = append(errs, v.validateNames(entity)...)
	errs = append(errs, v.validateSerial(entity)...)
	errs = append(errs, v.validateAccessors(entity, declared)...)

	return errors.Join(errs...)
}

func (v *MappingValidator) validateNames(entity *EntityDescriptor) []error {
	var errs []error
	names := make(map[string]bool, len(entity.Fields))
	columns := make(map[string]bool, len(entity.Fields))

	for _, f := range entity.Fields {
		if f.Name == "" {
			errs = append(errs, &ValidationError{Entity: entity.Name, Message: "field without a name"})
			continue
		}
		if names[f.Name] {
			errs = append(errs, &ValidationError{
				Entity:  entity.Name,
				Field:   f.Name,
				Message: "declared more than once",
			})
		}
		if columns[f.Column] {
			errs = append(errs, &ValidationError{
				Entity:  entity.Name,
				Field:   f.Name,
				Message: fmt.Sprintf("column %q is already mapped", f.Column),
				Hint:    "use schema.Name to pick a distinct column",
			})
		}
		names[f.Name] = true
		columns[f.Column] = true
	}
	return errs
}

func (v *MappingValidator) validateSerial(entity *EntityDescriptor) []error {
	var errs []error
	serials := 0
	for _, f := range entity.Fields {
		if !f.Serial {
			continue
		}
		serials++
		if !f.Type.IsInteger() {
			errs = append(errs, &ValidationError{
				Entity:  entity.Name,
				Field:   f.Name,
				Message: fmt.Sprintf("serial field must be an integer, got %s", f.Type),
			})
		}
	}
	if serials > 1 {
		errs = append(errs, &ValidationError{
			Entity:  entity.Name,
			Message: fmt.Sprintf("%d serial fields declared, at most one is allowed", serials),
		})
	}
	return errs
}

func (v *MappingValidator) validateAccessors(entity *EntityDescriptor, declared []*FieldDescriptor) []error {
	var errs []error
	for _, f := range declared {
		if f.get == nil || f.set == nil {
			errs = append(errs, &ValidationError{
				Entity:  entity.Name,
				Field:   f.Name,
				Message: "missing accessor",
			})
		}
		if f.ForeignKey != nil && f.attach == nil {
			errs = append(errs, &ValidationError{
				Entity:  entity.Name,
				Field:   f.Name,
				Message: "foreign key without an attach function",
				Hint:    "pass a non-nil mutator to schema.References",
			})
		}
	}
	return errs
}
