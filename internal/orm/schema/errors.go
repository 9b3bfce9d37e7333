package schema

import "errors"

// Metadata resolution errors
var (
	// ErrNotAnEntity is returned when a type does not implement Mapper
	ErrNotAnEntity = errors.New("not an entity")

	// ErrUnknownField is returned when a logical field name has no declared field
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidMapping is returned when an entity's declarations are inconsistent
	ErrInvalidMapping = errors.New("invalid mapping")
)
