// Package schema resolves the persistence metadata of entity types.
// It defines the descriptors that the SQL generators, the criteria builder
// and the data access layer share, and the registry that computes them once
// per Go type.
package schema

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// FieldType represents the declared value type of a persistent field
type FieldType int

const (
	// TypeUnknown is any Go type without a dedicated mapping; it is stored as text
	TypeUnknown FieldType = iota

	// Text types
	TypeText

	// Time types
	TypeDate

	// Numeric types
	TypeDouble
	TypeFloat
	TypeInt
	TypeShort
	TypeLong

	// Boolean
	TypeBool

	// Unique identifiers
	TypeUUID
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeDate:
		return "date"
	case TypeDouble:
		return "double"
	case TypeFloat:
		return "float"
	case TypeInt:
		return "int"
	case TypeShort:
		return "short"
	case TypeLong:
		return "long"
	case TypeBool:
		return "bool"
	case TypeUUID:
		return "uuid"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a string to a FieldType
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "text":
		return TypeText, nil
	case "date":
		return TypeDate, nil
	case "double":
		return TypeDouble, nil
	case "float":
		return TypeFloat, nil
	case "int":
		return TypeInt, nil
	case "short":
		return TypeShort, nil
	case "long":
		return TypeLong, nil
	case "bool":
		return TypeBool, nil
	case "uuid":
		return TypeUUID, nil
	case "unknown":
		return TypeUnknown, nil
	default:
		return 0, fmt.Errorf("unknown field type: %s", s)
	}
}

// IsInteger reports whether the type is stored as an integer
func (t FieldType) IsInteger() bool {
	return t == TypeInt || t == TypeShort || t == TypeLong
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// typeOf infers the declared FieldType of a Go type
func typeOf(t reflect.Type) FieldType {
	switch t {
	case timeType:
		return TypeDate
	case uuidType:
		return TypeUUID
	}

	switch t.Kind() {
	case reflect.String:
		return TypeText
	case reflect.Float64:
		return TypeDouble
	case reflect.Float32:
		return TypeFloat
	case reflect.Bool:
		return TypeBool
	case reflect.Int, reflect.Int32, reflect.Uint32, reflect.Uint16, reflect.Int8, reflect.Uint8:
		return TypeInt
	case reflect.Int16:
		return TypeShort
	case reflect.Int64, reflect.Uint64, reflect.Uint:
		return TypeLong
	default:
		return TypeUnknown
	}
}

// FieldDescriptor is the resolved metadata of one persistent field
type FieldDescriptor struct {
	Name       string
	Type       FieldType
	Column     string
	PrimaryKey bool
	VirtualPK  bool
	Serial     bool
	Nullable   bool
	Unique     bool
	Index      bool
	SQLType    string
	Default    string
	Length     int

	// ForeignKey is the entity type this field references, nil when none
	ForeignKey reflect.Type

	get    func(entity any) any
	set    func(entity any, value any) error
	attach func(owner, target any)
}

// IsKey reports whether the field takes part in the entity's key identity
func (f *FieldDescriptor) IsKey() bool {
	return f.PrimaryKey || f.VirtualPK
}

// Get reads the field value from a pointer to the entity.
// Nullable fields return nil when unset.
func (f *FieldDescriptor) Get(entity any) any {
	return f.get(entity)
}

// Set writes value into the field of a pointer to the entity
func (f *FieldDescriptor) Set(entity any, value any) error {
	if err := f.set(entity, value); err != nil {
		return fmt.Errorf("field %s: %w", f.Name, err)
	}
	return nil
}

// CanAttach reports whether the field carries a foreign key mutator
func (f *FieldDescriptor) CanAttach() bool {
	return f.ForeignKey != nil && f.attach != nil
}

// Attach hands a loaded foreign key target to its owner
func (f *FieldDescriptor) Attach(owner, target any) {
	if f.attach != nil {
		f.attach(owner, target)
	}
}

// EntityDescriptor is the resolved metadata of one entity type
type EntityDescriptor struct {
	Type        reflect.Type
	Name        string
	Table       string
	Cacheable   bool
	Fields      []*FieldDescriptor
	PrimaryKeys []*FieldDescriptor

	factory func() any
	byName  map[string]*FieldDescriptor
	byCol   map[string]*FieldDescriptor
}

// QualifiedName returns the package-qualified name of the entity type
func (e *EntityDescriptor) QualifiedName() string {
	if e.Type.PkgPath() == "" {
		return e.Name
	}
	return e.Type.PkgPath() + "." + e.Name
}

// New returns a fresh pointer to a zero entity
func (e *EntityDescriptor) New() any {
	return e.factory()
}

// Field returns the field with the given logical name
func (e *EntityDescriptor) Field(name string) (*FieldDescriptor, bool) {
	f, ok := e.byName[name]
	return f, ok
}

// FieldByColumn returns the field stored in the given column
func (e *EntityDescriptor) FieldByColumn(column string) (*FieldDescriptor, bool) {
	f, ok := e.byCol[column]
	return f, ok
}

// KeyValues returns the primary key tuple of entity in declaration order
func (e *EntityDescriptor) KeyValues(entity any) []any {
	if len(e.PrimaryKeys) == 0 {
		return nil
	}
	values := make([]any, len(e.PrimaryKeys))
	for i, pk := range e.PrimaryKeys {
		values[i] = pk.Get(entity)
	}
	return values
}

// SerialField returns the serial primary key field, if the entity has one
func (e *EntityDescriptor) SerialField() *FieldDescriptor {
	for _, f := range e.Fields {
		if f.Serial {
			return f
		}
	}
	return nil
}

// Values returns the entity's field values keyed by logical name
func (e *EntityDescriptor) Values(entity any) map[string]any {
	values := make(map[string]any, len(e.Fields))
	for _, f := range e.Fields {
		values[f.Name] = f.Get(entity)
	}
	return values
}
