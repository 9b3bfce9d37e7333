package schema

import (
	"fmt"
	"reflect"
)

// Mapper is implemented by every persistent entity type.
// Mapping is called on a zero value and must not depend on its receiver's state.
type Mapper interface {
	Mapping() *Mapping
}

// Mapping is the declared persistence layout of one entity type
type Mapping struct {
	entity  reflect.Type
	table   string
	cache   bool
	factory func() any
	fields  []*FieldDescriptor
	errs    []error
}

// FieldSpec declares one or more persistent fields of entity E
type FieldSpec[E any] func() ([]*FieldDescriptor, error)

// FieldOption customizes a declared field
type FieldOption func(*FieldDescriptor)

// Map declares the persistent fields of entity E in column order
func Map[E any](specs ...FieldSpec[E]) *Mapping {
	m := &Mapping{
		entity:  reflect.TypeOf((*E)(nil)).Elem(),
		factory: func() any { return new(E) },
	}
	for _, spec := range specs {
		fields, err := spec()
		if err != nil {
			m.errs = append(m.errs, err)
			continue
		}
		m.fields = append(m.fields, fields...)
	}
	return m
}

// Table sets an explicit table name
func (m *Mapping) Table(name string) *Mapping {
	m.table = name
	return m
}

// Cache marks the entity as eligible for the object cache
func (m *Mapping) Cache(enabled bool) *Mapping {
	m.cache = enabled
	return m
}

// Factory replaces the default constructor; fn must return a pointer to the entity
func (m *Mapping) Factory(fn func() any) *Mapping {
	m.factory = fn
	return m
}

// Column declares a non-pointer field of type V
func Column[E, V any](name string, ref func(*E) *V, opts ...FieldOption) FieldSpec[E] {
	return func() ([]*FieldDescriptor, error) {
		if ref == nil {
			return nil, fmt.Errorf("%w: field %s has no accessor", ErrInvalidMapping, name)
		}
		f := newField(name, reflect.TypeOf((*V)(nil)).Elem(), opts)
		f.get = func(entity any) any {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return nil
			}
			return *ref(e)
		}
		f.set = func(entity any, value any) error {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return fmt.Errorf("cannot set on %T", entity)
			}
			if value == nil {
				var zero V
				*ref(e) = zero
				return nil
			}
			v, err := coerce[V](value)
			if err != nil {
				return err
			}
			*ref(e) = v
			return nil
		}
		return []*FieldDescriptor{f}, nil
	}
}

// NullableColumn declares a pointer field of type *V; nil maps to SQL NULL
func NullableColumn[E, V any](name string, ref func(*E) **V, opts ...FieldOption) FieldSpec[E] {
	return func() ([]*FieldDescriptor, error) {
		if ref == nil {
			return nil, fmt.Errorf("%w: field %s has no accessor", ErrInvalidMapping, name)
		}
		f := newField(name, reflect.TypeOf((*V)(nil)).Elem(), opts)
		f.Nullable = true
		f.get = func(entity any) any {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return nil
			}
			p := *ref(e)
			if p == nil {
				return nil
			}
			return *p
		}
		f.set = func(entity any, value any) error {
			e, ok := entity.(*E)
			if !ok || e == nil {
				return fmt.Errorf("cannot set on %T", entity)
			}
			if value == nil {
				*ref(e) = nil
				return nil
			}
			v, err := coerce[V](value)
			if err != nil {
				return err
			}
			*ref(e) = &v
			return nil
		}
		return []*FieldDescriptor{f}, nil
	}
}

// Inherit splices in the fields declared by the embedded ancestor B
func Inherit[E, B any](ref func(*E) *B) FieldSpec[E] {
	return func() ([]*FieldDescriptor, error) {
		var base B
		mapper, ok := any(&base).(Mapper)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrNotAnEntity, base)
		}
		parent := mapper.Mapping()
		if len(parent.errs) > 0 {
			return nil, parent.errs[0]
		}

		fields := make([]*FieldDescriptor, 0, len(parent.fields))
		for _, pf := range parent.fields {
			f := *pf
			get, set, attach := pf.get, pf.set, pf.attach
			f.get = func(entity any) any {
				e, ok := entity.(*E)
				if !ok || e == nil {
					return nil
				}
				return get(ref(e))
			}
			f.set = func(entity any, value any) error {
				e, ok := entity.(*E)
				if !ok || e == nil {
					return fmt.Errorf("cannot set on %T", entity)
				}
				return set(ref(e), value)
			}
			if attach != nil {
				f.attach = func(owner, target any) {
					if e, ok := owner.(*E); ok && e != nil {
						attach(ref(e), target)
					}
				}
			}
			fields = append(fields, &f)
		}
		return fields, nil
	}
}

func newField(name string, goType reflect.Type, opts []FieldOption) *FieldDescriptor {
	f := &FieldDescriptor{
		Name:     name,
		Type:     typeOf(goType),
		Nullable: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PK marks the field as part of the primary key
func PK() FieldOption {
	return func(f *FieldDescriptor) {
		f.PrimaryKey = true
		f.Nullable = false
	}
}

// VirtualPK marks the field as part of the key identity without a PRIMARY KEY constraint
func VirtualPK() FieldOption {
	return func(f *FieldDescriptor) { f.VirtualPK = true }
}

// Serial marks the field as generated by the database on insert
func Serial() FieldOption {
	return func(f *FieldDescriptor) { f.Serial = true }
}

// NotNull marks the field as NOT NULL
func NotNull() FieldOption {
	return func(f *FieldDescriptor) { f.Nullable = false }
}

// Unique adds a UNIQUE constraint to the column
func Unique() FieldOption {
	return func(f *FieldDescriptor) { f.Unique = true }
}

// Name overrides the column name
func Name(column string) FieldOption {
	return func(f *FieldDescriptor) { f.Column = column }
}

// SQLType overrides the dialect type mapping
func SQLType(t string) FieldOption {
	return func(f *FieldDescriptor) { f.SQLType = t }
}

// Default sets the column's DEFAULT literal, rendered verbatim
func Default(literal string) FieldOption {
	return func(f *FieldDescriptor) { f.Default = literal }
}

// Length sets the length hint for text columns
func Length(n int) FieldOption {
	return func(f *FieldDescriptor) { f.Length = n }
}

// Index creates a secondary index on the column
func Index() FieldOption {
	return func(f *FieldDescriptor) { f.Index = true }
}

// References declares the field as a foreign key to entity T.
// attach receives the loaded target when the owner is fetched with Get.
func References[E, T any](attach func(owner *E, target *T)) FieldOption {
	return func(f *FieldDescriptor) {
		f.ForeignKey = reflect.TypeOf((*T)(nil)).Elem()
		if attach == nil {
			return
		}
		f.attach = func(owner, target any) {
			o, ok := owner.(*E)
			if !ok || o == nil {
				return
			}
			t, _ := target.(*T)
			attach(o, t)
		}
	}
}

// coerce converts a converted column value into the Go type of the field
func coerce[V any](value any) (V, error) {
	if v, ok := value.(V); ok {
		return v, nil
	}
	var zero V
	target := reflect.TypeOf((*V)(nil)).Elem()
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return zero, nil
		}
		rv = rv.Elem()
	}
	if rv.Type().ConvertibleTo(target) && convertible(rv.Kind(), target.Kind()) {
		return rv.Convert(target).Interface().(V), nil
	}
	return zero, fmt.Errorf("cannot assign %T to %s", value, target)
}

// convertible rejects reflect conversions that change meaning, such as int to string
func convertible(from, to reflect.Kind) bool {
	if to == reflect.String {
		return from == reflect.String
	}
	return true
}
