package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var mapperType = reflect.TypeOf((*Mapper)(nil)).Elem()

// DefaultRegistry is the process-wide registry
var DefaultRegistry = NewRegistry()

// Registry resolves and caches entity descriptors keyed by Go type
type Registry struct {
	entities  map[reflect.Type]*EntityDescriptor
	validator *MappingValidator
	mu        sync.RWMutex
}

// NewRegistry creates a new, empty registry
func NewRegistry() *Registry {
	return &Registry{
		entities:  make(map[reflect.Type]*EntityDescriptor),
		validator: NewMappingValidator(),
	}
}

// Resolve returns the descriptor for t, computing it on first use.
// Pointer types resolve to their element type.
func (r *Registry) Resolve(t reflect.Type) (*EntityDescriptor, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrNotAnEntity)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.RLock()
	entity, exists := r.entities[t]
	r.mu.RUnlock()
	if exists {
		return entity, nil
	}

	// Computed outside the lock; the first publisher wins
	computed, err := r.build(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entity, exists := r.entities[t]; exists {
		return entity, nil
	}
	r.entities[t] = computed
	return computed, nil
}

// ResolveOf returns the descriptor for the dynamic type of v
func (r *Registry) ResolveOf(v any) (*EntityDescriptor, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrNotAnEntity)
	}
	return r.Resolve(reflect.TypeOf(v))
}

// MustResolve is like Resolve but panics on error
func (r *Registry) MustResolve(t reflect.Type) *EntityDescriptor {
	entity, err := r.Resolve(t)
	if err != nil {
		panic(err)
	}
	return entity
}

// FieldsOf returns the persistent fields of t in declaration order,
// optionally leaving out key fields
func (r *Registry) FieldsOf(t reflect.Type, includePrimaryKeys bool) ([]*FieldDescriptor, error) {
	entity, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}
	if includePrimaryKeys {
		return entity.Fields, nil
	}
	fields := make([]*FieldDescriptor, 0, len(entity.Fields))
	for _, f := range entity.Fields {
		if !f.IsKey() {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// PrimaryKeysOf returns the key fields of t in declaration order
func (r *Registry) PrimaryKeysOf(t reflect.Type) ([]*FieldDescriptor, error) {
	entity, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}
	return entity.PrimaryKeys, nil
}

// LookupField returns the field of t with the given logical name
func (r *Registry) LookupField(t reflect.Type, name string) (*FieldDescriptor, error) {
	entity, err := r.Resolve(t)
	if err != nil {
		return nil, err
	}
	f, ok := entity.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, entity.Name, name)
	}
	return f, nil
}

// Count returns the number of resolved entities
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entities)
}

// List returns the qualified names of all resolved entities, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entities))
	for _, e := range r.entities {
		names = append(names, e.QualifiedName())
	}
	sort.Strings(names)
	return names
}

// Clear removes all resolved entities (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities = make(map[reflect.Type]*EntityDescriptor)
}

func (r *Registry) build(t reflect.Type) (*EntityDescriptor, error) {
	if !reflect.PointerTo(t).Implements(mapperType) {
		return nil, fmt.Errorf("%w: %s", ErrNotAnEntity, t)
	}
	mapping := reflect.New(t).Interface().(Mapper).Mapping()
	if mapping == nil {
		return nil, fmt.Errorf("%w: %s has no mapping", ErrInvalidMapping, t)
	}
	if len(mapping.errs) > 0 {
		return nil, fmt.Errorf("%s: %w", t.Name(), mapping.errs[0])
	}
	if mapping.entity != t {
		return nil, fmt.Errorf("%w: %s declares a mapping for %s", ErrInvalidMapping, t, mapping.entity)
	}

	entity := &EntityDescriptor{
		Type:      t,
		Name:      t.Name(),
		Table:     mapping.table,
		Cacheable: mapping.cache,
		factory:   mapping.factory,
		byName:    make(map[string]*FieldDescriptor, len(mapping.fields)),
		byCol:     make(map[string]*FieldDescriptor, len(mapping.fields)),
	}
	if entity.Table == "" {
		entity.Table = strings.ToLower(t.Name())
	}

	for _, declared := range mapping.fields {
		// Descriptors are copied so that a Mapping shared between registries stays untouched
		f := *declared
		if f.Column == "" {
			f.Column = strings.ToLower(f.Name)
		}
		entity.Fields = append(entity.Fields, &f)
		entity.byName[f.Name] = &f
		entity.byCol[f.Column] = &f
		if f.IsKey() {
			entity.PrimaryKeys = append(entity.PrimaryKeys, &f)
		}
	}

	if err := r.validator.Validate(entity, mapping.fields); err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name(), err)
	}
	return entity, nil
}
