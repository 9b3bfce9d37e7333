package schema

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type base struct {
	Owner string
}

func (base) Mapping() *Mapping {
	return Map[base](
		Column("owner", func(b *base) *string { return &b.Owner }),
	)
}

type note struct {
	base
	ID      int
	Body    string
	Due     *time.Time
	Score   *float64
	Parent  int
	parentP *note
}

func (note) Mapping() *Mapping {
	return Map[note](
		Column("id", func(n *note) *int { return &n.ID }, PK(), Serial()),
		Column("body", func(n *note) *string { return &n.Body }, NotNull(), Length(500), SQLType("TEXT")),
		NullableColumn("due", func(n *note) **time.Time { return &n.Due }),
		NullableColumn("score", func(n *note) **float64 { return &n.Score }),
		Column("parent", func(n *note) *int { return &n.Parent }, References(func(n *note, p *note) { n.parentP = p })),
		Inherit(func(n *note) *base { return &n.base }),
	).Table("notes").Cache(true)
}

type duplicated struct {
	A, B string
}

func (duplicated) Mapping() *Mapping {
	return Map[duplicated](
		Column("a", func(d *duplicated) *string { return &d.A }),
		Column("b", func(d *duplicated) *string { return &d.B }, Name("a")),
	)
}

type badSerial struct {
	ID string
}

func (badSerial) Mapping() *Mapping {
	return Map[badSerial](
		Column("id", func(b *badSerial) *string { return &b.ID }, PK(), Serial()),
	)
}

type mismatched struct{}

func (mismatched) Mapping() *Mapping {
	return Map[note]()
}

type noAttach struct {
	Ref int
}

func (noAttach) Mapping() *Mapping {
	return Map[noAttach](
		Column("ref", func(n *noAttach) *int { return &n.Ref }, References[noAttach, note](nil)),
	)
}

type orphanBase struct{ X int }

type orphan struct {
	orphanBase
}

func (orphan) Mapping() *Mapping {
	return Map[orphan](
		Inherit(func(o *orphan) *orphanBase { return &o.orphanBase }),
	)
}

func TestMapping_Accessors(t *testing.T) {
	registry := NewRegistry()
	entity, err := registry.Resolve(reflect.TypeOf(note{}))
	require.NoError(t, err)

	assert.Equal(t, "notes", entity.Table)
	assert.True(t, entity.Cacheable)
	require.Len(t, entity.Fields, 6)

	n := entity.New().(*note)
	id, _ := entity.Field("id")
	body, _ := entity.Field("body")
	owner, _ := entity.Field("owner")

	require.NoError(t, id.Set(n, int64(42)))
	require.NoError(t, body.Set(n, "hello"))
	require.NoError(t, owner.Set(n, "ann"))

	assert.Equal(t, 42, n.ID)
	assert.Equal(t, "hello", n.Body)
	assert.Equal(t, "ann", n.Owner)
	assert.Equal(t, 42, id.Get(n))
	assert.Equal(t, "ann", owner.Get(n))
	assert.Equal(t, []any{42}, entity.KeyValues(n))
	assert.Same(t, id, entity.SerialField())

	require.NoError(t, body.Set(n, nil))
	assert.Equal(t, "", n.Body)

	err = body.Set(n, 12)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field body")

	assert.Nil(t, id.Get(nil))
	assert.Error(t, id.Set(&duplicated{}, 1))
}

func TestMapping_NullableColumns(t *testing.T) {
	registry := NewRegistry()
	entity := registry.MustResolve(reflect.TypeOf(note{}))

	due, _ := entity.Field("due")
	score, _ := entity.Field("score")
	assert.True(t, due.Nullable)
	assert.Equal(t, TypeDate, due.Type)
	assert.Equal(t, TypeDouble, score.Type)

	n := &note{}
	assert.Nil(t, due.Get(n))

	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, due.Set(n, when))
	require.NotNil(t, n.Due)
	assert.Equal(t, when, *n.Due)
	assert.Equal(t, when, due.Get(n))

	require.NoError(t, score.Set(n, float32(1.5)))
	assert.Equal(t, 1.5, *n.Score)

	require.NoError(t, due.Set(n, nil))
	assert.Nil(t, n.Due)
}

func TestMapping_Options(t *testing.T) {
	registry := NewRegistry()
	entity := registry.MustResolve(reflect.TypeOf(note{}))

	body, _ := entity.Field("body")
	assert.False(t, body.Nullable)
	assert.Equal(t, 500, body.Length)
	assert.Equal(t, "TEXT", body.SQLType)

	id, _ := entity.Field("id")
	assert.True(t, id.IsKey())
	assert.False(t, id.Nullable)
}

func TestMapping_ForeignKeyAttach(t *testing.T) {
	registry := NewRegistry()
	entity := registry.MustResolve(reflect.TypeOf(note{}))

	parent, _ := entity.Field("parent")
	assert.Equal(t, reflect.TypeOf(note{}), parent.ForeignKey)
	require.True(t, parent.CanAttach())

	child, target := &note{}, &note{ID: 9}
	parent.Attach(child, target)
	assert.Same(t, target, child.parentP)

	parent.Attach(child, nil)
	assert.Nil(t, child.parentP)
}

func TestMapping_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		typ      reflect.Type
		contains string
	}{
		{"duplicate column", reflect.TypeOf(duplicated{}), `column "a" is already mapped`},
		{"serial on text", reflect.TypeOf(badSerial{}), "serial field must be an integer"},
		{"mapping for another type", reflect.TypeOf(mismatched{}), "declares a mapping for"},
		{"foreign key without attach", reflect.TypeOf(noAttach{}), "foreign key without an attach function"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			_, err := registry.Resolve(tt.typ)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidMapping), "got %v", err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Equal(t, 0, registry.Count())
		})
	}
}

func TestMapping_InheritFromNonEntity(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Resolve(reflect.TypeOf(orphan{}))
	assert.ErrorIs(t, err, ErrNotAnEntity)
}
