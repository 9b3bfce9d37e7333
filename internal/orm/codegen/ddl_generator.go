package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// DDLGenerator generates CREATE TABLE statements from entity descriptors
type DDLGenerator struct {
	dialect        Dialect
	typeMapper     *TypeMapper
	indexGenerator *IndexGenerator
}

// NewDDLGenerator creates a new DDL generator for the dialect
func NewDDLGenerator(d Dialect) *DDLGenerator {
	return &DDLGenerator{
		dialect:        d,
		typeMapper:     NewTypeMapper(d),
		indexGenerator: NewIndexGenerator(d),
	}
}

// Generate returns the CREATE TABLE statement followed by its CREATE INDEX statements
func (g *DDLGenerator) Generate(entity *schema.EntityDescriptor) ([]string, error) {
	table, err := g.GenerateCreateTable(entity)
	if err != nil {
		return nil, err
	}
	indexes, err := g.indexGenerator.GenerateIndexes(entity)
	if err != nil {
		return nil, err
	}
	return append([]string{table}, indexes...), nil
}

// GenerateCreateTable generates a CREATE TABLE IF NOT EXISTS statement
func (g *DDLGenerator) GenerateCreateTable(entity *schema.EntityDescriptor) (string, error) {
	if entity == nil {
		return "", fmt.Errorf("%w: nil entity", ErrMissingMetadata)
	}
	if entity.Table == "" {
		return "", fmt.Errorf("%w: %s has no table", ErrMissingMetadata, entity.Name)
	}

	inlineKey := g.inlineKey(entity)

	columnDefs := make([]string, 0, len(entity.Fields)+1)
	var primaryKeys []string
	for _, f := range entity.Fields {
		if g.dialect == SQLite && f.Serial && f != inlineKey {
			return "", fmt.Errorf("%s.%s: %w", entity.Name, f.Name, ErrUnsupportedSerial)
		}
		def, err := g.generateColumnDefinition(f, f == inlineKey)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", entity.Name, f.Name, err)
		}
		columnDefs = append(columnDefs, def)
		if f.PrimaryKey && f != inlineKey {
			primaryKeys = append(primaryKeys, f.Column)
		}
	}
	if len(primaryKeys) > 0 {
		columnDefs = append(columnDefs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", entity.Table))
	for i, def := range columnDefs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(columnDefs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(")")

	return b.String(), nil
}

// inlineKey returns the SQLite serial key that must be declared inline
// as INTEGER PRIMARY KEY AUTOINCREMENT
func (g *DDLGenerator) inlineKey(entity *schema.EntityDescriptor) *schema.FieldDescriptor {
	if g.dialect != SQLite {
		return nil
	}
	var pk *schema.FieldDescriptor
	for _, f := range entity.Fields {
		if !f.PrimaryKey {
			continue
		}
		if pk != nil {
			return nil
		}
		pk = f
	}
	if pk == nil || !pk.Serial || !pk.Type.IsInteger() || pk.SQLType != "" {
		return nil
	}
	return pk
}

// generateColumnDefinition generates a column definition for a field
func (g *DDLGenerator) generateColumnDefinition(f *schema.FieldDescriptor, inlineKey bool) (string, error) {
	if f.Column == "" {
		return "", fmt.Errorf("%w: no column", ErrMissingMetadata)
	}
	if inlineKey {
		return f.Column + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
	}

	columnType, err := g.typeMapper.MapType(f)
	if err != nil {
		return "", fmt.Errorf("mapping type: %w", err)
	}
	parts := []string{f.Column, columnType}

	if nullability := g.typeMapper.MapNullability(f); nullability != "" {
		parts = append(parts, nullability)
	}
	if f.Unique {
		parts = append(parts, "UNIQUE")
	}
	if def := g.typeMapper.MapDefault(f); def != "" {
		parts = append(parts, def)
	}

	return strings.Join(parts, " "), nil
}
