package codegen

import (
	"fmt"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// IndexGenerator generates CREATE INDEX statements
type IndexGenerator struct {
	dialect Dialect
}

// NewIndexGenerator creates a new index generator for the dialect
func NewIndexGenerator(d Dialect) *IndexGenerator {
	return &IndexGenerator{dialect: d}
}

// IndexName returns the name of the index on column
func IndexName(table, column string) string {
	return fmt.Sprintf("%s_%s_idx", table, column)
}

// GenerateIndexes returns one statement per indexed or virtual key field,
// in declaration order
func (g *IndexGenerator) GenerateIndexes(entity *schema.EntityDescriptor) ([]string, error) {
	var indexes []string
	for _, f := range entity.Fields {
		if !f.Index && !f.VirtualPK {
			continue
		}
		if f.Column == "" {
			return nil, fmt.Errorf("%w: %s.%s has no column", ErrMissingMetadata, entity.Name, f.Name)
		}

		// MySQL has no IF NOT EXISTS for indexes; the migrator tolerates duplicates
		clause := "CREATE INDEX IF NOT EXISTS"
		if g.dialect == MySQL {
			clause = "CREATE INDEX"
		}
		indexes = append(indexes, fmt.Sprintf("%s %s ON %s (%s)",
			clause, IndexName(entity.Table, f.Column), entity.Table, f.Column))
	}
	return indexes, nil
}
