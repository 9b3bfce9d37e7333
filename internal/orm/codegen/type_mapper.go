package codegen

import (
	"fmt"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// DefaultTextLength is the VARCHAR length used when a text field has no length hint
const DefaultTextLength = 255

// TypeMapper maps declared field types to column types of one dialect
type TypeMapper struct {
	dialect Dialect
}

// NewTypeMapper creates a new TypeMapper for the dialect
func NewTypeMapper(d Dialect) *TypeMapper {
	return &TypeMapper{dialect: d}
}

// MapType returns the column type of a field. An explicit SQL type always wins.
func (tm *TypeMapper) MapType(f *schema.FieldDescriptor) (string, error) {
	if f == nil {
		return "", fmt.Errorf("%w: nil field", ErrMissingMetadata)
	}
	if f.SQLType != "" {
		return f.SQLType, nil
	}

	switch tm.dialect {
	case SQLite:
		return tm.mapSQLite(f), nil
	case MySQL:
		return tm.mapMySQL(f), nil
	case PostgreSQL:
		return tm.mapPostgres(f), nil
	default:
		return "", fmt.Errorf("unsupported dialect: %q", tm.dialect)
	}
}

// MapNullability returns the NOT NULL constraint, or "" for nullable columns
func (tm *TypeMapper) MapNullability(f *schema.FieldDescriptor) string {
	if f.Nullable {
		return ""
	}
	return "NOT NULL"
}

// MapDefault returns the DEFAULT clause, or "" when the field declares none
func (tm *TypeMapper) MapDefault(f *schema.FieldDescriptor) string {
	if f.Default == "" {
		return ""
	}
	return "DEFAULT " + f.Default
}

func varchar(f *schema.FieldDescriptor) string {
	if f.Length > 0 {
		return fmt.Sprintf("VARCHAR(%d)", f.Length)
	}
	return fmt.Sprintf("VARCHAR(%d)", DefaultTextLength)
}

func (tm *TypeMapper) mapSQLite(f *schema.FieldDescriptor) string {
	switch f.Type {
	case schema.TypeText:
		return varchar(f)
	case schema.TypeDate:
		return "DATETIME"
	case schema.TypeDouble, schema.TypeFloat:
		return "REAL"
	case schema.TypeInt, schema.TypeShort, schema.TypeLong, schema.TypeBool:
		// AUTOINCREMENT is only legal on the inline primary key, see DDLGenerator
		return "INTEGER"
	case schema.TypeUUID:
		return "VARCHAR(36)"
	default:
		return "VARCHAR(50)"
	}
}

func (tm *TypeMapper) mapMySQL(f *schema.FieldDescriptor) string {
	var base string
	switch f.Type {
	case schema.TypeText:
		return varchar(f)
	case schema.TypeDate:
		return "DATETIME"
	case schema.TypeDouble:
		return "DOUBLE"
	case schema.TypeFloat:
		return "FLOAT"
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeUUID:
		return "CHAR(36)"
	case schema.TypeInt:
		base = "INTEGER"
	case schema.TypeShort:
		base = "SMALLINT"
	case schema.TypeLong:
		base = "BIGINT"
	default:
		return "VARCHAR(50)"
	}
	if f.Serial {
		return base + " AUTO_INCREMENT"
	}
	return base
}

func (tm *TypeMapper) mapPostgres(f *schema.FieldDescriptor) string {
	switch f.Type {
	case schema.TypeText:
		return varchar(f)
	case schema.TypeDate:
		return "TIMESTAMP"
	case schema.TypeDouble:
		return "DOUBLE PRECISION"
	case schema.TypeFloat:
		return "REAL"
	case schema.TypeBool:
		return "BOOLEAN"
	case schema.TypeUUID:
		return "UUID"
	case schema.TypeInt:
		if f.Serial {
			return "SERIAL"
		}
		return "INTEGER"
	case schema.TypeShort:
		if f.Serial {
			return "SMALLSERIAL"
		}
		return "SMALLINT"
	case schema.TypeLong:
		if f.Serial {
			return "BIGSERIAL"
		}
		return "BIGINT"
	default:
		return "VARCHAR(50)"
	}
}
