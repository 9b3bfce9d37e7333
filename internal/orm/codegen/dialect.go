// Package codegen synthesizes SQL from entity metadata and criteria.
// It renders DDL with per-dialect type mapping, key-based DML and
// criteria-based selections, each paired with its ordered bind values.
package codegen

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingMetadata is returned when a field needed for rendering has no column
var ErrMissingMetadata = errors.New("missing metadata")

// ErrNoPrimaryKey is returned when a key-based statement targets an entity without keys
var ErrNoPrimaryKey = errors.New("entity has no primary key")

// ErrUnsupportedSerial is returned for a serial field SQLite cannot generate:
// only a sole INTEGER PRIMARY KEY is assigned from the rowid
var ErrUnsupportedSerial = errors.New("serial field must be the only integer primary key on sqlite")

// Dialect identifies a SQL dialect
type Dialect string

const (
	SQLite     Dialect = "sqlite"
	MySQL      Dialect = "mysql"
	PostgreSQL Dialect = "postgres"
)

// ParseDialect converts a configuration string to a Dialect
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql", "pg", "pgx":
		return PostgreSQL, nil
	default:
		return "", fmt.Errorf("unknown dialect: %q", s)
	}
}

// String returns the dialect name
func (d Dialect) String() string {
	return string(d)
}

// Drivers returns the database/sql driver names that speak the dialect,
// the default driver first
func (d Dialect) Drivers() []string {
	switch d {
	case SQLite:
		return []string{"sqlite3", "sqlite"}
	case MySQL:
		return []string{"mysql"}
	case PostgreSQL:
		return []string{"pgx", "postgres"}
	default:
		return nil
	}
}

// DefaultDriver returns the preferred database/sql driver name
func (d Dialect) DefaultDriver() string {
	drivers := d.Drivers()
	if len(drivers) == 0 {
		return ""
	}
	return drivers[0]
}

// SupportsDriver reports whether driver speaks the dialect
func (d Dialect) SupportsDriver(driver string) bool {
	for _, name := range d.Drivers() {
		if name == driver {
			return true
		}
	}
	return false
}

// Rebind rewrites "?" placeholders into the dialect's native form.
// Question marks inside quoted literals and identifiers are left alone.
func Rebind(d Dialect, query string) string {
	if d != PostgreSQL || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Statement is rendered SQL paired with its positional bind values
type Statement struct {
	SQL  string
	Args []any
}

// String returns the SQL text
func (s Statement) String() string {
	return s.SQL
}
