package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input    string
		expected Dialect
		wantErr  bool
	}{
		{"sqlite", SQLite, false},
		{"SQLite3", SQLite, false},
		{"mysql", MySQL, false},
		{"mariadb", MySQL, false},
		{"postgres", PostgreSQL, false},
		{" PostgreSQL ", PostgreSQL, false},
		{"pgx", PostgreSQL, false},
		{"oracle", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseDialect(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDialect_Drivers(t *testing.T) {
	assert.Equal(t, "sqlite3", SQLite.DefaultDriver())
	assert.Equal(t, "mysql", MySQL.DefaultDriver())
	assert.Equal(t, "pgx", PostgreSQL.DefaultDriver())
	assert.Equal(t, "", Dialect("oracle").DefaultDriver())

	assert.True(t, SQLite.SupportsDriver("sqlite"))
	assert.True(t, PostgreSQL.SupportsDriver("postgres"))
	assert.False(t, MySQL.SupportsDriver("pgx"))
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		input    string
		expected string
	}{
		{"postgres numbered", PostgreSQL, "SELECT * FROM t WHERE 1=1 AND a = ? AND b IN (?, ?)", "SELECT * FROM t WHERE 1=1 AND a = $1 AND b IN ($2, $3)"},
		{"postgres skips literals", PostgreSQL, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{"postgres skips quoted identifiers", PostgreSQL, `SELECT "a?" FROM t WHERE b = ?`, `SELECT "a?" FROM t WHERE b = $1`},
		{"postgres escaped quote", PostgreSQL, "SELECT 'it''s?' WHERE a = ?", "SELECT 'it''s?' WHERE a = $1"},
		{"postgres without placeholders", PostgreSQL, "SELECT 1", "SELECT 1"},
		{"sqlite untouched", SQLite, "SELECT * FROM t WHERE a = ?", "SELECT * FROM t WHERE a = ?"},
		{"mysql untouched", MySQL, "DELETE FROM t WHERE a = ?", "DELETE FROM t WHERE a = ?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Rebind(tt.dialect, tt.input))
		})
	}
}
