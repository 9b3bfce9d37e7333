package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/daokit/internal/orm/codegen"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "daokit.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "daokit.db", cfg.Database.DSN)
	assert.True(t, cfg.Database.AutoCreate)
	assert.True(t, cfg.Cache.Enabled)
	assert.Empty(t, cfg.Cache.Redis.Addr)
	assert.Equal(t, "daokit:invalidate", cfg.Cache.Redis.Channel)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
database:
  dialect: postgresql
  driver: postgres
  dsn: postgres://localhost/orders
  max_open_conns: 8
  conn_max_lifetime: 5m
  auto_create: false
cache:
  redis:
    addr: localhost:6379
    db: 2
log:
  level: debug
  development: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgresql", cfg.Database.Dialect)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 8, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.False(t, cfg.Database.AutoCreate)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.True(t, cfg.Log.Development)

	ds, err := cfg.Database.Datasource()
	require.NoError(t, err)
	assert.Equal(t, codegen.PostgreSQL, ds.Dialect)
	assert.Equal(t, 5*time.Minute, ds.ConnMaxLifetime)
}

func TestLoadFindsFileInParent(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "database:\n  dsn: parent.db\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	found, err := FindConfigFile()
	require.NoError(t, err)
	assert.Equal(t, "daokit.yml", filepath.Base(found))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "parent.db", cfg.Database.DSN)
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "database:\n  dsn: file.db\n")
	t.Setenv("DAOKIT_DATABASE_DSN", "env.db")
	t.Setenv("DAOKIT_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Dialect: "sqlite", DSN: "x.db"},
			Log:      LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown dialect", func(c *Config) { c.Database.Dialect = "oracle" }, "database.dialect"},
		{"driver mismatch", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = " " }, "database.dsn"},
		{"negative pool", func(c *Config) { c.Database.MaxOpenConns = -1 }, "pool limits"},
		{"negative lifetime", func(c *Config) { c.Database.ConnMaxLifetime = -time.Second }, "conn_max_lifetime"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := validateConfig(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
