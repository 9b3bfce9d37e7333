package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/conduit-lang/daokit/internal/orm/codegen"
	"github.com/conduit-lang/daokit/internal/orm/datasource"
)

// FileNames are the configuration files looked up, in order
var FileNames = []string{"daokit.yml", "daokit.yaml"}

// EnvPrefix prefixes environment overrides: DAOKIT_DATABASE_DSN overrides database.dsn
const EnvPrefix = "DAOKIT"

// Config represents the daokit configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Dialect         string        `mapstructure:"dialect"`
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoCreate      bool          `mapstructure:"auto_create"`
}

// CacheConfig represents object cache configuration
type CacheConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig represents the invalidation bus. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Disabled    bool   `mapstructure:"disabled"`
}

// Load loads the configuration from path, or from the nearest daokit.yml
// when path is empty. Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "daokit.db")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")
	v.SetDefault("database.auto_create", true)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.channel", "daokit:invalidate")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.disabled", false)

	v.SetConfigType("yaml")
	if path == "" {
		if found, err := FindConfigFile(); err == nil {
			path = found
		}
	}
	if path != "" {
		v.SetConfigFile(path)
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Datasource converts the database section to a datasource configuration
func (c DatabaseConfig) Datasource() (datasource.Config, error) {
	dialect, err := codegen.ParseDialect(c.Dialect)
	if err != nil {
		return datasource.Config{}, err
	}
	return datasource.Config{
		Dialect:         dialect,
		Driver:          c.Driver,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}, nil
}

// FindConfigFile looks for a daokit.yml in the working directory and its parents
func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no daokit.yml found")
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	ds, err := cfg.Database.Datasource()
	if err != nil {
		return fmt.Errorf("database.dialect: %w", err)
	}
	if _, err := ds.DriverName(); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database.dsn must not be empty")
	}
	if cfg.Database.MaxOpenConns < 0 || cfg.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database pool limits must not be negative")
	}
	if cfg.Database.ConnMaxLifetime < 0 {
		return fmt.Errorf("database.conn_max_lifetime must not be negative, got: %s", cfg.Database.ConnMaxLifetime)
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
