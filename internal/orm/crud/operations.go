// Package crud is the access façade of the ORM. A DAO handle ties a
// datasource and a dialect to the metadata registry, the SQL generators and
// the object cache, and exposes load, get, insert, update, delete, criteria
// selects and raw SQL over entities.
package crud

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conduit-lang/daokit/internal/orm/cache"
	"github.com/conduit-lang/daokit/internal/orm/codegen"
	"github.com/conduit-lang/daokit/internal/orm/convert"
	"github.com/conduit-lang/daokit/internal/orm/migrate"
	"github.com/conduit-lang/daokit/internal/orm/query"
	"github.com/conduit-lang/daokit/internal/orm/relationships"
	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// Datasource hands out one connection per logical operation; *sql.DB satisfies it
type Datasource interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

// Option configures a DAO
type Option func(*DAO)

// WithRegistry resolves entities through r instead of schema.DefaultRegistry
func WithRegistry(r *schema.Registry) Option {
	return func(d *DAO) { d.registry = r }
}

// WithCache uses c as the object cache; nil disables caching
func WithCache(c *cache.ObjectCache) Option {
	return func(d *DAO) {
		d.cache = c
		d.cacheSet = true
	}
}

// WithConverter replaces the default row converter
func WithConverter(c convert.Converter) Option {
	return func(d *DAO) { d.converter = c }
}

// WithLogger sets the logger failures are reported to
func WithLogger(l *zap.Logger) Option {
	return func(d *DAO) { d.logger = l }
}

// WithAutoCreate toggles CREATE TABLE IF NOT EXISTS on first use of an entity type
func WithAutoCreate(enabled bool) Option {
	return func(d *DAO) { d.autoCreate = enabled }
}

// DAO is a handle over one datasource. It is safe for concurrent use.
type DAO struct {
	ds         Datasource
	dialect    codegen.Dialect
	registry   *schema.Registry
	sql        *codegen.SQLGenerator
	cache      *cache.ObjectCache
	cacheSet   bool
	converter  convert.Converter
	autoCreate bool
	ensurer    *migrate.Ensurer
	follower   *relationships.Follower
	logger     *zap.Logger
	loads      singleflight.Group
}

// New creates a DAO. A nil datasource yields a handle whose every operation
// fails with ErrDatasourceNotConfigured.
func New(ds Datasource, dialect codegen.Dialect, opts ...Option) *DAO {
	if db, ok := ds.(*sql.DB); ok && db == nil {
		ds = nil
	}

	d := &DAO{
		ds:         ds,
		dialect:    dialect,
		autoCreate: true,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.registry == nil {
		d.registry = schema.DefaultRegistry
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if !d.cacheSet {
		d.cache = cache.NewObjectCache()
	}
	if d.converter == nil {
		d.converter = convert.NewConverter(d.logger)
	}

	d.sql = codegen.NewSQLGenerator(dialect)
	d.ensurer = migrate.NewEnsurer(dialect, d.logger)
	d.follower = relationships.NewFollower(d.registry, relationships.LoaderFunc(d.loadTarget))
	return d
}

// Dialect returns the handle's SQL dialect
func (d *DAO) Dialect() codegen.Dialect {
	return d.dialect
}

// Registry returns the metadata registry entities are resolved through
func (d *DAO) Registry() *schema.Registry {
	return d.registry
}

// Cache returns the object cache, nil when caching is disabled
func (d *DAO) Cache() *cache.ObjectCache {
	return d.cache
}

// Ping checks that a connection can be obtained and is alive
func (d *DAO) Ping(ctx context.Context) error {
	conn, err := d.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.PingContext(ctx)
}

func (d *DAO) conn(ctx context.Context) (*sql.Conn, error) {
	if d.ds == nil {
		return nil, ErrDatasourceNotConfigured
	}
	conn, err := d.ds.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	return conn, nil
}

// open acquires a connection and makes sure the entity's table exists
func (d *DAO) open(ctx context.Context, e *schema.EntityDescriptor) (*sql.Conn, error) {
	conn, err := d.conn(ctx)
	if err != nil {
		return nil, err
	}
	if d.autoCreate {
		if err := d.ensurer.Ensure(ctx, conn, e); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// entityOf resolves the descriptor of a pointer to an entity
func (d *DAO) entityOf(entity any) (*schema.EntityDescriptor, error) {
	if entity == nil {
		return nil, ErrNilEntity
	}
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("%w: expected a pointer to an entity, got %T", schema.ErrNotAnEntity, entity)
	}
	if v.IsNil() {
		return nil, ErrNilEntity
	}
	return d.registry.Resolve(v.Type().Elem())
}

func entityFor[T any](d *DAO) (*schema.EntityDescriptor, error) {
	return d.registry.Resolve(reflect.TypeOf((*T)(nil)).Elem())
}

// filterOf returns the criteria's filter, or the error it recorded while building
func filterOf[T any](c *query.Criteria[T]) (*query.Filter, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil criteria", query.ErrInvalidCriteria)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return c.Filter(), nil
}

func (d *DAO) cacheable(e *schema.EntityDescriptor) bool {
	return d.cache != nil && e.Cacheable
}

// evict drops a cached instance locally without notifying peers
func (d *DAO) evict(e *schema.EntityDescriptor, keys []any) {
	if d.cacheable(e) {
		d.cache.Apply(cache.Invalidation{EntityType: e.QualifiedName(), Key: cache.Key(keys)})
	}
}

func (d *DAO) invalidate(e *schema.EntityDescriptor, keys []any) {
	if d.cacheable(e) {
		d.cache.Invalidate(e.QualifiedName(), cache.Key(keys))
	}
}

func (d *DAO) logEntityFailure(msg string, e *schema.EntityDescriptor, entity any, err error) {
	d.logger.Error(msg,
		zap.String("entity", e.QualifiedName()),
		zap.Any("values", e.Values(entity)),
		zap.Error(err))
}

func (d *DAO) logStatementFailure(msg string, stmt codegen.Statement, err error) {
	d.logger.Error(msg,
		zap.String("sql", stmt.SQL),
		zap.Any("args", stmt.Args),
		zap.Error(err))
}
