// Package migrate creates the tables of entities on first use.
// It never alters or drops anything: every statement it runs is a
// CREATE ... IF NOT EXISTS.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/conduit-lang/daokit/internal/orm/codegen"
	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// mysqlDuplicateKeyName is raised by CREATE INDEX on an existing index
const mysqlDuplicateKeyName = 1061

// Execer runs a statement; *sql.DB, *sql.Conn and *sql.Tx satisfy it
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Ensurer issues the DDL of each entity type at most once per instance
type Ensurer struct {
	dialect codegen.Dialect
	ddl     *codegen.DDLGenerator
	ensured sync.Map // reflect.Type -> struct{}
	logger  *zap.Logger
}

// NewEnsurer creates an ensurer for the dialect
func NewEnsurer(d codegen.Dialect, logger *zap.Logger) *Ensurer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensurer{
		dialect: d,
		ddl:     codegen.NewDDLGenerator(d),
		logger:  logger,
	}
}

// Ensure creates the table and indexes of entity unless this ensurer already
// did. A failed attempt is retried on the next call.
func (e *Ensurer) Ensure(ctx context.Context, db Execer, entity *schema.EntityDescriptor) error {
	if entity == nil {
		return fmt.Errorf("%w: nil entity", codegen.ErrMissingMetadata)
	}
	if e.Ensured(entity.Type) {
		return nil
	}

	statements, err := e.ddl.Generate(entity)
	if err != nil {
		return fmt.Errorf("generating DDL for %s: %w", entity.Name, err)
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if e.tolerable(err) {
				e.logger.Debug("index already exists",
					zap.String("table", entity.Table),
					zap.String("sql", stmt))
				continue
			}
			e.logger.Error("creating table failed",
				zap.String("entity", entity.QualifiedName()),
				zap.String("sql", stmt),
				zap.Error(err))
			return fmt.Errorf("creating table %s: %w", entity.Table, err)
		}
	}

	e.ensured.Store(entity.Type, struct{}{})
	e.logger.Debug("table ensured",
		zap.String("entity", entity.QualifiedName()),
		zap.String("table", entity.Table),
		zap.Int("statements", len(statements)))
	return nil
}

// Ensured reports whether the table of t was created by this ensurer
func (e *Ensurer) Ensured(t reflect.Type) bool {
	_, ok := e.ensured.Load(t)
	return ok
}

// Reset forgets every ensured entity type
func (e *Ensurer) Reset() {
	e.ensured.Range(func(k, _ any) bool {
		e.ensured.Delete(k)
		return true
	})
}

// tolerable reports errors that mean the object already exists. MySQL has no
// CREATE INDEX IF NOT EXISTS.
func (e *Ensurer) tolerable(err error) bool {
	if e.dialect != codegen.MySQL {
		return false
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateKeyName
}
