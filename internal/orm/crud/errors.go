package crud

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Common DAO error types
var (
	// ErrNotFound is returned by scalar reads when the query yields no row
	ErrNotFound = errors.New("record not found")

	// ErrDatasourceNotConfigured is returned by every operation of a DAO without a datasource
	ErrDatasourceNotConfigured = errors.New("datasource not configured")

	// ErrNilEntity is returned when an operation receives a nil entity
	ErrNilEntity = errors.New("nil entity")

	// ErrUniqueViolation classifies unique constraint violations
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation classifies foreign key constraint violations
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation classifies check constraint violations
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation classifies NOT NULL constraint violations
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// Classify maps a driver error to one of the constraint sentinels above.
// It returns nil when the error is not a recognised constraint violation.
// The error itself is never altered; DAO operations return driver errors as is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrUniqueViolation, ErrForeignKeyViolation, ErrCheckViolation, ErrNotNullViolation} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	// PostgreSQL through pgx
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code)
	}

	// PostgreSQL through lib/pq
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return classifySQLState(string(pqErr.Code))
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062: // ER_DUP_ENTRY
			return ErrUniqueViolation
		case 1216, 1217, 1451, 1452: // ER_NO_REFERENCED_ROW, ER_ROW_IS_REFERENCED
			return ErrForeignKeyViolation
		case 3819: // ER_CHECK_CONSTRAINT_VIOLATED
			return ErrCheckViolation
		case 1048, 1364: // ER_BAD_NULL_ERROR, ER_NO_DEFAULT_FOR_FIELD
			return ErrNotNullViolation
		}
		return nil
	}

	// SQLite drivers only expose the message consistently
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return ErrUniqueViolation
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return ErrForeignKeyViolation
	case strings.Contains(msg, "CHECK constraint failed"):
		return ErrCheckViolation
	case strings.Contains(msg, "NOT NULL constraint failed"):
		return ErrNotNullViolation
	}
	return nil
}

func classifySQLState(code string) error {
	switch code {
	case "23505": // unique_violation
		return ErrUniqueViolation
	case "23503": // foreign_key_violation
		return ErrForeignKeyViolation
	case "23514": // check_violation
		return ErrCheckViolation
	case "23502": // not_null_violation
		return ErrNotNullViolation
	}
	return nil
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation returns true if the error is a unique constraint violation
func IsUniqueViolation(err error) bool {
	return Classify(err) == ErrUniqueViolation
}

// IsForeignKeyViolation returns true if the error is a foreign key constraint violation
func IsForeignKeyViolation(err error) bool {
	return Classify(err) == ErrForeignKeyViolation
}

// IsCheckViolation returns true if the error is a check constraint violation
func IsCheckViolation(err error) bool {
	return Classify(err) == ErrCheckViolation
}

// IsNotNullViolation returns true if the error is a NOT NULL constraint violation
func IsNotNullViolation(err error) bool {
	return Classify(err) == ErrNotNullViolation
}
