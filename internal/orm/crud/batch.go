package crud

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Exec runs a native statement and returns the number of rows affected.
// Placeholders are passed to the driver unchanged.
func (d *DAO) Exec(ctx context.Context, sqlText string, args ...any) (int64, error) {
	conn, err := d.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	result, err := conn.ExecContext(ctx, sqlText, args...)
	if err != nil {
		d.logger.Error("native statement failed", rawFields(sqlText, args, err)...)
		return 0, err
	}
	return result.RowsAffected()
}

// ExecScript runs the ;-separated statements of script in order on one
// connection, skipping empty ones, and stops at the first failure.
// Semicolons inside quoted literals or comments do not split statements.
func (d *DAO) ExecScript(ctx context.Context, script string) error {
	statements := SplitScript(script)
	if len(statements) == 0 {
		return nil
	}

	conn, err := d.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for i, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			d.logger.Error("script statement failed",
				zap.Int("statement", i+1),
				zap.String("sql", stmt),
				zap.Error(err))
			return err
		}
	}
	return nil
}

// SplitScript splits script into statements on semicolons. Semicolons inside
// quoted literals do not end a statement; a doubled quote stays inside its
// literal. "--" line comments and "/* */" block comments are dropped. Blank
// statements are skipped.
func SplitScript(script string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	src := []rune(script)
	for i := 0; i < len(src); i++ {
		r := src[i]
		switch {
		case r == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				current.WriteRune('\n')
			}
		case r == '/' && i+1 < len(src) && src[i+1] == '*':
			i += 2
			for i < len(src) && !(src[i] == '*' && i+1 < len(src) && src[i+1] == '/') {
				i++
			}
			i++
			current.WriteRune(' ')
		case r == '\'' || r == '"' || r == '`':
			end := i + 1
			for end < len(src) && src[end] != r {
				end++
			}
			current.WriteString(string(src[i:min(end+1, len(src))]))
			i = end
		case r == ';':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return statements
}

func rawFields(sqlText string, args []any, err error) []zap.Field {
	return []zap.Field{
		zap.String("sql", sqlText),
		zap.Any("args", args),
		zap.Error(err),
	}
}
