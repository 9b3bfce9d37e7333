// Package convert turns raw column values read from a driver into the Go
// values expected by entity fields.
package convert

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/conduit-lang/daokit/internal/orm/schema"
)

// Converter converts one raw column value for a field
type Converter interface {
	Convert(f *schema.FieldDescriptor, raw any) (any, error)
}

// DefaultConverter dispatches on the field's declared type
type DefaultConverter struct {
	logger *zap.Logger
}

// NewConverter creates a DefaultConverter; a nil logger discards warnings
func NewConverter(logger *zap.Logger) *DefaultConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultConverter{logger: logger}
}

// Convert returns nil for SQL NULL, otherwise a value of the field's canonical Go type
func (c *DefaultConverter) Convert(f *schema.FieldDescriptor, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if f.Type == schema.TypeUUID {
		return toUUID(raw)
	}
	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	var (
		v   any
		err error
	)
	switch f.Type {
	case schema.TypeText:
		v, err = cast.ToStringE(raw)
	case schema.TypeDate:
		v, err = toTime(raw)
	case schema.TypeDouble:
		v, err = cast.ToFloat64E(raw)
	case schema.TypeFloat:
		v, err = cast.ToFloat32E(raw)
	case schema.TypeBool:
		v, err = cast.ToBoolE(raw)
	case schema.TypeInt:
		v, err = cast.ToIntE(raw)
	case schema.TypeShort:
		v, err = cast.ToInt16E(raw)
	case schema.TypeLong:
		v, err = cast.ToInt64E(raw)
	default:
		c.logger.Warn("no converter for field type, reading as text",
			zap.String("field", f.Name),
			zap.Stringer("type", f.Type),
			zap.String("raw", fmt.Sprintf("%T", raw)))
		v, err = cast.ToStringE(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("converting column %s to %s: %w", f.Column, f.Type, err)
	}
	return v, nil
}

func toTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case int64:
		// integer dates are stored as Unix milliseconds
		return time.UnixMilli(v).UTC(), nil
	default:
		return cast.ToTimeE(raw)
	}
}

func toUUID(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case string:
		return uuid.Parse(v)
	default:
		return uuid.Nil, fmt.Errorf("cannot read %T as uuid", raw)
	}
}
