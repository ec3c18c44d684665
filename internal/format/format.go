// Package format normalizes amounts and rates before and after conversion.
package format

import (
	"encoding/json"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"math"
	"strings"
)

const (
	// Unrounded passes values through without rounding.
	Unrounded int32 = -1
	// CryptoPrecision is used for every conversion involving a cryptocurrency.
	CryptoPrecision int32 = 8
	// FiatPrecision is used for fiat to fiat conversions.
	FiatPrecision int32 = 4
)

// Parse coerces a numeric value or numeric string into a decimal.
func Parse(value any) (decimal.Decimal, error) {
	const op = "format.Parse"

	switch v := value.(type) {
	case nil:
		return decimal.Zero, errors.Wrap(entities.ErrInvalidAmount, op)
	case decimal.Decimal:
		return v, nil
	case float64:
		return fromFloat(v)
	case float32:
		return fromFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case uint:
		return decimal.NewFromUint64(uint64(v)), nil
	case uint64:
		return decimal.NewFromUint64(v), nil
	case json.Number:
		return fromString(v.String())
	case string:
		return fromString(v)
	default:
		return decimal.Zero, errors.Wrapf(entities.ErrInvalidAmount, "%s: unsupported type %T", op, value)
	}
}

// Number parses value and rounds it to precision decimal places.
func Number(value any, precision int32) (float64, error) {
	d, err := Parse(value)
	if err != nil {
		return 0, err
	}

	if precision >= 0 {
		d = d.Round(precision)
	}

	f, _ := d.Float64()
	return f, nil
}

// Round rounds v half away from zero. NaN and infinities are returned as is.
func Round(v float64, precision int32) float64 {
	if precision < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}

	f, _ := decimal.NewFromFloat(v).Round(precision).Float64()
	return f
}

// IsEmpty reports whether the map has no keys.
func IsEmpty[K comparable, V any](m map[K]V) bool {
	return len(m) == 0
}

func fromFloat(v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero, errors.Wrap(entities.ErrInvalidAmount, "format.fromFloat")
	}
	return decimal.NewFromFloat(v), nil
}

func fromString(s string) (decimal.Decimal, error) {
	const op = "format.fromString"

	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.Wrap(entities.ErrInvalidAmount, op)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(entities.ErrInvalidAmount, "%s: %q", op, s)
	}

	return d, nil
}
