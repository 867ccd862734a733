// Package voltage validates and formats the fixed-point values used for
// experiment voltages and measurement samples: 9 significant digits with
// 7 after the decimal point.
package voltage

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept.
const Places = 7

// limit is the exclusive magnitude bound implied by 9 total / 7 fractional digits.
var limit = decimal.New(100, 0)

// Validation failures.
var (
	ErrTooPrecise = errors.New("must have at most 7 decimal places")
	ErrOutOfRange = errors.New("must be between -99.9999999 and 99.9999999")
	ErrNotDecimal = errors.New("must be a decimal number")
)

func init() {
	// Emit JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Check reports whether d fits the fixed-point format.
func Check(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(Places)) {
		return ErrTooPrecise
	}
	if d.Abs().GreaterThanOrEqual(limit) {
		return ErrOutOfRange
	}
	return nil
}

// Rule is an ozzo-validation rule for decimal.Decimal and *decimal.Decimal
// fields. A nil pointer passes; combine with validation.Required.
var Rule = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case decimal.Decimal:
		return Check(v)
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		return Check(*v)
	default:
		return ErrNotDecimal
	}
})

// Format renders d with exactly Places fractional digits, the storage form.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Parse reads a stored value.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing fixed-point value %q: %w", s, err)
	}
	return d, nil
}
