package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrTooPrecise = errors.New("amount has more decimal places than the currency allows")

// Decimals counts the significant fractional digits of d (100.10 -> 1, 100 -> 0).
func Decimals(d decimal.Decimal) int32 {
	if d.Exponent() >= 0 {
		return 0
	}

	s := d.String()
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return int32(len(s) - 1 - i)
		}
	}
	return 0
}

// ToMinor converts a major-unit amount into an integer count of minor units.
func ToMinor(amount decimal.Decimal, currency string) (int64, error) {
	units := MinorUnits(currency)
	if Decimals(amount) > units {
		return 0, fmt.Errorf("%w: %s for %s", ErrTooPrecise, amount.String(), currency)
	}

	minor := amount.Shift(units)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s for %s", ErrTooPrecise, amount.String(), currency)
	}
	return minor.IntPart(), nil
}

// FromMinor converts minor units back into a major-unit decimal.
func FromMinor(minor int64, currency string) decimal.Decimal {
	return decimal.New(minor, -MinorUnits(currency))
}
