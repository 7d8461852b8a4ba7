package model

import (
	"errors"
	"math"
)

var ErrBadAmount = errors.New("amount must be a finite positive number of at most cent precision")

// MaxAmount bounds a single deposit or price. Converting anything larger
// from float64 would lose integer precision anyway.
const MaxAmount int64 = 1 << 50

// ParseAmount converts an amount in currency units (as decoded from a JSON
// number) into minor units. Rejects NaN, infinities, non-positive values and
// values with sub-cent precision.
func ParseAmount(units float64) (int64, error) {
	if math.IsNaN(units) || math.IsInf(units, 0) || units <= 0 {
		return 0, ErrBadAmount
	}
	cents := units * 100
	if cents > float64(MaxAmount) {
		return 0, ErrBadAmount
	}
	rounded := math.Round(cents)
	if math.Abs(cents-rounded) > 1e-6 {
		return 0, ErrBadAmount
	}
	return int64(rounded), nil
}

// FormatAmount renders minor units as currency units for responses.
func FormatAmount(cents int64) float64 {
	return float64(cents) / 100
}
