package engine

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Drift is the result of comparing a listed value with a newly observed one.
// A positive Percent means the item is now worth less than it was listed for.
type Drift struct {
	Percent      decimal.Decimal
	ShouldDelist bool
}

// Evaluate computes (listed / observed * 100) - 100 and flags a delist when
// it exceeds threshold. ok is false when observed is not positive; the drift
// is undefined then and never asks for a delist.
func Evaluate(listed, observed int64, threshold decimal.Decimal) (Drift, bool) {
	if observed <= 0 {
		return Drift{}, false
	}

	pct := decimal.NewFromInt(listed).
		Div(decimal.NewFromInt(observed)).
		Mul(hundred).
		Sub(hundred)

	return Drift{
		Percent:      pct,
		ShouldDelist: pct.GreaterThan(threshold),
	}, true
}

// Dodges reports whether a status change must be ignored because the live
// value dropped below the recorded one by more than threshold.
//
// It proceeds when nothing was recorded, when the observed value is not
// lower, or when the drop stays within tolerance. A non-positive observed
// value against a recorded price is always a dodge.
func Dodges(listed int64, recorded bool, observed int64, threshold decimal.Decimal) bool {
	if !recorded || observed >= listed {
		return false
	}
	d, ok := Evaluate(listed, observed, threshold)
	if !ok {
		return true
	}
	return d.Percent.GreaterThan(threshold)
}
