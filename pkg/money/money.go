// Package money centralizes the decimal arithmetic used by rating and
// invoicing. All monetary values are shopspring decimals rounded to two
// places with half-up semantics; float64 never touches an amount.
package money

import "github.com/shopspring/decimal"

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Round normalizes an amount to two decimal places, half-up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Overage computes max(0, used-included) * unitPrice rounded to two
// decimal places. The clamp happens on the unit count, before pricing,
// so a company under its allowance always yields exactly zero.
func Overage(used, included, unitPrice decimal.Decimal) decimal.Decimal {
	over := used.Sub(included)
	if over.Sign() <= 0 {
		return decimal.Zero
	}
	return Round(over.Mul(unitPrice))
}

// OverageUnits returns max(0, used-included), unrounded.
func OverageUnits(used, included decimal.Decimal) decimal.Decimal {
	over := used.Sub(included)
	if over.Sign() <= 0 {
		return decimal.Zero
	}
	return over
}

// Allocate splits total across weights proportionally, in cents, and
// distributes the remainder by largest fractional share so the parts
// always sum back to total. Zero or negative weights receive nothing.
func Allocate(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(weights))
	if len(weights) == 0 || total.Sign() == 0 {
		return parts
	}

	sum := decimal.Zero
	for _, w := range weights {
		if w.Sign() > 0 {
			sum = sum.Add(w)
		}
	}
	if sum.Sign() == 0 {
		return parts
	}

	totalCents := total.Shift(2)
	type frac struct {
		idx  int
		frac decimal.Decimal
	}
	fracs := make([]frac, 0, len(weights))
	assigned := decimal.Zero
	for i, w := range weights {
		if w.Sign() <= 0 {
			parts[i] = decimal.Zero
			continue
		}
		exact := totalCents.Mul(w).Div(sum)
		floor := exact.Floor()
		parts[i] = floor
		assigned = assigned.Add(floor)
		fracs = append(fracs, frac{idx: i, frac: exact.Sub(floor)})
	}

	remainder := int(totalCents.Sub(assigned).IntPart())
	for i := 0; i < len(fracs)-1; i++ {
		for j := i + 1; j < len(fracs); j++ {
			if fracs[j].frac.GreaterThan(fracs[i].frac) {
				fracs[i], fracs[j] = fracs[j], fracs[i]
			}
		}
	}
	for i := 0; i < remainder && i < len(fracs); i++ {
		parts[fracs[i].idx] = parts[fracs[i].idx].Add(decimal.NewFromInt(1))
	}

	for i := range parts {
		parts[i] = parts[i].Shift(-2)
	}
	return parts
}
