package dispatch

import (
	"strings"

	"github.com/shopspring/decimal"

	"settleup/internal/core"
	"settleup/internal/oracle"
)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// proposedShares applies the split policy for a new expense. The extractor
// only proposes; the rules here decide. An explicit share pair is normalized
// proportionally to the amount, "half" splits evenly, a named payer takes
// the whole amount, and absent any signal the sender does.
func proposedShares(amount decimal.Decimal, f oracle.Fields, sender core.Party) (decimal.Decimal, decimal.Decimal) {
	if f.ShareA != nil && f.ShareB != nil {
		total := f.ShareA.Add(*f.ShareB)
		if total.IsPositive() {
			shareA := amount.Mul(*f.ShareA).Div(total).Round(2)
			return shareA, amount.Sub(shareA)
		}
	}

	if strings.EqualFold(strings.TrimSpace(deref(f.Split)), "half") {
		shareA := amount.Div(two).Round(2)
		return shareA, amount.Sub(shareA)
	}

	if payer, ok := parseParty(deref(f.Payer)); ok {
		if payer == core.PartyA {
			return amount, decimal.Zero
		}
		return decimal.Zero, amount
	}

	if sender == core.PartyA {
		return amount, decimal.Zero
	}
	return decimal.Zero, amount
}

// reconcileShares resolves an edit's share proposal against the amount. A
// pair summing to the amount is taken verbatim; a pair summing to ~100 is
// read as percentages. A single value within the amount is absolute, within
// 100 a percentage. Anything else cannot be reconciled.
func reconcileShares(amount decimal.Decimal, pa, pb *decimal.Decimal) (decimal.Decimal, decimal.Decimal, bool) {
	if pa != nil && pb != nil {
		if pa.IsNegative() || pb.IsNegative() {
			return decimal.Zero, decimal.Zero, false
		}
		sum := pa.Add(*pb)
		switch {
		case core.WithinEpsilon(sum, amount):
			shareA := pa.Round(2)
			return shareA, amount.Sub(shareA), true
		case core.WithinEpsilon(sum, hundred):
			shareA := amount.Mul(*pa).Div(hundred).Round(2)
			return shareA, amount.Sub(shareA), true
		default:
			return decimal.Zero, decimal.Zero, false
		}
	}

	given := pa
	if given == nil {
		given = pb
	}
	if given == nil || given.IsNegative() {
		return decimal.Zero, decimal.Zero, false
	}

	var share decimal.Decimal
	switch {
	case given.LessThanOrEqual(amount.Add(core.Epsilon)):
		share = decimal.Min(given.Round(2), amount)
	case given.LessThanOrEqual(hundred):
		share = amount.Mul(*given).Div(hundred).Round(2)
	default:
		return decimal.Zero, decimal.Zero, false
	}

	if pa != nil {
		return share, amount.Sub(share), true
	}
	return amount.Sub(share), share, true
}

func parseParty(s string) (core.Party, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(core.PartyA):
		return core.PartyA, true
	case string(core.PartyB):
		return core.PartyB, true
	default:
		return "", false
	}
}
