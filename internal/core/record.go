package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Party identifies one of the two fixed participants.
type Party string

const (
	PartyA Party = "A"
	PartyB Party = "B"
)

// SettlementMerchant is the sentinel merchant marking balancing-payment rows.
const SettlementMerchant = "Settlement"

// Epsilon is the tolerance under which two money values compare equal.
// It absorbs the rounding drift of repeated two-decimal sums.
var Epsilon = decimal.New(1, -2) // 0.01

var (
	ErrTargetNotFound = errors.New("no matching record")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyMerchant = errors.New("empty merchant")
)

// Record is one ledger row. Records are stored in append order; the store
// position is the only identity.
type Record struct {
	Timestamp time.Time
	Merchant  string
	Month     string
	Label     string
	Amount    decimal.Decimal
	ShareA    decimal.Decimal
	ShareB    decimal.Decimal
}

// IsSettlement reports whether the record is a balancing-payment row.
func (r Record) IsSettlement() bool {
	return strings.EqualFold(strings.TrimSpace(r.Merchant), SettlementMerchant)
}

// Share returns the given party's portion of the record.
func (r Record) Share(p Party) decimal.Decimal {
	if p == PartyB {
		return r.ShareB
	}
	return r.ShareA
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if r.Amount.IsNegative() || r.ShareA.IsNegative() || r.ShareB.IsNegative() {
		return ErrInvalidAmount
	}
	if r.IsSettlement() {
		// Settlement rows carry amount 0 and exactly one non-zero share.
		if !r.Amount.IsZero() {
			return errors.New("settlement row must have zero amount")
		}
		if r.ShareA.IsZero() == r.ShareB.IsZero() {
			return errors.New("settlement row must have exactly one non-zero share")
		}
		return nil
	}
	if !WithinEpsilon(r.ShareA.Add(r.ShareB), r.Amount) {
		return errors.New("shares do not sum to amount")
	}
	return nil
}

// Patch carries partial field updates for Store.Update. Nil fields are left
// unchanged.
type Patch struct {
	Merchant *string
	Month    *string
	Label    *string
	Amount   *decimal.Decimal
	ShareA   *decimal.Decimal
	ShareB   *decimal.Decimal
}

// Apply returns a copy of r with the non-nil patch fields set.
func (p Patch) Apply(r Record) Record {
	if p.Merchant != nil {
		r.Merchant = *p.Merchant
	}
	if p.Month != nil {
		r.Month = *p.Month
	}
	if p.Label != nil {
		r.Label = *p.Label
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.ShareA != nil {
		r.ShareA = *p.ShareA
	}
	if p.ShareB != nil {
		r.ShareB = *p.ShareB
	}
	return r
}

// WithinEpsilon reports whether a and b differ by at most Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// DisplayMonth returns the display-month string for a timestamp ("January",
// "February", ...). The stored Month field is user-corrigible and not
// necessarily derived from the timestamp.
func DisplayMonth(t time.Time) string {
	return t.Month().String()
}

// SinceLastSettlement returns the suffix of records after the last settlement
// row, or all records when none exists.
func SinceLastSettlement(records []Record) []Record {
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].IsSettlement() {
			return records[i+1:]
		}
	}
	return records
}
