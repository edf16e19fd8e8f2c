// Package engine computes derived views over the ledger: filtered sums,
// grouped breakdowns, recent-record listings, the running balance between
// the two parties and the settlement row that zeroes it.
package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"settleup/internal/core"
)

var two = decimal.NewFromInt(2)

// SumFiltered applies the filter and sums Amount over what remains.
func SumFiltered(records []core.Record, f core.Filter) decimal.Decimal {
	sum := decimal.Zero
	for _, rec := range f.Apply(records) {
		sum = sum.Add(rec.Amount)
	}
	return sum
}

// GroupSum is one group in a breakdown, keyed by the grouping value.
type GroupSum struct {
	Key string
	Sum decimal.Decimal
}

// GroupedSums partitions the filtered records by the given key (label,
// merchant or month), sums Amount per group, sorts the groups descending by
// sum and truncates to topN when topN > 0. Ties sort by key so the output
// is deterministic.
func GroupedSums(records []core.Record, f core.Filter, groupBy string, topN int) ([]GroupSum, error) {
	var keyOf func(core.Record) string
	switch strings.ToLower(strings.TrimSpace(groupBy)) {
	case "label":
		keyOf = func(r core.Record) string { return r.Label }
	case "merchant":
		keyOf = func(r core.Record) string { return r.Merchant }
	case "month":
		keyOf = func(r core.Record) string { return r.Month }
	default:
		return nil, fmt.Errorf("unknown grouping key %q", groupBy)
	}

	sums := make(map[string]decimal.Decimal)
	for _, rec := range f.Apply(records) {
		key := keyOf(rec)
		if key == "" {
			key = "(none)"
		}
		sums[key] = sums[key].Add(rec.Amount)
	}

	groups := make([]GroupSum, 0, len(sums))
	for key, sum := range sums {
		groups = append(groups, GroupSum{Key: key, Sum: sum})
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].Sum.Equal(groups[j].Sum) {
			return groups[i].Sum.GreaterThan(groups[j].Sum)
		}
		return groups[i].Key < groups[j].Key
	})

	if topN > 0 && len(groups) > topN {
		groups = groups[:topN]
	}
	return groups, nil
}

// ListRecent returns up to n records in reverse-append order.
func ListRecent(records []core.Record, n int) []core.Record {
	if n <= 0 {
		return nil
	}
	out := make([]core.Record, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, records[i])
	}
	return out
}

// Balance is the running position between the two parties.
type Balance struct {
	TotalA decimal.Decimal
	TotalB decimal.Decimal
	Total  decimal.Decimal
	Delta  decimal.Decimal
}

// Settled reports whether the parties are even within the epsilon.
func (b Balance) Settled() bool {
	return core.WithinEpsilon(b.Delta, decimal.Zero)
}

// Owing returns who owes and how much. Only meaningful when not settled.
func (b Balance) Owing() (core.Party, decimal.Decimal) {
	if b.Delta.IsPositive() {
		return core.PartyA, b.Delta
	}
	return core.PartyB, b.Delta.Neg()
}

// ComputeBalance derives the balance over the records appended since the
// last settlement row. A settlement row carries the owing party's share, so
// starting the window right after it makes the very next balance zero.
func ComputeBalance(records []core.Record) Balance {
	var b Balance
	b.TotalA = decimal.Zero
	b.TotalB = decimal.Zero
	for _, rec := range core.SinceLastSettlement(records) {
		b.TotalA = b.TotalA.Add(rec.ShareA)
		b.TotalB = b.TotalB.Add(rec.ShareB)
	}
	b.Total = b.TotalA.Add(b.TotalB)
	b.Delta = b.Total.Div(two).Sub(b.TotalA)
	return b
}

// SettlementRecord synthesizes the row that records a settle-up. The second
// return is false when the balance is already settled and nothing should be
// appended.
func SettlementRecord(b Balance, now time.Time) (core.Record, bool) {
	if b.Settled() {
		return core.Record{}, false
	}

	owing, amount := b.Owing()
	rec := core.Record{
		Timestamp: now,
		Merchant:  core.SettlementMerchant,
		Month:     core.DisplayMonth(now),
		Label:     core.SettlementMerchant,
		Amount:    decimal.Zero,
		ShareA:    decimal.Zero,
		ShareB:    decimal.Zero,
	}
	switch owing {
	case core.PartyA:
		rec.ShareA = amount.Round(2)
	case core.PartyB:
		rec.ShareB = amount.Round(2)
	}
	return rec, true
}
