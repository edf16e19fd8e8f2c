package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"settleup/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func expense(merchant, month, label, amount, shareA, shareB string) core.Record {
	return core.Record{
		Timestamp: time.Date(2026, 6, 12, 9, 0, 0, 0, time.UTC),
		Merchant:  merchant,
		Month:     month,
		Label:     label,
		Amount:    dec(amount),
		ShareA:    dec(shareA),
		ShareB:    dec(shareB),
	}
}

func sampleLedger() []core.Record {
	return []core.Record{
		expense("Costco", "June", "groceries", "50", "25", "25"),
		expense("Shell", "June", "gas", "30", "30", "0"),
		expense("Cafe", "July", "dining", "20", "0", "20"),
	}
}

func TestSumFiltered(t *testing.T) {
	records := sampleLedger()

	tests := []struct {
		name   string
		filter core.Filter
		want   string
	}{
		{"no filter sums all", core.Filter{}, "100"},
		{"month filter", core.Filter{Month: "june"}, "80"},
		{"label filter", core.Filter{Label: "dining"}, "20"},
		{"no match", core.Filter{Merchant: "target"}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SumFiltered(records, tt.filter)
			if !got.Equal(dec(tt.want)) {
				t.Errorf("SumFiltered() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGroupedSums(t *testing.T) {
	records := sampleLedger()

	groups, err := GroupedSums(records, core.Filter{}, "label", 0)
	if err != nil {
		t.Fatalf("GroupedSums: %v", err)
	}
	want := []GroupSum{
		{Key: "groceries", Sum: dec("50")},
		{Key: "gas", Sum: dec("30")},
		{Key: "dining", Sum: dec("20")},
	}
	if len(groups) != len(want) {
		t.Fatalf("groups = %+v", groups)
	}
	for i := range want {
		if groups[i].Key != want[i].Key || !groups[i].Sum.Equal(want[i].Sum) {
			t.Errorf("groups[%d] = %+v, want %+v", i, groups[i], want[i])
		}
	}
}

func TestGroupedSumsTopN(t *testing.T) {
	groups, err := GroupedSums(sampleLedger(), core.Filter{}, "merchant", 2)
	if err != nil {
		t.Fatalf("GroupedSums: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if groups[0].Key != "Costco" || groups[1].Key != "Shell" {
		t.Errorf("groups = %+v", groups)
	}
}

func TestGroupedSumsByMonthWithFilter(t *testing.T) {
	groups, err := GroupedSums(sampleLedger(), core.Filter{Month: "June"}, "month", 0)
	if err != nil {
		t.Fatalf("GroupedSums: %v", err)
	}
	if len(groups) != 1 || groups[0].Key != "June" || !groups[0].Sum.Equal(dec("80")) {
		t.Errorf("groups = %+v", groups)
	}
}

func TestGroupedSumsUnknownKey(t *testing.T) {
	if _, err := GroupedSums(sampleLedger(), core.Filter{}, "weekday", 0); err == nil {
		t.Error("expected error for unknown grouping key")
	}
}

func TestGroupedSumsTieBreak(t *testing.T) {
	records := []core.Record{
		expense("B-Shop", "June", "b", "10", "10", "0"),
		expense("A-Shop", "June", "a", "10", "10", "0"),
	}
	groups, err := GroupedSums(records, core.Filter{}, "merchant", 0)
	if err != nil {
		t.Fatalf("GroupedSums: %v", err)
	}
	if groups[0].Key != "A-Shop" {
		t.Errorf("equal sums should sort by key, got %+v", groups)
	}
}

func TestListRecent(t *testing.T) {
	records := sampleLedger()

	recent := ListRecent(records, 2)
	if len(recent) != 2 {
		t.Fatalf("len = %d, want 2", len(recent))
	}
	if recent[0].Merchant != "Cafe" || recent[1].Merchant != "Shell" {
		t.Errorf("recent = %+v", recent)
	}

	if got := ListRecent(records, 10); len(got) != 3 {
		t.Errorf("limit beyond length should return all, got %d", len(got))
	}
	if got := ListRecent(records, 0); got != nil {
		t.Errorf("zero limit should return nothing, got %+v", got)
	}
}

func TestComputeBalance(t *testing.T) {
	records := []core.Record{
		expense("Costco", "June", "groceries", "50", "25", "25"),
		expense("Shell", "June", "gas", "30", "30", "0"),
	}

	b := ComputeBalance(records)
	if !b.TotalA.Equal(dec("55")) || !b.TotalB.Equal(dec("25")) {
		t.Fatalf("totals = %s / %s", b.TotalA, b.TotalB)
	}
	if !b.Total.Equal(dec("80")) {
		t.Fatalf("total = %s", b.Total)
	}
	if !b.Delta.Equal(dec("-15")) {
		t.Fatalf("delta = %s, want -15", b.Delta)
	}
	if b.Settled() {
		t.Fatal("balance should not be settled")
	}
	owing, amount := b.Owing()
	if owing != core.PartyB || !amount.Equal(dec("15")) {
		t.Fatalf("owing = %s %s, want B 15", owing, amount)
	}
}

func TestComputeBalanceEvenSplit(t *testing.T) {
	records := []core.Record{
		expense("Costco", "June", "groceries", "50", "25", "25"),
	}
	if b := ComputeBalance(records); !b.Settled() {
		t.Errorf("even split should be settled, delta = %s", b.Delta)
	}
}

func TestSettleThenBalanceIsZero(t *testing.T) {
	records := []core.Record{
		expense("Costco", "June", "groceries", "50", "50", "0"),
		expense("Cafe", "June", "dining", "20", "0", "20"),
	}

	b := ComputeBalance(records)
	owing, amount := b.Owing()
	if owing != core.PartyB || !amount.Equal(dec("15")) {
		t.Fatalf("owing = %s %s, want B 15", owing, amount)
	}

	settle, ok := SettlementRecord(b, time.Date(2026, 6, 13, 10, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatal("expected a settlement record")
	}
	if !settle.IsSettlement() {
		t.Fatalf("settlement record not recognized: %+v", settle)
	}
	if !settle.Amount.IsZero() || !settle.ShareB.Equal(dec("15")) || !settle.ShareA.IsZero() {
		t.Fatalf("settlement shares = %s / %s", settle.ShareA, settle.ShareB)
	}
	if settle.Month != "June" {
		t.Errorf("settlement month = %q", settle.Month)
	}

	after := ComputeBalance(append(records, settle))
	if !after.Settled() {
		t.Fatalf("balance after settle should be zero, delta = %s", after.Delta)
	}
}

func TestSettlementRecordWhenSettled(t *testing.T) {
	b := ComputeBalance([]core.Record{
		expense("Costco", "June", "groceries", "50", "25", "25"),
	})
	if _, ok := SettlementRecord(b, time.Now()); ok {
		t.Error("settled balance should produce no settlement record")
	}
}

func TestBalanceWindowRestartsAfterSettlement(t *testing.T) {
	records := []core.Record{
		expense("Costco", "June", "groceries", "100", "100", "0"),
	}
	b := ComputeBalance(records)
	settle, ok := SettlementRecord(b, time.Date(2026, 6, 13, 10, 0, 0, 0, time.UTC))
	if !ok {
		t.Fatal("expected settlement record")
	}
	records = append(records, settle)

	// Spending after the settlement starts a fresh window.
	records = append(records, expense("Shell", "June", "gas", "30", "0", "30"))
	b = ComputeBalance(records)
	owing, amount := b.Owing()
	if owing != core.PartyA || !amount.Equal(dec("15")) {
		t.Fatalf("post-settle owing = %s %s, want A 15", owing, amount)
	}
}

func TestComputeBalanceEpsilon(t *testing.T) {
	// Odd cent: delta is half a cent, inside the epsilon.
	records := []core.Record{
		expense("Cafe", "June", "dining", "0.01", "0.01", "0"),
	}
	if b := ComputeBalance(records); !b.Settled() {
		t.Errorf("half-cent delta should count as settled, delta = %s", b.Delta)
	}
}
