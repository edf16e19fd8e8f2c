package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func expense(merchant, amount, shareA, shareB string) Record {
	return Record{
		Timestamp: time.Date(2026, 6, 12, 10, 0, 0, 0, time.UTC),
		Merchant:  merchant,
		Month:     "June",
		Amount:    dec(amount),
		ShareA:    dec(shareA),
		ShareB:    dec(shareB),
	}
}

func TestRecordValidate(t *testing.T) {
	cases := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"valid split", expense("Costco", "50", "25", "25"), false},
		{"valid one-sided", expense("Costco", "50", "50", "0"), false},
		{"shares mismatch", expense("Costco", "50", "25", "10"), true},
		{"within epsilon", expense("Costco", "10", "3.33", "6.66"), false},
		{"negative share", expense("Costco", "50", "-25", "75"), true},
		{"empty merchant", expense("  ", "50", "25", "25"), true},
		{"settlement ok", Record{Merchant: SettlementMerchant, ShareB: dec("50")}, false},
		{"settlement both shares", Record{Merchant: SettlementMerchant, ShareA: dec("1"), ShareB: dec("2")}, true},
		{"settlement no share", Record{Merchant: SettlementMerchant}, true},
		{"settlement nonzero amount", Record{Merchant: SettlementMerchant, Amount: dec("50"), ShareA: dec("50")}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.rec.Validate()
			if (err != nil) != c.wantErr {
				t.Fatalf("Validate() = %v, wantErr=%v", err, c.wantErr)
			}
		})
	}
}

func TestIsSettlement(t *testing.T) {
	if !(Record{Merchant: "settlement"}).IsSettlement() {
		t.Fatal("sentinel match should be case-insensitive")
	}
	if (Record{Merchant: "Costco"}).IsSettlement() {
		t.Fatal("regular merchant flagged as settlement")
	}
}

func TestPatchApply(t *testing.T) {
	r := expense("Costco", "50", "50", "0")
	merchant := "Target"
	amount := dec("75")
	shareA := dec("75")
	patched := Patch{Merchant: &merchant, Amount: &amount, ShareA: &shareA}.Apply(r)

	if patched.Merchant != "Target" || !patched.Amount.Equal(dec("75")) || !patched.ShareA.Equal(dec("75")) {
		t.Fatalf("unexpected patched record: %+v", patched)
	}
	if !patched.ShareB.Equal(dec("0")) || patched.Month != "June" {
		t.Fatalf("untouched fields changed: %+v", patched)
	}
	if r.Merchant != "Costco" {
		t.Fatal("Apply mutated the original record")
	}
}

func TestSinceLastSettlement(t *testing.T) {
	records := []Record{
		expense("Costco", "50", "25", "25"),
		{Merchant: SettlementMerchant, ShareA: dec("10")},
		expense("Target", "20", "20", "0"),
		expense("Cafe", "8", "4", "4"),
	}
	got := SinceLastSettlement(records)
	if len(got) != 2 || got[0].Merchant != "Target" {
		t.Fatalf("unexpected window: %+v", got)
	}

	noSettle := records[2:]
	if got := SinceLastSettlement(noSettle); len(got) != 2 {
		t.Fatalf("expected full slice when no settlement, got %d", len(got))
	}

	trailing := append(append([]Record{}, records...), Record{Merchant: SettlementMerchant, ShareB: dec("5")})
	if got := SinceLastSettlement(trailing); len(got) != 0 {
		t.Fatalf("expected empty window after trailing settlement, got %d", len(got))
	}
}
