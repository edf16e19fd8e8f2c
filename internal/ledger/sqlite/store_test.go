package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"settleup/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(merchant string, amount string) core.Record {
	d, _ := decimal.NewFromString(amount)
	return core.Record{
		Timestamp: time.Date(2026, 6, 12, 9, 30, 0, 0, time.UTC),
		Merchant:  merchant,
		Month:     "June",
		Label:     "groceries",
		Amount:    d,
		ShareA:    d,
		ShareB:    decimal.Zero,
	}
}

func TestAppendListRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pos, err := s.Append(ctx, testRecord("Costco", "50.25"))
	if err != nil || pos != 0 {
		t.Fatalf("append: pos=%d err=%v", pos, err)
	}
	if pos, err = s.Append(ctx, testRecord("Target", "19.99")); err != nil || pos != 1 {
		t.Fatalf("second append: pos=%d err=%v", pos, err)
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Merchant != "Costco" || all[1].Merchant != "Target" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if !all[0].Amount.Equal(decimal.RequireFromString("50.25")) {
		t.Fatalf("amount lost precision: %s", all[0].Amount)
	}
	if !all[0].Timestamp.Equal(time.Date(2026, 6, 12, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("timestamp round trip: %v", all[0].Timestamp)
	}
}

func TestUpdateByPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Append(ctx, testRecord("Costco", "50"))
	s.Append(ctx, testRecord("Target", "20"))

	merchant := "Walmart"
	amount := decimal.RequireFromString("75")
	if err := s.Update(ctx, 1, core.Patch{Merchant: &merchant, Amount: &amount, ShareA: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}

	all, _ := s.ListAll(ctx)
	if all[1].Merchant != "Walmart" || !all[1].Amount.Equal(amount) {
		t.Fatalf("update not applied: %+v", all[1])
	}
	if all[0].Merchant != "Costco" {
		t.Fatalf("wrong row touched: %+v", all[0])
	}

	if err := s.Update(ctx, 9, core.Patch{Merchant: &merchant}); !errors.Is(err, core.ErrTargetNotFound) {
		t.Fatalf("out-of-range update: %v", err)
	}
}

func TestDeleteShiftsPositions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Append(ctx, testRecord("Costco", "50"))
	s.Append(ctx, testRecord("Target", "20"))
	s.Append(ctx, testRecord("Cafe", "8"))

	if err := s.Delete(ctx, 0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, _ := s.ListAll(ctx)
	if len(all) != 2 || all[0].Merchant != "Target" {
		t.Fatalf("positions did not shift: %+v", all)
	}

	// New appends land after the remaining rows.
	pos, err := s.Append(ctx, testRecord("Bakery", "5"))
	if err != nil || pos != 2 {
		t.Fatalf("append after delete: pos=%d err=%v", pos, err)
	}

	if err := s.Delete(ctx, 5); !errors.Is(err, core.ErrTargetNotFound) {
		t.Fatalf("out-of-range delete: %v", err)
	}
}
