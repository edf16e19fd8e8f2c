package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"settleup/internal/amqp"
	"settleup/internal/core"
	"settleup/internal/ledger/memory"
)

// HandleOp must stay pluggable into the AMQP consumer loop.
var _ func(context.Context, *amqp.LedgerOp) error = (*MirrorWorker)(nil).HandleOp
var _ func(context.Context, func(context.Context, *amqp.LedgerOp) error) error = (*amqp.Client)(nil).ConsumeLedgerOps

func record(merchant, amount string) core.Record {
	amt := decimal.RequireFromString(amount)
	return core.Record{
		Timestamp: time.Date(2026, 6, 12, 9, 0, 0, 0, time.UTC),
		Merchant:  merchant,
		Month:     "June",
		Label:     "groceries",
		Amount:    amt,
		ShareA:    amt,
		ShareB:    decimal.Zero,
	}
}

func TestHandleOp_Append(t *testing.T) {
	mirror := memory.New()
	w := NewMirrorWorker(mirror)

	if err := w.HandleOp(context.Background(), amqp.NewAppendOp(0, record("Costco", "50"))); err != nil {
		t.Fatalf("HandleOp: %v", err)
	}

	records, err := mirror.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(records) != 1 || records[0].Merchant != "Costco" {
		t.Fatalf("unexpected mirror state: %+v", records)
	}
}

func TestHandleOp_UpdateOverwritesRow(t *testing.T) {
	mirror := memory.Seed(record("Costco", "50"))
	w := NewMirrorWorker(mirror)

	updated := record("Costco", "50")
	updated.Label = "food"
	if err := w.HandleOp(context.Background(), amqp.NewUpdateOp(0, updated)); err != nil {
		t.Fatalf("HandleOp: %v", err)
	}

	records, _ := mirror.ListAll(context.Background())
	if records[0].Label != "food" {
		t.Fatalf("label = %q, want food", records[0].Label)
	}
}

func TestHandleOp_Delete(t *testing.T) {
	mirror := memory.Seed(record("Costco", "50"), record("Cafe", "10"))
	w := NewMirrorWorker(mirror)

	if err := w.HandleOp(context.Background(), amqp.NewDeleteOp(0)); err != nil {
		t.Fatalf("HandleOp: %v", err)
	}

	records, _ := mirror.ListAll(context.Background())
	if len(records) != 1 || records[0].Merchant != "Cafe" {
		t.Fatalf("unexpected mirror state: %+v", records)
	}
}

func TestHandleOp_MissingPositionIsDropped(t *testing.T) {
	w := NewMirrorWorker(memory.New())

	// Drift: the position is gone on the mirror. The op is acked rather
	// than requeued forever.
	if err := w.HandleOp(context.Background(), amqp.NewDeleteOp(9)); err != nil {
		t.Fatalf("HandleOp should drop missing-position delete, got %v", err)
	}
	if err := w.HandleOp(context.Background(), amqp.NewUpdateOp(9, record("Costco", "50"))); err != nil {
		t.Fatalf("HandleOp should drop missing-position update, got %v", err)
	}
}

func TestHandleOp_UnknownOp(t *testing.T) {
	w := NewMirrorWorker(memory.New())

	if err := w.HandleOp(context.Background(), &amqp.LedgerOp{Op: "truncate"}); err == nil {
		t.Fatal("HandleOp should reject unknown ops")
	}
}
