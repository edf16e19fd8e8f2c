// Package dispatch routes classified intents to ledger operations. Each
// handler is a function of the extracted fields and a point-in-time ledger
// snapshot, produces at most one mutation, and always returns a reply. No
// failure escapes to the transport as an error.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"settleup/internal/core"
	"settleup/internal/engine"
	"settleup/internal/ledger"
	"settleup/internal/oracle"
	"settleup/internal/reply"
)

type Dispatcher struct {
	store ledger.Store
	ex    oracle.Extractor
	out   *reply.Formatter
	now   func() time.Time
}

func New(store ledger.Store, ex oracle.Extractor, out *reply.Formatter) *Dispatcher {
	return &Dispatcher{store: store, ex: ex, out: out, now: time.Now}
}

// Handle processes one ask from the given sender and returns the reply text.
func (d *Dispatcher) Handle(ctx context.Context, sender core.Party, text string) string {
	if cmd := strings.ToLower(strings.TrimSpace(text)); cmd == "/list" || cmd == "list" {
		return d.out.Help()
	}

	res := oracle.Classify(ctx, d.ex, text)
	intent := res.Intent
	if intent == "" {
		// Documented fallback: unclassifiable text is treated as an
		// expense to log.
		intent = oracle.IntentLog
	}

	slog.InfoContext(ctx, "Dispatching intent",
		"intent", string(intent),
		"sender", string(sender))

	switch intent {
	case oracle.IntentLog:
		return d.handleLog(ctx, sender, res.Fields)
	case oracle.IntentQuery:
		return d.handleQuery(ctx, res.Fields)
	case oracle.IntentBalance:
		return d.handleBalance(ctx)
	case oracle.IntentSettle:
		return d.handleSettle(ctx)
	case oracle.IntentDelete:
		return d.handleDelete(ctx, res.Fields)
	case oracle.IntentEdit:
		return d.handleEdit(ctx, res.Fields)
	default:
		return d.handleLog(ctx, sender, res.Fields)
	}
}

func (d *Dispatcher) handleLog(ctx context.Context, sender core.Party, f oracle.Fields) string {
	if f.Amount == nil || !f.Amount.IsPositive() {
		return d.out.NeedAmount()
	}
	amount := f.Amount.Round(2)

	ts := d.now()
	if f.Date != nil {
		if day, err := time.Parse("2006-01-02", *f.Date); err == nil {
			ts = day
		}
	}

	merchant := strings.TrimSpace(deref(f.Merchant))
	if merchant == "" {
		merchant = "Expense"
	}
	month := strings.TrimSpace(deref(f.Month))
	if month == "" {
		month = core.DisplayMonth(ts)
	}

	shareA, shareB := proposedShares(amount, f, sender)
	rec := core.Record{
		Timestamp: ts,
		Merchant:  merchant,
		Month:     month,
		Label:     strings.TrimSpace(deref(f.Label)),
		Amount:    amount,
		ShareA:    shareA,
		ShareB:    shareB,
	}
	if err := rec.Validate(); err != nil {
		slog.WarnContext(ctx, "Rejecting unreconcilable log", "error", err)
		return d.out.CannotReconcile()
	}

	if _, err := d.store.Append(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to append record", "error", err)
		return d.out.StoreFailure()
	}
	return d.out.Logged(rec)
}

func (d *Dispatcher) handleQuery(ctx context.Context, f oracle.Fields) string {
	snapshot, err := d.store.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read ledger", "error", err)
		return d.out.StoreFailure()
	}

	if f.ListLast != nil {
		n := *f.ListLast
		if n <= 0 {
			n = 5
		}
		return d.out.Recent(engine.ListRecent(snapshot, n))
	}

	filter := filterFrom(f)
	if f.GroupBy != nil {
		topN := 0
		if f.TopN != nil {
			topN = *f.TopN
		}
		groups, err := engine.GroupedSums(snapshot, filter, *f.GroupBy, topN)
		if err == nil {
			return d.out.Groups(filter.Describe(), groups)
		}
		slog.WarnContext(ctx, "Falling back to plain sum", "error", err)
	}
	return d.out.Sum(filter.Describe(), engine.SumFiltered(snapshot, filter))
}

func (d *Dispatcher) handleBalance(ctx context.Context) string {
	snapshot, err := d.store.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read ledger", "error", err)
		return d.out.StoreFailure()
	}
	return d.out.Balance(engine.ComputeBalance(snapshot))
}

func (d *Dispatcher) handleSettle(ctx context.Context) string {
	snapshot, err := d.store.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read ledger", "error", err)
		return d.out.StoreFailure()
	}

	balance := engine.ComputeBalance(snapshot)
	rec, ok := engine.SettlementRecord(balance, d.now())
	if !ok {
		return d.out.AlreadySettled()
	}
	if _, err := d.store.Append(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "Failed to append settlement", "error", err)
		return d.out.StoreFailure()
	}
	return d.out.Settled(balance)
}

func (d *Dispatcher) handleDelete(ctx context.Context, f oracle.Fields) string {
	snapshot, err := d.store.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read ledger", "error", err)
		return d.out.StoreFailure()
	}

	// Precedence when the extraction is ambiguous: explicit merchant,
	// then explicit date, then the most recent record.
	pos := -1
	mode := strings.ToLower(deref(f.DeleteMode))
	switch {
	case strings.TrimSpace(deref(f.Merchant)) != "":
		pos = findByMerchant(snapshot, *f.Merchant)
	case f.Date != nil:
		pos = findByDate(snapshot, *f.Date)
	case mode == "by_merchant" || mode == "by_date":
		// The extractor picked a targeted mode without supplying the
		// target, so there is nothing safe to delete.
		return d.out.NothingMatched()
	default:
		pos = len(snapshot) - 1
	}
	if pos < 0 {
		return d.out.NothingMatched()
	}

	if err := d.store.Delete(ctx, pos); err != nil {
		if errors.Is(err, core.ErrTargetNotFound) {
			return d.out.NothingMatched()
		}
		slog.ErrorContext(ctx, "Failed to delete record", "position", pos, "error", err)
		return d.out.StoreFailure()
	}
	return d.out.Deleted(snapshot[pos])
}

func (d *Dispatcher) handleEdit(ctx context.Context, f oracle.Fields) string {
	snapshot, err := d.store.ListAll(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read ledger", "error", err)
		return d.out.StoreFailure()
	}

	// Settlement rows are derived, not edited; target the latest expense.
	pos := -1
	for i := len(snapshot) - 1; i >= 0; i-- {
		if !snapshot[i].IsSettlement() {
			pos = i
			break
		}
	}
	if pos < 0 {
		return d.out.NothingToEdit()
	}
	current := snapshot[pos]

	edited := current
	if f.NewMerchant != nil && strings.TrimSpace(*f.NewMerchant) != "" {
		edited.Merchant = strings.TrimSpace(*f.NewMerchant)
	}
	if f.NewAmount != nil {
		if !f.NewAmount.IsPositive() {
			return d.out.CannotReconcile()
		}
		edited.Amount = f.NewAmount.Round(2)
	}

	switch {
	case f.NewShareA != nil || f.NewShareB != nil:
		shareA, shareB, ok := reconcileShares(edited.Amount, f.NewShareA, f.NewShareB)
		if !ok {
			return d.out.CannotReconcile()
		}
		edited.ShareA, edited.ShareB = shareA, shareB
	case f.NewAmount != nil:
		// Keep the prior split ratio under the new amount.
		edited.ShareA, edited.ShareB = rescaleShares(edited.Amount, current.ShareA, current.ShareB)
	}

	if err := edited.Validate(); err != nil {
		slog.WarnContext(ctx, "Rejecting unreconcilable edit", "error", err)
		return d.out.CannotReconcile()
	}

	patch := core.Patch{
		Merchant: &edited.Merchant,
		Amount:   &edited.Amount,
		ShareA:   &edited.ShareA,
		ShareB:   &edited.ShareB,
	}
	if err := d.store.Update(ctx, pos, patch); err != nil {
		if errors.Is(err, core.ErrTargetNotFound) {
			return d.out.NothingMatched()
		}
		slog.ErrorContext(ctx, "Failed to update record", "position", pos, "error", err)
		return d.out.StoreFailure()
	}
	return d.out.Edited(edited)
}

func filterFrom(f oracle.Fields) core.Filter {
	filter := core.Filter{
		Month:    strings.TrimSpace(deref(f.Month)),
		Label:    strings.TrimSpace(deref(f.Label)),
		Merchant: strings.TrimSpace(deref(f.Merchant)),
	}
	if p, ok := parseParty(deref(f.Person)); ok {
		filter.Person = p
	}
	if f.SinceSettle != nil && *f.SinceSettle {
		filter.SinceSettle = true
	}
	return filter
}

func findByMerchant(records []core.Record, merchant string) int {
	needle := strings.ToLower(strings.TrimSpace(merchant))
	for i := len(records) - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(records[i].Merchant), needle) {
			return i
		}
	}
	return -1
}

func findByDate(records []core.Record, date string) int {
	day, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return -1
	}
	for i := len(records) - 1; i >= 0; i-- {
		y, m, d := records[i].Timestamp.Date()
		if y == day.Year() && m == day.Month() && d == day.Day() {
			return i
		}
	}
	return -1
}

func rescaleShares(amount, priorA, priorB decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	prior := priorA.Add(priorB)
	if prior.IsZero() {
		half := amount.Div(decimal.NewFromInt(2)).Round(2)
		return half, amount.Sub(half)
	}
	shareA := amount.Mul(priorA).Div(prior).Round(2)
	return shareA, amount.Sub(shareA)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
