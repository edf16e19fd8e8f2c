package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"settleup/internal/amqp"
	"settleup/internal/core"
	"settleup/internal/ledger"
)

// MirrorWorker replays ledger mutations from the AMQP queue against a
// secondary store, typically the Google Sheets backend. Messages arrive in
// publish order, so replaying them one at a time keeps the mirror's
// positions aligned with the primary's.
type MirrorWorker struct {
	mirror ledger.Store
}

func NewMirrorWorker(mirror ledger.Store) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// HandleOp processes a single ledger op message from AMQP.
func (w *MirrorWorker) HandleOp(ctx context.Context, msg *amqp.LedgerOp) error {
	slog.InfoContext(ctx, "Replaying ledger op",
		"op", msg.Op,
		"position", msg.Position)

	switch msg.Op {
	case amqp.OpAppend:
		pos, err := w.mirror.Append(ctx, *msg.Record)
		if err != nil {
			return fmt.Errorf("append to mirror: %w", err)
		}
		if pos != msg.Position {
			slog.WarnContext(ctx, "Mirror position drifted from primary",
				"primary_position", msg.Position,
				"mirror_position", pos)
		}
		return nil

	case amqp.OpUpdate:
		err := w.mirror.Update(ctx, msg.Position, fullPatch(*msg.Record))
		if errors.Is(err, core.ErrTargetNotFound) {
			// Position no longer exists on the mirror. Requeueing would
			// never succeed, so drop the op and surface the drift.
			slog.WarnContext(ctx, "Dropping update for missing mirror position",
				"position", msg.Position)
			return nil
		}
		if err != nil {
			return fmt.Errorf("update mirror: %w", err)
		}
		return nil

	case amqp.OpDelete:
		err := w.mirror.Delete(ctx, msg.Position)
		if errors.Is(err, core.ErrTargetNotFound) {
			slog.WarnContext(ctx, "Dropping delete for missing mirror position",
				"position", msg.Position)
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete from mirror: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown ledger op %q", msg.Op)
	}
}

// fullPatch overwrites every field of the mirror row with the post-mutation
// state carried by the message.
func fullPatch(rec core.Record) core.Patch {
	return core.Patch{
		Merchant: &rec.Merchant,
		Month:    &rec.Month,
		Label:    &rec.Label,
		Amount:   &rec.Amount,
		ShareA:   &rec.ShareA,
		ShareB:   &rec.ShareB,
	}
}
