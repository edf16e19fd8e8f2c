// Package mirrored decorates a ledger store so every successful mutation is
// also published to an AMQP queue. A separate worker replays the queue
// against a secondary backend, typically Google Sheets. The decorated store
// stays the source of truth; the mirror is eventually consistent and a
// publish failure never fails the caller's mutation.
package mirrored

import (
	"context"
	"log/slog"

	"settleup/internal/amqp"
	"settleup/internal/core"
	"settleup/internal/ledger"
)

type Publisher interface {
	PublishLedgerOp(ctx context.Context, msg *amqp.LedgerOp) error
}

type Store struct {
	primary   ledger.Store
	publisher Publisher
}

var _ ledger.Store = (*Store)(nil)

func New(primary ledger.Store, publisher Publisher) *Store {
	return &Store{primary: primary, publisher: publisher}
}

func (s *Store) Append(ctx context.Context, rec core.Record) (int, error) {
	pos, err := s.primary.Append(ctx, rec)
	if err != nil {
		return 0, err
	}
	s.publish(ctx, amqp.NewAppendOp(pos, rec))
	return pos, nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.Record, error) {
	return s.primary.ListAll(ctx)
}

func (s *Store) Update(ctx context.Context, pos int, patch core.Patch) error {
	if err := s.primary.Update(ctx, pos, patch); err != nil {
		return err
	}

	// Publish the post-update state so the mirror does not need to apply
	// patches itself.
	records, err := s.primary.ListAll(ctx)
	if err != nil || pos >= len(records) {
		slog.WarnContext(ctx, "Skipping mirror publish, cannot read updated record",
			"position", pos,
			"error", err)
		return nil
	}
	s.publish(ctx, amqp.NewUpdateOp(pos, records[pos]))
	return nil
}

func (s *Store) Delete(ctx context.Context, pos int) error {
	if err := s.primary.Delete(ctx, pos); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewDeleteOp(pos))
	return nil
}

func (s *Store) publish(ctx context.Context, msg *amqp.LedgerOp) {
	if err := s.publisher.PublishLedgerOp(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to publish ledger op, mirror will drift",
			"op", msg.Op,
			"position", msg.Position,
			"error", err)
	}
}
