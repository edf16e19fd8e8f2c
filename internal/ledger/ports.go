// Package ledger defines the port implemented by ledger storage adapters.
package ledger

import (
	"context"

	"settleup/internal/core"
)

// Store is the outbound port for ledger persistence. Records live in append
// order and the 0-based position is the only identity. ListAll returns a
// point-in-time snapshot; no transactional isolation is provided, concurrent
// turns may race (accepted for a low-volume two-party tool).
type Store interface {
	// Append adds a record at the end and returns its position.
	Append(ctx context.Context, rec core.Record) (int, error)
	// ListAll returns all records in append order.
	ListAll(ctx context.Context) ([]core.Record, error)
	// Update applies the non-nil patch fields to the record at pos.
	Update(ctx context.Context, pos int, patch core.Patch) error
	// Delete removes the record at pos; later records shift down.
	Delete(ctx context.Context, pos int) error
}
