package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"settleup/internal/core"
)

// Ledger mirror operations carried over the wire. Each message describes one
// mutation already committed to the primary store; the worker replays it
// against the mirror in publish order.
const (
	OpAppend = "append"
	OpUpdate = "update"
	OpDelete = "delete"
)

// LedgerOp is a mirror message for a single ledger mutation. Record is the
// post-mutation state for appends and updates, and nil for deletes. Position
// is the 0-based append-order position the mutation applied to.
type LedgerOp struct {
	Op        string       `json:"op"`
	Position  int          `json:"position"`
	Record    *core.Record `json:"record,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewAppendOp(pos int, rec core.Record) *LedgerOp {
	return &LedgerOp{Op: OpAppend, Position: pos, Record: &rec, Timestamp: time.Now()}
}

func NewUpdateOp(pos int, rec core.Record) *LedgerOp {
	return &LedgerOp{Op: OpUpdate, Position: pos, Record: &rec, Timestamp: time.Now()}
}

func NewDeleteOp(pos int) *LedgerOp {
	return &LedgerOp{Op: OpDelete, Position: pos, Timestamp: time.Now()}
}

func (m *LedgerOp) Validate() error {
	switch m.Op {
	case OpAppend, OpUpdate:
		if m.Record == nil {
			return fmt.Errorf("%s op without record", m.Op)
		}
	case OpDelete:
	default:
		return fmt.Errorf("unknown op %q", m.Op)
	}
	if m.Position < 0 {
		return fmt.Errorf("negative position %d", m.Position)
	}
	return nil
}

func (m *LedgerOp) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerOpFromJSON(data []byte) (*LedgerOp, error) {
	var msg LedgerOp
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
