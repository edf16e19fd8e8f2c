package google

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"settleup/internal/core"
)

// Sheet layout, one record per row starting at row 2:
// A Timestamp | B Merchant | C Month | D Label | E Amount | F ShareA | G ShareB

func recordToRow(rec core.Record) []any {
	return []any{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Merchant,
		rec.Month,
		rec.Label,
		rec.Amount.String(),
		rec.ShareA.String(),
		rec.ShareB.String(),
	}
}

func rowToRecord(row []any) (core.Record, error) {
	rec := core.Record{
		Merchant: cell(row, 1),
		Month:    cell(row, 2),
		Label:    cell(row, 3),
	}

	if ts := cell(row, 0); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return core.Record{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		rec.Timestamp = parsed
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		col int
	}{{&rec.Amount, 4}, {&rec.ShareA, 5}, {&rec.ShareB, 6}} {
		s := cell(row, f.col)
		if s == "" {
			*f.dst = decimal.Zero
			continue
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
		if err != nil {
			return core.Record{}, fmt.Errorf("parse decimal %q: %w", s, err)
		}
		*f.dst = d
	}
	return rec, nil
}

func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	s, ok := row[i].(string)
	if !ok {
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}
	return strings.TrimSpace(s)
}
