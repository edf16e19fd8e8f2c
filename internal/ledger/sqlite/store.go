// Package sqlite persists the ledger in a local SQLite database. It is the
// durable backend; the mirror worker replays its mutations to Google Sheets.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"settleup/internal/core"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec core.Record) (int, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_records (ts, merchant, month, label, amount, share_a, share_b)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Merchant, rec.Month, rec.Label,
		rec.Amount.String(), rec.ShareA.String(), rec.ShareB.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	var pos int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_records WHERE id < ?`, id).Scan(&pos); err != nil {
		return 0, fmt.Errorf("compute position: %w", err)
	}

	slog.InfoContext(ctx, "Ledger record saved",
		"position", pos, "merchant", rec.Merchant, "amount", rec.Amount.String())
	return pos, nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, merchant, month, label, amount, share_a, share_b
		 FROM ledger_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, pos int, patch core.Patch) error {
	id, err := s.idAt(ctx, pos)
	if err != nil {
		return err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT ts, merchant, month, label, amount, share_a, share_b
		 FROM ledger_records WHERE id = ?`, id)
	current, err := scanRecord(row)
	if err != nil {
		return err
	}

	updated := patch.Apply(current)
	_, err = s.db.ExecContext(ctx,
		`UPDATE ledger_records
		 SET merchant = ?, month = ?, label = ?, amount = ?, share_a = ?, share_b = ?
		 WHERE id = ?`,
		updated.Merchant, updated.Month, updated.Label,
		updated.Amount.String(), updated.ShareA.String(), updated.ShareB.String(), id)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, pos int) error {
	id, err := s.idAt(ctx, pos)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ledger_records WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// idAt resolves a 0-based append position to a row id.
func (s *Store) idAt(ctx context.Context, pos int) (int64, error) {
	if pos < 0 {
		return 0, fmt.Errorf("position %d: %w", pos, core.ErrTargetNotFound)
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM ledger_records ORDER BY id LIMIT 1 OFFSET ?`, pos).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("position %d: %w", pos, core.ErrTargetNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve position %d: %w", pos, err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.Record, error) {
	var (
		rec                    core.Record
		ts                     string
		amount, shareA, shareB string
	)
	if err := row.Scan(&ts, &rec.Merchant, &rec.Month, &rec.Label, &amount, &shareA, &shareB); err != nil {
		return core.Record{}, fmt.Errorf("scan record: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return core.Record{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	rec.Timestamp = parsed

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&rec.Amount, amount}, {&rec.ShareA, shareA}, {&rec.ShareB, shareB}} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return core.Record{}, fmt.Errorf("parse decimal %q: %w", f.src, err)
		}
		*f.dst = d
	}
	return rec, nil
}
