// Package google persists the ledger in a Google Sheets worksheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"settleup/internal/core"
	"settleup/internal/ledger"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu      sync.Mutex
	sheetID int64
	hasID   bool
}

var _ ledger.Store = (*Client)(nil)

// NewFromEnv creates a Sheets-backed store using environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Optional: GOOGLE_SHEET_NAME (default
// "Expenses") and service account credentials via GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Expenses"
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case inline != "":
		credentialsJSON = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) Append(ctx context.Context, rec core.Record) (int, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	// Count existing data rows first; the new record lands after them.
	rng := fmt.Sprintf("%s!A2:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get sheet dimensions for %s: %w", c.sheetName, err)
	}
	pos := len(resp.Values)

	vr := &gsheet.ValueRange{Values: [][]any{recordToRow(rec)}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:G", c.sheetName), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Ledger record appended to sheet",
		"sheet", c.sheetName, "position", pos, "merchant", rec.Merchant)
	return pos, nil
}

func (c *Client) ListAll(ctx context.Context) ([]core.Record, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:G", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", c.sheetName, err)
	}

	var out []core.Record
	for i, row := range resp.Values {
		if len(row) == 0 || cell(row, 1) == "" {
			continue
		}
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, pos int, patch core.Patch) error {
	if pos < 0 {
		return fmt.Errorf("position %d: %w", pos, core.ErrTargetNotFound)
	}
	rowNum := pos + 2
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, rowNum, rowNum)

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read row %d: %w", rowNum, err)
	}
	if len(resp.Values) == 0 || cell(resp.Values[0], 1) == "" {
		return fmt.Errorf("position %d: %w", pos, core.ErrTargetNotFound)
	}
	current, err := rowToRecord(resp.Values[0])
	if err != nil {
		return fmt.Errorf("row %d: %w", rowNum, err)
	}

	vr := &gsheet.ValueRange{Values: [][]any{recordToRow(patch.Apply(current))}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", rowNum, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, pos int) error {
	if pos < 0 {
		return fmt.Errorf("position %d: %w", pos, core.ErrTargetNotFound)
	}

	// Confirm the row exists first: DeleteDimension past the last row fails
	// with an opaque API error instead of a not-found.
	rowNum := pos + 2
	rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, rowNum, rowNum)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read row %d: %w", rowNum, err)
	}
	if len(resp.Values) == 0 || cell(resp.Values[0], 1) == "" {
		return fmt.Errorf("position %d: %w", pos, core.ErrTargetNotFound)
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	// Row indexes in DeleteDimension are 0-based; the header occupies index 0.
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(pos + 1),
					EndIndex:   int64(pos + 2),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row at position %d: %w", pos, err)
	}
	return nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasID {
		return c.sheetID, nil
	}

	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sh := range meta.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			c.sheetID = sh.Properties.SheetId
			c.hasID = true
			return c.sheetID, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q not found in spreadsheet", c.sheetName)
}
