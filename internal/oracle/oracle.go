// Package oracle classifies free-text messages into ledger intents and
// extracts their structured fields. The extractor is a black box returning
// raw JSON; all decoding here is lenient. A failed or malformed extraction
// yields an empty result, never an error the caller must branch on.
package oracle

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

type Intent string

const (
	IntentLog     Intent = "log"
	IntentQuery   Intent = "query"
	IntentBalance Intent = "balance"
	IntentSettle  Intent = "settle"
	IntentDelete  Intent = "delete"
	IntentEdit    Intent = "edit"
)

// Extractor turns free text plus a fixed instruction into raw JSON matching
// the schema the instruction describes. Implementations must honor ctx
// deadlines. Callers never retry.
type Extractor interface {
	Extract(ctx context.Context, instruction, text string) ([]byte, error)
}

// Fields is the flat argument set the extractor may propose. Every member is
// optional; a missing key decodes to nil. The dispatcher owns validation,
// the oracle only proposes.
type Fields struct {
	// Shared filter / record fields.
	Merchant *string          `json:"merchant"`
	Amount   *decimal.Decimal `json:"amount"`
	Month    *string          `json:"month"`
	Label    *string          `json:"label"`
	Date     *string          `json:"date"` // ISO day, 2006-01-02
	Person   *string          `json:"person"`
	// SinceSettle restricts a query to records after the last settle-up.
	SinceSettle *bool `json:"since_settle"`

	// Split proposal for LOG.
	Split  *string          `json:"split"` // "half" when an even split was asked
	Payer  *string          `json:"payer"` // "A" or "B" when a payer was named
	ShareA *decimal.Decimal `json:"share_a"`
	ShareB *decimal.Decimal `json:"share_b"`

	// QUERY shape.
	GroupBy  *string `json:"group_by"` // label | merchant | month
	TopN     *int    `json:"top_n"`
	ListLast *int    `json:"list_last"`

	// DELETE targeting.
	DeleteMode *string `json:"delete_mode"` // last | by_date | by_merchant

	// EDIT proposals.
	NewAmount   *decimal.Decimal `json:"new_amount"`
	NewShareA   *decimal.Decimal `json:"new_share_a"`
	NewShareB   *decimal.Decimal `json:"new_share_b"`
	NewMerchant *string          `json:"new_merchant"`
}

// Result is one classified message. A zero Result means the extraction
// failed or said nothing usable.
type Result struct {
	Intent Intent `json:"intent"`
	Fields Fields `json:"fields"`
}

// Decode parses a raw extraction result. Unknown intents and malformed JSON
// both come back as the zero Result.
func Decode(raw []byte) Result {
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}
	}
	res.Intent = Intent(strings.ToLower(strings.TrimSpace(string(res.Intent))))
	switch res.Intent {
	case IntentLog, IntentQuery, IntentBalance, IntentSettle, IntentDelete, IntentEdit:
		return res
	default:
		return Result{Fields: res.Fields}
	}
}

// Classify runs the extractor with the classification instruction and
// decodes the outcome. Any failure collapses to the zero Result.
func Classify(ctx context.Context, ex Extractor, text string) Result {
	raw, err := ex.Extract(ctx, classifyInstruction(), text)
	if err != nil {
		return Result{}
	}
	return Decode(raw)
}
