package oracle

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// MaxAsks bounds how many requests a single message may carry.
const MaxAsks = 5

// PreprocessResult is the outcome of splitting a raw message into asks.
type PreprocessResult struct {
	IsValid      bool     `json:"is_valid"`
	Asks         []string `json:"asks"`
	InDomain     bool     `json:"is_in_domain"`
	ErrorMessage string   `json:"error_message"`
}

// Preprocess splits a message into up to MaxAsks individual asks and flags
// out-of-domain text. If the extractor fails, the raw message passes through
// as a single ask so one flaky call never drops a user's expense.
func Preprocess(ctx context.Context, ex Extractor, message string) PreprocessResult {
	if strings.TrimSpace(message) == "" {
		return PreprocessResult{ErrorMessage: "Empty message received"}
	}

	fallback := PreprocessResult{IsValid: true, Asks: []string{message}, InDomain: true}

	raw, err := ex.Extract(ctx, preprocessInstruction, message)
	if err != nil {
		slog.WarnContext(ctx, "Preprocess extraction failed, passing message through",
			"error", err)
		return fallback
	}

	var res PreprocessResult
	if err := json.Unmarshal(raw, &res); err != nil {
		slog.WarnContext(ctx, "Preprocess result malformed, passing message through",
			"error", err)
		return fallback
	}

	if res.IsValid && len(res.Asks) == 0 {
		return fallback
	}
	if len(res.Asks) > MaxAsks {
		return PreprocessResult{
			InDomain:     res.InDomain,
			ErrorMessage: "Too many requests in one message",
		}
	}
	return res
}
