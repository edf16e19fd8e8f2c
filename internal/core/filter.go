package core

import "strings"

// Filter is a declarative set of predicates over records. Absent fields are
// no-ops; set fields compose by logical AND. String predicates match
// case-insensitive substrings.
type Filter struct {
	Month    string
	Label    string
	Merchant string
	// Person restricts to records where the given party carries a share.
	Person Party
	// SinceSettle restricts to records after the last settlement row.
	SinceSettle bool
}

func (f Filter) IsZero() bool {
	return f.Month == "" && f.Label == "" && f.Merchant == "" && f.Person == "" && !f.SinceSettle
}

// Match reports whether a single record passes every set predicate.
// SinceSettle is positional and handled by Apply, not here.
func (f Filter) Match(r Record) bool {
	if f.Month != "" && !containsFold(r.Month, f.Month) {
		return false
	}
	if f.Label != "" && !containsFold(r.Label, f.Label) {
		return false
	}
	if f.Merchant != "" && !containsFold(r.Merchant, f.Merchant) {
		return false
	}
	if f.Person != "" && !r.Share(f.Person).IsPositive() {
		return false
	}
	return true
}

// Apply filters an ordered snapshot, preserving append order.
func (f Filter) Apply(records []Record) []Record {
	if f.SinceSettle {
		records = SinceLastSettlement(records)
	}
	if f.Month == "" && f.Label == "" && f.Merchant == "" && f.Person == "" {
		out := make([]Record, len(records))
		copy(out, records)
		return out
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Describe returns the comma-joined list of applied filter values, or "All"
// when no filter was given.
func (f Filter) Describe() string {
	if f.IsZero() {
		return "All"
	}
	var parts []string
	if f.Month != "" {
		parts = append(parts, f.Month)
	}
	if f.Label != "" {
		parts = append(parts, f.Label)
	}
	if f.Merchant != "" {
		parts = append(parts, f.Merchant)
	}
	if f.Person != "" {
		parts = append(parts, string(f.Person))
	}
	if f.SinceSettle {
		parts = append(parts, "since settle-up")
	}
	return strings.Join(parts, ", ")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(strings.TrimSpace(needle)))
}
