// Package reply renders every dispatch outcome as deterministic message
// text. No formatting decision lives anywhere else, so the wording can be
// tested without a ledger or an extractor in sight.
package reply

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"settleup/internal/core"
	"settleup/internal/engine"
	"settleup/internal/oracle"
)

// Formatter renders replies using the configured display names for the two
// parties.
type Formatter struct {
	NameA string
	NameB string
}

func NewFormatter(nameA, nameB string) *Formatter {
	if nameA == "" {
		nameA = string(core.PartyA)
	}
	if nameB == "" {
		nameB = string(core.PartyB)
	}
	return &Formatter{NameA: nameA, NameB: nameB}
}

func (f *Formatter) name(p core.Party) string {
	if p == core.PartyA {
		return f.NameA
	}
	return f.NameB
}

func (f *Formatter) Logged(rec core.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Logged %s at %s", core.FormatAmount(rec.Amount), rec.Merchant)
	if rec.Label != "" {
		fmt.Fprintf(&b, " (%s)", rec.Label)
	}
	fmt.Fprintf(&b, ". %s: %s, %s: %s",
		f.NameA, core.FormatAmount(rec.ShareA),
		f.NameB, core.FormatAmount(rec.ShareB))
	return b.String()
}

func (f *Formatter) NeedAmount() string {
	return "How much was it? I need an amount to log an expense."
}

func (f *Formatter) Sum(filterDesc string, sum decimal.Decimal) string {
	return fmt.Sprintf("Total (%s): %s", filterDesc, core.FormatAmount(sum))
}

func (f *Formatter) Groups(filterDesc string, groups []engine.GroupSum) string {
	if len(groups) == 0 {
		return fmt.Sprintf("No expenses found (%s).", filterDesc)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Spending (%s):", filterDesc)
	for _, g := range groups {
		fmt.Fprintf(&b, "\n- %s: %s", g.Key, core.FormatAmount(g.Sum))
	}
	return b.String()
}

func (f *Formatter) Recent(records []core.Record) string {
	if len(records) == 0 {
		return "No expenses logged yet."
	}
	var b strings.Builder
	b.WriteString("Recent expenses:")
	for _, rec := range records {
		fmt.Fprintf(&b, "\n- %s %s at %s",
			rec.Timestamp.Format("Jan 2"),
			core.FormatAmount(rec.Amount),
			rec.Merchant)
		if rec.Label != "" {
			fmt.Fprintf(&b, " (%s)", rec.Label)
		}
	}
	return b.String()
}

func (f *Formatter) Balance(b engine.Balance) string {
	if b.Settled() {
		return "You're all settled up."
	}
	owing, amount := b.Owing()
	owed := core.PartyB
	if owing == core.PartyB {
		owed = core.PartyA
	}
	return fmt.Sprintf("%s owes %s %s.", f.name(owing), f.name(owed), core.FormatAmount(amount))
}

func (f *Formatter) Settled(b engine.Balance) string {
	owing, amount := b.Owing()
	return fmt.Sprintf("Settled: recorded %s from %s. Balance is now even.",
		core.FormatAmount(amount), f.name(owing))
}

func (f *Formatter) AlreadySettled() string {
	return "Nothing to settle, you're already even."
}

func (f *Formatter) Deleted(rec core.Record) string {
	return fmt.Sprintf("Deleted %s at %s.", core.FormatAmount(rec.Amount), rec.Merchant)
}

func (f *Formatter) NothingMatched() string {
	return "Nothing matched, no expense was deleted."
}

func (f *Formatter) Edited(rec core.Record) string {
	return fmt.Sprintf("Updated: %s at %s. %s: %s, %s: %s",
		core.FormatAmount(rec.Amount), rec.Merchant,
		f.NameA, core.FormatAmount(rec.ShareA),
		f.NameB, core.FormatAmount(rec.ShareB))
}

func (f *Formatter) NothingToEdit() string {
	return "There's no expense to edit yet."
}

func (f *Formatter) CannotReconcile() string {
	return "Couldn't make sense of that split, nothing was changed."
}

func (f *Formatter) StoreFailure() string {
	return "Something went wrong saving that, please try again."
}

func (f *Formatter) OutOfDomain() string {
	return "I only track shared expenses. Try \"/list\" to see what I can do."
}

func (f *Formatter) TooManyAsks() string {
	return fmt.Sprintf("That's too many requests at once, send at most %d.", oracle.MaxAsks)
}

func (f *Formatter) Help() string {
	return strings.Join([]string{
		"Here's what I can do:",
		"- Log an expense: \"spent $50 at Costco on groceries\"",
		"- Query spending: \"how much on groceries in June?\", \"top 3 categories\", \"show last 5\"",
		"- Balance: \"who owes whom?\"",
		"- Settle up: \"we settled up\"",
		"- Delete: \"delete my last expense\", \"remove the costco expense\"",
		"- Edit: \"edit this to $75\", \"change the split to 60/40\"",
	}, "\n")
}
