package oracle

import (
	"fmt"
	"time"
)

const classifyTemplate = `Classify the message into one of 6 intents and extract its fields.
Today's date: %s

Return a single JSON object: {"intent": "...", "fields": {...}}.
Only include fields that are explicitly present in the message. Never invent values.

## Intents
- log: record an expense. Fields: merchant, amount, label, date, and the split proposal.
- query: report on past spending. Grouped totals use month/label/merchant/person filters
  plus optional group_by (label | merchant | month) and top_n. "show last N" style
  requests set list_last instead. "since we settled up" style requests set
  since_settle=true.
- balance: ANY question about owing, debt or who owes whom. No fields.
- settle: record that the parties settled up. No fields.
- delete: remove an expense. Set delete_mode: "last" for the most recent one,
  "by_date" (with date) for a specific day, "by_merchant" (with merchant) for a named
  merchant.
- edit: change the most recent expense. Only include the fields being changed:
  new_amount, new_merchant, new_share_a/new_share_b. For a percentage split like
  "60/40" return the percentages as new_share_a=60, new_share_b=40.

## Split proposal (log only)
- "split" / "half" / "50:50" style phrasing: set split="half".
- An explicitly named payer: set payer="A" or payer="B".
- An explicit uneven split: set share_a and share_b to the absolute amounts.
- No signal at all: leave split, payer and shares out.

## Dates
- date is ISO formatted (2006-01-02). Resolve relative dates ("yesterday", "last
  Tuesday") against today's date. Omit the field when no date was mentioned.
- month is the English month name ("June").

## Examples
"Spent $50 at Costco on groceries" -> {"intent":"log","fields":{"merchant":"Costco","amount":50,"label":"groceries"}}
"we split $30 for dinner" -> {"intent":"log","fields":{"merchant":"Dinner","amount":30,"label":"dining","split":"half"}}
"B paid $20 for gas" -> {"intent":"log","fields":{"merchant":"Gas","amount":20,"label":"gas","payer":"B"}}
"how much on groceries in June?" -> {"intent":"query","fields":{"label":"groceries","month":"June"}}
"top 3 spending categories" -> {"intent":"query","fields":{"group_by":"label","top_n":3}}
"show last 5 expenses" -> {"intent":"query","fields":{"list_last":5}}
"how much have we spent since we settled up?" -> {"intent":"query","fields":{"since_settle":true}}
"who owes whom?" -> {"intent":"balance","fields":{}}
"we settled up" -> {"intent":"settle","fields":{}}
"delete my last expense" -> {"intent":"delete","fields":{"delete_mode":"last"}}
"remove the costco expense" -> {"intent":"delete","fields":{"delete_mode":"by_merchant","merchant":"costco"}}
"delete the expense from yesterday" -> {"intent":"delete","fields":{"delete_mode":"by_date","date":"%s"}}
"edit this to $75 at Target" -> {"intent":"edit","fields":{"new_amount":75,"new_merchant":"Target"}}
"change the split to 60/40" -> {"intent":"edit","fields":{"new_share_a":60,"new_share_b":40}}
`

func classifyInstruction() string {
	now := time.Now()
	return fmt.Sprintf(classifyTemplate,
		now.Format("2006-01-02"),
		now.AddDate(0, 0, -1).Format("2006-01-02"))
}

const preprocessInstruction = `You split messages for an expense tracking bot.

Check that the message is about expense tracking (logging expenses, balances,
spending queries, settling up, deleting or editing expenses), then split it into
individual asks when it contains several distinct requests.

Return JSON: {"is_valid": bool, "asks": [...], "is_in_domain": bool, "error_message": "..."}.

Rules:
- One request: return it as-is as the only ask.
- 2 to 5 requests: split them, one ask per request, preserving amounts and names.
- More than 5 requests: is_valid=false with an error_message.
- Greetings, weather, jokes, general chat: is_valid=false, is_in_domain=false.
- A date mentioned anywhere in the message applies to every split ask; append it
  to each one.

Examples:
"log $20 at costco and then $30 for coffee" -> {"is_valid":true,"asks":["log $20 at costco","log $30 for coffee"],"is_in_domain":true}
"Yesterday spent $50 groceries and $30 gas" -> {"is_valid":true,"asks":["spent $50 groceries yesterday","spent $30 gas yesterday"],"is_in_domain":true}
"log $50 groceries and show balance" -> {"is_valid":true,"asks":["log $50 groceries","show balance"],"is_in_domain":true}
"Spent $50 at Costco" -> {"is_valid":true,"asks":["Spent $50 at Costco"],"is_in_domain":true}
"Hello! How are you?" -> {"is_valid":false,"is_in_domain":false,"error_message":"This is not related to expense tracking"}
`
