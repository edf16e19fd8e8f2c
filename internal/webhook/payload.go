package webhook

import (
	"encoding/json"
	"fmt"
)

// Inbound webhook payload, pared down to the fields the bot consumes.
// Everything else Meta sends (statuses, reactions, media) is ignored.
type payload struct {
	Entry []struct {
		Changes []struct {
			Value changeValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type changeValue struct {
	Messages []inboundMessage `json:"messages"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

// parseMessage pulls the first message out of a webhook delivery. The second
// return is false for deliveries that carry no message (status updates and
// the like), which are acknowledged and dropped.
func parseMessage(body []byte) (inboundMessage, bool, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return inboundMessage{}, false, fmt.Errorf("parse webhook payload: %w", err)
	}
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return inboundMessage{}, false, nil
	}
	msgs := p.Entry[0].Changes[0].Value.Messages
	if len(msgs) == 0 {
		return inboundMessage{}, false, nil
	}
	return msgs[0], true, nil
}
