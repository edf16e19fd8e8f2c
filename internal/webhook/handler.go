package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"settleup/internal/core"
	"settleup/internal/oracle"
	"settleup/internal/reply"
)

const maxBodyBytes = 1 << 20

// Dispatcher handles one ask and always returns reply text.
type Dispatcher interface {
	Handle(ctx context.Context, sender core.Party, text string) string
}

// Sender delivers a reply to a phone number and returns the provider's
// message ID.
type Sender interface {
	SendText(ctx context.Context, to, text string) (string, error)
}

// Handler serves the Meta webhook: the GET verification handshake and the
// POST message deliveries.
type Handler struct {
	verifyToken string
	appSecret   string
	phones      map[string]core.Party
	dispatcher  Dispatcher
	extractor   oracle.Extractor
	sender      Sender
	out         *reply.Formatter
}

func NewHandler(verifyToken, appSecret string, phones map[string]core.Party, d Dispatcher, ex oracle.Extractor, s Sender, out *reply.Formatter) *Handler {
	return &Handler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		phones:      phones,
		dispatcher:  d,
		extractor:   ex,
		sender:      s,
		out:         out,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerify(w, r)
	case http.MethodPost:
		h.handleMessage(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVerify answers Meta's subscription handshake by echoing the
// challenge when the verify token matches.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken && h.verifyToken != "" {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, challenge)
		return
	}

	slog.WarnContext(r.Context(), "Webhook verification rejected", "mode", mode)
	http.Error(w, "verification failed", http.StatusForbidden)
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	if !h.validSignature(body, r.Header.Get("X-Hub-Signature-256")) {
		slog.WarnContext(ctx, "Rejected webhook delivery with bad signature")
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	msg, ok, err := parseMessage(body)
	if err != nil {
		slog.WarnContext(ctx, "Unparseable webhook payload", "error", err)
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	// Always 200 from here: Meta retries non-2xx deliveries and a retry
	// could double-log an expense.
	defer writeOK(w)

	if !ok {
		return
	}

	if msg.Type != "text" {
		h.send(ctx, msg.From, "I can only read text messages for now.")
		return
	}

	party, known := h.phones[msg.From]
	if !known {
		slog.WarnContext(ctx, "Message from unmapped phone number")
		h.send(ctx, msg.From, "Sorry, this ledger is private to its two members.")
		return
	}

	h.send(ctx, msg.From, h.process(ctx, party, msg.Text.Body))
}

// process splits the message into asks and dispatches each one, joining the
// replies into a single outbound text.
func (h *Handler) process(ctx context.Context, party core.Party, text string) string {
	pre := oracle.Preprocess(ctx, h.extractor, text)
	if !pre.IsValid {
		if !pre.InDomain {
			return h.out.OutOfDomain()
		}
		return h.out.TooManyAsks()
	}

	replies := make([]string, 0, len(pre.Asks))
	for _, ask := range pre.Asks {
		replies = append(replies, h.dispatcher.Handle(ctx, party, ask))
	}
	return strings.Join(replies, "\n\n")
}

// validSignature checks the X-Hub-Signature-256 header against the raw
// body. With no app secret configured (dev mode) every delivery passes.
func (h *Handler) validSignature(body []byte, header string) bool {
	if h.appSecret == "" {
		return true
	}
	if !strings.HasPrefix(header, "sha256=") {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.TrimPrefix(header, "sha256=")), []byte(expected))
}

func (h *Handler) send(ctx context.Context, to, text string) {
	id, err := h.sender.SendText(ctx, to, text)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to send reply", "error", err)
		return
	}
	slog.InfoContext(ctx, "Reply sent", "message_id", id)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"status":"ok"}`)
}
