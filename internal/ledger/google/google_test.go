package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"settleup/internal/core"
)

// requestLog records the API paths a test client hit.
type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(p string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, p)
}

func (l *requestLog) sawBatchUpdate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.paths {
		if strings.Contains(p, ":batchUpdate") {
			return true
		}
	}
	return false
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &Client{svc: svc, spreadsheetID: "sheet-id", sheetName: "Expenses"}
}

func TestDeleteMissingRow(t *testing.T) {
	log := &requestLog{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// An empty ValueRange: the requested row is past the last one.
		w.Write([]byte(`{}`))
	})

	err := c.Delete(context.Background(), 7)
	if !errors.Is(err, core.ErrTargetNotFound) {
		t.Fatalf("Delete past last row: got %v, want ErrTargetNotFound", err)
	}
	if log.sawBatchUpdate() {
		t.Fatal("Delete issued a batchUpdate for a missing row")
	}
}

func TestUpdateMissingRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	})

	merchant := "Target"
	err := c.Update(context.Background(), 7, core.Patch{Merchant: &merchant})
	if !errors.Is(err, core.ErrTargetNotFound) {
		t.Fatalf("Update past last row: got %v, want ErrTargetNotFound", err)
	}
}

func TestDeleteNegativePosition(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("negative position reached the API")
	})

	if err := c.Delete(context.Background(), -1); !errors.Is(err, core.ErrTargetNotFound) {
		t.Fatalf("Delete(-1): got %v, want ErrTargetNotFound", err)
	}
}
