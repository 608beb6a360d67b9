package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/thrt-ai/nlx402-go/internal/config"
	"github.com/thrt-ai/nlx402-go/pkg/publishers"
)

const payflowQuote = `{"amount":"0.5","chain":"solana","decimals":6,"expires_at":1999999999,"mint":"USDC","network":"mainnet","nonce":"abc123","recipient":"wallet1","version":"1"}`

// newAPIServer fakes the nlx402 service for a full handshake.
func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/me":
			w.Write([]byte(`{"ok":true,"created_at":1700000000,"wallet_id":"wallet1","selected_mint":"USDC"}`))
		case "/api/metadata":
			w.Write([]byte(`{"ok":true,"metadata":{"network":"mainnet","supported_chains":["solana"],"version":"1"},"supported_mints":["USDC"]}`))
		case "/verify":
			w.Write([]byte(`{"ok":true}`))
		case "/protected":
			if r.Header.Get("x-payment") != "" {
				w.Write([]byte(`{"ok":true,"x402":{"amount":"0.5","decimals":6,"mint":"USDC","nonce":"abc123","status":"settled","tx":"tx1","version":"1"}}`))
				return
			}
			w.Write([]byte(payflowQuote))
		default:
			http.NotFound(w, r)
		}
	}))
}

// receiptSink records receipt events posted by the http publisher.
type receiptSink struct {
	mu     sync.Mutex
	events []publishers.Event
}

func (s *receiptSink) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Fatalf("decode receipt: %v", err)
		}
		s.mu.Lock()
		s.events = append(s.events, evt)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (s *receiptSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func writePublishersFile(t *testing.T, dir, sinkURL string) string {
	t.Helper()
	path := filepath.Join(dir, "publishers.yaml")
	raw := "publishers:\n  - id: sink\n    type: http\n    http:\n      url: " + sinkURL + "\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}
	return path
}

func testConfig(apiURL, publishersFile, dbPath string) *config.Config {
	return &config.Config{
		AppName:        "nlx402-test",
		LogLevel:       "error",
		APIKey:         "key",
		BaseURL:        apiURL,
		PaymentTx:      "tx1",
		PublishersFile: publishersFile,
		StorageType:    "bbolt",
		BBoltPath:      dbPath,
	}
}

func TestPayFlowRunPublishesSettledReceipt(t *testing.T) {
	api := newAPIServer(t)
	defer api.Close()

	sink := &receiptSink{}
	sinkSrv := httptest.NewServer(sink.handler(t))
	defer sinkSrv.Close()

	dir := t.TempDir()
	cfg := testConfig(api.URL, writePublishersFile(t, dir, sinkSrv.URL), filepath.Join(dir, "receipts.db"))

	flow, err := NewPayFlow(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewPayFlow: %v", err)
	}
	if err := flow.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sink.count() != 1 {
		t.Fatalf("expected 1 receipt, got %d", sink.count())
	}
	evt := sink.events[0]
	if evt.Nonce != "abc123" || evt.Tx != "tx1" || evt.Status != "settled" || evt.WalletID != "wallet1" {
		t.Fatalf("unexpected receipt: %+v", evt)
	}
}

func TestPayFlowRunDeduplicatesReceiptsByNonce(t *testing.T) {
	api := newAPIServer(t)
	defer api.Close()

	sink := &receiptSink{}
	sinkSrv := httptest.NewServer(sink.handler(t))
	defer sinkSrv.Close()

	dir := t.TempDir()
	pubFile := writePublishersFile(t, dir, sinkSrv.URL)
	dbPath := filepath.Join(dir, "receipts.db")

	for i := 0; i < 2; i++ {
		flow, err := NewPayFlow(context.Background(), testConfig(api.URL, pubFile, dbPath), nil)
		if err != nil {
			t.Fatalf("NewPayFlow run %d: %v", i, err)
		}
		if err := flow.Run(context.Background()); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}

	if sink.count() != 1 {
		t.Fatalf("re-run must not publish a duplicate receipt, got %d", sink.count())
	}
}

func TestPayFlowRunWithoutPublishersIsLocalOnly(t *testing.T) {
	api := newAPIServer(t)
	defer api.Close()

	dir := t.TempDir()
	cfg := testConfig(api.URL, filepath.Join(dir, "missing.yaml"), filepath.Join(dir, "receipts.db"))

	flow, err := NewPayFlow(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewPayFlow: %v", err)
	}
	if err := flow.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
