package storage

import (
	"testing"
	"time"
)

func TestBoltStoreMarksAndExpiresNonces(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		ReceiptTTL:      1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/receipts.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	seen, err := store.SeenNonce("abc123")
	if err != nil || seen {
		t.Fatalf("expected unseen nonce, seen=%v err=%v", seen, err)
	}

	if err := store.MarkNonce("abc123"); err != nil {
		t.Fatalf("MarkNonce: %v", err)
	}

	seen, err = store.SeenNonce("abc123")
	if err != nil || !seen {
		t.Fatalf("expected nonce marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.SeenNonce("abc123")
	if err != nil {
		t.Fatalf("SeenNonce after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkNonce("x"); err != nil {
		t.Fatalf("noop store MarkNonce: %v", err)
	}
}
