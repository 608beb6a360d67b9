package nlx402

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestQuoteWireShapeRoundTripStable(t *testing.T) {
	q := Quote{
		Amount:    "0.5",
		Chain:     "solana",
		Decimals:  6,
		ExpiresAt: 1999999999,
		Mint:      "USDC",
		Network:   "mainnet",
		Nonce:     "abc123",
		Recipient: "wallet1",
		Version:   "1",
	}

	first, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Quote
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("round trip not stable:\n%s\n%s", first, second)
	}
}

func TestQuoteValidateNamesFirstMissingField(t *testing.T) {
	q := Quote{
		Amount:    "0.5",
		Chain:     "solana",
		Decimals:  6,
		ExpiresAt: 1999999999,
		Mint:      "USDC",
		Network:   "mainnet",
		Nonce:     "abc123",
		Recipient: "wallet1",
		Version:   "1",
	}
	if err := q.validate(); err != nil {
		t.Fatalf("complete quote should validate: %v", err)
	}

	missing := q
	missing.Recipient = ""
	if err := missing.validate(); err == nil {
		t.Fatalf("expected validation failure for missing recipient")
	}
}

func TestPaidAccessValidateChecksEmbeddedProof(t *testing.T) {
	res := PaidAccessResponse{
		OK: true,
		X402: X402Info{
			Amount:   "0.5",
			Decimals: 6,
			Mint:     "USDC",
			Nonce:    "abc123",
			Status:   "settled",
			Tx:       "tx1",
			Version:  "1",
		},
	}
	if err := res.validate(); err != nil {
		t.Fatalf("complete response should validate: %v", err)
	}

	res.X402.Tx = ""
	if err := res.validate(); err == nil {
		t.Fatalf("expected validation failure for missing tx")
	}
}
