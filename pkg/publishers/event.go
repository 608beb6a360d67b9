package publishers

import (
	"time"

	"github.com/thrt-ai/nlx402-go/pkg/nlx402"
)

// Event is the payment receipt payload published downstream after a
// completed handshake. Nonce is the correlation key throughout.
type Event struct {
	WalletID string    `json:"wallet_id,omitempty"`
	Nonce    string    `json:"nonce"`
	Tx       string    `json:"tx,omitempty"`
	Amount   string    `json:"amount"`
	Mint     string    `json:"mint"`
	Network  string    `json:"network"`
	Status   string    `json:"status"`
	PaidAt   time.Time `json:"paid_at"`
}

// NewVerifiedEvent builds a receipt for a verified (but not yet settled) quote.
func NewVerifiedEvent(walletID string, quote nlx402.Quote) Event {
	return Event{
		WalletID: walletID,
		Nonce:    quote.Nonce,
		Amount:   quote.Amount,
		Mint:     quote.Mint,
		Network:  quote.Network,
		Status:   "verified",
		PaidAt:   time.Now().UTC(),
	}
}

// NewSettledEvent builds a receipt from the payment proof of a paid-access response.
func NewSettledEvent(walletID, network string, proof nlx402.X402Info) Event {
	return Event{
		WalletID: walletID,
		Nonce:    proof.Nonce,
		Tx:       proof.Tx,
		Amount:   proof.Amount,
		Mint:     proof.Mint,
		Network:  network,
		Status:   proof.Status,
		PaidAt:   time.Now().UTC(),
	}
}
