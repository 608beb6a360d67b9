package nlx402

import "errors"

// AuthMeResponse is the identity snapshot returned by GET /api/auth/me.
type AuthMeResponse struct {
	OK           bool    `json:"ok"`
	CreatedAt    float64 `json:"created_at"`
	WalletID     string  `json:"wallet_id"`
	SelectedMint string  `json:"selected_mint"`
}

func (r *AuthMeResponse) validate() error {
	if r.WalletID == "" {
		return errors.New("auth response missing wallet_id")
	}
	if r.SelectedMint == "" {
		return errors.New("auth response missing selected_mint")
	}
	return nil
}

// MetadataInfo is the nested metadata object of MetadataResponse.
type MetadataInfo struct {
	Network         string   `json:"network"`
	SupportedChains []string `json:"supported_chains"`
	Version         string   `json:"version"`
}

// MetadataResponse is the service capability descriptor from GET /api/metadata.
type MetadataResponse struct {
	OK             bool         `json:"ok"`
	Metadata       MetadataInfo `json:"metadata"`
	SupportedMints []string     `json:"supported_mints"`
}

func (r *MetadataResponse) validate() error {
	if r.Metadata.Network == "" {
		return errors.New("metadata response missing metadata.network")
	}
	if r.Metadata.Version == "" {
		return errors.New("metadata response missing metadata.version")
	}
	return nil
}

// Quote is the price quote returned by the first GET /protected step.
// It is immutable and identified by Nonce, which correlates the
// subsequent verify call. Expiry is enforced by the server, not here.
type Quote struct {
	Amount    string `json:"amount"`
	Chain     string `json:"chain"`
	Decimals  uint32 `json:"decimals"`
	ExpiresAt int64  `json:"expires_at"`
	Mint      string `json:"mint"`
	Network   string `json:"network"`
	Nonce     string `json:"nonce"`
	Recipient string `json:"recipient"`
	Version   string `json:"version"`
}

func (q *Quote) validate() error {
	switch {
	case q.Amount == "":
		return errors.New("quote missing amount")
	case q.Chain == "":
		return errors.New("quote missing chain")
	case q.ExpiresAt == 0:
		return errors.New("quote missing expires_at")
	case q.Mint == "":
		return errors.New("quote missing mint")
	case q.Network == "":
		return errors.New("quote missing network")
	case q.Nonce == "":
		return errors.New("quote missing nonce")
	case q.Recipient == "":
		return errors.New("quote missing recipient")
	case q.Version == "":
		return errors.New("quote missing version")
	}
	return nil
}

// VerifyResponse is the result of POST /verify.
type VerifyResponse struct {
	OK bool `json:"ok"`
}

func (r *VerifyResponse) validate() error { return nil }

// X402Info is the payment proof embedded in a paid-access response.
type X402Info struct {
	Amount   string `json:"amount"`
	Decimals uint32 `json:"decimals"`
	Mint     string `json:"mint"`
	Nonce    string `json:"nonce"`
	Status   string `json:"status"`
	Tx       string `json:"tx"`
	Version  string `json:"version"`
}

func (x *X402Info) validate() error {
	switch {
	case x.Amount == "":
		return errors.New("x402 info missing amount")
	case x.Mint == "":
		return errors.New("x402 info missing mint")
	case x.Nonce == "":
		return errors.New("x402 info missing nonce")
	case x.Status == "":
		return errors.New("x402 info missing status")
	case x.Tx == "":
		return errors.New("x402 info missing tx")
	case x.Version == "":
		return errors.New("x402 info missing version")
	}
	return nil
}

// PaidAccessResponse is the terminal artifact of the handshake, returned by
// GET /protected when an x-payment header is presented.
type PaidAccessResponse struct {
	OK   bool     `json:"ok"`
	X402 X402Info `json:"x402"`
}

func (r *PaidAccessResponse) validate() error {
	return r.X402.validate()
}

// QuoteAndVerify pairs a quote with its verification result. Produced by
// GetAndVerifyQuote, which threads the quote's own nonce into the verify call.
type QuoteAndVerify struct {
	Quote  Quote
	Verify VerifyResponse
}
