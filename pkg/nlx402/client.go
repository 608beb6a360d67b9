// Package nlx402 implements a client for the nlx402 pay-per-request HTTP
// protocol: request a price quote for a protected resource, verify the
// quote against its nonce, then re-request the resource with transaction
// proof to receive the paid payload. The client holds no session state;
// the handshake is correlated solely by the nonce the caller threads
// between calls. Wallet management, payment signing, and on-chain
// settlement are external concerns.
package nlx402

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"

	"github.com/thrt-ai/nlx402-go/pkg/httpclient"
)

const (
	// DefaultBaseURL is the hosted nlx402 service endpoint.
	DefaultBaseURL = "https://pay.thrt.ai"
	// DefaultTotalPrice is the price hint sent when the caller supplies none.
	DefaultTotalPrice = "0.5"

	headerAPIKey     = "x-api-key"
	headerTotalPrice = "x-total-price"
	headerPayment    = "x-payment"
)

// Options configures a Client. The zero value yields an unauthenticated
// client against DefaultBaseURL using a default resty transport.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient httpclient.Client
}

// Client talks the nlx402 payment handshake. It is safe for concurrent
// use; calls are independent and share only the underlying transport and
// the replaceable API key.
type Client struct {
	baseURL string
	http    httpclient.Client

	mu     sync.RWMutex
	apiKey string
}

// New builds a Client from options. The base URL is normalized once here:
// trailing slashes are stripped and reused verbatim for all endpoint paths.
func New(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/")

	hc := opts.HTTPClient
	if hc == nil {
		hc = httpclient.NewRestyClient(0)
	}

	return &Client{
		baseURL: base,
		http:    hc,
		apiKey:  strings.TrimSpace(opts.APIKey),
	}
}

// NewWithAPIKey builds a Client for the hosted service with the given key.
func NewWithAPIKey(apiKey string) *Client {
	return New(Options{APIKey: apiKey})
}

// SetAPIKey replaces the API key for all subsequent calls.
func (c *Client) SetAPIKey(apiKey string) {
	c.mu.Lock()
	c.apiKey = strings.TrimSpace(apiKey)
	c.mu.Unlock()
}

// BaseURL returns the normalized base URL the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// requireAPIKey is the precondition guard run before every authenticated
// operation; it never touches the network.
func (c *Client) requireAPIKey() (string, error) {
	c.mu.RLock()
	key := c.apiKey
	c.mu.RUnlock()
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// AuthMe fetches the identity snapshot for the configured API key.
func (c *Client) AuthMe(ctx context.Context) (*AuthMeResponse, error) {
	key, err := c.requireAPIKey()
	if err != nil {
		return nil, err
	}

	var out AuthMeResponse
	if err := c.getJSON(ctx, "/api/auth/me", map[string]string{headerAPIKey: key}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metadata fetches the static service capability descriptor. It is the
// only operation that needs no API key.
func (c *Client) Metadata(ctx context.Context) (*MetadataResponse, error) {
	var out MetadataResponse
	if err := c.getJSON(ctx, "/api/metadata", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQuote requests a price quote for the protected resource. An empty
// totalPrice falls back to DefaultTotalPrice.
func (c *Client) GetQuote(ctx context.Context, totalPrice string) (*Quote, error) {
	key, err := c.requireAPIKey()
	if err != nil {
		return nil, err
	}

	totalPrice = strings.TrimSpace(totalPrice)
	if totalPrice == "" {
		totalPrice = DefaultTotalPrice
	}

	headers := map[string]string{
		headerAPIKey:     key,
		headerTotalPrice: totalPrice,
	}

	var out Quote
	if err := c.getJSON(ctx, "/protected", headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyQuote submits a quote and its nonce for server-side verification.
// The nonce must come from a previously obtained quote; an empty nonce
// fails locally without a network round trip.
func (c *Client) VerifyQuote(ctx context.Context, quote *Quote, nonce string) (*VerifyResponse, error) {
	key, err := c.requireAPIKey()
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, invalidResponsef("verify quote: quote is required")
	}
	if nonce == "" {
		return nil, invalidResponsef("verify quote: nonce is required")
	}

	payload, err := json.Marshal(quote)
	if err != nil {
		return nil, invalidResponsef("verify quote: serialize quote: %v", err)
	}
	return c.postVerify(ctx, key, string(payload), nonce)
}

// VerifyQuoteRaw is VerifyQuote for callers holding a pre-serialized quote.
func (c *Client) VerifyQuoteRaw(ctx context.Context, quoteJSON, nonce string) (*VerifyResponse, error) {
	key, err := c.requireAPIKey()
	if err != nil {
		return nil, err
	}
	if nonce == "" {
		return nil, invalidResponsef("verify quote raw: nonce is required")
	}
	return c.postVerify(ctx, key, quoteJSON, nonce)
}

func (c *Client) postVerify(ctx context.Context, key, paymentData, nonce string) (*VerifyResponse, error) {
	form := url.Values{
		"payment_data": {paymentData},
		"nonce":        {nonce},
	}

	var out VerifyResponse
	if err := c.postFormJSON(ctx, "/verify", map[string]string{headerAPIKey: key}, form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPaidAccess re-requests the protected resource presenting transaction
// proof. Both tx and nonce must be non-empty; the pair must match a
// previously verified quote or the server will refuse it.
func (c *Client) GetPaidAccess(ctx context.Context, tx, nonce string) (*PaidAccessResponse, error) {
	key, err := c.requireAPIKey()
	if err != nil {
		return nil, err
	}
	if tx == "" || nonce == "" {
		return nil, invalidResponsef("paid access: tx and nonce are required")
	}

	proof, err := json.Marshal(struct {
		Tx    string `json:"tx"`
		Nonce string `json:"nonce"`
	}{Tx: tx, Nonce: nonce})
	if err != nil {
		return nil, invalidResponsef("paid access: serialize payment header: %v", err)
	}

	headers := map[string]string{
		headerAPIKey:  key,
		headerPayment: string(proof),
	}

	var out PaidAccessResponse
	if err := c.getJSON(ctx, "/protected", headers, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAndVerifyQuote composes GetQuote and VerifyQuote, threading the
// quote's own nonce into the verify call. The verify request is only
// issued after the quote response is fully received and decoded; any
// failure short-circuits.
func (c *Client) GetAndVerifyQuote(ctx context.Context, totalPrice string) (*QuoteAndVerify, error) {
	quote, err := c.GetQuote(ctx, totalPrice)
	if err != nil {
		return nil, err
	}
	verify, err := c.VerifyQuote(ctx, quote, quote.Nonce)
	if err != nil {
		return nil, err
	}
	return &QuoteAndVerify{Quote: *quote, Verify: *verify}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, headers map[string]string, out validator) error {
	resp, err := c.http.Get(ctx, c.baseURL+path, headers)
	if err != nil {
		return &TransportError{Cause: err}
	}
	return decodeInto(resp, out)
}

func (c *Client) postFormJSON(ctx context.Context, path string, headers map[string]string, form url.Values, out validator) error {
	resp, err := c.http.PostForm(ctx, c.baseURL+path, headers, form)
	if err != nil {
		return &TransportError{Cause: err}
	}
	return decodeInto(resp, out)
}
