package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides the local receipt-dedupe store. It remembers
// nonces whose receipts were already published so a re-run of the flow
// does not emit duplicate events downstream.

// Store tracks published receipt nonces.
type Store interface {
	Close() error
	SeenNonce(nonce string) (bool, error)
	MarkNonce(nonce string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ReceiptTTL      time.Duration
	CleanupInterval time.Duration
}

const (
	defaultReceiptTTL      = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ReceiptTTL <= 0 {
		opts.ReceiptTTL = defaultReceiptTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                   { return nil }
func (noopStore) SeenNonce(string) (bool, error) { return false, nil }
func (noopStore) MarkNonce(string) error         { return nil }
