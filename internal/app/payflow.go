package app

import (
	"context"
	"fmt"
	"time"

	"github.com/thrt-ai/nlx402-go/internal/config"
	"github.com/thrt-ai/nlx402-go/internal/logger"
	"github.com/thrt-ai/nlx402-go/internal/storage"
	"github.com/thrt-ai/nlx402-go/pkg/httpclient"
	"github.com/thrt-ai/nlx402-go/pkg/nlx402"
	"github.com/thrt-ai/nlx402-go/pkg/publishers"
)

// PayFlow is the payment handshake runtime. It wires the nlx402 client,
// the receipt store, and the configured receipt publishers, then drives
// quote → verify → (optional) paid access for a single run.
type PayFlow struct {
	cfg    *config.Config
	client *nlx402.Client
	fanout *publishers.Fanout
	store  storage.Store
	log    logger.Logger
}

// NewPayFlow builds the runtime from config files.
func NewPayFlow(ctx context.Context, cfg *config.Config, log logger.Logger) (*PayFlow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := nlx402.New(nlx402.Options{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		HTTPClient: httpclient.NewRestyClient(cfg.HTTPTimeout),
	})
	log.InfoObj("nlx402 client initialized", "client_meta", map[string]any{
		"base_url":        client.BaseURL(),
		"api_key_present": cfg.APIKey != "",
		"timeout":         cfg.HTTPTimeout.String(),
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		ReceiptTTL:      cfg.ReceiptTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"receipt_ttl_seconds":      int(cfg.ReceiptTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &PayFlow{
		cfg:    cfg,
		client: client,
		fanout: fanout,
		store:  store,
		log:    log,
	}, nil
}

// buildFanout loads the publisher registry. Receipt sinks are optional:
// a missing or empty publishers file leaves the run local-only.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		log.WarnObj("no receipt publishers configured", "reason", err.Error())
		return publishers.NewFanout(nil), nil
	}

	enabledPublishers := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	return publishers.NewFanout(pubClients), nil
}

// Run executes a single payment handshake and publishes its receipt.
func (p *PayFlow) Run(ctx context.Context) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("payflow is not initialized")
	}
	defer p.closeStore()

	start := time.Now()

	walletID := p.probeIdentity(ctx)
	p.probeMetadata(ctx)

	pair, err := p.client.GetAndVerifyQuote(ctx, p.cfg.TotalPrice)
	if err != nil {
		return fmt.Errorf("quote and verify: %w", err)
	}
	p.log.InfoObj("quote verified", "quote_meta", map[string]any{
		"nonce":      pair.Quote.Nonce,
		"amount":     pair.Quote.Amount,
		"mint":       pair.Quote.Mint,
		"network":    pair.Quote.Network,
		"expires_at": pair.Quote.ExpiresAt,
	})
	if !pair.Verify.OK {
		return fmt.Errorf("server refused verification for nonce %q", pair.Quote.Nonce)
	}

	evt := publishers.NewVerifiedEvent(walletID, pair.Quote)
	if p.cfg.PaymentTx != "" {
		paid, err := p.client.GetPaidAccess(ctx, p.cfg.PaymentTx, pair.Quote.Nonce)
		if err != nil {
			return fmt.Errorf("paid access: %w", err)
		}
		p.log.InfoObj("paid access granted", "x402", paid.X402)
		evt = publishers.NewSettledEvent(walletID, pair.Quote.Network, paid.X402)
	}

	if err := p.publishReceipt(ctx, evt); err != nil {
		return err
	}

	p.log.InfoObj("handshake completed", "run_meta", map[string]any{
		"nonce":      evt.Nonce,
		"status":     evt.Status,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// probeIdentity resolves the wallet id for receipt attribution. The
// handshake works without it, so failures only warn.
func (p *PayFlow) probeIdentity(ctx context.Context) string {
	me, err := p.client.AuthMe(ctx)
	if err != nil {
		p.log.WarnObj("identity probe failed", "error", err.Error())
		return ""
	}
	p.log.InfoObj("identity resolved", "auth_meta", map[string]any{
		"wallet_id":     me.WalletID,
		"selected_mint": me.SelectedMint,
	})
	return me.WalletID
}

func (p *PayFlow) probeMetadata(ctx context.Context) {
	meta, err := p.client.Metadata(ctx)
	if err != nil {
		p.log.WarnObj("metadata probe failed", "error", err.Error())
		return
	}
	p.log.InfoObj("service metadata", "metadata", meta.Metadata)
}

// publishReceipt fans the receipt out to configured sinks, deduplicating
// by nonce so re-runs do not emit duplicate events.
func (p *PayFlow) publishReceipt(ctx context.Context, evt publishers.Event) error {
	if p.fanout.Size() == 0 {
		return nil
	}

	seen, err := p.store.SeenNonce(evt.Nonce)
	if err != nil {
		return fmt.Errorf("check receipt store: %w", err)
	}
	if seen {
		p.log.InfoObj("receipt already published; skipping", "nonce", evt.Nonce)
		return nil
	}

	published, err := p.fanout.Publish(ctx, evt)
	if err != nil {
		p.log.ErrorObj("receipt publish failed", "error", err.Error())
		return fmt.Errorf("publish receipt: %w", err)
	}
	if published > 0 {
		if err := p.store.MarkNonce(evt.Nonce); err != nil {
			return fmt.Errorf("mark receipt published: %w", err)
		}
	}
	p.log.InfoObj("receipt published", "publish_meta", map[string]any{
		"nonce":      evt.Nonce,
		"publishers": published,
	})
	return nil
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (p *PayFlow) closeStore() {
	if p == nil || p.store == nil {
		return
	}
	if err := p.store.Close(); err != nil {
		p.log.ErrorObj("storage close failed", "error", err.Error())
	}
}
