package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thrt-ai/nlx402-go/internal/app"
	"github.com/thrt-ai/nlx402-go/internal/config"
	"github.com/thrt-ai/nlx402-go/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nlx402 failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("nlx402 starting", "config", map[string]any{
		"app_name":        cfg.AppName,
		"env":             cfg.Env,
		"base_url":        cfg.BaseURL,
		"total_price":     cfg.TotalPrice,
		"payment_tx_set":  cfg.PaymentTx != "",
		"publishers_file": cfg.PublishersFile,
		"storage_type":    cfg.StorageType,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flow, err := app.NewPayFlow(ctx, cfg, logger.Default())
	if err != nil {
		logger.ErrorObj("failed to initialize payflow", "error", err.Error())
		return err
	}

	if err := flow.Run(ctx); err != nil {
		return fmt.Errorf("payflow run: %w", err)
	}

	return nil
}
