// StandX market maker — a persistent two-sided quoting bot for a single
// perpetual-futures symbol, built for maker-uptime eligibility rather
// than alpha capture.
//
// Architecture:
//
//	main.go            — entry point: loads config, wires collaborators, waits for SIGINT/SIGTERM
//	engine/engine.go   — control loop: reconciles resting orders against the quote generator's output
//	quote/quote.go     — pure function: mid price + position + config -> two-sided quote
//	market/book.go     — local order book mirror fed by the depth feed's snapshot/delta stream
//	feed/ws.go         — WebSocket depth feed client with auto-reconnect and resubscribe
//	exchange/client.go — REST client for the StandX API (place/cancel orders, positions, book)
//	signer/signer.go   — Ed25519 request signing and WS auth payloads
//	uptime/tracker.go  — per-hour maker/market-maker uptime accounting
//	status/server.go   — local HTTP+WS status and control surface
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"standx-mm/internal/config"
	"standx-mm/internal/engine"
	"standx-mm/internal/exchange"
	"standx-mm/internal/feed"
	"standx-mm/internal/market"
	"standx-mm/internal/signer"
	"standx-mm/internal/status"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("STANDX_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	s, err := signer.New(cfg.Wallet.PrivateKey, cfg.Wallet.BearerToken)
	if err != nil {
		logger.Error("failed to create signer", "error", err)
		os.Exit(1)
	}
	s.WithWalletInfo(cfg.Wallet.WalletAddress, cfg.Wallet.ChainLabel)

	client := exchange.New(cfg.API.BaseURL, s, cfg.DryRun, logger)
	book := market.NewBook(cfg.Symbols.Active)
	depthFeed := feed.New(cfg.API.WSURL, cfg.Symbols.Active, logger)

	eng := engine.New(cfg, client, depthFeed, book, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := depthFeed.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("depth feed stopped unexpectedly", "error", err)
		}
	}()

	var statusServer *status.Server
	if cfg.Dashboard.Enabled {
		statusServer = status.NewServer(cfg.Dashboard, eng, cfg, logger)
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.Error("status server failed", "error", err)
			}
		}()
		logger.Info("status server started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	eng.Start(ctx)

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	logger.Info("standx market maker started",
		"symbol", cfg.Symbols.Active,
		"spread_bps", cfg.Strategy.SpreadBps,
		"max_position", cfg.Risk.MaxPosition,
		"dry_run", cfg.DryRun,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	if statusServer != nil {
		if err := statusServer.Stop(); err != nil {
			logger.Error("failed to stop status server", "error", err)
		}
	}

	eng.Stop()
	cancel()
	depthFeed.Close()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
