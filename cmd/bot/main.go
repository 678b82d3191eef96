package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vigilx/pricewatch/internal/bot"
	"github.com/vigilx/pricewatch/internal/config"
	"github.com/vigilx/pricewatch/internal/extract"
	"github.com/vigilx/pricewatch/internal/logging"
	"github.com/vigilx/pricewatch/internal/notify"
	"github.com/vigilx/pricewatch/internal/scrape"
	"github.com/vigilx/pricewatch/internal/server"
	"github.com/vigilx/pricewatch/internal/store"
	"github.com/vigilx/pricewatch/internal/track"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	st, err := buildStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("closing store failed", "error", err)
		}
	}()

	extractor, err := extract.NewGemini(extract.GeminiOptions{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	})
	if err != nil {
		logger.Error("failed to create extractor", "error", err)
		os.Exit(1)
	}

	assistant, err := bot.New(bot.Options{
		Token:           cfg.Telegram.Token,
		PollTimeout:     cfg.Telegram.PollTimeout,
		DownloadTimeout: cfg.Telegram.DownloadTimeout,
	}, st, extractor, logger)
	if err != nil {
		logger.Error("failed to connect telegram", "error", err)
		os.Exit(1)
	}

	fetcher := scrape.NewHTTPFetcher(scrape.HTTPFetcherOptions{
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.Scrape.FetchTimeout,
	})
	resolver := scrape.NewResolver(fetcher, logger)
	dispatcher := notify.NewDispatcher(assistant.Transport())
	reconciler := track.NewReconciler(st, resolver, dispatcher, logger)

	router := server.NewRouter(logger, server.RouterDependencies{
		Store:    st,
		Reporter: reconciler,
	})
	srv := server.New(logger, cfg.HTTP, router)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	go assistant.Run(runCtx)

	if cfg.Tracker.Enabled {
		scheduler := track.NewScheduler(reconciler, cfg.Tracker.Interval, logger)
		go scheduler.Run(runCtx)
		logger.Info("price tracker scheduled", "interval", cfg.Tracker.Interval.String())
	} else {
		logger.Info("price tracker disabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildStore(ctx context.Context, logger *slog.Logger, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := store.NewPostgres(ctx, store.PostgresOptions{
			DSN:      cfg.Store.PostgresDSN,
			MaxConns: cfg.Store.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres store")
		return st, nil
	case "memory":
		logger.Warn("using in-memory store, tracked items will not survive restarts")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
