package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vigilx/pricewatch/internal/bot"
	"github.com/vigilx/pricewatch/internal/config"
	"github.com/vigilx/pricewatch/internal/domain"
	"github.com/vigilx/pricewatch/internal/logging"
	"github.com/vigilx/pricewatch/internal/notify"
	"github.com/vigilx/pricewatch/internal/scrape"
	"github.com/vigilx/pricewatch/internal/store"
	"github.com/vigilx/pricewatch/internal/track"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Resolve prices and report drops without sending notifications or persisting updates")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithWriter(cfg.Logging, os.Stderr).With("component", "trackpass")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	fetcher := scrape.NewHTTPFetcher(scrape.HTTPFetcherOptions{
		UserAgent: cfg.Scrape.UserAgent,
		Timeout:   cfg.Scrape.FetchTimeout,
	})
	resolver := scrape.NewResolver(fetcher, logger)

	notifier, target, err := buildNotifier(*dryRun, logger, cfg, st)
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		os.Exit(1)
	}

	reconciler := track.NewReconciler(target, resolver, notifier, logger)

	report, err := reconciler.RunPass(ctx)
	if err != nil {
		var passErr *track.PassError
		if errors.As(err, &passErr) {
			logger.Warn("pass completed with write failures", "failures", len(passErr.Failures))
		} else {
			logger.Error("pass failed", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("pass complete",
		"duration", report.Duration.String(),
		"users", report.Users,
		"items_checked", report.ItemsChecked,
		"items_resolved", report.ItemsResolved,
		"drops", report.Drops,
		"notified", report.Notified,
		"write_failures", report.WriteFailures,
		"dry_run", *dryRun,
	)
}

// buildNotifier returns the notifier and the store the pass should write to.
// In dry-run mode notifications are logged instead of sent and writes land in
// a throwaway copy of the tracked data, leaving the real store untouched.
func buildNotifier(dryRun bool, logger *slog.Logger, cfg config.Config, st store.Store) (track.Notifier, store.Store, error) {
	if dryRun {
		shadow, err := copyToMemory(st)
		if err != nil {
			return nil, nil, err
		}
		return &logNotifier{logger: logger}, shadow, nil
	}

	transport, err := bot.ConnectTransport(cfg.Telegram.Token)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewDispatcher(transport), st, nil
}

// copyToMemory snapshots every user into a fresh in-memory store.
func copyToMemory(src store.Store) (store.Store, error) {
	users, err := src.GetAllUsers(context.Background())
	if err != nil {
		return nil, err
	}
	dst := store.NewMemory()
	for _, u := range users {
		if err := dst.UpsertUser(context.Background(), u.ChatID, u.Name); err != nil {
			return nil, err
		}
		if err := dst.ReplaceTracking(context.Background(), u.ChatID, u.Tracking); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// logNotifier reports would-be notifications without a chat transport.
type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) NotifyDrop(_ context.Context, chatID int64, item domain.TrackedItem, refund int64) error {
	n.logger.Info("would notify price drop",
		"chat_id", chatID,
		"item_id", item.ID,
		"item", item.Name,
		"paid", item.PricePaid,
		"current", item.EffectivePrice(),
		"refund", refund,
	)
	return nil
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
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
