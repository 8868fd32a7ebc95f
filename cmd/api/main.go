package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KosherKev/centralized-webhook-dispatcher/config"
	"github.com/KosherKev/centralized-webhook-dispatcher/health"
	"github.com/KosherKev/centralized-webhook-dispatcher/internal/http/chi"
	"github.com/KosherKev/centralized-webhook-dispatcher/metrics"
	"github.com/KosherKev/centralized-webhook-dispatcher/subscriber"
	subscriberredis "github.com/KosherKev/centralized-webhook-dispatcher/subscriber/redis"
	subscribersqlite "github.com/KosherKev/centralized-webhook-dispatcher/subscriber/sqlite"
	"github.com/KosherKev/centralized-webhook-dispatcher/webhook"
)

const shutdownTimeout = 30 * time.Second

/* main wires the whole dispatcher together: configuration, the subscriber
 * registry (file seed plus optional Redis-persisted appends), the dispatch
 * pipeline and the HTTP surface. Imports flow one direction only: main
 * imports the business packages, which import the storage layer.
 */

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("opening subscriber store", "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close(ctx)
	}

	registry := subscriber.NewRegistry(store)
	if err := seedRegistry(ctx, registry, store, cfg.SubscribersFile, logger); err != nil {
		logger.Error("seeding subscriber registry", "error", err)
		os.Exit(1)
	}

	exporter, err := metrics.NewExporter(registry)
	if err != nil {
		logger.Error("setting up metrics", "error", err)
		os.Exit(1)
	}
	defer exporter.Shutdown(ctx)

	resolver := webhook.NewResolver(&http.Client{}, cfg.ResolveTimeout(), logger)
	forwarder := webhook.NewForwarder(&http.Client{}, cfg.ForwardTimeout(), cfg.SignatureHeader, logger)
	dispatcher := webhook.NewDispatcher(registry, resolver, forwarder, cfg.ProviderSecret, exporter, logger)
	checker := health.NewChecker(&http.Client{}, logger)

	r := chi.Handlers(cfg, dispatcher, registry, checker, exporter.Handler())
	srv := &http.Server{
		ReadTimeout: 30 * time.Second,
		// a dispatch can legitimately hold the connection for the resolve
		// timeout plus the forward timeout
		WriteTimeout: 90 * time.Second,
		Addr:         cfg.ListenAddr,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	logger.Info("listening",
		"addr", cfg.ListenAddr,
		"provider", cfg.ProviderName,
		"subscribers", registry.Len(),
	)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	if err := <-errShutdown; err != nil {
		logger.Error("shutting down", "error", err)
		os.Exit(1)
	}
}

// newStore picks the registry persistence backend: Redis when REDIS_ADDR is
// set, a local SQLite file when SQLITE_PATH is set, otherwise none and admin
// appends live only until restart.
func newStore(ctx context.Context, cfg *config.Config) (subscriber.Store, error) {
	switch {
	case cfg.RedisAddr != "":
		return subscriberredis.NewStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case cfg.SQLitePath != "":
		return subscribersqlite.NewStore(ctx, cfg.SQLitePath)
	default:
		return nil, nil
	}
}

// seedRegistry loads file-declared subscribers first, then whatever earlier
// runs persisted through the admin API. On an id collision the file entry
// wins and the stored one is skipped.
func seedRegistry(ctx context.Context, registry *subscriber.Registry, store subscriber.Store, file string, logger *slog.Logger) error {
	subs, err := subscriber.LoadFile(file)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("subscribers file not found, starting empty", "file", file)
	case err != nil:
		return err
	}
	for _, sub := range subs {
		if err := registry.Add(sub); err != nil {
			return err
		}
		logger.Info("subscriber registered", "subscriber", sub.ID, "enabled", sub.Enabled)
	}

	if store == nil {
		return nil
	}
	stored, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("loading stored subscribers: %w", err)
	}
	for _, sub := range stored {
		if err := registry.Add(sub); err != nil {
			if errors.Is(err, subscriber.ErrDuplicateID) {
				logger.Warn("stored subscriber shadowed by file entry", "subscriber", sub.ID)
				continue
			}
			return err
		}
		logger.Info("subscriber restored from store", "subscriber", sub.ID, "enabled", sub.Enabled)
	}
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		l = slog.LevelDebug
	case "WARN":
		l = slog.LevelWarn
	case "ERROR":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("forcing server close after %s", shutdownTimeout)
	default:
		errShutdown <- err
	}
}
