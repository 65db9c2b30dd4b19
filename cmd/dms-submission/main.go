// Command dms-submission runs the document-submission forwarding service:
// an HTTP API accepting submissions, and three background workers that
// drive each item through SDES notification, client callback, and
// callback-exhaustion handling. The process layout — slog JSON logging with
// a LOG_LEVEL switch, signal.NotifyContext shutdown, http.Server with a
// bounded Shutdown — follows cmd/chrc/main.go.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/dms-submission/internal/callback"
	"github.com/hazyhaar/dms-submission/internal/clock"
	"github.com/hazyhaar/dms-submission/internal/config"
	"github.com/hazyhaar/dms-submission/internal/failure"
	"github.com/hazyhaar/dms-submission/internal/httpapi"
	"github.com/hazyhaar/dms-submission/internal/objectstore"
	"github.com/hazyhaar/dms-submission/internal/scheduler"
	"github.com/hazyhaar/dms-submission/internal/sdes"
	"github.com/hazyhaar/dms-submission/internal/store"
	"github.com/hazyhaar/dms-submission/internal/submit"

	_ "modernc.org/sqlite"
)

const authOwnerPrincipal = "dms-submission-client"
const collaboratorTimeout = 15 * time.Second

func main() {
	logger := newLogger(env("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	configPath := env("CONFIG_PATH", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error("config load failed", "path", configPath, "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := store.Open(cfg.DBPath, clock.Real())
	if err != nil {
		logger.Error("store open failed", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	objStore := objectstore.NewHTTPStore(cfg.ObjectStoreBaseURL, collaboratorTimeout)
	sdesClient := sdes.NewHTTPClient(cfg.SDESBaseURL, collaboratorTimeout)
	callbackClient := callback.NewHTTPClient(collaboratorTimeout)

	pipeline := &submit.Pipeline{
		Store:       db,
		ObjectStore: objStore,
		ScratchDir:  cfg.ScratchDir,
		ValidateCfg: submit.ValidationConfig{AllowLocalhostCallbacks: cfg.AllowLocalhostCallbacks},
		Logger:      logger,
	}

	lockTTLMillis := cfg.LockTTL.Milliseconds()

	sdesWorker := &sdes.Worker{
		Store:             db,
		Client:            sdesClient,
		LockTTLMillis:     lockTTLMillis,
		InformationType:   cfg.Services.SDES.InformationType,
		RecipientOrSender: cfg.Services.SDES.RecipientOrSender,
		Logger:            logger,
	}
	callbackWorker := &callback.Worker{
		Store:         db,
		Client:        callbackClient,
		LockTTLMillis: lockTTLMillis,
		Logger:        logger,
	}
	failureWorker := &failure.Worker{
		Store:         db,
		MaxFailures:   cfg.Workers.FailedItemWorker.MaxFailures,
		LockTTLMillis: lockTTLMillis,
		Logger:        logger,
	}

	go scheduler.Run(ctx, "sdes-worker", scheduler.Config{
		InitialDelay: cfg.Workers.InitialDelay,
		Interval:     cfg.Workers.SDESWorker.Interval,
	}, sdesWorker.Tick, logger)

	go scheduler.Run(ctx, "callback-worker", scheduler.Config{
		InitialDelay: cfg.Workers.InitialDelay,
		Interval:     cfg.Workers.ProcessedItem.Interval,
	}, callbackWorker.Tick, logger)

	go scheduler.Run(ctx, "failed-item-worker", scheduler.Config{
		InitialDelay: cfg.Workers.InitialDelay,
		Interval:     cfg.Workers.FailedItemWorker.Interval,
	}, failureWorker.Tick, logger)

	router := httpapi.NewRouter(httpapi.Config{
		Pipeline:  pipeline,
		Store:     db,
		AuthToken: cfg.InternalAuth.Token,
		AuthOwner: authOwnerPrincipal,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func newLogger(levelName string) *slog.Logger {
	var lvl slog.Level
	switch levelName {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
