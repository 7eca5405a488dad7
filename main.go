package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"salonlink.app/cloud/handlers"
	"salonlink.app/cloud/internal/billing"
	"salonlink.app/cloud/internal/config"
	"salonlink.app/cloud/internal/logger"
	"salonlink.app/cloud/storage"
)

var version = "dev"

func main() {
	if versionBytes, err := os.ReadFile("VERSION"); err == nil {
		version = strings.TrimSpace(string(versionBytes))
	}

	godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 1.0,
		})
		if err != nil {
			log.Fatalf("sentry.Init: %s", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	store, err := openStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", logger.Fields{"error": err.Error()})
		}
	}()

	provider := billing.NewStripeProvider(cfg.StripeSecret)
	reconciler := billing.NewReconciler(store, provider, cfg.Plans(), cfg.StripePriceSetup, cfg.AppURL, cfg.StripeWebhookSecret)

	server := handlers.NewHTTPServer(cfg, store, reconciler, version)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("SalonLink Cloud API starting", logger.Fields{
			"version": version,
			"port":    cfg.Port,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", logger.Fields{"error": err.Error()})
	}
}

// openStorage picks the store from the DATABASE_URL shape: a postgres URL in
// production (Supabase), anything else is treated as a SQLite file path.
func openStorage(databaseURL string) (storage.Storage, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return storage.NewPostgresStorage(databaseURL)
	}
	return storage.NewSQLiteStorage(databaseURL)
}
