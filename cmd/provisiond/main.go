package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/cirrohost/provisiond/internal/adapter/fsm"
	"github.com/cirrohost/provisiond/internal/adapter/otel"
	"github.com/cirrohost/provisiond/internal/adapter/provider"
	"github.com/cirrohost/provisiond/internal/adapter/river"
	"github.com/cirrohost/provisiond/internal/adapter/sqlite"
	"github.com/cirrohost/provisiond/internal/app"
	"github.com/cirrohost/provisiond/internal/catalog"
	"github.com/cirrohost/provisiond/internal/domain"
	"github.com/cirrohost/provisiond/internal/queue"

	handler "github.com/cirrohost/provisiond/internal/adapter/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// run wires the full stack and blocks until SIGINT or SIGTERM. Split from
// main so tests can drive the real wiring and shutdown path.
func run() error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg, err := catalog.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	jobStore, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("job store: %w", err)
	}
	store := otel.NewTracingJobStore(jobStore)
	subs := sqlite.NewSubscriptionRepository(db)

	riverClient, err := river.Setup(ctx, db)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			slog.Error("river stop", "error", err)
		}
	}()

	publisher := otel.NewTracingPublisher(river.NewPublisher(riverClient))
	validator := fsm.New()

	// --- Application ---
	aggregator := app.NewAggregator(store, subs, validator, publisher, slog.Default())
	svc := app.NewProvisioningService(store, subs, aggregator, catalog.Lookup, cfg.Infra())

	// --- Worker pool ---
	handlerTimeout := time.Duration(cfg.HandlerTimeoutMS) * time.Millisecond
	handlers := map[domain.JobType]domain.Handler{
		domain.JobProvisionDNS:     provider.NewDNSHandler(cfg.DNSAPIURL, handlerTimeout),
		domain.JobProvisionHosting: provider.NewHostingHandler(cfg.HostingAPIURL, handlerTimeout),
		domain.JobProvisionMail:    provider.NewMailHandler(cfg.MailAPIURL, handlerTimeout),
		domain.JobProvisionPod:     provider.NewPodHandler(cfg.HypervisorAPIURL, handlerTimeout),
	}

	pool := queue.New(store, handlers, aggregator, queue.Options{
		Workers:        cfg.Workers,
		PollInterval:   time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		HandlerTimeout: handlerTimeout,
	})
	pool.Start(ctx)
	defer pool.Stop()

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("provisiond", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("provisiond", "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("provisiond listening", "port", cfg.Port, "workers", cfg.Workers)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}

	return nil
}
