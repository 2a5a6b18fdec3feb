package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"lendit/internal/app/bootstrap"
	"lendit/internal/app/policies"
	"lendit/internal/app/schedule"
	"lendit/internal/clock"
	"lendit/internal/infra/config"
	ginserver "lendit/internal/infra/http/gin"
	"lendit/internal/infra/obs"
	infraoutbox "lendit/internal/infra/outbox"
	"lendit/internal/infra/payments"
	"lendit/internal/infra/security"
	"lendit/internal/infra/storage/s3"
	"lendit/internal/infra/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(getenv("APP_ENV", "dev"), "").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	fixturesPath := getenv("ITEMS_FIXTURES", "")
	if fixturesPath == "" {
		fixturesPath = defaultItemFixturesPath()
	}
	if err := loadItemFixtures(ctx, app.storage.uow, fixturesPath, cfg.DefaultCurrency, logger); err != nil {
		logger.Warn("item fixtures load failed", "error", err, "path", fixturesPath)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)

	var wg sync.WaitGroup
	for _, w := range app.workers {
		wg.Add(1)
		go func(w worker) {
			defer wg.Done()
			logger.Info("worker starting", "worker", w.name)
			if err := w.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker stopped", "worker", w.name, "error", err)
			}
		}(w)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "broker", cfg.Broker)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

type application struct {
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	storage  storage
	workers  []worker
	closers  []func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &application{storage: store}
	checks := map[string]obs.Check{}
	for name, check := range store.checks {
		checks[name] = check
	}

	var photos policies.PhotoStore
	if cfg.PhotosEnabled() {
		bucket, err := s3.NewPhotoBucket(s3.Options{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicEndpoint,
			Logger:    logger,
		})
		if err != nil {
			app.close(logger)
			return nil, err
		}
		photos = bucket
		checks["s3"] = bucket.Ping
	}

	buses, err := bootstrap.Build(bootstrap.Deps{
		UoW:             store.uow,
		Outbox:          store.outbox,
		Idempotency:     store.idempotency,
		IdempotencyTTL:  cfg.IdempotencyTTL,
		Validator:       validation.New(),
		Photos:          photos,
		Clock:           clock.NewSystem(),
		DefaultCurrency: cfg.DefaultCurrency,
		DemoMode:        cfg.DemoMode,
		DemoDailyRate:   cfg.DemoDailyRate,
		TxRetryBudget:   cfg.TxRetryBudget,
		Logger:          logger,
	})
	if err != nil {
		app.close(logger)
		return nil, err
	}

	listener := &payments.Listener{Commands: buses.Commands, Inbox: store.inbox, Logger: logger}
	br, err := openBroker(cfg, listener, logger)
	if err != nil {
		app.close(logger)
		return nil, err
	}
	app.workers = append(app.workers, br.workers...)
	app.closers = append(app.closers, br.closers...)

	relay := &infraoutbox.Worker{
		Store:       store.relay,
		Producer:    br.producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	app.workers = append(app.workers, worker{name: "outbox-relay", run: relay.Run})

	sweep := &schedule.Periodic{
		Job:      schedule.CompletionSweep{Bus: buses.Commands, BatchSize: 200},
		Interval: cfg.CompletionSweepInterval,
		Logger:   logger,
	}
	app.workers = append(app.workers, worker{name: "completion-sweep", run: sweep.Run})
	if store.purger != nil {
		purge := &schedule.Periodic{
			Job:      schedule.PurgeExpired{Store: store.purger, Label: "idempotency", Logger: logger},
			Interval: time.Hour,
			Logger:   logger,
		}
		app.workers = append(app.workers, worker{name: "idempotency-purge", run: purge.Run})
	}

	verifier := security.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	app.health = obs.HealthHandlers{Checks: checks, Timeout: 2 * time.Second}
	app.handlers = ginserver.Handlers{
		Booking:        ginserver.BookingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Availability:   ginserver.AvailabilityHandler{Queries: buses.Queries, Logger: logger},
		Item:           ginserver.ItemHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Me:             ginserver.MeHandler{Queries: buses.Queries, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	}
	return app, nil
}

func (a *application) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	if a.storage.close != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.storage.close(ctx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
		a.storage.close = nil
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
