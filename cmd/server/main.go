package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mailguard/internal/audit"
	"mailguard/internal/crm"
	"mailguard/internal/orchestrator"
	"mailguard/internal/platform/config"
	"mailguard/internal/platform/database"
	"mailguard/internal/platform/health"
	"mailguard/internal/platform/httpserver"
	"mailguard/internal/platform/kafka/producer"
	"mailguard/internal/platform/logger"
	platformredis "mailguard/internal/platform/redis"
	"mailguard/internal/storage"
	httptransport "mailguard/internal/transport/http"
	"mailguard/internal/validation"
	"mailguard/internal/validation/checks"
	"mailguard/internal/validation/metrics"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing mailguard",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	healthHandler := health.New(cfg.Environment)

	// Storage: PostgreSQL when configured, in-memory otherwise.
	pool, err := database.New(cfg.Database)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	var store orchestrator.Store
	if pool != nil {
		defer pool.Close()
		pg := storage.NewPostgresStore(pool.DB(), log)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pg.EnsureSchema(ctx); err != nil {
			cancel()
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		cancel()

		store = pg
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		store = storage.NewMemoryStore(log)
	}

	// Redis-backed MX cache, optional.
	var mxCache checks.MXCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		mxCache = checks.NewRedisMXCache(redisClient.Client, cfg.Checks.MXCacheTTL, log)
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	// Audit event stream, optional.
	var publisher *audit.Publisher
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err := producer.New(cfg.Kafka, log)
		if err != nil {
			log.Error("kafka init failed", "error", err)
			os.Exit(1)
		}
		defer kafkaProducer.Close()

		publisher = audit.NewPublisher(
			audit.NewKafkaSink(kafkaProducer, cfg.Kafka.Topic),
			audit.WithAsyncBuffer(256),
			audit.WithPublisherLogger(log),
		)
		defer publisher.Close()
		healthHandler.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !kafkaProducer.Healthy(ctx) {
				return errors.New("broker ping failed")
			}
			return nil
		})
	} else {
		log.Warn("KAFKA_BROKERS not set, validation events disabled")
	}

	// CRM client and property bootstrap.
	crmClient := crm.New(cfg.CRM, log)
	bootstrapCRMProperties(crmClient, cfg.CRM, log)

	m := metrics.New()
	validator := validation.NewService(
		checks.NewMXChecker(checks.MXConfig{
			Timeout: cfg.Checks.DNSTimeout,
			Cache:   mxCache,
			Logger:  log,
		}),
		checks.NewDomainSet(checks.DefaultDisposableDomains, cfg.Checks.DisposableDomains...),
		checks.NewDomainSet(checks.DefaultBlacklistedDomains, cfg.Checks.BlacklistedDomains...),
		checks.NewDomainSet(checks.DefaultFreeProviderDomains, cfg.Checks.FreeProviderDomains...),
		log,
		m,
	)
	orch := orchestrator.New(validator, store, crmClient, publisher, log, m)

	handler := httptransport.New(validator, orch, log)
	router := httptransport.NewRouter(handler, healthHandler, log)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// bootstrapCRMProperties ensures the validation property definitions exist.
// Bad credentials are fatal; anything else degrades to a warning so the
// service still starts when the CRM is briefly unavailable.
func bootstrapCRMProperties(client *crm.Client, cfg config.CRMConfig, log *slog.Logger) {
	if cfg.AccessToken == "" {
		log.Warn("CRM_ACCESS_TOKEN not set, skipping property bootstrap")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.EnsureValidationProperties(ctx); err != nil {
		if crm.CategoryOf(err) == crm.CategoryAuth {
			log.Error("crm rejected credentials during property bootstrap", "error", err)
			os.Exit(1)
		}
		log.Warn("crm property bootstrap failed, continuing", "error", err)
	}
}
