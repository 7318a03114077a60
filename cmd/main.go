package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"payment-gateway/internal/adapters/bank"
	httphandler "payment-gateway/internal/adapters/http"
	"payment-gateway/internal/adapters/messaging/kafka"
	"payment-gateway/internal/adapters/messaging/logpub"
	"payment-gateway/internal/adapters/storage/memory"
	"payment-gateway/internal/adapters/storage/postgres"
	redisadapter "payment-gateway/internal/adapters/storage/redis"
	"payment-gateway/internal/app"
	"payment-gateway/internal/config"
	"payment-gateway/internal/core/ports"
	"payment-gateway/internal/observability"
)

func main() {
	// --- 1. Configuration and Logging ---
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fallbackLogger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg.App.Env)
	logger.Info("Payment gateway starting", "env", cfg.App.Env, "port", cfg.Server.Port)

	// --- 2. Observability ---
	if cfg.OTLP.Endpoint != "" {
		shutdownTracer, err := observability.InitTracer(cfg.OTLP.Endpoint, "payment-gateway")
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Warn("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	ctx := context.Background()

	// --- 3. Payment store ---
	var store ports.PaymentStore
	if cfg.Postgres.DSN != "" {
		pgStore, err := postgres.NewStore(ctx, cfg.Postgres.DSN)
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		store = pgStore
		logger.Info("Using PostgreSQL payment store")
	} else {
		store = memory.NewPaymentStore()
		logger.Info("Using in-memory payment store")
	}

	// --- 4. Redis (idempotency keys + rate limiting) ---
	var idemKeys ports.IdempotencyKeyStore = memory.NewIdempotencyKeyStore()
	var rateLimiter *httphandler.RateLimiterMiddleware
	if cfg.Redis.Addr != "" {
		rdb, err := redisadapter.NewClient(cfg.Redis.Addr)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("Failed to close Redis client", "error", err)
			}
		}()

		ttl := time.Duration(cfg.Redis.IdempotencyTTLHours) * time.Hour
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		idemKeys = redisadapter.NewIdempotencyKeyStore(rdb, ttl)

		window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
		if cfg.RateLimit.Limit > 0 && window > 0 {
			rateLimiter = httphandler.NewRateLimiterMiddleware(
				redisadapter.NewRateLimiterAdapter(rdb), cfg.RateLimit.Limit, window, logger)
		}
		logger.Info("Connected to Redis")
	}

	// --- 5. Event publisher ---
	var publisher ports.EventPublisher
	if cfg.Kafka.BootstrapServers != "" {
		broker, err := kafka.NewPublisher(strings.Split(cfg.Kafka.BootstrapServers, ","), cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("Failed to create Kafka publisher", "error", err)
			os.Exit(1)
		}
		defer broker.Close()
		publisher = broker
		logger.Info("Kafka publisher created", "topic", cfg.Kafka.Topic)
	} else {
		publisher = logpub.NewPublisher(logger)
	}

	// --- 6. Acquiring bank simulator ---
	acquirer := bank.NewSimulator(decisionSource(cfg.Bank, logger),
		time.Duration(cfg.Bank.LatencyMs)*time.Millisecond)

	// --- 7. Service layer ---
	paymentService := app.NewPaymentService(store, acquirer, idemKeys, publisher, logger)
	paymentHandler := httphandler.NewPaymentHandler(paymentService, logger)

	// --- 8. HTTP router ---
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		observability.NewLoggerMiddleware(logger),
		observability.NewMetricsMiddleware("payment-gateway"),
		observability.NewTracingMiddleware("payment-gateway"),
	)
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{
			"status":  "healthy",
			"service": "payment-gateway",
		}); err != nil {
			logger.Error("Failed to write health response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments", paymentHandler.HandleCreatePayment)
		r.Get("/payments/{id}", paymentHandler.HandleGetPayment)
	})

	// --- 9. HTTP server ---
	serverAddr := cfg.Server.Port
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Server exited properly")
}

// decisionSource maps the configured decision mode onto a simulator
// strategy. Unknown modes fall back to seeded decisions.
func decisionSource(cfg config.BankConfig, logger *slog.Logger) bank.DecisionSource {
	switch cfg.Decision {
	case "authorize":
		return bank.AlwaysAuthorize
	case "decline":
		return bank.AlwaysDecline
	case "odd-last-digit":
		return bank.DeclineOddLastDigit
	case "seeded", "":
	default:
		logger.Warn("unknown bank decision mode, using seeded decisions", "mode", cfg.Decision)
	}
	rate := cfg.ApprovalRate
	if rate <= 0 || rate > 1 {
		rate = 0.85
	}
	return bank.SeededDecisions(cfg.Seed, rate)
}
