package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dejobratic/quotes/internal/config"
	"github.com/dejobratic/quotes/internal/database"
	idemposgres "github.com/dejobratic/quotes/internal/idempotency/postgres"
	idemredis "github.com/dejobratic/quotes/internal/idempotency/redis"
	"github.com/dejobratic/quotes/internal/kafka"
	"github.com/dejobratic/quotes/internal/quotes/adapters"
	quotescache "github.com/dejobratic/quotes/internal/quotes/adapters/cache"
	httpadapter "github.com/dejobratic/quotes/internal/quotes/adapters/http"
	quotespostgres "github.com/dejobratic/quotes/internal/quotes/adapters/postgres"
	quotesapp "github.com/dejobratic/quotes/internal/quotes/app"
	quotesmetrics "github.com/dejobratic/quotes/internal/quotes/metrics"
	"github.com/dejobratic/quotes/internal/quotes/ports"
	redisconn "github.com/dejobratic/quotes/internal/redis"
	"github.com/dejobratic/quotes/internal/telemetry"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

func main() {
	logger := telemetry.NewLogger(slog.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = telemetry.NewLogger(parseLogLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.OTelEndpoint != "" {
		tel, err := telemetry.Initialize(ctx, telemetry.Config{
			ServiceName:    cfg.Service.Name,
			ServiceVersion: cfg.Service.Version,
			Environment:    cfg.Service.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
			EnableTracing:  cfg.Telemetry.EnableTracing,
			EnableMetrics:  cfg.Telemetry.EnableMetrics,
			SampleRate:     cfg.Telemetry.SampleRate,
		})
		if err != nil {
			logger.Error("failed to initialize telemetry", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				logger.Error("telemetry shutdown failed", "error", err)
			}
		}()
	}

	meter := otel.Meter("github.com/dejobratic/quotes")

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create database metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create http metrics", "error", err)
		os.Exit(1)
	}
	quoteMetrics, err := quotesmetrics.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create quote metrics", "error", err)
		os.Exit(1)
	}
	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create kafka metrics", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations completed successfully")
	}

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = redisconn.NewClient(cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
	}

	var ledger ports.IdempotencyLedger
	switch cfg.Idempotency.Backend {
	case "redis":
		if redisClient == nil {
			logger.Error("idempotency backend is redis but REDIS_ADDR is not set")
			os.Exit(1)
		}
		ledger = idemredis.NewStore(redisClient, cfg.Idempotency.TTL)
	default:
		ledger = idemposgres.NewStore(pool, cfg.Idempotency.TTL)
	}
	ledger = adapters.NewObservableLedger(ledger, dbMetrics)

	var store ports.QuoteStore = quotespostgres.NewRepository(pool)
	if redisClient != nil {
		store = quotescache.NewRepository(store, redisClient, cfg.Redis.CacheTTL)
	}
	store = adapters.NewObservableRepository(store, dbMetrics)

	events := adapters.NewObservableEventBus(kafka.NewNoopEventBus(), kafkaMetrics)

	service := quotesapp.NewService(store, ledger, events, logger, quoteMetrics)
	quotesHandler := httpadapter.NewHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.CheckHealth(r.Context(), pool); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		if redisClient != nil {
			if err := redisconn.CheckHealth(r.Context(), redisClient); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.HandleFunc(cfg.HTTP.MetricsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# metrics are exported over OTLP\n"))
	})

	quotesHandler.Register(mux)

	handler := withRecovery(withLogging(httpadapter.WithRequestID(httpadapter.WithMetrics(mux, httpMetrics))))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}
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

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
			"request_id", r.Header.Get("X-Request-ID"),
		)
	})
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "error", rec)
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
