package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"blockdates/internal/api"
	"blockdates/internal/cache"
	"blockdates/internal/config"
	"blockdates/internal/events"
	"blockdates/internal/metrics"
	"blockdates/internal/orchestrator"
	"blockdates/internal/source"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("BLOCKDATES_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	loc, err := time.LoadLocation(cfg.Server.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid server timezone")
	}

	schedulesCfg, err := config.LoadSchedules(cfg.SchedulesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load schedules")
	}
	schedules := config.NewProvider(schedulesCfg)

	m := metrics.New("blockdates")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledger, err := source.OpenBookingLedger(cfg.Bookings.DatabasePath, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open booking ledger error")
	}
	defer ledger.Close()

	var calendar source.CalendarSource
	if cfg.Calendar.Enabled {
		perSec, burst := cfg.CalendarRate()
		gc, err := source.NewGoogleCalendar(ctx, cfg.Calendar.CalendarID, cfg.Calendar.AccessToken, perSec, burst, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create calendar client error")
		}
		calendar = gc
	}

	var store cache.Store
	var rdb *redis.Client
	switch cfg.Cache.Backend {
	case "redis":
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Address,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		store = cache.NewRedisStore(rdb)
	default:
		mem := cache.NewMemoryStore()
		go mem.RunJanitor(ctx, 5*time.Minute)
		store = mem
	}

	bus := events.NewBus()
	manager := cache.NewManager(store, &logger, m)
	manager.BindBus(bus)

	fetcher := source.NewFetcher(ledger, calendar, cfg.SourceTimeout(), &logger, m)
	resolver := orchestrator.New(fetcher, manager, schedules, cfg.ResolveTimeout(), &logger, m)

	if cfg.Warmup.Enabled {
		go resolver.Warm(ctx, schedules)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, ledger, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	apiServer := api.NewServer(resolver, manager, bus, loc, &logger, m)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Str("cache_backend", cfg.Cache.Backend).Msg("blocked dates server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func startHealthServer(ctx context.Context, port int, ledger *source.BookingLedger, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := ledger.PingContext(ctxPing); err != nil {
			http.Error(w, "ledger not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
