package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"salon/backend/internal/cache"
	"salon/backend/internal/config"
	"salon/backend/internal/events"
	"salon/backend/internal/service/appointments"
	"salon/backend/internal/service/catalog"
	"salon/backend/internal/store/postgres"
	"salon/backend/internal/telemetry"
	"salon/backend/internal/transport/httpapi"
)

const serviceName = "salon-server"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("log_level", cfg.LogLevel),
		slog.String("timezone", cfg.Location.String()),
		slog.String("cache_backend", cfg.CacheBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("telemetry setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("telemetry shutdown failed", slog.Any("err", err))
		}
	}()

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("database migration failed", slog.Any("err", err))
			os.Exit(1)
		}
		log.Info("database migrated")
	}

	checks := []httpapi.ReadyCheck{{Name: "database", Check: postgres.ReadyCheck(db)}}

	var backend cache.Backend
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		rb := cache.NewRedisBackend(rdb)
		if err := rb.Ping(ctx); err != nil {
			log.Warn("redis not reachable at startup; reads fall through to the database", slog.Any("err", err), slog.String("redis_addr", cfg.RedisAddr))
		}
		checks = append(checks, httpapi.ReadyCheck{Name: "redis", Check: rb.Ping})
		backend = rb
	default:
		mb, err := cache.NewMemoryBackend(cfg.CacheMaxKeys)
		if err != nil {
			log.Error("cache setup failed", slog.Any("err", err))
			os.Exit(1)
		}
		backend = mb
	}
	cacheOpts := cache.Options{
		DefaultTTL: cfg.CacheDefaultTTL,
		ShortTTL:   cfg.CacheShortTTL,
		Logger:     log,
	}

	var publisher events.Publisher = events.Nop{}
	if brokers := events.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:     brokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
		}, log)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("err", err))
			}
		}()
		checks = append(checks, httpapi.ReadyCheck{Name: "kafka", Check: kp.Ping})
		publisher = kp
		log.Info("publishing appointment events", slog.Int("brokers", len(brokers)))
	}

	catalogSvc := catalog.NewService(postgres.NewCatalogRepo(db), backend, cacheOpts)
	apptSvc := appointments.NewService(postgres.NewAppointmentRepo(db), catalogSvc, backend, appointments.Options{
		Cache:     cacheOpts,
		Location:  cfg.Location,
		Publisher: publisher,
		Logger:    log,
	})

	mux := http.NewServeMux()
	httpapi.RegisterHealth(mux, checks...)
	httpapi.NewAppointmentsHandler(apptSvc, cfg.Location, log).Register(mux)
	httpapi.NewCatalogHandler(catalogSvc, log).Register(mux)

	handler := httpapi.Chain(mux,
		httpapi.WithRequestID,
		httpapi.WithAccessLog(log),
		httpapi.WithRequestTimeout(cfg.RequestTimeout),
	)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(handler, "salon-http"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(defaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("servers started", slog.String("http_addr", cfg.HTTPAddr), slog.String("grpc_addr", cfg.GRPCAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
		}
	}

	healthServer.Shutdown()
	shutdownHTTP(log, httpServer, cfg.ShutdownTimeout)
	shutdownGRPC(log, grpcServer, cfg.ShutdownTimeout)
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func shutdownHTTP(log *slog.Logger, s *http.Server, timeout time.Duration) {
	log.Info("shutting down http server", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = s.Close()
		return
	}
	log.Info("http server stopped")
}

func shutdownGRPC(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
