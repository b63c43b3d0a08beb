package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector"
	handlers "github.com/NeuralTrust/ThreatGuard/pkg/handlers/http"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/auditlogs"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/cache"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/database"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/httpx"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/jwt"
	infraLogger "github.com/NeuralTrust/ThreatGuard/pkg/infra/logger"
	_ "github.com/NeuralTrust/ThreatGuard/pkg/infra/migrations"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/prometheus"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/repository"
	"github.com/NeuralTrust/ThreatGuard/pkg/middleware"
	"github.com/NeuralTrust/ThreatGuard/pkg/server"
	"github.com/NeuralTrust/ThreatGuard/pkg/server/router"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, closeLogger, err := infraLogger.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer closeLogger()

	if getCommand() == "admin-token" {
		printAdminToken(cfg, logger)
		return
	}

	if cfg.Metrics.Enabled {
		prometheus.Initialize()
	}

	sink, closeSinks := buildSink(cfg, logger)
	defer closeSinks()

	engine, err := detector.NewEngine(cfg.Detector, sink, logger, &detector.EngineOpts{
		AuditWorkers:   cfg.Audit.Workers,
		AuditQueueSize: cfg.Audit.QueueSize,
		RedactHeaders:  cfg.Audit.RedactHeaders,
	})
	if err != nil {
		logger.Fatalf("Failed to create detector engine: %v", err)
	}

	jwtManager := jwt.NewJwtManager(cfg.Auth)

	//middleware
	middlewareTransport := &middleware.Transport{
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		TraceMiddleware:        middleware.NewTraceMiddleware(),
		IdentityMiddleware:     middleware.NewIdentityMiddleware(logger, jwtManager),
		ThreatMiddleware:       middleware.NewThreatMiddleware(logger, engine, cfg.Server.Enforce),
	}
	var adminAuth middleware.Middleware
	if cfg.Auth.JWTSecret != "" {
		adminAuth = middleware.NewAdminAuthMiddleware(logger, jwtManager)
	} else {
		logger.Warn("auth.jwt_secret is empty: admin API is unauthenticated and bearer identities are ignored")
	}

	// Handler Transport
	handlerTransport := handlers.HandlerTransport{
		GetVersionHandler:        handlers.NewGetVersionHandler(logger),
		GetIPBlockHandler:        handlers.NewGetIPBlockHandler(logger, engine),
		GetUserBlockHandler:      handlers.NewGetUserBlockHandler(logger, engine),
		RecordAuthFailureHandler: handlers.NewRecordAuthFailureHandler(logger, engine),
	}

	servers := []server.Server{
		server.NewAdminServer(server.AdminServerDI{
			Config:  cfg,
			Logger:  logger,
			Routers: []router.ServerRouter{router.NewAdminRouter(middlewareTransport, adminAuth, handlerTransport)},
		}),
	}
	if cfg.Metrics.Enabled {
		servers = append(servers, server.NewMetricsServer(cfg, logger))
	} else {
		logger.Info("prometheus metrics are disabled by configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(srv.Run)
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := engine.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("audit drain: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server stopped with error")
		return
	}
	logger.Info("server gracefully stopped")
}

// buildSink combines the configured audit backends. The logger sink is
// always present; the others are enabled by configuration and skipped with
// an error log when they cannot be reached at startup.
func buildSink(cfg *config.Config, logger *logrus.Logger) (auditlogs.Sink, func()) {
	sinks := auditlogs.MultiSink{auditlogs.NewLoggerSink(logger)}
	var closers []func()

	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(cfg.Redis, logger)
		if err != nil {
			logger.WithError(err).Error("redis audit sink disabled")
		} else {
			sinks = append(sinks, auditlogs.NewRedisSink(client, cfg.Redis.Stream, cfg.Redis.StreamMax))
			closers = append(closers, closeRedis(client, logger))
		}
	}

	if cfg.Database.Enabled {
		db, err := database.NewDB(logger, cfg.Database)
		if err != nil {
			logger.WithError(err).Error("database audit sink disabled")
		} else {
			sinks = append(sinks, auditlogs.NewDatabaseSink(repository.NewThreatEventRepository(db.DB)))
			closers = append(closers, func() {
				if err := db.Close(); err != nil {
					logger.WithError(err).Warn("failed to close database")
				}
			})
		}
	}

	if cfg.Audit.WebhookURL != "" {
		breaker := httpx.NewCircuitBreaker("audit-webhook", cfg.Audit.BreakerTimeout, cfg.Audit.BreakerMaxFail, logger)
		client := &http.Client{Timeout: cfg.Audit.WebhookTimeout}
		sinks = append(sinks, auditlogs.NewWebhookSink(cfg.Audit.WebhookURL, client, breaker))
	}

	logger.WithField("sinks", len(sinks)).Info("audit pipeline configured")
	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}

func closeRedis(client *redis.Client, logger *logrus.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			logger.WithError(err).Warn("failed to close redis client")
		}
	}
}

func printAdminToken(cfg *config.Config, logger *logrus.Logger) {
	token, err := jwt.NewJwtManager(cfg.Auth).CreateAdminToken(24 * time.Hour)
	if err != nil {
		logger.Fatalf("Failed to create admin token: %v", err)
	}
	fmt.Println(token)
}

func getCommand() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return "serve"
}
