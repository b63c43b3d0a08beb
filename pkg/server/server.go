package server

import (
	"context"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/server/router"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	HealthPath = "/health"
	PingPath   = "/__/ping"
)

// Server interface defines the common behavior for all servers
type Server interface {
	Run() error
	Shutdown(ctx context.Context) error
}

type BaseServer struct {
	Config *config.Config
	Logger *logrus.Logger
	Router *fiber.App
}

func NewBaseServer(config *config.Config, logger *logrus.Logger) *BaseServer {
	r := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ReduceMemoryUsage:       true,
		Network:                 fiber.NetworkTCP,
		EnablePrintRoutes:       false,
		BodyLimit:               8 * 1024 * 1024,
		ReadTimeout:             60 * time.Second,
		WriteTimeout:            60 * time.Second,
		IdleTimeout:             120 * time.Second,
		Concurrency:             16384,
		ProxyHeader:             config.Server.ProxyHeader,
		EnableTrustedProxyCheck: config.Server.ProxyHeader != "",
		TrustedProxies:          config.Server.TrustedProxies,
		EnableIPValidation:      true,
	})
	if config.Server.ProxyHeader != "" && len(config.Server.TrustedProxies) == 0 {
		logger.WithField("proxy_header", config.Server.ProxyHeader).
			Warn("proxy header configured without trusted proxies, peer address will be used")
	}

	r.Server().MaxConnsPerIP = 1024
	r.Server().ReadBufferSize = 8192
	r.Server().WriteBufferSize = 8192
	r.Server().NoDefaultServerHeader = true
	r.Server().NoDefaultDate = true

	server := &BaseServer{
		Config: config,
		Logger: logger,
		Router: r,
	}
	server.setupHealthCheck()
	return server
}

// setupHealthCheck registers the liveness endpoints ahead of any
// middleware so probes are never analysed or rejected.
func (s *BaseServer) setupHealthCheck() {
	s.Router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	s.Router.Get(PingPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})
}

func (s *BaseServer) WithRouters(routers ...router.ServerRouter) *BaseServer {
	for _, r := range routers {
		err := r.BuildRoutes(s.Router)
		if err != nil {
			s.Logger.WithError(err).Error("failed to build routes")
		}
	}
	return s
}
