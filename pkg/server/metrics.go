package server

import (
	"context"
	"fmt"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/prometheus"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const MetricsPath = "/metrics"

// MetricsServer exposes the prometheus registry on its own port.
type MetricsServer struct {
	config *config.Config
	logger *logrus.Logger
	app    *fiber.App
}

func NewMetricsServer(config *config.Config, logger *logrus.Logger) *MetricsServer {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(recover.New())

	handler := fasthttpadaptor.NewFastHTTPHandler(prometheus.Handler())
	app.Get(MetricsPath, func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	})

	return &MetricsServer{
		config: config,
		logger: logger,
		app:    app,
	}
}

func (s *MetricsServer) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.MetricsPort)
	s.logger.WithField("addr", addr).Info("Starting metrics server")
	return s.app.Listen(addr)
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App is exposed for tests.
func (s *MetricsServer) App() *fiber.App {
	return s.app
}
