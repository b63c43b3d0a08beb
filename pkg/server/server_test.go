package server

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector"
	handlers "github.com/NeuralTrust/ThreatGuard/pkg/handlers/http"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/jwt"
	"github.com/NeuralTrust/ThreatGuard/pkg/middleware"
	"github.com/NeuralTrust/ThreatGuard/pkg/server/router"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0, MetricsPort: 0, Enforce: true},
		Auth:     config.AuthConfig{JWTSecret: "secret"},
		Detector: config.DefaultDetectorConfig(),
	}
}

func newAdminServer(t *testing.T, opts ...func(*config.Config)) (*AdminServer, *detector.Engine, jwt.Manager) {
	t.Helper()
	cfg := testConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	logger := quietLogger()
	engine, err := detector.NewEngine(cfg.Detector, nil, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	jwtManager := jwt.NewJwtManager(cfg.Auth)
	transport := &middleware.Transport{
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		TraceMiddleware:        middleware.NewTraceMiddleware(),
		IdentityMiddleware:     middleware.NewIdentityMiddleware(logger, jwtManager),
		ThreatMiddleware:       middleware.NewThreatMiddleware(logger, engine, cfg.Server.Enforce),
	}
	handlerTransport := handlers.HandlerTransport{
		GetVersionHandler:        handlers.NewGetVersionHandler(logger),
		GetIPBlockHandler:        handlers.NewGetIPBlockHandler(logger, engine),
		GetUserBlockHandler:      handlers.NewGetUserBlockHandler(logger, engine),
		RecordAuthFailureHandler: handlers.NewRecordAuthFailureHandler(logger, engine),
	}
	srv := NewAdminServer(AdminServerDI{
		Config: cfg,
		Logger: logger,
		Routers: []router.ServerRouter{
			router.NewAdminRouter(transport, middleware.NewAdminAuthMiddleware(logger, jwtManager), handlerTransport),
		},
	})
	return srv, engine, jwtManager
}

func TestAdminServer_HealthEndpoints(t *testing.T) {
	srv, _, _ := newAdminServer(t)

	for _, path := range []string{HealthPath, PingPath, "/version"} {
		resp, err := srv.Router.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}

func TestAdminServer_AdminRoutesRequireAdminToken(t *testing.T) {
	srv, _, jwtManager := newAdminServer(t)

	resp, err := srv.Router.Test(httptest.NewRequest("GET", "/v1/blocks/ip/10.0.0.1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	token, err := jwtManager.CreateAdminToken(time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/v1/blocks/ip/10.0.0.1", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = srv.Router.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
}

func TestAdminServer_ThreatMiddlewareGuardsAdminAPI(t *testing.T) {
	srv, _, _ := newAdminServer(t)

	req := httptest.NewRequest("GET", "/v1/blocks/ip/10.0.0.1?q=%3Cscript%3Ealert(1)%3C%2Fscript%3E%27%20OR%201%3D1%20--", nil)
	resp, err := srv.Router.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminRouter_RejectsIncompleteTransport(t *testing.T) {
	r := router.NewAdminRouter(nil, nil, handlers.HandlerTransport{})
	assert.ErrorIs(t, r.BuildRoutes(fiber.New()), router.ErrInvalidHandlerTransport)
}

func TestMetricsServer_ServesRegistry(t *testing.T) {
	srv := NewMetricsServer(testConfig(), quietLogger())

	resp, err := srv.App().Test(httptest.NewRequest("GET", MetricsPath, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "threatguard_analyze_latency_ms")
}

func TestAdminServer_AuthFailureIngestionBypassesThreatAnalysis(t *testing.T) {
	srv, engine, jwtManager := newAdminServer(t)
	token, err := jwtManager.CreateAdminToken(time.Minute)
	require.NoError(t, err)

	reports := config.DefaultDetectorConfig().MaxRequestsPerMinute*(config.DefaultDetectorConfig().RateViolationLimit+2) + 10
	for i := 0; i < reports; i++ {
		body := fmt.Sprintf(`{"ip":"10.1.%d.%d","user_id":"user-%d"}`, i/250, i%250+1, i)
		req := httptest.NewRequest("POST", router.AuthFailuresPath, strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		resp, err := srv.Router.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "report %d", i)
		assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
	}
	assert.False(t, engine.IsBlocked("0.0.0.0"))

	req := httptest.NewRequest("GET", "/v1/blocks/ip/10.1.0.1", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err := srv.Router.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAdminServer_AuthFailureIngestionRequiresAdminToken(t *testing.T) {
	srv, _, _ := newAdminServer(t)

	req := httptest.NewRequest("POST", router.AuthFailuresPath, strings.NewReader(`{"ip":"10.0.0.1"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := srv.Router.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func clientIP(t *testing.T, app *fiber.App, forwardedFor string) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/client-ip", nil)
	req.Header.Set(fiber.HeaderXForwardedFor, forwardedFor)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestBaseServer_ProxyHeaderTrust(t *testing.T) {
	tests := []struct {
		name           string
		trustedProxies []string
		forwardedFor   string
		want           string
	}{
		{name: "untrusted peer header ignored", forwardedFor: "192.0.2.77", want: "0.0.0.0"},
		{name: "untrusted peer chain ignored", forwardedFor: "10.9.9.9, 10.8.8.8", want: "0.0.0.0"},
		{name: "trusted peer header used", trustedProxies: []string{"0.0.0.0"}, forwardedFor: "192.0.2.77, 10.0.0.1", want: "192.0.2.77"},
		{name: "trusted range header used", trustedProxies: []string{"0.0.0.0/8"}, forwardedFor: "192.0.2.78", want: "192.0.2.78"},
		{name: "trusted peer invalid header skipped", trustedProxies: []string{"0.0.0.0"}, forwardedFor: "not-an-ip, 192.0.2.79", want: "192.0.2.79"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.ProxyHeader = fiber.HeaderXForwardedFor
			cfg.Server.TrustedProxies = tt.trustedProxies
			srv := NewBaseServer(cfg, quietLogger())
			srv.Router.Get("/client-ip", func(c *fiber.Ctx) error {
				return c.SendString(c.IP())
			})

			assert.Equal(t, tt.want, clientIP(t, srv.Router, tt.forwardedFor))
		})
	}
}

func TestAdminServer_ForgedForwardedForCannotBlockVictim(t *testing.T) {
	srv, engine, _ := newAdminServer(t, func(cfg *config.Config) {
		cfg.Server.ProxyHeader = fiber.HeaderXForwardedFor
	})

	req := httptest.NewRequest("GET", "/v1/blocks/ip/10.0.0.1?q=%27%20OR%201%3D1%20--", nil)
	req.Header.Set(fiber.HeaderXForwardedFor, "192.0.2.77")
	resp, err := srv.Router.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	assert.False(t, engine.IsBlocked("192.0.2.77"))
	assert.True(t, engine.IsBlocked("0.0.0.0"))
}
