package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NeuralTrust/ThreatGuard/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecoverMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.NewPanicRecoverMiddleware(quietLogger()).Middleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTransport_Order(t *testing.T) {
	transport := &middleware.Transport{
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(quietLogger()),
		TraceMiddleware:        middleware.NewTraceMiddleware(),
	}
	assert.Len(t, transport.GetMiddlewares(), 2)
	assert.Empty(t, (&middleware.Transport{}).GetMiddlewares())

	transport.ThreatMiddleware = middleware.NewTraceMiddleware()
	assert.Len(t, transport.GetMiddlewares(), 3)
	assert.Len(t, transport.GetIngestMiddlewares(), 2)
}
