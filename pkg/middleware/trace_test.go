package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NeuralTrust/ThreatGuard/pkg/common"
	"github.com/NeuralTrust/ThreatGuard/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTraceApp(seen *string) *fiber.App {
	app := fiber.New()
	app.Use(middleware.NewTraceMiddleware().Middleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		local, _ := c.Locals(common.TraceIdKey).(string)
		fromCtx, _ := c.UserContext().Value(common.TraceIdKey).(string)
		if local == fromCtx {
			*seen = local
		}
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestTraceMiddleware_Generates(t *testing.T) {
	var seen string
	resp, err := newTraceApp(&seen).Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)

	header := resp.Header.Get(common.TraceIDHeader)
	_, err = uuid.Parse(header)
	assert.NoError(t, err)
	assert.Equal(t, header, seen)
}

func TestTraceMiddleware_KeepsIncoming(t *testing.T) {
	incoming := uuid.NewString()
	var seen string
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(common.TraceIDHeader, incoming)

	resp, err := newTraceApp(&seen).Test(req)
	require.NoError(t, err)
	assert.Equal(t, incoming, resp.Header.Get(common.TraceIDHeader))
	assert.Equal(t, incoming, seen)
}

func TestTraceMiddleware_ReplacesMalformed(t *testing.T) {
	var seen string
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(common.TraceIDHeader, "<script>")

	resp, err := newTraceApp(&seen).Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, "<script>", resp.Header.Get(common.TraceIDHeader))
	_, err = uuid.Parse(seen)
	assert.NoError(t, err)
}
