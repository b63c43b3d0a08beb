package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NeuralTrust/ThreatGuard/pkg/common"
	"github.com/NeuralTrust/ThreatGuard/pkg/config"
	"github.com/NeuralTrust/ThreatGuard/pkg/detector"
	"github.com/NeuralTrust/ThreatGuard/pkg/middleware"
	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newThreatApp(analyzer middleware.ThreatAnalyzer, enforce bool) *fiber.App {
	app := fiber.New()
	app.Use(middleware.NewThreatMiddleware(quietLogger(), analyzer, enforce).Middleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		signals, _ := c.Locals(common.SignalsContextKey).([]types.ThreatSignal)
		return c.JSON(fiber.Map{"signals": len(signals)})
	})
	return app
}

func TestThreatMiddleware_Responses(t *testing.T) {
	tests := []struct {
		name       string
		signals    []types.ThreatSignal
		enforce    bool
		wantStatus int
		wantScore  string
		wantRetry  string
	}{
		{
			name:       "clean request passes",
			enforce:    true,
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "critical signal is forbidden",
			signals:    []types.ThreatSignal{types.NewSignal(types.SQLInjection, types.Critical, "sqli", nil)},
			enforce:    true,
			wantStatus: fiber.StatusForbidden,
		},
		{
			name:       "blocked ip is forbidden",
			signals:    []types.ThreatSignal{types.NewSignal(types.BlockedIP, types.High, "blocked", nil)},
			enforce:    true,
			wantStatus: fiber.StatusForbidden,
		},
		{
			name:       "blocked user is forbidden",
			signals:    []types.ThreatSignal{types.NewSignal(types.BlockedUser, types.High, "blocked", nil)},
			enforce:    true,
			wantStatus: fiber.StatusForbidden,
		},
		{
			name: "minute rate limit is throttled",
			signals: []types.ThreatSignal{
				types.NewSignal(types.RateLimitExceeded, types.High, "rate", map[string]any{"window": "1m"}),
			},
			enforce:    true,
			wantStatus: fiber.StatusTooManyRequests,
			wantRetry:  "60",
		},
		{
			name: "hour rate limit is annotated only",
			signals: []types.ThreatSignal{
				types.NewSignal(types.RateLimitExceeded, types.Medium, "rate", map[string]any{"window": "1h"}),
			},
			enforce:    true,
			wantStatus: fiber.StatusOK,
			wantScore:  "5",
		},
		{
			name:       "high signal is annotated only",
			signals:    []types.ThreatSignal{types.NewSignal(types.XSSAttempt, types.High, "xss", nil)},
			enforce:    true,
			wantStatus: fiber.StatusOK,
			wantScore:  "10",
		},
		{
			name:       "monitor mode never rejects",
			signals:    []types.ThreatSignal{types.NewSignal(types.SQLInjection, types.Critical, "sqli", nil)},
			enforce:    false,
			wantStatus: fiber.StatusOK,
			wantScore:  "20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newThreatApp(&stubAnalyzer{signals: tt.signals}, tt.enforce)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantScore, resp.Header.Get(common.ThreatScoreHeader))
			assert.Equal(t, tt.wantRetry, resp.Header.Get(fiber.HeaderRetryAfter))
		})
	}
}

func TestThreatMiddleware_StoresSignalsInLocals(t *testing.T) {
	analyzer := &stubAnalyzer{signals: []types.ThreatSignal{
		types.NewSignal(types.ScannerDetected, types.High, "scanner", nil),
	}}
	app := newThreatApp(analyzer, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"signals":1}`, string(body))
}

func TestThreatMiddleware_WithEngine(t *testing.T) {
	engine, err := detector.NewEngine(config.DefaultDetectorConfig(), nil, quietLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close(context.Background()) })

	app := newThreatApp(engine, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test?q=%27%20OR%201%3D1%20--", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/test?q=running+shoes", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "the critical score blocked the client")
}
