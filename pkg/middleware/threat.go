package middleware

import (
	"context"
	"strconv"

	"github.com/NeuralTrust/ThreatGuard/pkg/common"
	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ThreatAnalyzer is the part of the detector the middleware depends on.
type ThreatAnalyzer interface {
	AnalyzeRequest(ctx context.Context, req *types.Request) []types.ThreatSignal
}

type threatMiddleware struct {
	logger   *logrus.Logger
	analyzer ThreatAnalyzer
	enforce  bool
}

// NewThreatMiddleware analyses every request and stores the signals in
// locals under common.SignalsContextKey. With enforce off it only
// annotates the response with the threat score.
func NewThreatMiddleware(logger *logrus.Logger, analyzer ThreatAnalyzer, enforce bool) Middleware {
	return &threatMiddleware{
		logger:   logger,
		analyzer: analyzer,
		enforce:  enforce,
	}
}

func (m *threatMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := RequestFromCtx(c)
		signals := m.analyzer.AnalyzeRequest(c.UserContext(), req)
		c.Locals(common.SignalsContextKey, signals)
		if len(signals) == 0 {
			return c.Next()
		}

		score := types.Score(signals)
		status, reason := rejection(signals)
		if !m.enforce || status == 0 {
			c.Set(common.ThreatScoreHeader, strconv.Itoa(score))
			return c.Next()
		}

		m.logger.WithFields(logrus.Fields{
			"ip":       req.IP,
			"user_id":  req.UserID,
			"path":     req.Path,
			"score":    score,
			"status":   status,
			"trace_id": req.TraceID,
		}).Info("request rejected")

		if status == fiber.StatusTooManyRequests {
			c.Set(fiber.HeaderRetryAfter, "60")
		}
		return c.Status(status).JSON(fiber.Map{
			"error":    reason,
			"trace_id": req.TraceID,
		})
	}
}

// rejection maps signals to the response enforce mode sends, or 0 when the
// request may proceed.
func rejection(signals []types.ThreatSignal) (int, string) {
	switch {
	case types.HasKind(signals, types.BlockedIP), types.HasKind(signals, types.BlockedUser):
		return fiber.StatusForbidden, "forbidden: client is blocked"
	case types.HasSeverity(signals, types.Critical):
		return fiber.StatusForbidden, "forbidden: malicious request"
	case minuteRateExceeded(signals):
		return fiber.StatusTooManyRequests, "too many requests"
	}
	return 0, ""
}

func minuteRateExceeded(signals []types.ThreatSignal) bool {
	for _, s := range signals {
		if s.Kind == types.RateLimitExceeded && s.Context["window"] == "1m" {
			return true
		}
	}
	return false
}
