package middleware

import (
	"context"

	"github.com/NeuralTrust/ThreatGuard/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type traceMiddleware struct{}

// NewTraceMiddleware tags every request with a trace id. A well-formed
// X-Trace-Id from the caller is kept, anything else is replaced.
func NewTraceMiddleware() Middleware {
	return &traceMiddleware{}
}

func (m *traceMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := uuid.NewString()
		if incoming, err := uuid.Parse(c.Get(common.TraceIDHeader)); err == nil {
			traceID = incoming.String()
		}
		c.Locals(common.TraceIdKey, traceID)
		c.SetUserContext(context.WithValue(c.UserContext(), common.TraceIdKey, traceID))
		c.Set(common.TraceIDHeader, traceID)
		return c.Next()
	}
}
