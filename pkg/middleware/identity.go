package middleware

import (
	"strings"

	"github.com/NeuralTrust/ThreatGuard/pkg/common"
	"github.com/NeuralTrust/ThreatGuard/pkg/infra/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type identityMiddleware struct {
	logger     *logrus.Logger
	jwtManager jwt.Manager
}

// NewIdentityMiddleware resolves the caller's user id from a bearer JWT.
// Requests without a valid token continue as anonymous traffic.
func NewIdentityMiddleware(logger *logrus.Logger, jwtManager jwt.Manager) Middleware {
	return &identityMiddleware{
		logger:     logger,
		jwtManager: jwtManager,
	}
}

func (m *identityMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Next()
		}
		claims, err := m.jwtManager.DecodeToken(token)
		if err != nil {
			m.logger.WithError(err).WithField("ip", c.IP()).Debug("ignoring bearer token")
			return c.Next()
		}
		if userID := claims.Identity(); userID != "" {
			c.Locals(common.UserIDContextKey, userID)
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
