package http

import (
	"net/http"

	"github.com/NeuralTrust/ThreatGuard/pkg/common"
	"github.com/NeuralTrust/ThreatGuard/pkg/handlers/http/request"
	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type recordAuthFailureHandler struct {
	logger   *logrus.Logger
	recorder FailureRecorder
}

func NewRecordAuthFailureHandler(logger *logrus.Logger, recorder FailureRecorder) Handler {
	return &recordAuthFailureHandler{
		logger:   logger,
		recorder: recorder,
	}
}

// Handle lets an upstream login service report a failed attempt. The
// response says whether this attempt triggered the lockout.
func (h *recordAuthFailureHandler) Handle(c *fiber.Ctx) error {
	var req request.RecordAuthFailureRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.WithError(err).Debug("failed to parse auth failure request")
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	traceID, _ := c.Locals(common.TraceIdKey).(string)
	locked := h.recorder.RecordFailure(c.UserContext(), &types.Request{
		IP:      req.IP,
		UserID:  req.UserID,
		Method:  utils.CopyString(c.Method()),
		URL:     utils.CopyString(c.OriginalURL()),
		TraceID: traceID,
	})
	if locked {
		h.logger.WithFields(logrus.Fields{
			"ip":      req.IP,
			"user_id": req.UserID,
		}).Warn("authentication lockout triggered")
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{"locked": locked})
}
