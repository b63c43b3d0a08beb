package http

import (
	"net/http"
	"net/url"

	"github.com/NeuralTrust/ThreatGuard/pkg/detector/block"
	"github.com/NeuralTrust/ThreatGuard/pkg/handlers/http/response"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getBlockStatusHandler struct {
	logger  *logrus.Logger
	blocks  BlockReader
	subject block.Subject
	param   string
}

func NewGetIPBlockHandler(logger *logrus.Logger, blocks BlockReader) Handler {
	return &getBlockStatusHandler{
		logger:  logger,
		blocks:  blocks,
		subject: block.SubjectIP,
		param:   "ip",
	}
}

func NewGetUserBlockHandler(logger *logrus.Logger, blocks BlockReader) Handler {
	return &getBlockStatusHandler{
		logger:  logger,
		blocks:  blocks,
		subject: block.SubjectUser,
		param:   "userID",
	}
}

// Handle reports whether the IP or user in the path is currently blocked.
func (h *getBlockStatusHandler) Handle(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params(h.param))
	if err != nil || key == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid " + h.param})
	}

	status := h.blocks.BlockStatus(h.subject, key)
	h.logger.WithFields(logrus.Fields{
		"subject": h.subject,
		"key":     key,
		"blocked": status.Blocked,
	}).Debug("block status requested")

	return c.Status(http.StatusOK).JSON(response.NewBlockStatusOutput(h.subject, key, status))
}
