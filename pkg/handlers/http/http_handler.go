package http

import (
	"context"

	"github.com/NeuralTrust/ThreatGuard/pkg/detector/block"
	"github.com/NeuralTrust/ThreatGuard/pkg/types"
	"github.com/gofiber/fiber/v2"
)

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

// BlockReader exposes the block state kept by the detector.
type BlockReader interface {
	BlockStatus(subject block.Subject, key string) block.Status
}

// FailureRecorder registers failed authentication attempts.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, req *types.Request) bool
}

type HandlerTransport struct {
	GetVersionHandler Handler

	// Blocks
	GetIPBlockHandler   Handler
	GetUserBlockHandler Handler

	// Auth
	RecordAuthFailureHandler Handler
}
