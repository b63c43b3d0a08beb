package router

import (
	"errors"

	handlers "github.com/NeuralTrust/ThreatGuard/pkg/handlers/http"
	"github.com/NeuralTrust/ThreatGuard/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

const AuthFailuresPath = "/v1/auth/failures"

var (
	ErrInvalidHandlerTransport = errors.New("invalid handler transport")
)

type adminRouter struct {
	middlewareTransport *middleware.Transport
	adminAuth           middleware.Middleware
	handlerTransport    handlers.HandlerTransport
}

// NewAdminRouter mounts the admin API. adminAuth may be nil, in which case
// the API is open.
func NewAdminRouter(
	middlewareTransport *middleware.Transport,
	adminAuth middleware.Middleware,
	handlerTransport handlers.HandlerTransport,
) ServerRouter {
	return &adminRouter{
		middlewareTransport: middlewareTransport,
		adminAuth:           adminAuth,
		handlerTransport:    handlerTransport,
	}
}

func (r *adminRouter) BuildRoutes(router *fiber.App) error {
	h := r.handlerTransport
	if h.GetIPBlockHandler == nil || h.GetUserBlockHandler == nil || h.RecordAuthFailureHandler == nil {
		return ErrInvalidHandlerTransport
	}

	if h.GetVersionHandler != nil {
		router.Get("/version", h.GetVersionHandler.Handle)
	}

	// Failure reports come from the login service in bulk. They are
	// registered ahead of the /v1 group so its threat middleware never
	// sees them.
	ingest := make([]fiber.Handler, 0, 4)
	if r.middlewareTransport != nil {
		ingest = append(ingest, r.middlewareTransport.GetIngestMiddlewares()...)
	}
	if r.adminAuth != nil {
		ingest = append(ingest, r.adminAuth.Middleware())
	}
	ingest = append(ingest, h.RecordAuthFailureHandler.Handle)
	router.Post(AuthFailuresPath, ingest...)

	v1 := router.Group("/v1")
	{
		if r.middlewareTransport != nil {
			if mws := r.middlewareTransport.GetMiddlewares(); len(mws) > 0 {
				v1.Use(mws...)
			}
		}
		if r.adminAuth != nil {
			v1.Use(r.adminAuth.Middleware())
		}

		blocks := v1.Group("/blocks")
		{
			blocks.Get("/ip/:ip", h.GetIPBlockHandler.Handle)
			blocks.Get("/user/:userID", h.GetUserBlockHandler.Handle)
		}
	}
	return nil
}
