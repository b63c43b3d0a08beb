package middleware

import "github.com/gofiber/fiber/v2"

type Middleware interface {
	Middleware() fiber.Handler
}

type Transport struct {
	PanicRecoverMiddleware Middleware
	TraceMiddleware        Middleware
	IdentityMiddleware     Middleware
	ThreatMiddleware       Middleware
}

// GetMiddlewares returns the configured handlers in the order they must
// run: recovery first, threat analysis last.
func (t *Transport) GetMiddlewares() []interface{} {
	var handlers []interface{}
	for _, m := range []Middleware{
		t.PanicRecoverMiddleware,
		t.TraceMiddleware,
		t.IdentityMiddleware,
		t.ThreatMiddleware,
	} {
		if m != nil {
			handlers = append(handlers, m.Middleware())
		}
	}
	return handlers
}

// GetIngestMiddlewares is the chain for machine-to-machine ingestion
// routes. It leaves out identity and threat analysis so the reporting
// service is never rate limited or blocked by its own reports.
func (t *Transport) GetIngestMiddlewares() []fiber.Handler {
	var handlers []fiber.Handler
	for _, m := range []Middleware{
		t.PanicRecoverMiddleware,
		t.TraceMiddleware,
	} {
		if m != nil {
			handlers = append(handlers, m.Middleware())
		}
	}
	return handlers
}
