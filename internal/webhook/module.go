package webhook

import (
	apphttp "leadpilot_backend/internal/http"
	"leadpilot_backend/internal/leads"
	"leadpilot_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	keys    KeyResolver
}

// NewModule creates and initializes the webhook module.
func NewModule(service *leads.Service, keys KeyResolver, val *validator.Validator) *Module {
	return &Module{
		handler: NewHandler(service, val),
		keys:    keys,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the public capture endpoint on the provided router
// context. The route is key-authenticated and rate limited, not JWT-gated.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhook/leads",
		ctx.WebhookRateLimiter.RateLimit(),
		KeyAuth(m.keys),
		m.handler.HandleCapture,
	)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
