// Package automation provides the automation bounded context module.
package automation

import (
	"time"

	"leadpilot_backend/internal/channel"
	apphttp "leadpilot_backend/internal/http"
	"leadpilot_backend/internal/leads"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/logger"
	"leadpilot_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the automation bounded context module implementing http.Module.
type Module struct {
	repo    *Repository
	engine  *Engine
	handler *Handler
}

// NewModule creates and initializes the automation module.
func NewModule(pool *pgxpool.Pool, leadRepo *leads.Repository, userRepo *users.Repository, senders map[string]channel.Sender, val *validator.Validator, log *logger.Logger, sendTimeout time.Duration) *Module {
	repo := NewRepository(pool)
	engine := NewEngine(leadRepo, userRepo, repo, senders, log, sendTimeout)
	handler := NewHandler(repo, val)

	return &Module{
		repo:    repo,
		engine:  engine,
		handler: handler,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "automation"
}

// Engine exposes the dispatch engine for the scheduler worker.
func (m *Module) Engine() *Engine {
	return m.engine
}

// RegisterRoutes mounts automation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/automations")
	group.POST("", m.handler.HandleCreate)
	group.GET("", m.handler.HandleList)
	group.PUT("/:automationId", m.handler.HandleUpdate)
	group.PATCH("/:automationId/toggle", m.handler.HandleToggle)
	group.DELETE("/:automationId", m.handler.HandleDelete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
