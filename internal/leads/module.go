// Package leads provides the lead bounded context module.
// This file defines the module that encapsulates setup and route registration.
package leads

import (
	"time"

	"leadpilot_backend/internal/events"
	apphttp "leadpilot_backend/internal/http"
	"leadpilot_backend/platform/logger"
	"leadpilot_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/adk/model"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	repo    *Repository
	service *Service
	handler *Handler
}

// NewModule creates and initializes the leads module with all its dependencies.
// llm may be nil when no AI provider is configured; analysis then falls back
// to defaults and drafting is disabled.
func NewModule(pool *pgxpool.Pool, llm model.LLM, dispatcher Dispatcher, bus events.Bus, val *validator.Validator, log *logger.Logger, aiTimeout time.Duration) (*Module, error) {
	repo := NewRepository(pool)

	var analyzer Analyzer
	var drafter *Drafter
	if llm != nil {
		analyzer = NewAnalyst(llm)
		d, err := NewDrafter(llm, repo, log)
		if err != nil {
			return nil, err
		}
		drafter = d
	}

	service := NewService(repo, analyzer, dispatcher, bus, log, aiTimeout)
	handler := NewHandler(service, drafter, val)

	return &Module{
		repo:    repo,
		service: service,
		handler: handler,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository exposes the repository for wiring by sibling modules.
func (m *Module) Repository() *Repository {
	return m.repo
}

// Service exposes the service for wiring by sibling modules.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	group.GET("", m.handler.HandleList)
	group.GET("/:leadId", m.handler.HandleGet)
	group.GET("/:leadId/timeline", m.handler.HandleTimeline)
	group.PATCH("/:leadId/stage", m.handler.HandleChangeStage)
	group.POST("/:leadId/draft", m.handler.HandleDraft)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
