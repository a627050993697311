package conversation

import (
	apphttp "leadpilot_backend/internal/http"
	"leadpilot_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the conversation bounded context module implementing http.Module.
type Module struct {
	repo         *Repository
	orchestrator *Orchestrator
	handler      *Handler
}

// NewModule creates and initializes the conversation module. The repository
// is built here; everything else arrives wired from the composition root.
func NewModule(pool *pgxpool.Pool, orchestratorCfg OrchestratorConfig, keys KeyResolver, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	orchestratorCfg.Store = repo
	orchestrator := NewOrchestrator(orchestratorCfg)
	handler := NewHandler(orchestrator, repo, keys, log)

	return &Module{
		repo:         repo,
		orchestrator: orchestrator,
		handler:      handler,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversation"
}

// Orchestrator exposes the turn processor for background consumers.
func (m *Module) Orchestrator() *Orchestrator {
	return m.orchestrator
}

// RegisterRoutes mounts conversation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/webhook/sms", ctx.WebhookRateLimiter.RateLimit(), m.handler.HandleInboundSMS)

	group := ctx.Protected.Group("/conversations")
	group.GET("", m.handler.HandleList)
	group.GET("/:conversationId/messages", m.handler.HandleMessages)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
