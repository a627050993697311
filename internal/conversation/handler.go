package conversation

import (
	"context"
	"net/http"
	"time"

	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/httpkit"
	"leadpilot_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KeyResolver maps a webhook key to the owning operator.
type KeyResolver interface {
	GetByWebhookKey(ctx context.Context, key string) (users.User, error)
}

type Handler struct {
	orchestrator *Orchestrator
	repo         *Repository
	keys         KeyResolver
	log          *logger.Logger
}

func NewHandler(orchestrator *Orchestrator, repo *Repository, keys KeyResolver, log *logger.Logger) *Handler {
	return &Handler{orchestrator: orchestrator, repo: repo, keys: keys, log: log}
}

type inboundSMSRequest struct {
	From string `json:"from"`
	Body string `json:"body"`
}

// HandleInboundSMS accepts a gateway delivery callback. The gateway gets its
// 200 immediately; the turn runs in the background so a slow model can never
// make the gateway retry and duplicate the message.
func (h *Handler) HandleInboundSMS(c *gin.Context) {
	user, err := h.keys.GetByWebhookKey(c.Request.Context(), c.GetHeader("X-Webhook-Key"))
	if httpkit.HandleError(c, err) {
		return
	}

	var req inboundSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if req.From == "" || req.Body == "" {
		httpkit.HandleError(c, apperr.Validation("from and body are required"))
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		if err := h.orchestrator.HandleInbound(ctx, user.ID, req.From, req.Body); err != nil {
			h.log.Error("inbound turn failed", "error", err, "from", req.From)
		}
	}()

	c.Status(http.StatusOK)
}

type conversationResponse struct {
	ID            uuid.UUID  `json:"id"`
	LeadID        *uuid.UUID `json:"leadId,omitempty"`
	ContactHandle string     `json:"contactHandle"`
	State         string     `json:"state"`
	CreatedAt     string     `json:"createdAt"`
	UpdatedAt     string     `json:"updatedAt"`
}

type messageResponse struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Body      string    `json:"body"`
	CreatedAt string    `json:"createdAt"`
}

func (h *Handler) HandleList(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	conversations, err := h.repo.ListByUser(c.Request.Context(), id.UserID(), 0)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]conversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		out = append(out, conversationResponse{
			ID:            conv.ID,
			LeadID:        conv.LeadID,
			ContactHandle: conv.ContactHandle,
			State:         conv.State,
			CreatedAt:     conv.CreatedAt.Format(time.RFC3339),
			UpdatedAt:     conv.UpdatedAt.Format(time.RFC3339),
		})
	}
	httpkit.OK(c, gin.H{"conversations": out})
}

func (h *Handler) HandleMessages(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	conversationID, err := uuid.Parse(c.Param("conversationId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid conversation id"))
		return
	}

	conv, err := h.repo.GetByID(c.Request.Context(), conversationID)
	if httpkit.HandleError(c, err) {
		return
	}
	if conv.UserID != id.UserID() {
		httpkit.HandleError(c, apperr.NotFound("conversation not found"))
		return
	}

	messages, err := h.repo.ListRecentMessages(c.Request.Context(), conversationID, 200)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{
			ID:        m.ID,
			Role:      m.Role,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	httpkit.OK(c, gin.H{"messages": out})
}
