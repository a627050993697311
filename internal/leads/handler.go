package leads

import (
	"net/http"
	"strconv"
	"time"

	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/httpkit"
	"leadpilot_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service *Service
	drafter *Drafter
	val     *validator.Validator
}

func NewHandler(service *Service, drafter *Drafter, val *validator.Validator) *Handler {
	return &Handler{service: service, drafter: drafter, val: val}
}

type leadResponse struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Phone     string         `json:"phone,omitempty"`
	Email     string         `json:"email,omitempty"`
	Source    string         `json:"source,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Stage     string         `json:"stage"`
	Intent    string         `json:"intent"`
	Sentiment string         `json:"sentiment"`
	Score     int            `json:"score"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func toLeadResponse(lead Lead) leadResponse {
	return leadResponse{
		ID:        lead.ID,
		Name:      lead.Name,
		Phone:     lead.Phone,
		Email:     lead.Email,
		Source:    lead.Source,
		Notes:     lead.Notes,
		Stage:     lead.Stage,
		Intent:    lead.Intent,
		Sentiment: lead.Sentiment,
		Score:     lead.Score,
		Metadata:  lead.Metadata,
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
}

type eventResponse struct {
	ID        uuid.UUID      `json:"id"`
	EventType string         `json:"eventType"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (h *Handler) HandleList(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, err := h.service.List(c.Request.Context(), id.UserID(), limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]leadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, toLeadResponse(lead))
	}
	httpkit.OK(c, gin.H{"leads": out})
}

func (h *Handler) HandleGet(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	lead, err := h.service.Get(c.Request.Context(), id.UserID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toLeadResponse(lead))
}

func (h *Handler) HandleTimeline(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	timeline, err := h.service.Timeline(c.Request.Context(), id.UserID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]eventResponse, 0, len(timeline))
	for _, event := range timeline {
		out = append(out, eventResponse{
			ID:        event.ID,
			EventType: event.EventType,
			Content:   event.Content,
			Metadata:  event.Metadata,
			CreatedAt: event.CreatedAt,
		})
	}
	httpkit.OK(c, gin.H{"events": out})
}

type changeStageRequest struct {
	Stage string `json:"stage" validate:"required"`
}

func (h *Handler) HandleChangeStage(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	var req changeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	lead, err := h.service.ChangeStage(c.Request.Context(), id.UserID(), leadID, req.Stage)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toLeadResponse(lead))
}

type draftRequest struct {
	Channel string `json:"channel" validate:"required,oneof=SMS EMAIL"`
	Tone    string `json:"tone" validate:"omitempty,max=40"`
}

func (h *Handler) HandleDraft(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	if h.drafter == nil {
		httpkit.HandleError(c, apperr.Unavailable("drafting is not configured"))
		return
	}

	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid lead id"))
		return
	}

	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	// Ownership check before any provider call.
	if _, err := h.service.Get(c.Request.Context(), id.UserID(), leadID); httpkit.HandleError(c, err) {
		return
	}

	event, err := h.drafter.Draft(c.Request.Context(), DraftRequest{
		LeadID:  leadID,
		Channel: req.Channel,
		Tone:    req.Tone,
	})
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "draft generation failed", err))
		return
	}

	httpkit.JSON(c, http.StatusCreated, eventResponse{
		ID:        event.ID,
		EventType: event.EventType,
		Content:   event.Content,
		Metadata:  event.Metadata,
		CreatedAt: event.CreatedAt,
	})
}
