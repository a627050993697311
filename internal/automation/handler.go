package automation

import (
	"net/http"
	"time"

	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/httpkit"
	"leadpilot_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	repo *Repository
	val  *validator.Validator
}

func NewHandler(repo *Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

type automationRequest struct {
	Name        string   `json:"name" validate:"required,max=120"`
	TriggerName string   `json:"triggerName" validate:"required,max=120"`
	Channel     string   `json:"channel" validate:"required,oneof=SMS EMAIL"`
	Template    string   `json:"template" validate:"required"`
	Enabled     *bool    `json:"enabled"`
	MinScore    *int     `json:"minScore" validate:"omitempty,min=0,max=100"`
	MaxScore    *int     `json:"maxScore" validate:"omitempty,min=0,max=100"`
	IntentIn    []string `json:"intentIn"`
	StageIn     []string `json:"stageIn"`
}

func (r automationRequest) validateRange() error {
	if r.MinScore != nil && r.MaxScore != nil && *r.MinScore > *r.MaxScore {
		return apperr.Validation("minScore must not exceed maxScore")
	}
	return nil
}

func (r automationRequest) enabledOrDefault() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

type automationResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	TriggerName string    `json:"triggerName"`
	Channel     string    `json:"channel"`
	Template    string    `json:"template"`
	Enabled     bool      `json:"enabled"`
	MinScore    *int      `json:"minScore,omitempty"`
	MaxScore    *int      `json:"maxScore,omitempty"`
	IntentIn    []string  `json:"intentIn"`
	StageIn     []string  `json:"stageIn"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toResponse(a Automation) automationResponse {
	return automationResponse{
		ID:          a.ID,
		Name:        a.Name,
		TriggerName: a.TriggerName,
		Channel:     a.Channel,
		Template:    a.Template,
		Enabled:     a.Enabled,
		MinScore:    a.MinScore,
		MaxScore:    a.MaxScore,
		IntentIn:    a.IntentIn,
		StageIn:     a.StageIn,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (h *Handler) bind(c *gin.Context) (automationRequest, bool) {
	var req automationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return req, false
	}
	if err := req.validateRange(); err != nil {
		httpkit.HandleError(c, err)
		return req, false
	}
	return req, true
}

func (h *Handler) HandleCreate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	req, ok := h.bind(c)
	if !ok {
		return
	}

	created, err := h.repo.Create(c.Request.Context(), CreateParams{
		UserID:      id.UserID(),
		Name:        req.Name,
		TriggerName: req.TriggerName,
		Channel:     req.Channel,
		Template:    req.Template,
		Enabled:     req.enabledOrDefault(),
		MinScore:    req.MinScore,
		MaxScore:    req.MaxScore,
		IntentIn:    req.IntentIn,
		StageIn:     req.StageIn,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toResponse(created))
}

func (h *Handler) HandleList(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	automations, err := h.repo.ListByUser(c.Request.Context(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]automationResponse, 0, len(automations))
	for _, a := range automations {
		out = append(out, toResponse(a))
	}
	httpkit.OK(c, gin.H{"automations": out})
}

func (h *Handler) HandleUpdate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	automationID, err := uuid.Parse(c.Param("automationId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid automation id"))
		return
	}

	req, ok := h.bind(c)
	if !ok {
		return
	}

	updated, err := h.repo.Update(c.Request.Context(), automationID, id.UserID(), UpdateParams{
		Name:        req.Name,
		TriggerName: req.TriggerName,
		Channel:     req.Channel,
		Template:    req.Template,
		Enabled:     req.enabledOrDefault(),
		MinScore:    req.MinScore,
		MaxScore:    req.MaxScore,
		IntentIn:    req.IntentIn,
		StageIn:     req.StageIn,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(updated))
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) HandleToggle(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	automationID, err := uuid.Parse(c.Param("automationId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid automation id"))
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	updated, err := h.repo.SetEnabled(c.Request.Context(), automationID, id.UserID(), req.Enabled)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toResponse(updated))
}

func (h *Handler) HandleDelete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	automationID, err := uuid.Parse(c.Param("automationId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid automation id"))
		return
	}

	if err := h.repo.Delete(c.Request.Context(), automationID, id.UserID()); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
