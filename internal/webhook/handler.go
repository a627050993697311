package webhook

import (
	"net/http"

	"leadpilot_backend/internal/leads"
	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/httpkit"
	"leadpilot_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *leads.Service
	val     *validator.Validator
}

func NewHandler(service *leads.Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

type captureRequest struct {
	Name     string         `json:"name" validate:"required,max=200"`
	Phone    string         `json:"phone" validate:"omitempty,max=32"`
	Email    string         `json:"email" validate:"omitempty,email,max=254"`
	Source   string         `json:"source" validate:"omitempty,max=120"`
	Message  string         `json:"message" validate:"omitempty,max=4000"`
	Metadata map[string]any `json:"metadata"`
}

type captureResponse struct {
	LeadID    string `json:"leadId"`
	Stage     string `json:"stage"`
	Score     int    `json:"score"`
	Duplicate bool   `json:"duplicate"`
}

// HandleCapture stores an inbound form submission for the key's operator.
// Duplicates within the suppression window return the existing lead with 200
// instead of creating a second row.
func (h *Handler) HandleCapture(c *gin.Context) {
	user, ok := webhookUser(c)
	if !ok {
		httpkit.HandleError(c, apperr.Unauthorized("webhook key required"))
		return
	}

	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	lead, duplicate, err := h.service.Capture(c.Request.Context(), user.ID, leads.CaptureParams{
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Source:   req.Source,
		Notes:    req.Message,
		Metadata: req.Metadata,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	httpkit.JSON(c, status, captureResponse{
		LeadID:    lead.ID.String(),
		Stage:     lead.Stage,
		Score:     lead.Score,
		Duplicate: duplicate,
	})
}
