package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dropout-copilot-api/internal/dto"
	"github.com/noah-isme/dropout-copilot-api/internal/service"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
	"github.com/noah-isme/dropout-copilot-api/pkg/response"
)

// AlertHandler exposes faculty alert endpoints.
type AlertHandler struct {
	alerts *service.AlertService
}

// NewAlertHandler constructs AlertHandler.
func NewAlertHandler(alerts *service.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Create godoc
// @Summary Raise an alert about a student
// @Tags Alerts
// @Accept json
// @Produce json
// @Param request body dto.CreateAlertRequest true "Alert"
// @Success 201 {object} response.Envelope
// @Router /alerts [post]
func (h *AlertHandler) Create(c *gin.Context) {
	var req dto.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	facultyID := ""
	if claims := claimsFromContext(c); claims != nil {
		facultyID = claims.UserID
	}

	alert, err := h.alerts.Create(c.Request.Context(), facultyID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, alert)
}

// List godoc
// @Summary List alerts
// @Tags Alerts
// @Produce json
// @Param student_id query int false "Filter by student id"
// @Param register_number query string false "Filter by register number"
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) List(c *gin.Context) {
	var studentID *int64
	if raw := c.Query("student_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid student id"))
			return
		}
		studentID = &id
	}

	alerts, err := h.alerts.List(c.Request.Context(), studentID, c.Query("register_number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts)
}
