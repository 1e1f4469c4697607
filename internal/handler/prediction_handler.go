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

// PredictionHandler exposes scoring and risk aggregate endpoints.
type PredictionHandler struct {
	predictions *service.PredictionService
}

// NewPredictionHandler constructs PredictionHandler.
func NewPredictionHandler(predictions *service.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictions: predictions}
}

// Predict godoc
// @Summary Score a student through the ML service
// @Tags Predictions
// @Produce json
// @Param student_id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /predict/{student_id} [post]
func (h *PredictionHandler) Predict(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("student_id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid student id"))
		return
	}
	result, err := h.predictions.Predict(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Save godoc
// @Summary Persist an externally computed prediction
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body dto.SavePredictionRequest true "Prediction"
// @Success 201 {object} response.Envelope
// @Router /prediction/save [post]
func (h *PredictionHandler) Save(c *gin.Context) {
	var req dto.SavePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := h.predictions.Save(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"status": "saved"})
}

// RiskHistory godoc
// @Summary Weekly average risk aggregate
// @Tags Predictions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/risk/history [get]
func (h *PredictionHandler) RiskHistory(c *gin.Context) {
	buckets, err := h.predictions.RiskHistory(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, buckets)
}
