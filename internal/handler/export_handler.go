package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dropout-copilot-api/internal/dto"
	"github.com/noah-isme/dropout-copilot-api/internal/models"
	"github.com/noah-isme/dropout-copilot-api/internal/service"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
	"github.com/noah-isme/dropout-copilot-api/pkg/response"
)

// ExportHandler exposes export job endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Create godoc
// @Summary Queue a roster CSV or risk report PDF export
// @Tags Exports
// @Accept json
// @Produce json
// @Param request body dto.CreateExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.CreateExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	job, err := h.exports.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job)
}

// List godoc
// @Summary List export jobs
// @Tags Exports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /exports [get]
func (h *ExportHandler) List(c *gin.Context) {
	jobs, err := h.exports.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs)
}

// Download godoc
// @Summary Download a completed export
// @Tags Exports
// @Param id path string true "Export ID"
// @Success 200 {file} file
// @Router /exports/{id}/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	job, path, err := h.exports.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := "text/csv"
	if job.Kind == models.ExportKindRiskReport {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+job.FileName+`"`)
	c.Header("Content-Type", contentType)
	c.File(path)
}
