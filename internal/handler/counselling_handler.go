package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dropout-copilot-api/internal/dto"
	"github.com/noah-isme/dropout-copilot-api/internal/service"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
	"github.com/noah-isme/dropout-copilot-api/pkg/response"
)

// CounsellingHandler exposes guidance, chat and booking endpoints.
type CounsellingHandler struct {
	counselling *service.CounsellingService
}

// NewCounsellingHandler constructs CounsellingHandler.
func NewCounsellingHandler(counselling *service.CounsellingService) *CounsellingHandler {
	return &CounsellingHandler{counselling: counselling}
}

// Guidance godoc
// @Summary Generate counselling guidance for a student
// @Tags Counselling
// @Accept json
// @Produce json
// @Param request body dto.GuidanceRequest true "Guidance request"
// @Success 200 {object} response.Envelope
// @Router /counselling/ai [post]
func (h *CounsellingHandler) Guidance(c *gin.Context) {
	var req dto.GuidanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	guidance, err := h.counselling.Guidance(c.Request.Context(), req.StudentID, req.ForceRefresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, guidance)
}

// Chat godoc
// @Summary Answer a counselling question
// @Tags Counselling
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Chat request"
// @Success 200 {object} response.Envelope
// @Router /counselling/chat [post]
func (h *CounsellingHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	reply, err := h.counselling.Chat(c.Request.Context(), req.StudentID, req.Question, req.History)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reply)
}

// ChatStream godoc
// @Summary Stream a counselling answer as NDJSON
// @Tags Counselling
// @Accept json
// @Produce json
// @Param request body dto.ChatRequest true "Chat request"
// @Success 200 {string} string "application/x-ndjson event lines"
// @Router /counselling/chat/stream [post]
func (h *CounsellingHandler) ChatStream(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	sink := &ndjsonSink{c: c}
	err := h.counselling.ChatStream(c.Request.Context(), req.StudentID, req.Question, req.History, sink)
	if err != nil && !sink.wrote {
		response.Error(c, err)
	}
}

// Book godoc
// @Summary Book a counselling session
// @Tags Counselling
// @Accept json
// @Produce json
// @Param request body dto.BookCounsellingRequest true "Booking request"
// @Success 201 {object} response.Envelope
// @Router /counselling [post]
func (h *CounsellingHandler) Book(c *gin.Context) {
	var req dto.BookCounsellingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := h.counselling.BookRequest(c.Request.Context(), req.StudentID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"status": "booked"})
}

// List godoc
// @Summary List counselling requests
// @Tags Counselling
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /counselling [get]
func (h *CounsellingHandler) List(c *gin.Context) {
	requests, err := h.counselling.ListRequests(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests)
}

// UpdateStatus godoc
// @Summary Update a counselling request status
// @Tags Counselling
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param request body dto.UpdateCounsellingStatusRequest true "Status"
// @Success 200 {object} response.Envelope
// @Router /counselling/{id} [patch]
func (h *CounsellingHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request id"))
		return
	}
	var req dto.UpdateCounsellingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := h.counselling.UpdateRequestStatus(c.Request.Context(), id, req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "updated"})
}

// Delete godoc
// @Summary Delete a counselling request
// @Tags Counselling
// @Param id path int true "Request ID"
// @Success 204
// @Router /counselling/{id} [delete]
func (h *CounsellingHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request id"))
		return
	}
	if err := h.counselling.DeleteRequest(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// streamEvent is one NDJSON line of a chat stream.
type streamEvent struct {
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
	Done  bool   `json:"done,omitempty"`
}

// ndjsonSink writes stream events as newline-delimited JSON, flushing each
// line so clients render tokens as they arrive. Headers go out with the
// first event, so pre-stream failures can still use the error envelope.
type ndjsonSink struct {
	c     *gin.Context
	wrote bool
}

func (s *ndjsonSink) Token(token string) error {
	return s.send(streamEvent{Token: token})
}

func (s *ndjsonSink) Fail(message string) error {
	return s.send(streamEvent{Error: message})
}

func (s *ndjsonSink) Done() error {
	return s.send(streamEvent{Done: true})
}

func (s *ndjsonSink) send(event streamEvent) error {
	if !s.wrote {
		s.c.Header("Content-Type", "application/x-ndjson")
		s.c.Header("Cache-Control", "no-store")
		s.c.Status(http.StatusOK)
		s.wrote = true
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := s.c.Writer.Write(append(payload, '\n')); err != nil {
		return err
	}
	s.c.Writer.Flush()
	return nil
}
