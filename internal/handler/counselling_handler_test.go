package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dropout-copilot-api/internal/llm"
	"github.com/noah-isme/dropout-copilot-api/internal/models"
	"github.com/noah-isme/dropout-copilot-api/internal/service"
)

type fakeRiskContexts struct {
	riskContext *models.RiskContext
	err         error
}

func (f *fakeRiskContexts) Build(context.Context, int64) (*models.RiskContext, error) {
	return f.riskContext, f.err
}

type fakeBookingRepo struct {
	pending  bool
	requests []models.CounsellingRequest
	created  []string
}

func (f *fakeBookingRepo) HasPending(context.Context, int64) (bool, error) { return f.pending, nil }

func (f *fakeBookingRepo) Create(_ context.Context, _ int64, reason string) error {
	f.created = append(f.created, reason)
	return nil
}

func (f *fakeBookingRepo) List(context.Context) ([]models.CounsellingRequest, error) {
	return f.requests, nil
}

func (f *fakeBookingRepo) UpdateStatus(context.Context, int64, string) error { return nil }
func (f *fakeBookingRepo) Delete(context.Context, int64) error               { return nil }

type fakeTokenProvider struct {
	tokens []string
}

func (f *fakeTokenProvider) Name() string { return "ollama" }

func (f *fakeTokenProvider) Complete(context.Context, llm.Request) (string, error) {
	return strings.Join(f.tokens, ""), nil
}

func (f *fakeTokenProvider) Stream(_ context.Context, _ llm.Request, onToken llm.TokenFunc) error {
	for _, token := range f.tokens {
		onToken(token)
	}
	return nil
}

func mediumRiskContext() *models.RiskContext {
	percent := 55
	return &models.RiskContext{StudentID: 7, Name: "Asha", RiskLevel: "MEDIUM", RiskPercent: &percent}
}

func newCounsellingHandler(provider llm.Provider, repo *fakeBookingRepo) *CounsellingHandler {
	svc := service.NewCounsellingService(
		&fakeRiskContexts{riskContext: mediumRiskContext()},
		provider,
		service.NewGuidanceCache(15*time.Minute, nil),
		repo,
		nil,
		zap.NewNop(),
	)
	return NewCounsellingHandler(svc)
}

func postJSON(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/counselling", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestCounsellingHandlerGuidance(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCounsellingHandler(nil, &fakeBookingRepo{})

	c, rec := postJSON(t, `{"student_id":7}`)
	handler.Guidance(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.GuidanceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "MEDIUM", envelope.Data.Urgency)
	assert.Equal(t, service.SourceRules, envelope.Data.Metadata.Source)
}

func TestCounsellingHandlerGuidanceValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCounsellingHandler(nil, &fakeBookingRepo{})

	c, rec := postJSON(t, `{"student_id":0}`)
	handler.Guidance(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestCounsellingHandlerChatStreamNDJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	provider := &fakeTokenProvider{tokens: []string{"Risk ", "is ", "moderate."}}
	handler := newCounsellingHandler(provider, &fakeBookingRepo{})

	c, rec := postJSON(t, `{"student_id":7,"question":"How risky is this student?"}`)
	handler.ChatStream(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	var answer strings.Builder
	for _, line := range lines[:3] {
		var event struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &event))
		answer.WriteString(event.Token)
	}
	assert.Equal(t, "Risk is moderate.", answer.String())
	assert.JSONEq(t, `{"done":true}`, lines[3])
}

func TestCounsellingHandlerChatStreamUnsupportedProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCounsellingHandler(nil, &fakeBookingRepo{})

	c, rec := postJSON(t, `{"student_id":7,"question":"How risky is this student?"}`)
	handler.ChatStream(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 1)
	var event struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &event))
	assert.Contains(t, event.Error, "Streaming is only supported")
}

func TestCounsellingHandlerBookConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCounsellingHandler(nil, &fakeBookingRepo{pending: true})

	c, rec := postJSON(t, `{"student_id":7,"reason":"Attendance drop"}`)
	handler.Book(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCounsellingHandlerBookCreated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &fakeBookingRepo{}
	handler := newCounsellingHandler(nil, repo)

	c, rec := postJSON(t, `{"student_id":7,"reason":"  Attendance drop  "}`)
	handler.Book(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "Attendance drop", repo.created[0])
}

func TestCounsellingHandlerUpdateStatusInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newCounsellingHandler(nil, &fakeBookingRepo{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/counselling/abc", strings.NewReader(`{"status":"COMPLETED"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
