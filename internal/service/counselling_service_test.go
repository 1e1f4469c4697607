package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dropout-copilot-api/internal/llm"
	"github.com/noah-isme/dropout-copilot-api/internal/models"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

type fakeContextBuilder struct {
	riskContext *models.RiskContext
	err         error
	calls       int
}

func (f *fakeContextBuilder) Build(context.Context, int64) (*models.RiskContext, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.riskContext, nil
}

type fakeProvider struct {
	name   string
	answer string
	err    error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(context.Context, llm.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeStreamingProvider struct {
	fakeProvider
	tokens    []string
	streamErr error
}

func (f *fakeStreamingProvider) Stream(_ context.Context, _ llm.Request, onToken llm.TokenFunc) error {
	for _, token := range f.tokens {
		onToken(token)
	}
	return f.streamErr
}

type fakeCounsellingRepo struct {
	pending   bool
	created   []string
	requests  []models.CounsellingRequest
	updateErr error
}

func (f *fakeCounsellingRepo) HasPending(context.Context, int64) (bool, error) { return f.pending, nil }

func (f *fakeCounsellingRepo) Create(_ context.Context, _ int64, reason string) error {
	f.created = append(f.created, reason)
	return nil
}

func (f *fakeCounsellingRepo) List(context.Context) ([]models.CounsellingRequest, error) {
	return f.requests, nil
}

func (f *fakeCounsellingRepo) UpdateStatus(context.Context, int64, string) error {
	return f.updateErr
}

func (f *fakeCounsellingRepo) Delete(context.Context, int64) error { return nil }

type recordingSink struct {
	tokens   []string
	errors   []string
	doneSent int
}

func (s *recordingSink) Token(token string) error {
	s.tokens = append(s.tokens, token)
	return nil
}

func (s *recordingSink) Fail(message string) error {
	s.errors = append(s.errors, message)
	return nil
}

func (s *recordingSink) Done() error {
	s.doneSent++
	return nil
}

func mediumRiskContext() *models.RiskContext {
	return &models.RiskContext{
		StudentID:   1,
		Name:        "Asha",
		RiskLevel:   models.RiskLevelMedium,
		RiskPercent: intPtr(55),
		Attendance:  floatPtr(72),
	}
}

func newTestCounsellingService(contexts riskContextBuilder, provider llm.Provider, repo counsellingRequestRepository) *CounsellingService {
	svc := NewCounsellingService(contexts, provider, NewGuidanceCache(15*time.Minute, nil), repo, nil, zap.NewNop())
	return svc
}

func TestGuidanceProviderImprovesSummary(t *testing.T) {
	contexts := &fakeContextBuilder{riskContext: mediumRiskContext()}
	provider := &fakeProvider{name: "ollama", answer: "You are doing okay, keep attending classes."}
	svc := newTestCounsellingService(contexts, provider, &fakeCounsellingRepo{})

	resp, err := svc.Guidance(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, "You are doing okay, keep attending classes.", resp.Summary)
	assert.Equal(t, "ollama", resp.Metadata.Source)
	assert.False(t, resp.Metadata.CacheHit)
	assert.Equal(t, models.UrgencyMedium, resp.Urgency)
}

func TestGuidanceProviderFailureFallsBackToRules(t *testing.T) {
	contexts := &fakeContextBuilder{riskContext: mediumRiskContext()}
	provider := &fakeProvider{name: "openai", err: appErrors.ErrProvider}
	svc := newTestCounsellingService(contexts, provider, &fakeCounsellingRepo{})

	resp, err := svc.Guidance(context.Background(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, SourceRules, resp.Metadata.Source)
	assert.Equal(t, "Risk is moderate. Focus on consistent attendance and study habits.", resp.Summary)
}

func TestGuidanceCacheHitSkipsRebuild(t *testing.T) {
	contexts := &fakeContextBuilder{riskContext: mediumRiskContext()}
	svc := newTestCounsellingService(contexts, &fakeProvider{name: "ollama", answer: "hi"}, &fakeCounsellingRepo{})

	first, err := svc.Guidance(context.Background(), 1, false)
	require.NoError(t, err)
	second, err := svc.Guidance(context.Background(), 1, false)
	require.NoError(t, err)

	assert.Equal(t, 1, contexts.calls)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Metadata.Source, second.Metadata.Source)
}

func TestGuidanceForceRefreshBypassesCache(t *testing.T) {
	contexts := &fakeContextBuilder{riskContext: mediumRiskContext()}
	svc := newTestCounsellingService(contexts, &fakeProvider{name: "ollama", answer: "hi"}, &fakeCounsellingRepo{})

	_, err := svc.Guidance(context.Background(), 1, false)
	require.NoError(t, err)
	resp, err := svc.Guidance(context.Background(), 1, true)
	require.NoError(t, err)

	assert.Equal(t, 2, contexts.calls)
	assert.False(t, resp.Metadata.CacheHit)
}

func TestGuidanceNotFoundSurfaces(t *testing.T) {
	contexts := &fakeContextBuilder{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")}
	svc := newTestCounsellingService(contexts, nil, &fakeCounsellingRepo{})

	_, err := svc.Guidance(context.Background(), 404, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestChatProviderErrorUsesRuleReply(t *testing.T) {
	riskContext := mediumRiskContext()
	contexts := &fakeContextBuilder{riskContext: riskContext}
	provider := &fakeProvider{name: "groq", err: errors.New("connection refused")}
	svc := newTestCounsellingService(contexts, provider, &fakeCounsellingRepo{})

	resp, err := svc.Chat(context.Background(), 1, "What's my attendance?", nil)
	require.NoError(t, err)

	expected := GenerateChatReply(*riskContext, "What's my attendance?")
	assert.Equal(t, expected.Reply, resp.Reply)
	assert.Equal(t, SourceRules, resp.Metadata.Source)
	assert.NotEmpty(t, resp.Reply)
}

func TestChatEmptyCompletionUsesRuleReply(t *testing.T) {
	contexts := &fakeContextBuilder{riskContext: mediumRiskContext()}
	svc := newTestCounsellingService(contexts, &fakeProvider{name: "ollama", answer: "   "}, &fakeCounsellingRepo{})

	resp, err := svc.Chat(context.Background(), 1, "how is my cgpa?", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceRules, resp.Metadata.Source)
	assert.NotEmpty(t, resp.Reply)
}

func TestChatValidatesQuestion(t *testing.T) {
	svc := newTestCounsellingService(&fakeContextBuilder{riskContext: mediumRiskContext()}, nil, &fakeCounsellingRepo{})

	_, err := svc.Chat(context.Background(), 1, "   ", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestChatStreamForwardsTokensAndDone(t *testing.T) {
	contexts := &fakeContextBuilder{riskContext: mediumRiskContext()}
	provider := &fakeStreamingProvider{
		fakeProvider: fakeProvider{name: "ollama"},
		tokens:       []string{"Risk", " is", " moderate"},
	}
	svc := newTestCounsellingService(contexts, provider, &fakeCounsellingRepo{})

	sink := &recordingSink{}
	err := svc.ChatStream(context.Background(), 1, "how risky am I?", nil, sink)
	require.NoError(t, err)

	assert.Equal(t, "Risk is moderate", strings.Join(sink.tokens, ""))
	assert.Equal(t, 1, sink.doneSent)
	assert.Empty(t, sink.errors)
}

func TestChatStreamUnsupportedProvider(t *testing.T) {
	contexts := &fakeContextBuilder{riskContext: mediumRiskContext()}
	svc := newTestCounsellingService(contexts, &fakeProvider{name: "openai"}, &fakeCounsellingRepo{})

	sink := &recordingSink{}
	err := svc.ChatStream(context.Background(), 1, "hello?", nil, sink)
	require.NoError(t, err)

	require.Len(t, sink.errors, 1)
	assert.Equal(t, "Streaming is only supported for LLM_PROVIDER=ollama, grok, or groq.", sink.errors[0])
	assert.Zero(t, sink.doneSent)
	assert.Empty(t, sink.tokens)
}

func TestChatStreamZeroTokensFallsBack(t *testing.T) {
	riskContext := mediumRiskContext()
	contexts := &fakeContextBuilder{riskContext: riskContext}
	provider := &fakeStreamingProvider{
		fakeProvider: fakeProvider{name: "groq"},
		streamErr:    errors.New("upstream reset"),
	}
	svc := newTestCounsellingService(contexts, provider, &fakeCounsellingRepo{})

	sink := &recordingSink{}
	err := svc.ChatStream(context.Background(), 1, "what about my fees?", nil, sink)
	require.NoError(t, err)

	expected := GenerateChatReply(*riskContext, "what about my fees?")
	require.Len(t, sink.tokens, 1)
	assert.Equal(t, expected.Reply, sink.tokens[0])
	assert.Equal(t, 1, sink.doneSent)
}

func TestChatStreamPartialStreamCompletes(t *testing.T) {
	contexts := &fakeContextBuilder{riskContext: mediumRiskContext()}
	provider := &fakeStreamingProvider{
		fakeProvider: fakeProvider{name: "grok"},
		tokens:       []string{"Partial ", "answer"},
		streamErr:    errors.New("upstream died mid-flight"),
	}
	svc := newTestCounsellingService(contexts, provider, &fakeCounsellingRepo{})

	sink := &recordingSink{}
	err := svc.ChatStream(context.Background(), 1, "tell me more", nil, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"Partial ", "answer"}, sink.tokens)
	assert.Equal(t, 1, sink.doneSent)
	assert.Empty(t, sink.errors)
}

func TestBookRequestConflictOnPending(t *testing.T) {
	svc := newTestCounsellingService(&fakeContextBuilder{}, nil, &fakeCounsellingRepo{pending: true})

	err := svc.BookRequest(context.Background(), 1, "struggling with arrears")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestBookRequestCreates(t *testing.T) {
	repo := &fakeCounsellingRepo{}
	svc := newTestCounsellingService(&fakeContextBuilder{}, nil, repo)

	require.NoError(t, svc.BookRequest(context.Background(), 1, "  need a plan  "))
	require.Len(t, repo.created, 1)
	assert.Equal(t, "need a plan", repo.created[0])
}

func TestUpdateRequestStatusValidation(t *testing.T) {
	svc := newTestCounsellingService(&fakeContextBuilder{}, nil, &fakeCounsellingRepo{})

	err := svc.UpdateRequestStatus(context.Background(), 1, "DONE")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	assert.NoError(t, svc.UpdateRequestStatus(context.Background(), 1, "completed"))
}
