package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dropout-copilot-api/internal/llm"
	"github.com/noah-isme/dropout-copilot-api/internal/models"
	"github.com/noah-isme/dropout-copilot-api/internal/repository"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

// SourceRules tags responses produced entirely by the rule engine.
const SourceRules = "rules"

const streamUnsupportedMessage = "Streaming is only supported for LLM_PROVIDER=ollama, grok, or groq."

// guidanceQuestion steers the provider toward a summary-only answer; the
// structured fields always come from the rule engine.
const guidanceQuestion = "Explain this student's current situation and dropout risk in an empathetic tone."

type riskContextBuilder interface {
	Build(ctx context.Context, studentID int64) (*models.RiskContext, error)
}

type counsellingRequestRepository interface {
	HasPending(ctx context.Context, studentID int64) (bool, error)
	Create(ctx context.Context, studentID int64, reason string) error
	List(ctx context.Context) ([]models.CounsellingRequest, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

type counsellingMetrics interface {
	ObserveProviderCall(provider string, duration time.Duration, success bool)
	ObserveGuidanceCache(hit bool)
}

// StreamSink receives newline-delimited stream events. The handler owns the
// wire encoding; the service only decides what to emit.
type StreamSink interface {
	Token(token string) error
	Fail(message string) error
	Done() error
}

// CounsellingService orchestrates rule-based guidance, AI completion and
// streaming, and counselling request booking.
type CounsellingService struct {
	contexts riskContextBuilder
	provider llm.Provider
	cache    *GuidanceCache
	repo     counsellingRequestRepository
	metrics  counsellingMetrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewCounsellingService(
	contexts riskContextBuilder,
	provider llm.Provider,
	cache *GuidanceCache,
	repo counsellingRequestRepository,
	metrics counsellingMetrics,
	logger *zap.Logger,
) *CounsellingService {
	return &CounsellingService{
		contexts: contexts,
		provider: provider,
		cache:    cache,
		repo:     repo,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Guidance returns counselling guidance for a student, served from cache
// unless forceRefresh is set. The AI provider only ever improves the
// summary; any provider failure silently keeps the rule-based text.
func (s *CounsellingService) Guidance(ctx context.Context, studentID int64, forceRefresh bool) (*models.GuidanceResponse, error) {
	if studentID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	key := GuidanceCacheKey(studentID)
	if forceRefresh {
		s.cache.Delete(key)
	} else if cached, ok := s.cache.Get(key); ok {
		s.observeCache(true)
		cached.Metadata.CacheHit = true
		return &cached, nil
	}
	s.observeCache(false)

	riskContext, err := s.contexts.Build(ctx, studentID)
	if err != nil {
		return nil, err
	}

	result := GenerateGuidance(*riskContext)
	source := SourceRules

	if s.provider != nil {
		req := llm.Request{
			SystemPrompt: llm.BuildSystemPrompt(*riskContext, result),
			Question:     guidanceQuestion,
		}
		if answer, err := s.complete(ctx, req); err != nil {
			s.logger.Warn("guidance provider call failed, keeping rule summary",
				zap.Int64("student_id", studentID), zap.Error(err))
		} else if answer != "" {
			result.Summary = answer
			source = s.provider.Name()
		}
	}

	response := models.GuidanceResponse{
		GuidanceResult: result,
		Metadata:       GuidanceMetadataAt(s.now(), source, false),
	}
	s.cache.Set(key, response)
	return &response, nil
}

// Chat answers one question with full context. Provider failures and empty
// completions fall back to the deterministic reply, never to an error.
func (s *CounsellingService) Chat(ctx context.Context, studentID int64, question string, history []models.ChatMessage) (*models.ChatResponse, error) {
	riskContext, fallback, err := s.prepareChat(ctx, studentID, question)
	if err != nil {
		return nil, err
	}

	reply := fallback.Reply
	source := SourceRules

	if s.provider != nil {
		base := GenerateGuidance(*riskContext)
		req := llm.Request{
			SystemPrompt: llm.BuildSystemPrompt(*riskContext, base),
			Question:     question,
			History:      llm.CapHistory(history),
		}
		if answer, err := s.complete(ctx, req); err != nil {
			s.logger.Warn("chat provider call failed, using rule reply",
				zap.Int64("student_id", studentID), zap.Error(err))
		} else if answer != "" {
			reply = answer
			source = s.provider.Name()
		}
	}

	return &models.ChatResponse{
		ChatReply: models.ChatReply{
			Reply:             reply,
			Recommendations:   fallback.Recommendations,
			FollowUpQuestions: fallback.FollowUpQuestions,
			Urgency:           fallback.Urgency,
		},
		Metadata: GuidanceMetadataAt(s.now(), source, false),
	}, nil
}

// ChatStream streams the provider's answer token by token. Once a token has
// reached the sink the turn is committed: a mid-stream provider failure ends
// the stream cleanly with what was sent. With nothing sent yet, the rule
// reply goes out as a single token instead.
func (s *CounsellingService) ChatStream(ctx context.Context, studentID int64, question string, history []models.ChatMessage, sink StreamSink) error {
	riskContext, fallback, err := s.prepareChat(ctx, studentID, question)
	if err != nil {
		return err
	}

	streamer, ok := llm.AsStreamer(s.provider)
	if s.provider == nil || !ok {
		return sink.Fail(streamUnsupportedMessage)
	}

	base := GenerateGuidance(*riskContext)
	req := llm.Request{
		SystemPrompt: llm.BuildSystemPrompt(*riskContext, base),
		Question:     question,
		History:      llm.CapHistory(history),
	}

	sent := 0
	var sinkErr error
	start := s.now()
	streamErr := streamer.Stream(ctx, req, func(token string) {
		if sinkErr != nil || token == "" {
			return
		}
		if err := sink.Token(token); err != nil {
			sinkErr = err
			return
		}
		sent++
	})
	s.observeProvider(s.now().Sub(start), streamErr == nil)

	if sinkErr != nil {
		return sinkErr
	}
	if streamErr != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("stream interrupted",
			zap.Int64("student_id", studentID), zap.Int("tokens_sent", sent), zap.Error(streamErr))
		if sent == 0 {
			if err := sink.Token(fallback.Reply); err != nil {
				return err
			}
		}
	}
	return sink.Done()
}

// BookRequest books a counselling session. One open request per student.
func (s *CounsellingService) BookRequest(ctx context.Context, studentID int64, reason string) error {
	if studentID <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "reason is required")
	}
	pending, err := s.repo.HasPending(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}
	if pending {
		return appErrors.Clone(appErrors.ErrConflict, "a pending counselling request already exists for this student")
	}
	if err := s.repo.Create(ctx, studentID, strings.TrimSpace(reason)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create counselling request")
	}
	return nil
}

// ListRequests returns all booked requests, newest first.
func (s *CounsellingService) ListRequests(ctx context.Context) ([]models.CounsellingRequest, error) {
	requests, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list counselling requests")
	}
	if requests == nil {
		requests = []models.CounsellingRequest{}
	}
	return requests, nil
}

// UpdateRequestStatus transitions a booked request.
func (s *CounsellingService) UpdateRequestStatus(ctx context.Context, id int64, status string) error {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case models.CounsellingStatusPending, models.CounsellingStatusCompleted, models.CounsellingStatusCancelled:
	default:
		return appErrors.Clone(appErrors.ErrValidation, "status must be PENDING, COMPLETED or CANCELLED")
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.Clone(appErrors.ErrNotFound, "counselling request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update counselling request")
	}
	return nil
}

// DeleteRequest removes a booked request.
func (s *CounsellingService) DeleteRequest(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete counselling request")
	}
	return nil
}

func (s *CounsellingService) prepareChat(ctx context.Context, studentID int64, question string) (*models.RiskContext, *models.ChatReply, error) {
	if studentID <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	if strings.TrimSpace(question) == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "question is required")
	}
	riskContext, err := s.contexts.Build(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	fallback := GenerateChatReply(*riskContext, question)
	return riskContext, &fallback, nil
}

func (s *CounsellingService) complete(ctx context.Context, req llm.Request) (string, error) {
	start := s.now()
	answer, err := s.provider.Complete(ctx, req)
	s.observeProvider(s.now().Sub(start), err == nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (s *CounsellingService) observeProvider(duration time.Duration, success bool) {
	if s.metrics != nil && s.provider != nil {
		s.metrics.ObserveProviderCall(s.provider.Name(), duration, success)
	}
}

func (s *CounsellingService) observeCache(hit bool) {
	if s.metrics != nil {
		s.metrics.ObserveGuidanceCache(hit)
	}
}
