// Package llm adapts the counselling pipeline to the configured
// explanation backend. Every failure here is recoverable by contract:
// callers fall back to rule-based guidance and never surface these errors.
package llm

import (
	"context"
	"time"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
	"github.com/noah-isme/dropout-copilot-api/pkg/config"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

// Request is a single explanation request against a provider.
type Request struct {
	SystemPrompt string
	Question     string
	History      []models.ChatMessage
}

// TokenFunc receives one streamed token.
type TokenFunc func(token string)

// Provider produces a complete explanation in one call.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Streamer delivers an explanation token by token. Only a subset of
// variants implement it; use AsStreamer to discover support.
type Streamer interface {
	Stream(ctx context.Context, req Request, onToken TokenFunc) error
}

// AsStreamer reports whether the provider variant supports token streaming.
func AsStreamer(p Provider) (Streamer, bool) {
	s, ok := p.(Streamer)
	return s, ok
}

// New resolves the active provider variant from configuration.
func New(cfg config.LLMConfig, timeout time.Duration) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllama(cfg.Ollama, timeout), nil
	case "lmstudio":
		return NewLMStudio(cfg.LMStudio, timeout), nil
	case "groq":
		return NewGroq(cfg.Groq, timeout), nil
	case "grok", "xai":
		return NewGrok(cfg.XAI, timeout), nil
	case "", "openai":
		return NewOpenAI(cfg.OpenAI, timeout), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown LLM provider: "+cfg.Provider)
	}
}

// MaxHistoryTurns bounds the rolling chat history passed to providers.
const MaxHistoryTurns = 6

// CapHistory keeps only the newest MaxHistoryTurns entries.
func CapHistory(history []models.ChatMessage) []models.ChatMessage {
	if len(history) <= MaxHistoryTurns {
		return history
	}
	return history[len(history)-MaxHistoryTurns:]
}

func providerError(name string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrProvider.Code, appErrors.ErrProvider.Status, name+" call failed")
}

func missingCredential(name, envVar string) error {
	return appErrors.Clone(appErrors.ErrProvider, envVar+" is missing for provider "+name)
}
