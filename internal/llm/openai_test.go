package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
	"github.com/noah-isme/dropout-copilot-api/pkg/config"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

func TestOpenAIComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4.1", req.Model)
		assert.InDelta(t, 0.4, req.Temperature, 0.001)
		assert.Equal(t, 260, req.MaxTokens)
		require.Len(t, req.Messages, 4)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "assistant", req.Messages[2].Role)
		assert.Equal(t, "user", req.Messages[3].Role)

		fmt.Fprint(w, `{"choices":[{"message":{"content":" Keep attending classes. "}}]}`)
	}))
	defer server.Close()

	provider := NewOpenAI(config.ProviderConfig{BaseURL: server.URL, Model: "gpt-4.1", APIKey: "sk-test"}, 5*time.Second)
	answer, err := provider.Complete(context.Background(), Request{
		SystemPrompt: "be empathetic",
		Question:     "am I at risk?",
		History: []models.ChatMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Keep attending classes.", answer)
}

func TestOpenAIMissingKeyIsRecoverable(t *testing.T) {
	provider := NewOpenAI(config.ProviderConfig{BaseURL: "http://localhost:1", Model: "gpt-4.1"}, time.Second)
	_, err := provider.Complete(context.Background(), Request{Question: "hi"})
	require.Error(t, err)
	assert.True(t, appErrors.IsRecoverable(err))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestOpenAIIsNotStreamer(t *testing.T) {
	provider := NewOpenAI(config.ProviderConfig{BaseURL: "http://localhost:1", Model: "m", APIKey: "k"}, time.Second)
	_, ok := AsStreamer(provider)
	assert.False(t, ok)

	lmstudio := NewLMStudio(config.ProviderConfig{BaseURL: "http://localhost:1", Model: "m"}, time.Second)
	_, ok = AsStreamer(lmstudio)
	assert.False(t, ok)
}

func TestGroqStreamSSE(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Risk\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" is\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" moderate\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := NewGroq(config.ProviderConfig{BaseURL: server.URL, Model: "llama-3.1-70b", APIKey: "gsk-test"}, 5*time.Second)
	streamer, ok := AsStreamer(provider)
	require.True(t, ok)

	var tokens []string
	err := streamer.Stream(context.Background(), Request{Question: "how risky?"}, func(token string) {
		tokens = append(tokens, token)
	})
	require.NoError(t, err)
	assert.Equal(t, "Risk is moderate", strings.Join(tokens, ""))
}

func TestGrokIsStreamer(t *testing.T) {
	provider := NewGrok(config.ProviderConfig{BaseURL: "http://localhost:1", Model: "grok-2-latest", APIKey: "xai-test"}, time.Second)
	assert.Equal(t, "grok", provider.Name())
	_, ok := AsStreamer(provider)
	assert.True(t, ok)
}

func TestChatClientNon2xxIsRecoverable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := NewGroq(config.ProviderConfig{BaseURL: server.URL, Model: "m", APIKey: "bad"}, time.Second)
	_, err := provider.Complete(context.Background(), Request{Question: "hi"})
	require.Error(t, err)
	assert.True(t, appErrors.IsRecoverable(err))
}
