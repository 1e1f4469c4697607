package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dropout-copilot-api/pkg/config"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

func TestOllamaComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1:8b", req.Model)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "Question: how am I doing?")

		json.NewEncoder(w).Encode(ollamaGenerateChunk{Response: "  You are on track.  ", Done: true})
	}))
	defer server.Close()

	provider := NewOllama(config.ProviderConfig{BaseURL: server.URL, Model: "llama3.1:8b"}, 5*time.Second)
	answer, err := provider.Complete(context.Background(), Request{SystemPrompt: "be kind", Question: "how am I doing?"})
	require.NoError(t, err)
	assert.Equal(t, "You are on track.", answer)
}

func TestOllamaStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lines := []ollamaGenerateChunk{
			{Response: "Risk"},
			{Response: " is"},
			{Response: " moderate"},
			{Done: true},
		}
		enc := json.NewEncoder(w)
		for _, line := range lines {
			enc.Encode(line)
		}
	}))
	defer server.Close()

	provider := NewOllama(config.ProviderConfig{BaseURL: server.URL, Model: "llama3.1:8b"}, 5*time.Second)
	streamer, ok := AsStreamer(provider)
	require.True(t, ok)

	var tokens []string
	err := streamer.Stream(context.Background(), Request{Question: "hi"}, func(token string) {
		tokens = append(tokens, token)
	})
	require.NoError(t, err)
	assert.Equal(t, "Risk is moderate", strings.Join(tokens, ""))
}

func TestOllamaStreamCancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		flusher := w.(http.Flusher)
		json.NewEncoder(w).Encode(ollamaGenerateChunk{Response: "first"})
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	provider := NewOllama(config.ProviderConfig{BaseURL: server.URL, Model: "llama3.1:8b"}, 30*time.Second)
	streamer, ok := AsStreamer(provider)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := streamer.Stream(ctx, Request{Question: "hi"}, func(string) {})
	require.Error(t, err)
}

func TestOllamaHTTPErrorIsRecoverable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewOllama(config.ProviderConfig{BaseURL: server.URL, Model: "llama3.1:8b"}, 5*time.Second)
	_, err := provider.Complete(context.Background(), Request{Question: "hi"})
	require.Error(t, err)
	assert.True(t, appErrors.IsRecoverable(err))
}

func TestOllamaMissingBaseURL(t *testing.T) {
	provider := NewOllama(config.ProviderConfig{Model: "llama3.1:8b"}, 5*time.Second)
	_, err := provider.Complete(context.Background(), Request{Question: "hi"})
	require.Error(t, err)
	assert.True(t, appErrors.IsRecoverable(err))
}
