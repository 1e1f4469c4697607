package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/dropout-copilot-api/pkg/config"
)

// ollamaClient talks to Ollama's generate API. Unlike the OpenAI-compatible
// variants it takes a flat prompt and streams newline-delimited JSON.
type ollamaClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllama builds the Ollama variant. It supports both batch and streaming.
func NewOllama(cfg config.ProviderConfig, timeout time.Duration) Provider {
	return &ollamaClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *ollamaClient) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Ollama's generate API has no separate system/history roles, so the prompt
// is flattened the same way the legacy service did it.
func (c *ollamaClient) buildPrompt(req Request) string {
	return req.SystemPrompt + "\n\nQuestion: " + req.Question
}

func (c *ollamaClient) post(ctx context.Context, stream bool, req Request) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, missingCredential("ollama", "OLLAMA_BASE_URL")
	}
	if c.model == "" {
		return nil, missingCredential("ollama", "OLLAMA_MODEL")
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.model,
		Prompt: c.buildPrompt(req),
		Stream: stream,
	})
	if err != nil {
		return nil, providerError("ollama", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, providerError("ollama", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, providerError("ollama", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, providerError("ollama", fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	return resp, nil
}

// Complete performs a single-shot generate call.
func (c *ollamaClient) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := c.post(ctx, false, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded ollamaGenerateChunk
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", providerError("ollama", err)
	}
	return strings.TrimSpace(decoded.Response), nil
}

// Stream performs a streaming generate call, forwarding each chunk's
// response field and stopping at the terminal done marker.
func (c *ollamaClient) Stream(ctx context.Context, req Request, onToken TokenFunc) error {
	resp, err := c.post(ctx, true, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk ollamaGenerateChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}
		if chunk.Response != "" {
			onToken(chunk.Response)
		}
		if chunk.Done {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return providerError("ollama", err)
	}
	return nil
}
