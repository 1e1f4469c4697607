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

const (
	chatTemperature = 0.4
	chatMaxTokens   = 260
)

// chatClient talks to any OpenAI-compatible chat/completions endpoint.
// The openai, lmstudio, groq and grok variants all share it and differ only
// in base URL, credential requirements and streaming support.
type chatClient struct {
	name       string
	baseURL    string
	model      string
	apiKey     string
	requireKey bool
	httpClient *http.Client
}

// streamingChatClient adds SSE token streaming on top of chatClient.
// Only the groq and grok/xai variants are wired for streaming.
type streamingChatClient struct {
	*chatClient
}

// NewOpenAI builds the batch-only OpenAI variant.
func NewOpenAI(cfg config.ProviderConfig, timeout time.Duration) Provider {
	return newChatClient("openai", cfg, true, timeout)
}

// NewLMStudio builds the batch-only LM Studio variant. Local servers do not
// require a credential.
func NewLMStudio(cfg config.ProviderConfig, timeout time.Duration) Provider {
	return newChatClient("lmstudio", cfg, false, timeout)
}

// NewGroq builds the streaming-capable Groq variant.
func NewGroq(cfg config.ProviderConfig, timeout time.Duration) Provider {
	return &streamingChatClient{newChatClient("groq", cfg, true, timeout)}
}

// NewGrok builds the streaming-capable xAI/Grok variant.
func NewGrok(cfg config.ProviderConfig, timeout time.Duration) Provider {
	return &streamingChatClient{newChatClient("grok", cfg, true, timeout)}
}

func newChatClient(name string, cfg config.ProviderConfig, requireKey bool, timeout time.Duration) *chatClient {
	return &chatClient{
		name:       name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		requireKey: requireKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *chatClient) Name() string { return c.name }

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens"`
	Stream      bool                    `json:"stream,omitempty"`
	Messages    []chatCompletionMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *chatClient) validate() error {
	if c.requireKey && c.apiKey == "" {
		return missingCredential(c.name, strings.ToUpper(c.name)+"_API_KEY")
	}
	if c.baseURL == "" {
		return missingCredential(c.name, strings.ToUpper(c.name)+"_BASE_URL")
	}
	if c.model == "" {
		return missingCredential(c.name, strings.ToUpper(c.name)+"_MODEL")
	}
	return nil
}

func (c *chatClient) buildMessages(req Request) []chatCompletionMessage {
	messages := make([]chatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, chatCompletionMessage{Role: "system", Content: req.SystemPrompt})
	for _, turn := range req.History {
		messages = append(messages, chatCompletionMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatCompletionMessage{Role: "user", Content: req.Question})
	return messages
}

func (c *chatClient) post(ctx context.Context, payload chatCompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providerError(c.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, providerError(c.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, providerError(c.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, providerError(c.name, fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	return resp, nil
}

// Complete performs a single-shot chat completion.
func (c *chatClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.validate(); err != nil {
		return "", err
	}

	resp, err := c.post(ctx, chatCompletionRequest{
		Model:       c.model,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
		Messages:    c.buildMessages(req),
	})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", providerError(c.name, err)
	}
	if len(decoded.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// Stream performs a streaming chat completion, forwarding delta tokens. The
// upstream request is tied to ctx so a disconnecting client aborts it.
func (c *streamingChatClient) Stream(ctx context.Context, req Request, onToken TokenFunc) error {
	if err := c.validate(); err != nil {
		return err
	}

	resp, err := c.post(ctx, chatCompletionRequest{
		Model:       c.model,
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
		Stream:      true,
		Messages:    c.buildMessages(req),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return nil
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			onToken(chunk.Choices[0].Delta.Content)
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return providerError(c.name, err)
	}
	return nil
}
