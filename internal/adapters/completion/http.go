package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/roundtable-ai/roundtable/internal/config"
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

// maxResponseBytes caps how much of an HTTP response body is read.
const maxResponseBytes = 1 << 20

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
// Transport failures and 429/5xx responses are retried under Policy,
// all within the caller's per-call deadline.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	retry       *Policy
	httpc       *http.Client
	logger      *logging.Logger
}

var _ core.CompletionClient = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTP completion client.
func NewHTTPClient(cfg config.HTTPConfig, retry config.RetryConfig, logger *logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retry:       PolicyFromConfig(retry),
		// No client-level timeout: the per-call context carries it.
		httpc:  &http.Client{},
		logger: logger.WithComponent("completion.http"),
	}
}

// Name returns the adapter identifier.
func (c *HTTPClient) Name() string { return "http" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete posts one chat completion and decodes the first choice.
func (c *HTTPClient) Complete(ctx context.Context, req core.CompletionRequest) (*core.CompletionResult, error) {
	messages := make([]chatMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var result *core.CompletionResult
	err = c.retry.Execute(ctx, func(ctx context.Context) error {
		res, postErr := c.post(ctx, req, body)
		if postErr != nil {
			return postErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPClient) post(ctx context.Context, req core.CompletionRequest, body []byte) (*core.CompletionResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		serr := &statusError{Code: resp.StatusCode, Body: truncate(string(payload), 200)}
		c.logger.Warn("completion request rejected",
			"status", resp.StatusCode,
			"retryable", retryable(serr),
		)
		return nil, serr
	}

	var decoded chatResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, errors.New("response has no choices")
	}

	text := strings.TrimSpace(decoded.Choices[0].Message.Content)
	usage := core.Usage{
		InputTokens:  decoded.Usage.PromptTokens,
		OutputTokens: decoded.Usage.CompletionTokens,
	}
	if usage.Total() == 0 {
		usage = estimateUsage(req, text)
	}

	return &core.CompletionResult{Text: text, Usage: usage}, nil
}
