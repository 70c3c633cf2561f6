// Package openai implements the remote backend against an OpenAI-compatible
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"feedbackgen/internal/llm"
	"feedbackgen/internal/logger"

	"go.uber.org/zap"
)

const (
	// DefaultBaseURL targets the public OpenAI API.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	maxLogLength = 200
)

// Client issues one chat completion request per call. It keeps no state
// between calls beyond the HTTP transport.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a remote backend client. A missing API key is a ConfigError
// raised here, before any request is made.
func New(apiKey, baseURL, model string, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &llm.ConfigError{Message: "api key is required for the remote backend (set OPENAI_API_KEY or --api-key-file)"}
	}

	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{},
		logger:  logger.WithBackendFields(log, "openai", model),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the prompt pair and returns the assistant's reply. One
// request per call; any 2xx status counts as success, everything else is a
// BackendError carrying the status code and response body.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	const op = "chat completion"

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    llm.Temperature,
		MaxTokens:      llm.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", &llm.BackendError{Op: op, Err: err}
	}

	url := c.baseURL + "/chat/completions"

	c.logger.Debug("sending chat completion request",
		zap.String("url", url),
		zap.Int("prompt_length", utf8.RuneCountInString(systemPrompt)+utf8.RuneCountInString(userPrompt)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &llm.BackendError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &llm.BackendError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.BackendError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &llm.BackendError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &llm.BackendError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &llm.BackendError{Op: op, Err: fmt.Errorf("%s (%s)", parsed.Error.Message, parsed.Error.Type)}
	}
	if len(parsed.Choices) == 0 {
		return "", &llm.BackendError{Op: op, Err: errors.New("response has no choices")}
	}

	content := parsed.Choices[0].Message.Content

	c.logger.Debug("received chat completion response",
		zap.Int("response_length", utf8.RuneCountInString(content)),
		zap.String("response_preview", logger.TruncateForLog(content, maxLogLength)),
	)

	return content, nil
}

// Model reports the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

var _ llm.Backend = (*Client)(nil)
