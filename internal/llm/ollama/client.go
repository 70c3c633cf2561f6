// Package ollama implements the local backend against an Ollama server. The
// prepared model runtime is shared process-wide: the first completion
// initializes it (reachability check, pull when the model is absent, load
// into memory) and later completions reuse it.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"feedbackgen/internal/llm"
	"feedbackgen/internal/logger"

	"go.uber.org/zap"
)

const (
	// DefaultEndpoint targets an Ollama server on the local machine.
	DefaultEndpoint = "http://localhost:11434"
	// DefaultModel is pulled on first use when no model is configured.
	DefaultModel = "llama3.1:8b"

	// keepAlive asks the server to keep the model resident between calls.
	keepAlive = "30m"

	maxLogLength = 200
)

// runtime is a prepared connection to an Ollama server with the model
// present and loaded.
type runtime struct {
	endpoint string
	model    string
	http     *http.Client
}

// shared caches the prepared runtime across all Clients in the process.
// First use initializes it; concurrent first calls may both initialize and
// the last writer wins. A failed initialization leaves the cache untouched
// so the next call starts over.
var shared atomic.Pointer[runtime]

// Client is the local backend adapter.
type Client struct {
	endpoint   string
	model      string
	onProgress llm.ProgressFunc
	logger     *zap.Logger
}

// New builds a local backend client. Defaults are applied for empty endpoint
// and model; the server is not contacted until the first Complete call.
func New(endpoint, model string, onProgress llm.ProgressFunc, log *zap.Logger) *Client {
	if endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/"); endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultModel
	}

	return &Client{
		endpoint:   endpoint,
		model:      model,
		onProgress: onProgress,
		logger:     logger.WithBackendFields(log, "ollama", model),
	}
}

func (c *Client) progress(status string) {
	if c.onProgress != nil {
		c.onProgress(status)
	}
}

// ensure returns the shared runtime, initializing it on first use. A cached
// runtime for a different endpoint or model is replaced.
func (c *Client) ensure(ctx context.Context) (*runtime, error) {
	if rt := shared.Load(); rt != nil && rt.endpoint == c.endpoint && rt.model == c.model {
		return rt, nil
	}

	rt, err := c.initialize(ctx)
	if err != nil {
		return nil, err
	}

	shared.Store(rt)
	return rt, nil
}

func (c *Client) initialize(ctx context.Context) (*runtime, error) {
	rt := &runtime{
		endpoint: c.endpoint,
		model:    c.model,
		http:     &http.Client{},
	}

	c.progress(fmt.Sprintf("connecting to Ollama at %s", c.endpoint))
	if err := c.checkServer(ctx, rt); err != nil {
		return nil, err
	}

	c.progress(fmt.Sprintf("checking model %s", c.model))
	present, err := c.modelPresent(ctx, rt)
	if err != nil {
		return nil, err
	}

	if !present {
		c.progress(fmt.Sprintf("pulling model %s (this may take a while on first use)", c.model))
		if err := c.pullModel(ctx, rt); err != nil {
			return nil, err
		}
	}

	c.progress(fmt.Sprintf("loading model %s into memory", c.model))
	if err := c.loadModel(ctx, rt); err != nil {
		return nil, err
	}

	c.progress("model ready")
	c.logger.Info("local model runtime initialized", zap.String("endpoint", c.endpoint))

	return rt, nil
}

func (c *Client) checkServer(ctx context.Context, rt *runtime) error {
	const op = "server check"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rt.endpoint+"/api/version", nil)
	if err != nil {
		return &llm.BackendError{Op: op, Err: err}
	}

	resp, err := rt.http.Do(req)
	if err != nil {
		return &llm.BackendError{Op: op, Err: fmt.Errorf("cannot reach Ollama at %s (is the server running?): %w", rt.endpoint, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &llm.BackendError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

type showRequest struct {
	Model string `json:"model"`
}

func (c *Client) modelPresent(ctx context.Context, rt *runtime) (bool, error) {
	const op = "model check"

	payload, err := json.Marshal(showRequest{Model: c.model})
	if err != nil {
		return false, &llm.BackendError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rt.endpoint+"/api/show", bytes.NewReader(payload))
	if err != nil {
		return false, &llm.BackendError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rt.http.Do(req)
	if err != nil {
		return false, &llm.BackendError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &llm.BackendError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
}

type pullRequest struct {
	Model  string `json:"model"`
	Stream bool   `json:"stream"`
}

type pullStatus struct {
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	Completed int64  `json:"completed"`
	Error     string `json:"error"`
}

// pullModel streams the download, forwarding deduplicated status lines to
// the progress callback, with a percentage when sizes are known.
func (c *Client) pullModel(ctx context.Context, rt *runtime) error {
	const op = "model pull"

	payload, err := json.Marshal(pullRequest{Model: c.model, Stream: true})
	if err != nil {
		return &llm.BackendError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rt.endpoint+"/api/pull", bytes.NewReader(payload))
	if err != nil {
		return &llm.BackendError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rt.http.Do(req)
	if err != nil {
		return &llm.BackendError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &llm.BackendError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var last string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var status pullStatus
		if err := json.Unmarshal(line, &status); err != nil {
			continue
		}
		if status.Error != "" {
			return &llm.BackendError{Op: op, Err: errors.New(status.Error)}
		}

		text := status.Status
		if status.Total > 0 && status.Completed > 0 {
			text = fmt.Sprintf("%s: %d%%", status.Status, status.Completed*100/status.Total)
		}
		if text != "" && text != last {
			c.progress(text)
			last = text
		}
	}
	if err := scanner.Err(); err != nil {
		return &llm.BackendError{Op: op, Err: err}
	}

	return nil
}

type generateRequest struct {
	Model     string `json:"model"`
	KeepAlive string `json:"keep_alive"`
	Stream    bool   `json:"stream"`
}

// loadModel issues a promptless generate call, which makes the server load
// the model into memory and keep it resident.
func (c *Client) loadModel(ctx context.Context, rt *runtime) error {
	const op = "model load"

	payload, err := json.Marshal(generateRequest{Model: c.model, KeepAlive: keepAlive, Stream: false})
	if err != nil {
		return &llm.BackendError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rt.endpoint+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return &llm.BackendError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rt.http.Do(req)
	if err != nil {
		return &llm.BackendError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &llm.BackendError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Format    string        `json:"format"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive"`
	Options   chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Complete runs one chat completion. The first call prepares the shared
// model runtime; later calls with the same endpoint and model reuse it.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	const op = "chat completion"

	rt, err := c.ensure(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Format:    "json",
		Stream:    false,
		KeepAlive: keepAlive,
		Options: chatOptions{
			Temperature: llm.Temperature,
			NumPredict:  llm.MaxTokens,
		},
	})
	if err != nil {
		return "", &llm.BackendError{Op: op, Err: err}
	}

	c.logger.Debug("sending chat request",
		zap.String("endpoint", c.endpoint),
		zap.Int("prompt_length", utf8.RuneCountInString(systemPrompt)+utf8.RuneCountInString(userPrompt)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rt.endpoint+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", &llm.BackendError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rt.http.Do(req)
	if err != nil {
		return "", &llm.BackendError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.BackendError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &llm.BackendError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &llm.BackendError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}

	content := parsed.Message.Content

	c.logger.Debug("received chat response",
		zap.Int("response_length", utf8.RuneCountInString(content)),
		zap.String("response_preview", logger.TruncateForLog(content, maxLogLength)),
	)

	return content, nil
}

// Model reports the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// reset drops the shared runtime so tests can exercise initialization from
// a clean slate.
func reset() {
	if rt := shared.Swap(nil); rt != nil && rt.http != nil {
		rt.http.CloseIdleConnections()
	}
}

var _ llm.Backend = (*Client)(nil)
