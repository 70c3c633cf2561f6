// Package llm defines the chat-completion contract shared by the local and
// remote backend adapters.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Sampling parameters shared by both backends so that local and remote runs
// produce comparable output.
const (
	Temperature = 0.3
	MaxTokens   = 4096
)

// Mode selects which backend adapter serves a generation run.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode normalizes a mode string. The empty string selects the local
// backend.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLocal:
		return ModeLocal, nil
	case ModeRemote:
		return ModeRemote, nil
	default:
		return "", &ConfigError{Message: fmt.Sprintf("unsupported mode %q (expected %q or %q)", s, ModeLocal, ModeRemote)}
	}
}

// ProgressFunc receives human-readable status lines while a backend prepares
// its model. Callers may pass nil when they do not want progress reporting.
type ProgressFunc func(status string)

// Config collects the runtime settings a backend is built from. The zero
// value selects the local backend with its defaults.
type Config struct {
	Mode Mode
	// APIKey authenticates against the remote API. Unused by the local
	// backend.
	APIKey string
	// BaseURL overrides the backend endpoint: the remote API root or the
	// Ollama server address.
	BaseURL string
	Model   string
	// OnProgress is invoked during local model preparation.
	OnProgress ProgressFunc
}

// Backend executes a single chat completion against a concrete model server.
// Implementations send one logical request per call, never retry, and return
// the assistant's reply without interpreting it.
type Backend interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Model reports the model identifier the backend talks to.
	Model() string
}
