package feedback

import (
	"feedbackgen/internal/llm"
	"feedbackgen/internal/llm/ollama"
	"feedbackgen/internal/llm/openai"

	"go.uber.org/zap"
)

// NewBackend builds the backend adapter selected by cfg.Mode. An empty mode
// means local. Configuration problems, including a remote mode without an
// API key, surface as ConfigError before any network traffic.
func NewBackend(cfg llm.Config, log *zap.Logger) (llm.Backend, error) {
	mode, err := llm.ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}

	if mode == llm.ModeRemote {
		return openai.New(cfg.APIKey, cfg.BaseURL, cfg.Model, log)
	}

	return ollama.New(cfg.BaseURL, cfg.Model, cfg.OnProgress, log), nil
}
