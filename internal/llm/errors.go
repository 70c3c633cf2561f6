package llm

import (
	"fmt"
	"strings"
)

// ConfigError reports missing or invalid runtime configuration. It is always
// raised before any backend traffic is attempted.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// BackendError reports a transport or processing failure while talking to a
// model server. StatusCode is zero when the failure happened below the HTTP
// layer.
type BackendError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *BackendError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s failed", e.Op)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
