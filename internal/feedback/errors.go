package feedback

import "fmt"

// ParseError reports a backend reply with no decodable JSON object in it.
// It is the only content-level error: lesser anomalies such as missing
// areas, wrong types, or out-of-range scores are repaired with defaults
// during normalization instead of being rejected.
type ParseError struct {
	// Preview is a truncated copy of the reply for diagnostics.
	Preview string
	// Err is the JSON decode error, when decoding was attempted.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model reply is not valid JSON: %v", e.Err)
	}
	return fmt.Sprintf("no JSON object found in model reply: %q", e.Preview)
}

func (e *ParseError) Unwrap() error { return e.Err }
