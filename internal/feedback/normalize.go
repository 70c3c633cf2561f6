package feedback

import (
	"encoding/json"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"feedbackgen/internal/logger"
	"feedbackgen/internal/profile"
)

const previewLength = 200

// fencedJSON captures the first JSON object wrapped in a markdown code fence.
var fencedJSON = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*?\\})\\s*```")

// rawEntry and rawReport hold the model's reply before repair. Every field
// is loosely typed so that wrong shapes degrade to defaults instead of
// failing the decode.
type rawEntry struct {
	Name    any `mapstructure:"name"`
	Score   any `mapstructure:"score"`
	Comment any `mapstructure:"comment"`
}

type rawReport struct {
	CandidateName            any        `mapstructure:"candidate_name"`
	TechnicalScores          []rawEntry `mapstructure:"technical_scores"`
	NonTechnicalScores       []rawEntry `mapstructure:"non_technical_scores"`
	PersonalAssessmentScores []rawEntry `mapstructure:"personal_assessment_scores"`
	OverallLevel             any        `mapstructure:"overall_level"`
	OverallComment           any        `mapstructure:"overall_comment"`
}

// Normalize repairs a raw model reply into a complete Report for the given
// profile. The only unrecoverable condition is a reply with no decodable
// JSON object, which returns a ParseError. Everything else, including
// missing areas, wrong types, and out-of-range scores, degrades to null
// scores and placeholder comments so the report always covers every
// profile area in profile order.
func Normalize(reply string, p *profile.Profile, candidateName string) (*Report, error) {
	candidate := extractJSON(reply)

	var decoded any
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		return nil, &ParseError{Preview: logger.TruncateForLog(candidate, previewLength), Err: err}
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ParseError{Preview: logger.TruncateForLog(candidate, previewLength)}
	}

	// Field-level mismatches are repaired below, so the decode error is
	// intentionally dropped: mapstructure still fills every field it could
	// decode.
	var raw rawReport
	_ = mapstructure.Decode(obj, &raw)

	report := &Report{
		CandidateName:            candidateName,
		TechnicalScores:          reconcile(p.Technical, raw.TechnicalScores),
		NonTechnicalScores:       reconcile(p.NonTechnical, raw.NonTechnicalScores),
		PersonalAssessmentScores: []ScoreEntry{},
		OverallLevel:             p.OverallLevels[0],
		OverallComment:           DefaultOverallComment,
	}

	if len(p.PersonalAssessment) > 0 {
		report.PersonalAssessmentScores = reconcile(p.PersonalAssessment, raw.PersonalAssessmentScores)
	}

	if name, ok := raw.CandidateName.(string); ok && strings.TrimSpace(name) != "" {
		report.CandidateName = name
	}
	if level, ok := raw.OverallLevel.(string); ok && slices.Contains(p.OverallLevels, level) {
		report.OverallLevel = level
	}
	if comment, ok := raw.OverallComment.(string); ok && strings.TrimSpace(comment) != "" {
		report.OverallComment = comment
	}

	return report, nil
}

// extractJSON locates the JSON object inside a model reply: a fenced code
// block first, then the widest brace-delimited span, then the trimmed text
// itself as a last resort.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if start := strings.Index(text, "{"); start != -1 {
		if end := strings.LastIndex(text, "}"); end > start {
			return text[start : end+1]
		}
	}
	return text
}

// reconcile maps the model's entries onto the profile's area list. Output
// order and names always come from the profile; the first matching model
// entry wins, anything unmatched gets a null score and the placeholder.
func reconcile(areas []string, entries []rawEntry) []ScoreEntry {
	out := make([]ScoreEntry, 0, len(areas))
	for _, area := range areas {
		entry := ScoreEntry{Name: area, Score: nil, Comment: NotEvaluatedComment}
		for _, raw := range entries {
			name, _ := raw.Name.(string)
			if !sameArea(name, area) {
				continue
			}
			entry.Score = validScore(raw.Score)
			entry.Comment = commentOrPlaceholder(raw.Comment)
			break
		}
		out = append(out, entry)
	}
	return out
}

// sameArea compares area names case-insensitively, ignoring surrounding
// whitespace and treating "a.k.a." and "aka" as the same token.
func sameArea(a, b string) bool {
	return normalizeAreaName(a) == normalizeAreaName(b)
}

func normalizeAreaName(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, "a.k.a.", "aka")
	s = strings.ReplaceAll(s, "a.k.a", "aka")
	return s
}

// validScore accepts only numbers with an integral value between 1 and 5.
// Strings, booleans, fractions, and out-of-range values all mean the score
// is absent. No clamping and no rounding.
func validScore(v any) *int {
	var n int
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return nil
		}
		n = int(val)
	case int:
		n = val
	default:
		return nil
	}
	if n < 1 || n > 5 {
		return nil
	}
	return &n
}

func commentOrPlaceholder(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return NotEvaluatedComment
}
