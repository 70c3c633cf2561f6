// Package feedback turns free-form interview notes into a structured,
// schema-complete report through an LLM backend.
package feedback

import "strconv"

// NotEvaluatedComment replaces any area comment the model skipped or answered
// with an unusable value.
const NotEvaluatedComment = "Not evaluated/not enough data"

// DefaultOverallComment replaces a missing or blank overall comment.
const DefaultOverallComment = "See interview notes for details."

// ScoreEntry holds the score and comment for one assessment area. A nil
// Score means the area was not evaluated.
type ScoreEntry struct {
	Name    string `json:"name"`
	Score   *int   `json:"score"`
	Comment string `json:"comment"`
}

// DisplayScore returns the score as a string, or "N/A" when unset.
func (e ScoreEntry) DisplayScore() string {
	if e.Score == nil {
		return "N/A"
	}
	return strconv.Itoa(*e.Score)
}

// Report is a complete feedback report. Each area list mirrors the profile
// the report was generated from: same names, same order, one entry per area.
type Report struct {
	CandidateName            string       `json:"candidate_name"`
	TechnicalScores          []ScoreEntry `json:"technical_scores"`
	NonTechnicalScores       []ScoreEntry `json:"non_technical_scores"`
	PersonalAssessmentScores []ScoreEntry `json:"personal_assessment_scores"`
	OverallLevel             string       `json:"overall_level"`
	OverallComment           string       `json:"overall_comment"`
	AIEvaluation             string       `json:"ai_evaluation,omitempty"`
}
