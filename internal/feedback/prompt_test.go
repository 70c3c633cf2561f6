package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"feedbackgen/internal/profile"
)

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt(profile.Default())

	assert.Contains(t, prompt, "Scoring rubric (1 = worst, 5 = best):")
	assert.Contains(t, prompt, "- 1: No knowledge/demonstrated ability, major red flags")
	assert.Contains(t, prompt, "- 5: Strong/excellent knowledge, exceeds expectations, no significant gaps")
	assert.Contains(t, prompt, "Technical areas:\n- C# Basic\n- C# Intermediate")
	assert.Contains(t, prompt, "Non-technical areas:\n- Potential & Motivation a.k.a Drive\n- Communication\n- Self impression\n\nAlso provide")
	assert.Contains(t, prompt, "overall_level (one of: Junior, Medior, Senior, Lead)")
	assert.NotContains(t, prompt, "Personal assessment areas:")
	assert.NotContains(t, prompt, "{{")
}

func TestBuildSystemPromptWithPersonalAreas(t *testing.T) {
	p := profile.Default()
	p.PersonalAssessment = []string{"Grit", "Curiosity"}

	prompt := BuildSystemPrompt(p)
	assert.Contains(t, prompt, "- Self impression\n\nPersonal assessment areas:\n- Grit\n- Curiosity\n\nAlso provide")
}

func TestBuildSystemPromptDeterministic(t *testing.T) {
	p := profile.Default()
	assert.Equal(t, BuildSystemPrompt(p), BuildSystemPrompt(p))
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := BuildUserPrompt(profile.Default(), "Jane Doe", "strong on SQL\nweak on cloud")

	assert.Contains(t, prompt, "Candidate: Jane Doe\n\nInterview notes:")
	assert.Contains(t, prompt, "---\nstrong on SQL\nweak on cloud\n---")
	assert.Contains(t, prompt, `"candidate_name": "Jane Doe",`)
	assert.Contains(t, prompt, `"score": <1-5 or null>`)
	assert.Contains(t, prompt, `"overall_level": "<Junior|Medior|Senior|Lead>",`)
	assert.Contains(t, prompt, `Use score: null and comment: "Not evaluated/not enough data" when there is insufficient evidence.`)
	assert.Contains(t, prompt, "Include all 12 technical areas and all 3 non-technical areas in the exact order listed in the system prompt.")
	assert.NotContains(t, prompt, "personal_assessment_scores")
	assert.NotContains(t, prompt, "{{")
}

func TestBuildUserPromptWithPersonalAreas(t *testing.T) {
	p := profile.Default()
	p.PersonalAssessment = []string{"Grit", "Curiosity"}

	prompt := BuildUserPrompt(p, "Jane", "notes")
	assert.Contains(t, prompt, "\n  \"personal_assessment_scores\": [\n")
	assert.Contains(t, prompt, "all 12 technical areas, all 3 non-technical areas, and all 2 personal assessment areas")
}

func TestBuildCoachPrompt(t *testing.T) {
	report := &Report{
		CandidateName:  "Jane",
		OverallLevel:   "Senior",
		OverallComment: "Solid.",
		TechnicalScores: []ScoreEntry{
			{Name: "Cloud", Score: intPtr(4), Comment: "good"},
		},
		NonTechnicalScores: []ScoreEntry{
			{Name: "Communication", Score: nil, Comment: NotEvaluatedComment},
		},
	}

	prompt := BuildCoachPrompt(report, "raw notes here")

	assert.Contains(t, prompt, "Interview notes:\n---\nraw notes here\n---")
	assert.Contains(t, prompt, "Candidate: Jane\nOverall level: Senior\nOverall comment: Solid.\n\nTechnical scores:\n  - Cloud: 4 - good\n\nNon-technical scores:\n  - Communication: N/A - Not evaluated/not enough data")
	assert.Contains(t, prompt, "You are an expert interviewer coach.")
	assert.Contains(t, prompt, "Write in plain text, no bullet points or JSON.")
	assert.NotContains(t, prompt, "{{")
}
