package feedback

import (
	"fmt"
	"strings"

	_ "embed"

	"feedbackgen/internal/profile"
)

//go:embed system_prompt.md
var systemPromptTemplate string

//go:embed user_prompt.md
var userPromptTemplate string

//go:embed coach_prompt.md
var coachPromptTemplate string

// coachSystemPrompt frames the meta-evaluation request.
const coachSystemPrompt = "You are an expert interviewer coach."

// BuildSystemPrompt renders the scoring instructions for a profile: the
// rubric, the exact area names per category, and the allowed overall levels.
// The schema lives here so it stays identical across candidates.
func BuildSystemPrompt(p *profile.Profile) string {
	personal := ""
	if len(p.PersonalAssessment) > 0 {
		personal = "\nPersonal assessment areas:\n" + bulletList(p.PersonalAssessment) + "\n"
	}

	prompt := strings.ReplaceAll(systemPromptTemplate, "{{TECHNICAL_AREAS}}", bulletList(p.Technical))
	prompt = strings.ReplaceAll(prompt, "{{NON_TECHNICAL_AREAS}}", bulletList(p.NonTechnical))
	prompt = strings.ReplaceAll(prompt, "{{PERSONAL_SECTION}}", personal)
	prompt = strings.ReplaceAll(prompt, "{{OVERALL_LEVELS}}", strings.Join(p.OverallLevels, ", "))
	return prompt
}

// BuildUserPrompt renders the per-candidate request: the name, the verbatim
// notes, and the exact JSON shape the model must return.
func BuildUserPrompt(p *profile.Profile, candidateName, notes string) string {
	personalField := ""
	if len(p.PersonalAssessment) > 0 {
		personalField = "\n  \"personal_assessment_scores\": [\n" +
			"    {\"name\": \"<area name>\", \"score\": <1-5 or null>, \"comment\": \"<brief explanation>\"}\n" +
			"  ],"
	}

	prompt := strings.ReplaceAll(userPromptTemplate, "{{CANDIDATE_NAME}}", candidateName)
	prompt = strings.ReplaceAll(prompt, "{{NOTES}}", notes)
	prompt = strings.ReplaceAll(prompt, "{{PERSONAL_SCORES_FIELD}}", personalField)
	prompt = strings.ReplaceAll(prompt, "{{OVERALL_LEVELS}}", strings.Join(p.OverallLevels, "|"))
	prompt = strings.ReplaceAll(prompt, "{{AREA_COUNTS}}", areaCounts(p))
	return prompt
}

// BuildCoachPrompt renders the meta-evaluation request from the original
// notes and the finished report.
func BuildCoachPrompt(r *Report, notes string) string {
	prompt := strings.ReplaceAll(coachPromptTemplate, "{{NOTES}}", notes)
	return strings.ReplaceAll(prompt, "{{REPORT}}", formatReportForEvaluation(r))
}

func bulletList(areas []string) string {
	lines := make([]string, len(areas))
	for i, area := range areas {
		lines[i] = "- " + area
	}
	return strings.Join(lines, "\n")
}

func areaCounts(p *profile.Profile) string {
	if len(p.PersonalAssessment) > 0 {
		return fmt.Sprintf("all %d technical areas, all %d non-technical areas, and all %d personal assessment areas",
			len(p.Technical), len(p.NonTechnical), len(p.PersonalAssessment))
	}
	return fmt.Sprintf("all %d technical areas and all %d non-technical areas",
		len(p.Technical), len(p.NonTechnical))
}
