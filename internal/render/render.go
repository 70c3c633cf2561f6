// Package render lays out feedback reports for terminals and report files.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"feedbackgen/internal/feedback"
	"feedbackgen/internal/profile"
)

// Text formats a report for terminal display.
func Text(r *feedback.Report) string {
	lines := []string{fmt.Sprintf("\n=== Feedback for %s ===\n", r.CandidateName)}

	lines = append(lines, "Technical:")
	for _, s := range r.TechnicalScores {
		lines = append(lines, fmt.Sprintf("  %s: %s - %s", s.Name, s.DisplayScore(), s.Comment))
	}

	lines = append(lines, "\nNon-technical:")
	for _, s := range r.NonTechnicalScores {
		lines = append(lines, fmt.Sprintf("  %s: %s - %s", s.Name, s.DisplayScore(), s.Comment))
	}

	if len(r.PersonalAssessmentScores) > 0 {
		lines = append(lines, "\nPersonal Assessment:")
		for _, s := range r.PersonalAssessmentScores {
			lines = append(lines, fmt.Sprintf("  %s: %s - %s", s.Name, s.DisplayScore(), s.Comment))
		}
	}

	lines = append(lines, "\nOverall:")
	lines = append(lines, fmt.Sprintf("  Level: %s", r.OverallLevel))
	lines = append(lines, fmt.Sprintf("  Comment: %s", r.OverallComment))

	if r.AIEvaluation != "" {
		lines = append(lines, "\nAI Evaluation:")
		for _, line := range strings.Split(r.AIEvaluation, "\n") {
			lines = append(lines, "  "+line)
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// Markdown formats a report as a standalone document with one table per
// category, mirroring the terminal layout.
func Markdown(r *feedback.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Interview Feedback: %s\n\n", r.CandidateName)
	b.WriteString("1 - worst, 5 - best\n\n")

	writeTable(&b, "Technical:", r.TechnicalScores)
	writeTable(&b, "Non-technical:", r.NonTechnicalScores)
	if len(r.PersonalAssessmentScores) > 0 {
		writeTable(&b, "Personal Assessment:", r.PersonalAssessmentScores)
	}

	fmt.Fprintf(&b, "## Overall assessment: %s\n\n%s\n", r.OverallLevel, r.OverallComment)

	if r.AIEvaluation != "" {
		fmt.Fprintf(&b, "\n## AI Evaluation\n\n%s\n", r.AIEvaluation)
	}

	return b.String()
}

// JSON formats a report as an indented JSON document.
func JSON(r *feedback.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(data, '\n'), nil
}

// TemplateText lists the assessment areas and scoring rubric of a profile.
func TemplateText(p *profile.Profile) string {
	var b strings.Builder
	b.WriteString("Interview Feedback Template - Assessment Areas\n\n")
	b.WriteString("Scoring: 1 = worst, 5 = best\n\n")

	b.WriteString("Technical:\n")
	for _, area := range p.Technical {
		fmt.Fprintf(&b, "  - %s\n", area)
	}

	b.WriteString("\nNon-technical:\n")
	for _, area := range p.NonTechnical {
		fmt.Fprintf(&b, "  - %s\n", area)
	}

	if len(p.PersonalAssessment) > 0 {
		b.WriteString("\nPersonal Assessment:\n")
		for _, area := range p.PersonalAssessment {
			fmt.Fprintf(&b, "  - %s\n", area)
		}
	}

	fmt.Fprintf(&b, "\nOverall: Level (%s) + comment\n", strings.Join(p.OverallLevels, "/"))
	return b.String()
}

func writeTable(b *strings.Builder, title string, entries []feedback.ScoreEntry) {
	fmt.Fprintf(b, "## %s\n\n", title)
	b.WriteString("| Name | Evaluation | Comment |\n")
	b.WriteString("| --- | :---: | --- |\n")
	for _, s := range entries {
		fmt.Fprintf(b, "| %s | %s | %s |\n", escapeCell(s.Name), s.DisplayScore(), escapeCell(s.Comment))
	}
	b.WriteString("\n")
}

// escapeCell keeps free text from breaking table rows.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", " ")
}
