package feedback

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"feedbackgen/internal/llm"
	"feedbackgen/internal/logger"
	"feedbackgen/internal/profile"
)

const maxLogLength = 200

// Generator runs the notes-to-report pipeline against a single backend.
// It holds no per-call state and is safe to reuse across candidates.
type Generator struct {
	backend   llm.Backend
	logger    *zap.Logger
	maxLogLen int
}

func NewGenerator(backend llm.Backend, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}

	return &Generator{
		backend:   backend,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Generate analyzes interview notes and returns a schema-complete report
// covering every area of the profile. Backend and parse failures propagate
// unchanged so the caller can distinguish them.
func (g *Generator) Generate(ctx context.Context, p *profile.Profile, candidateName, notes string) (*Report, error) {
	systemPrompt := BuildSystemPrompt(p)
	userPrompt := BuildUserPrompt(p, candidateName, notes)

	g.logger.Debug("requesting feedback analysis",
		zap.String("candidate", candidateName),
		zap.String(logger.FieldModel, g.backend.Model()),
		zap.Int("prompt_length", utf8.RuneCountInString(userPrompt)),
		zap.String("prompt_preview", logger.TruncateForLog(userPrompt, g.maxLogLen)),
	)

	reply, err := g.backend.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("feedback analysis reply",
		zap.Int("response_length", utf8.RuneCountInString(reply)),
		zap.String("response_preview", logger.TruncateForLog(reply, g.maxLogLen)),
	)

	return Normalize(reply, p, candidateName)
}

// EvaluateFeedback asks the backend to review a finished report together
// with the notes it came from and returns a plain-text meta-evaluation of
// the interviewer's feedback.
func (g *Generator) EvaluateFeedback(ctx context.Context, r *Report, notes string) (string, error) {
	userPrompt := BuildCoachPrompt(r, notes)

	g.logger.Debug("requesting feedback evaluation",
		zap.String("candidate", r.CandidateName),
		zap.String(logger.FieldModel, g.backend.Model()),
		zap.Int("prompt_length", utf8.RuneCountInString(userPrompt)),
	)

	reply, err := g.backend.Complete(ctx, coachSystemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	g.logger.Debug("feedback evaluation reply",
		zap.Int("response_length", utf8.RuneCountInString(reply)),
		zap.String("response_preview", logger.TruncateForLog(reply, g.maxLogLen)),
	)

	return strings.TrimSpace(reply), nil
}

// formatReportForEvaluation flattens a report to the text block embedded in
// the coach prompt.
func formatReportForEvaluation(r *Report) string {
	lines := []string{
		"Candidate: " + r.CandidateName,
		"Overall level: " + r.OverallLevel,
		"Overall comment: " + r.OverallComment,
		"",
		"Technical scores:",
	}
	for _, s := range r.TechnicalScores {
		lines = append(lines, fmt.Sprintf("  - %s: %s - %s", s.Name, s.DisplayScore(), s.Comment))
	}
	lines = append(lines, "", "Non-technical scores:")
	for _, s := range r.NonTechnicalScores {
		lines = append(lines, fmt.Sprintf("  - %s: %s - %s", s.Name, s.DisplayScore(), s.Comment))
	}
	return strings.Join(lines, "\n")
}
