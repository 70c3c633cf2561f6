// Package review implements the interactive score adjustment pass that runs
// between report generation and rendering.
package review

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"feedbackgen/internal/feedback"
	"feedbackgen/internal/profile"
	"feedbackgen/internal/render"
)

// Reviewer walks a generated report area by area and lets the interviewer
// adjust scores and comments before the report is written out.
type Reviewer struct {
	in  *bufio.Scanner
	out io.Writer

	// selectLevel picks the overall level; swapped out in tests.
	selectLevel func(levels []string, current string) (string, error)
}

func New(in io.Reader, out io.Writer) *Reviewer {
	r := &Reviewer{
		in:  bufio.NewScanner(in),
		out: out,
	}
	r.selectLevel = r.promptLevel
	return r
}

// Run shows the report and prompts per area: a digit replaces the score,
// "n" marks the area not evaluated, Enter keeps it as is, and "q" keeps
// everything that is left. The overall level and comment are confirmed
// last. The report is modified in place.
func (r *Reviewer) Run(report *feedback.Report, p *profile.Profile) error {
	fmt.Fprint(r.out, render.Text(report))
	fmt.Fprintln(r.out, "Review the scores above. For each area, enter a new score (1-5), 'n' for N/A, or Enter to keep. Type 'q' to skip remaining and finish.")
	fmt.Fprintln(r.out)

	sections := [][]feedback.ScoreEntry{
		report.TechnicalScores,
		report.NonTechnicalScores,
		report.PersonalAssessmentScores,
	}

	done := false
	for _, entries := range sections {
		for i := range entries {
			if done {
				break
			}
			proceed, err := r.reviewEntry(&entries[i])
			if err != nil {
				return err
			}
			if !proceed {
				done = true
			}
		}
	}

	level, err := r.selectLevel(p.OverallLevels, report.OverallLevel)
	if err != nil {
		return err
	}
	if slices.Contains(p.OverallLevels, level) {
		report.OverallLevel = level
	}

	fmt.Fprintf(r.out, "Overall comment [%s]: ", report.OverallComment)
	comment, err := r.readLine()
	if err != nil {
		return err
	}
	if comment != "" {
		report.OverallComment = comment
	}

	return nil
}

// reviewEntry prompts for one entry until the input is usable. It returns
// false when the interviewer asked to keep everything that is left.
func (r *Reviewer) reviewEntry(entry *feedback.ScoreEntry) (bool, error) {
	for {
		fmt.Fprintf(r.out, "%s [%s]: ", entry.Name, entry.DisplayScore())
		input, err := r.readLine()
		if err != nil {
			return false, err
		}

		lowered := strings.ToLower(input)
		if lowered == "q" {
			return false, nil
		}
		if strings.TrimSpace(input) == "" {
			return true, nil
		}
		if lowered == "n" {
			entry.Score = nil
			entry.Comment = feedback.NotEvaluatedComment
			return true, nil
		}

		score, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			fmt.Fprintln(r.out, "Enter 1-5, 'n' for N/A, Enter to keep, or 'q' to finish.")
			continue
		}
		if score < 1 || score > 5 {
			fmt.Fprintln(r.out, "Score must be between 1 and 5.")
			continue
		}

		fmt.Fprintf(r.out, "  Comment [%s]: ", entry.Comment)
		comment, err := r.readLine()
		if err != nil {
			return false, err
		}
		entry.Score = &score
		if comment != "" {
			entry.Comment = comment
		}
		return true, nil
	}
}

func (r *Reviewer) readLine() (string, error) {
	if !r.in.Scan() {
		if err := r.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.in.Text(), nil
}

func (r *Reviewer) promptLevel(levels []string, current string) (string, error) {
	position := 0
	for i, level := range levels {
		if level == current {
			position = i
		}
	}

	prompt := promptui.Select{
		Label:     fmt.Sprintf("Overall level [%s]", current),
		Items:     levels,
		CursorPos: position,
		HideHelp:  true,
	}

	_, picked, err := prompt.Run()
	return picked, err
}
