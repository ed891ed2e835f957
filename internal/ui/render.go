package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/embody-dev/embody/internal/session"
	"github.com/embody-dev/embody/internal/tokens"
)

// SessionSummary renders the state of one session.
func SessionSummary(s *session.Session) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Session "+s.ID) + "\n")
	row(&b, "phase", PhaseStyle(s.Phase).Render(string(s.Phase)))
	row(&b, "repo", s.RepoPath)
	row(&b, "updated", s.UpdatedAt.Local().Format(time.DateTime))
	row(&b, "tokens", tokenCounts(s.ExtractedTokens))
	if len(s.ExtractedTokens.SourceFiles) > 0 {
		row(&b, "sources", strings.Join(s.ExtractedTokens.SourceFiles, ", "))
	}
	if s.ExtractedTokens.Note != "" {
		row(&b, "note", WarningStyle.Render(s.ExtractedTokens.Note))
	}
	if s.Context != nil {
		row(&b, "goal", s.Context.Goal)
		if len(s.Context.Qualities) > 0 {
			row(&b, "qualities", strings.Join(s.Context.Qualities, ", "))
		}
	}

	for _, r := range s.Iterations {
		b.WriteString("\n")
		b.WriteString(RoundSummary(&r, s.SelectedConcept))
	}

	if s.Documentation != nil && s.Documentation.ArtifactPath != "" {
		b.WriteString("\n")
		row(&b, "direction", SuccessStyle.Render(s.Documentation.ArtifactPath))
	}
	return b.String()
}

// RoundSummary renders one round's concepts in a box.
func RoundSummary(r *session.Round, selected string) string {
	var b strings.Builder
	header := fmt.Sprintf("Round %d", r.Round)
	if r.Feedback != nil {
		header += fmt.Sprintf("  confidence %.2f", r.Confidence)
	}
	b.WriteString(TitleStyle.Render(header) + "\n")
	if r.Learned != "" {
		b.WriteString(DimStyle.Render(r.Learned) + "\n")
	}
	for _, c := range r.Concepts {
		marker := "  "
		if c.ID == selected {
			marker = SuccessStyle.Render("* ")
		}
		line := fmt.Sprintf("%s%s %s", marker, lipgloss.NewStyle().Bold(true).Render(c.ID), c.Name)
		if c.Description != "" {
			line += DimStyle.Render("  " + c.Description)
		}
		b.WriteString(line + "\n")
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

// SessionTable renders index rows, one line per session.
func SessionTable(rows []session.Summary) string {
	if len(rows) == 0 {
		return DimStyle.Render("No sessions.") + "\n"
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			r.ID,
			PhaseStyle(r.Phase).Render(fmt.Sprintf("%-18s", r.Phase)),
			DimStyle.Render(fmt.Sprintf("%2d rounds", r.Rounds)),
			r.RepoPath)
	}
	return b.String()
}

// Markdown renders a design-direction document for the terminal.
func Markdown(md string, width int, styled bool) (string, error) {
	style := "notty"
	if styled {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(LabelStyle.Render(label) + value + "\n")
}

func tokenCounts(set tokens.Set) string {
	parts := make([]string, 0, len(tokens.Categories))
	for _, c := range tokens.Categories {
		parts = append(parts, fmt.Sprintf("%s %d", c, len(set.Category(c))))
	}
	return strings.Join(parts, ", ")
}
