package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/embody-dev/embody/internal/session"
	"github.com/embody-dev/embody/internal/tokens"
)

func sampleSession() *session.Session {
	set := tokens.NewSet()
	set.Colors["color-primary"] = "#123456"
	set.SourceFiles = []string{"variables.css"}

	s := session.New("s-123", "/work/app", set, time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	s.Phase = session.PhaseCompleted
	s.Context = &session.Context{Goal: "calmer dashboard", Qualities: []string{"calm"}}
	s.Iterations = []session.Round{
		{Round: 1, Concepts: []session.Concept{{ID: "c1", Name: "Harbor", Description: "cool blues"}, {ID: "c2", Name: "Dune"}}},
		{Round: 2, Concepts: []session.Concept{{ID: "r2-a", Name: "Harbor Night"}}, Feedback: &session.Feedback{}, Confidence: 0.9, Learned: "prefers cool"},
	}
	s.SelectedConcept = "r2-a"
	s.Documentation = &session.Documentation{Markdown: "# Harbor Night", ArtifactPath: "/tmp/s-123/design-direction.md"}
	return s
}

func TestSessionSummary(t *testing.T) {
	out := SessionSummary(sampleSession())

	for _, want := range []string{
		"Session s-123",
		"completed",
		"/work/app",
		"colors 1, typography 0",
		"variables.css",
		"calmer dashboard",
		"Round 1",
		"Round 2",
		"confidence 0.90",
		"prefers cool",
		"Harbor Night",
		"design-direction.md",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSessionSummaryEmptyExtraction(t *testing.T) {
	s := session.New("s-1", "/nope", tokens.Empty(tokens.NoteNoFiles), time.Now())
	out := SessionSummary(s)
	if !strings.Contains(out, tokens.NoteNoFiles) {
		t.Errorf("note not shown:\n%s", out)
	}
	if strings.Contains(out, "Round") {
		t.Errorf("rounds shown for a fresh session:\n%s", out)
	}
}

func TestSessionTable(t *testing.T) {
	if out := SessionTable(nil); !strings.Contains(out, "No sessions") {
		t.Errorf("empty table = %q", out)
	}

	out := SessionTable([]session.Summary{
		{ID: "a", RepoPath: "/r/a", Phase: session.PhaseFeedback, Rounds: 2},
		{ID: "b", RepoPath: "/r/b", Phase: session.PhaseContextGathering},
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "feedback") || !strings.Contains(lines[0], "2 rounds") || !strings.Contains(lines[0], "/r/a") {
		t.Errorf("first row = %q", lines[0])
	}
}

func TestMarkdown(t *testing.T) {
	out, err := Markdown("# Harbor Night\n\nCalm and **cool**.", 60, false)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(out, "Harbor Night") || !strings.Contains(out, "cool") {
		t.Errorf("rendered markdown = %q", out)
	}
}

func TestWithSpinnerNonTTY(t *testing.T) {
	var buf bytes.Buffer
	ran := false
	err := WithSpinner(context.Background(), &buf, "thinking", func(ctx context.Context) error {
		ran = true
		return errors.New("agent failed")
	})
	if !ran {
		t.Fatal("fn did not run")
	}
	if err == nil || err.Error() != "agent failed" {
		t.Errorf("err = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("spinner wrote to a non-terminal: %q", buf.String())
	}
	if IsTTY(&buf) {
		t.Error("buffer reported as TTY")
	}
}
