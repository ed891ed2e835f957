package session

import (
	"testing"

	"github.com/embody-dev/embody/internal/tokens"
)

func TestValidate(t *testing.T) {
	ctx := &Context{Goal: "g", Qualities: []string{"calm"}}
	round := func(n int) Round { return Round{Round: n, Concepts: []Concept{{ID: "c"}}} }

	tests := []struct {
		name   string
		mutate func(s *Session)
		issues int
	}{
		{"fresh session", func(s *Session) {}, 0},
		{"generation with context", func(s *Session) {
			s.Phase = PhaseConceptGeneration
			s.Context = ctx
		}, 0},
		{"generation without context", func(s *Session) {
			s.Phase = PhaseConceptGeneration
		}, 1},
		{"feedback with rounds", func(s *Session) {
			s.Phase = PhaseFeedback
			s.Context = ctx
			s.Iterations = []Round{round(1), round(2)}
		}, 0},
		{"feedback without rounds", func(s *Session) {
			s.Phase = PhaseFeedback
			s.Context = ctx
		}, 1},
		{"misnumbered rounds", func(s *Session) {
			s.Phase = PhaseFeedback
			s.Context = ctx
			s.Iterations = []Round{round(1), round(3)}
		}, 1},
		{"rounds before context", func(s *Session) {
			s.Iterations = []Round{round(1)}
		}, 1},
		{"completed without docs", func(s *Session) {
			s.Phase = PhaseCompleted
			s.Context = ctx
			s.Iterations = []Round{round(1)}
		}, 1},
		{"unknown phase", func(s *Session) {
			s.Phase = "drafting"
		}, 1},
		{"id mismatch", func(s *Session) {
			s.ID = "other"
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("s1", "/repo", tokens.NewSet(), fixedTime())
			tt.mutate(s)
			got := Validate("s1", s)
			if len(got) != tt.issues {
				t.Errorf("Validate() = %v, want %d issue(s)", got, tt.issues)
			}
		})
	}
}

func TestPhaseOrder(t *testing.T) {
	order := []Phase{PhaseContextGathering, PhaseConceptGeneration, PhaseFeedback, PhaseFinalization, PhaseCompleted}
	for i := 1; i < len(order); i++ {
		if !order[i-1].Before(order[i]) {
			t.Errorf("%s should come before %s", order[i-1], order[i])
		}
		if order[i].Before(order[i-1]) {
			t.Errorf("%s should not come before %s", order[i], order[i-1])
		}
	}
	if Phase("bogus").Valid() {
		t.Error("unknown phase reported valid")
	}
}

func TestFindConceptNewestFirst(t *testing.T) {
	s := New("s1", "/repo", tokens.NewSet(), fixedTime())
	s.Iterations = []Round{
		{Round: 1, Concepts: []Concept{{ID: "c1", Name: "old"}}},
		{Round: 2, Concepts: []Concept{{ID: "c1", Name: "new"}, {ID: "c2"}}},
	}

	c, ok := s.FindConcept("c1")
	if !ok || c.Name != "new" {
		t.Errorf("FindConcept(c1) = %+v, %v; want newest", c, ok)
	}
	if _, ok := s.FindConcept("c9"); ok {
		t.Error("FindConcept(c9) found a concept")
	}
	if s.LastRound().Round != 2 {
		t.Errorf("LastRound() = %d, want 2", s.LastRound().Round)
	}
}
