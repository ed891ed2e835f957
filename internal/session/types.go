// Package session provides the durable record of a design-exploration session.
package session

import (
	"time"

	"github.com/embody-dev/embody/internal/tokens"
)

// Phase is the state-machine state of a session.
type Phase string

// Phases in their required order. feedback is the only state that loops.
const (
	PhaseContextGathering  Phase = "context_gathering"
	PhaseConceptGeneration Phase = "concept_generation"
	PhaseFeedback          Phase = "feedback"
	PhaseFinalization      Phase = "finalization"
	PhaseCompleted         Phase = "completed"
)

var phaseOrder = map[Phase]int{
	PhaseContextGathering:  0,
	PhaseConceptGeneration: 1,
	PhaseFeedback:          2,
	PhaseFinalization:      3,
	PhaseCompleted:         4,
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Before reports whether p comes strictly earlier than other.
func (p Phase) Before(other Phase) bool {
	return phaseOrder[p] < phaseOrder[other]
}

// Session is the unit of persistence.
type Session struct {
	ID              string         `json:"session_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	RepoPath        string         `json:"repo_path"`
	ExtractedTokens tokens.Set     `json:"extracted_tokens"`
	Phase           Phase          `json:"phase"`
	Context         *Context       `json:"context,omitempty"`
	Iterations      []Round        `json:"iterations"`
	SelectedConcept string         `json:"selected_concept,omitempty"`
	Documentation   *Documentation `json:"documentation,omitempty"`
}

// Context holds designer intent and the agent's interpretation of it.
type Context struct {
	Goal         string         `json:"goal"`
	Qualities    []string       `json:"qualities"`
	Constraints  []string       `json:"constraints,omitempty"`
	ParsedIntent map[string]any `json:"parsed_intent,omitempty"`
	Guidance     map[string]any `json:"generation_guidance,omitempty"`
}

// Round is one generation or refinement pass. Round numbers start at 1.
type Round struct {
	Round      int       `json:"round"`
	Concepts   []Concept `json:"concepts"`
	Feedback   *Feedback `json:"feedback,omitempty"` // nil for round 1
	Confidence float64   `json:"confidence,omitempty"`
	Learned    string    `json:"learned,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Feedback is the designer's reaction to the previous round.
type Feedback struct {
	Liked    []string `json:"liked"`
	Disliked []string `json:"disliked"`
	Explored []string `json:"explored"`
}

// Concept is one candidate design direction.
type Concept struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Qualities     []string       `json:"qualities,omitempty"`
	Tokens        map[string]any `json:"tokens,omitempty"`
	Rationale     string         `json:"rationale,omitempty"`
	Accessibility any            `json:"accessibility,omitempty"`
}

// Documentation is the final artifact of a completed session.
type Documentation struct {
	Markdown       string         `json:"markdown"`
	FinalDirection map[string]any `json:"final_direction,omitempty"`
	ArtifactPath   string         `json:"artifact_path,omitempty"`
}

// Patch replaces whole top-level fields of a Session. Nil fields are left
// untouched. Identity fields and extracted tokens have no patch field.
type Patch struct {
	Phase           *Phase
	Context         *Context
	Iterations      *[]Round
	SelectedConcept *string
	Documentation   *Documentation
}

// New returns a session in the first phase.
func New(id, repoPath string, extracted tokens.Set, now time.Time) *Session {
	return &Session{
		ID:              id,
		CreatedAt:       now,
		UpdatedAt:       now,
		RepoPath:        repoPath,
		ExtractedTokens: extracted,
		Phase:           PhaseContextGathering,
		Iterations:      []Round{},
	}
}

// Apply merges p into s.
func (s *Session) Apply(p Patch) {
	if p.Phase != nil {
		s.Phase = *p.Phase
	}
	if p.Context != nil {
		s.Context = p.Context
	}
	if p.Iterations != nil {
		s.Iterations = *p.Iterations
	}
	if p.SelectedConcept != nil {
		s.SelectedConcept = *p.SelectedConcept
	}
	if p.Documentation != nil {
		s.Documentation = p.Documentation
	}
}

// LastRound returns the most recent round, or nil when there is none.
func (s *Session) LastRound() *Round {
	if len(s.Iterations) == 0 {
		return nil
	}
	return &s.Iterations[len(s.Iterations)-1]
}

// FindConcept looks a concept up by id across all rounds, newest first.
func (s *Session) FindConcept(id string) (*Concept, bool) {
	for i := len(s.Iterations) - 1; i >= 0; i-- {
		r := &s.Iterations[i]
		for j := range r.Concepts {
			if r.Concepts[j].ID == id {
				return &r.Concepts[j], true
			}
		}
	}
	return nil, false
}
