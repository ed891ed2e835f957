package session

import "fmt"

// Validate checks that a loaded session's phase agrees with the shape of
// its data. It returns human-readable issues and never fails: phase is
// persisted explicitly and stays authoritative.
func Validate(key string, s *Session) []string {
	var issues []string

	if s.ID != key {
		issues = append(issues, fmt.Sprintf("stored id %q differs from key %q", s.ID, key))
	}
	if !s.Phase.Valid() {
		return append(issues, fmt.Sprintf("unknown phase %q", s.Phase))
	}

	for i, r := range s.Iterations {
		if r.Round != i+1 {
			issues = append(issues, fmt.Sprintf("iterations[%d] has round %d, want %d", i, r.Round, i+1))
		}
	}

	rounds := len(s.Iterations)
	switch s.Phase {
	case PhaseContextGathering:
		if rounds > 0 {
			issues = append(issues, fmt.Sprintf("%d rounds before context was gathered", rounds))
		}
	case PhaseConceptGeneration:
		if s.Context == nil {
			issues = append(issues, "missing context")
		}
		if rounds > 0 {
			issues = append(issues, fmt.Sprintf("%d rounds before concept generation", rounds))
		}
	case PhaseFeedback, PhaseFinalization:
		if s.Context == nil {
			issues = append(issues, "missing context")
		}
		if rounds == 0 {
			issues = append(issues, "no rounds recorded")
		}
	case PhaseCompleted:
		if rounds == 0 {
			issues = append(issues, "no rounds recorded")
		}
		if s.Documentation == nil {
			issues = append(issues, "completed without documentation")
		}
	}

	return issues
}
