// Package cleanup prunes stale design sessions.
package cleanup

import (
	"fmt"
	"sort"
	"time"

	"github.com/embody-dev/embody/internal/session"
)

// Sessions is the read side of the session store.
type Sessions interface {
	List() ([]string, error)
	Load(id string) (*session.Session, error)
}

// DeleteFunc removes one session.
type DeleteFunc func(id string) error

type entry struct {
	id      string
	updated time.Time
}

// scan loads every readable session. Sessions whose state cannot be read
// are never pruned.
func scan(s Sessions) ([]entry, error) {
	ids, err := s.List()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Load(id)
		if err != nil {
			continue
		}
		entries = append(entries, entry{id: id, updated: sess.UpdatedAt})
	}
	return entries, nil
}

// PruneByAge removes sessions not updated within maxAgeDays.
// If dryRun is true, nothing is deleted; the function only returns the ids
// that would be removed.
func PruneByAge(s Sessions, del DeleteFunc, maxAgeDays int, dryRun bool) ([]string, error) {
	entries, err := scan(s)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	var pruned []string
	for _, e := range entries {
		if !e.updated.Before(cutoff) {
			continue
		}
		if !dryRun {
			if err := del(e.id); err != nil {
				return pruned, fmt.Errorf("removing %s: %w", e.id, err)
			}
		}
		pruned = append(pruned, e.id)
	}
	return pruned, nil
}

// PruneKeepRecent removes all but the keep most recently updated
// sessions, oldest first. If dryRun is true, nothing is deleted.
func PruneKeepRecent(s Sessions, del DeleteFunc, keep int, dryRun bool) ([]string, error) {
	entries, err := scan(s)
	if err != nil {
		return nil, err
	}
	if len(entries) <= keep {
		return nil, nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].updated.Before(entries[j].updated)
	})

	var pruned []string
	for _, e := range entries[:len(entries)-keep] {
		if !dryRun {
			if err := del(e.id); err != nil {
				return pruned, fmt.Errorf("removing %s: %w", e.id, err)
			}
		}
		pruned = append(pruned, e.id)
	}
	return pruned, nil
}
