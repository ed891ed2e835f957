// Package log provides the per-session event journal.
// Each session directory carries an append-only events.jsonl next to its
// state snapshot.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the journal file inside a session directory.
const FileName = "events.jsonl"

// Event type constants.
const (
	EventSessionCreated     = "session_created"
	EventContextGathered    = "context_gathered"
	EventConceptsGenerated  = "concepts_generated"
	EventConceptsRefined    = "concepts_refined"
	EventDirectionFinalized = "direction_finalized"
	EventPhaseFailed        = "phase_failed"
)

// Event is one line of the journal.
type Event struct {
	Time       time.Time      `json:"time"`
	Event      string         `json:"event"`
	Session    string         `json:"session"`
	Phase      string         `json:"phase,omitempty"`
	Round      int            `json:"round,omitempty"`
	Concepts   int            `json:"concepts,omitempty"`
	Tokens     int            `json:"tokens,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Selected   string         `json:"selected,omitempty"`
	Op         string         `json:"op,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Journal appends events to events.jsonl under a sessions root.
type Journal struct {
	root string
	mu   sync.Mutex
}

// NewJournal returns a Journal writing beneath root/<session>/.
func NewJournal(root string) *Journal {
	return &Journal{root: root}
}

func (j *Journal) path(session string) string {
	return filepath.Join(j.root, session, FileName)
}

// Append writes one event as a JSON line. A zero Time is stamped with
// time.Now().UTC(). The session directory must already exist.
func (j *Journal) Append(event Event) error {
	if event.Session == "" {
		return errors.New("journal event without session")
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path(event.Session), os.O_APPEND|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrNotExist) {
		if _, statErr := os.Stat(filepath.Join(j.root, event.Session)); statErr != nil {
			return fmt.Errorf("open journal: %w", statErr)
		}
		f, err = os.OpenFile(j.path(event.Session), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// ReadAll returns every event recorded for a session, oldest first.
// A missing journal yields an empty slice.
func (j *Journal) ReadAll(session string) ([]Event, error) {
	f, err := os.Open(j.path(session))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Event{}, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	events := []Event{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse journal line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	return events, nil
}
