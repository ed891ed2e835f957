package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestJournalAppendReadAll(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "s1"), 0755); err != nil {
		t.Fatal(err)
	}
	j := NewJournal(root)

	if err := j.Append(Event{Event: EventSessionCreated, Session: "s1", Tokens: 4}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := j.Append(Event{Event: EventConceptsRefined, Session: "s1", Round: 2, Confidence: 0.9}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := j.ReadAll("s1")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Event != EventSessionCreated || events[0].Tokens != 4 {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Round != 2 || events[1].Confidence != 0.9 {
		t.Errorf("second event = %+v", events[1])
	}
	if events[0].Time.IsZero() {
		t.Error("Append did not stamp time")
	}
}

func TestJournalMissingSession(t *testing.T) {
	j := NewJournal(t.TempDir())

	if err := j.Append(Event{Event: EventConceptsRefined, Session: "ghost"}); err == nil {
		t.Error("Append to a missing session directory succeeded")
	}
	if err := j.Append(Event{Event: EventConceptsRefined}); err == nil {
		t.Error("Append without session succeeded")
	}

	events, err := j.ReadAll("ghost")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestJournalConcurrentAppends(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "s1"), 0755); err != nil {
		t.Fatal(err)
	}
	j := NewJournal(root)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := j.Append(Event{Event: EventConceptsRefined, Session: "s1", Round: n + 1}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	events, err := j.ReadAll("s1")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 20 {
		t.Errorf("got %d events, want 20", len(events))
	}
}
