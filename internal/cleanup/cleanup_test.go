package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/embody-dev/embody/internal/session"
	"github.com/embody-dev/embody/internal/tokens"
)

func newStore(t *testing.T) *session.Store {
	t.Helper()
	store, err := session.NewStore(filepath.Join(t.TempDir(), "sessions"), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

// createSession stores a session last updated at ts.
func createSession(t *testing.T, store *session.Store, id string, ts time.Time) string {
	t.Helper()
	s := session.New(id, "/repo", tokens.NewSet(), ts.UTC())
	if err := store.Save(s); err != nil {
		t.Fatalf("saving %s: %v", id, err)
	}
	return id
}

func TestPruneByAge_RemovesOldSessions(t *testing.T) {
	store := newStore(t)

	now := time.Now()
	old := createSession(t, store, "old", now.AddDate(0, 0, -60))
	recent := createSession(t, store, "recent", now.AddDate(0, 0, -5))

	pruned, err := PruneByAge(store, store.Delete, 30, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}

	if len(pruned) != 1 || pruned[0] != old {
		t.Errorf("expected pruned=[%s], got %v", old, pruned)
	}
	if store.Exists(old) {
		t.Errorf("expected %s to be deleted", old)
	}
	if !store.Exists(recent) {
		t.Errorf("expected %s to still exist", recent)
	}
}

func TestPruneByAge_DryRun(t *testing.T) {
	store := newStore(t)
	old := createSession(t, store, "old", time.Now().AddDate(0, 0, -60))

	pruned, err := PruneByAge(store, store.Delete, 30, true)
	if err != nil {
		t.Fatalf("PruneByAge dry-run failed: %v", err)
	}

	if len(pruned) != 1 || pruned[0] != old {
		t.Errorf("expected pruned=[%s], got %v", old, pruned)
	}
	if !store.Exists(old) {
		t.Errorf("expected %s to still exist in dry-run", old)
	}
}

func TestPruneByAge_SkipsCorruptSessions(t *testing.T) {
	store := newStore(t)

	dir := store.Dir("corrupt")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "state.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	pruned, err := PruneByAge(store, store.Delete, 0, false)
	if err != nil {
		t.Fatalf("PruneByAge failed: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected no pruned sessions, got %v", pruned)
	}
	if !store.Exists("corrupt") {
		t.Error("corrupt session was removed")
	}
}

func TestPruneByAge_DeleteError(t *testing.T) {
	store := newStore(t)
	createSession(t, store, "old", time.Now().AddDate(0, 0, -60))

	boom := errors.New("boom")
	_, err := PruneByAge(store, func(string) error { return boom }, 30, false)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped delete error, got %v", err)
	}
}

func TestPruneKeepRecent_KeepsCorrectCount(t *testing.T) {
	store := newStore(t)

	now := time.Now()
	// Ids sort opposite to age so ordering must come from updated_at.
	d1 := createSession(t, store, "d", now.AddDate(0, 0, -4))
	d2 := createSession(t, store, "c", now.AddDate(0, 0, -3))
	createSession(t, store, "b", now.AddDate(0, 0, -2))
	createSession(t, store, "a", now.AddDate(0, 0, -1))

	pruned, err := PruneKeepRecent(store, store.Delete, 2, false)
	if err != nil {
		t.Fatalf("PruneKeepRecent failed: %v", err)
	}

	if len(pruned) != 2 || pruned[0] != d1 || pruned[1] != d2 {
		t.Errorf("expected pruned=[%s, %s], got %v", d1, d2, pruned)
	}

	ids, _ := store.List()
	if len(ids) != 2 {
		t.Errorf("expected 2 remaining sessions, got %v", ids)
	}
}

func TestPruneKeepRecent_KeepMoreThanExist(t *testing.T) {
	store := newStore(t)
	createSession(t, store, "only", time.Now().AddDate(0, 0, -1))

	pruned, err := PruneKeepRecent(store, store.Delete, 5, false)
	if err != nil {
		t.Fatalf("PruneKeepRecent failed: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected no pruned sessions, got %v", pruned)
	}
}

func TestPruneKeepRecent_DryRun(t *testing.T) {
	store := newStore(t)

	now := time.Now()
	d1 := createSession(t, store, "older", now.AddDate(0, 0, -3))
	createSession(t, store, "newer", now.AddDate(0, 0, -1))

	pruned, err := PruneKeepRecent(store, store.Delete, 1, true)
	if err != nil {
		t.Fatalf("PruneKeepRecent dry-run failed: %v", err)
	}
	if len(pruned) != 1 || pruned[0] != d1 {
		t.Errorf("expected pruned=[%s], got %v", d1, pruned)
	}

	ids, _ := store.List()
	if len(ids) != 2 {
		t.Errorf("expected 2 sessions to remain in dry-run, got %d", len(ids))
	}
}

func TestPrune_EmptyStore(t *testing.T) {
	store := newStore(t)

	if pruned, err := PruneByAge(store, store.Delete, 30, false); err != nil || len(pruned) != 0 {
		t.Errorf("PruneByAge on empty store = %v, %v", pruned, err)
	}
	if pruned, err := PruneKeepRecent(store, store.Delete, 0, false); err != nil || len(pruned) != 0 {
		t.Errorf("PruneKeepRecent on empty store = %v, %v", pruned, err)
	}
}
