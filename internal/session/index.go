package session

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Index is a queryable SQLite listing of sessions. It is derived data:
// the JSON snapshots stay authoritative and the index can be rebuilt
// from them at any time.
type Index struct {
	db *sql.DB
}

// Summary provides a high-level view of a session for listing.
type Summary struct {
	ID              string
	RepoPath        string
	Phase           Phase
	Rounds          int
	SelectedConcept string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OpenIndex opens the SQLite database at dbPath and creates tables if they don't exist.
func OpenIndex(dbPath string) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Index{db: db}, nil
}

// Close closes the database connection.
func (ix *Index) Close() error {
	return ix.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		repo_path TEXT NOT NULL,
		phase TEXT NOT NULL,
		rounds INTEGER NOT NULL DEFAULT 0,
		selected_concept TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert records the current shape of a session.
func (ix *Index) Upsert(s *Session) error {
	_, err := ix.db.Exec(
		`INSERT INTO sessions (id, repo_path, phase, rounds, selected_concept, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   phase = excluded.phase,
		   rounds = excluded.rounds,
		   selected_concept = excluded.selected_concept,
		   updated_at = excluded.updated_at`,
		s.ID, s.RepoPath, string(s.Phase), len(s.Iterations), s.SelectedConcept, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Remove deletes a session from the index. Removing an unknown id is not
// an error.
func (ix *Index) Remove(id string) error {
	if _, err := ix.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns summaries of the most recently updated sessions.
func (ix *Index) List(limit int) ([]Summary, error) {
	rows, err := ix.db.Query(
		`SELECT id, repo_path, phase, rounds, selected_concept, created_at, updated_at
		 FROM sessions
		 ORDER BY updated_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		var phase string
		if err := rows.Scan(&sum.ID, &sum.RepoPath, &phase, &sum.Rounds, &sum.SelectedConcept, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.Phase = Phase(phase)
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return summaries, nil
}

// Rebuild replaces the index contents with what is on disk. Snapshots that
// fail to load are skipped and counted.
func (ix *Index) Rebuild(store *Store) (indexed, skipped int, err error) {
	ids, err := store.List()
	if err != nil {
		return 0, 0, err
	}

	if _, err := ix.db.Exec(`DELETE FROM sessions`); err != nil {
		return 0, 0, fmt.Errorf("clear index: %w", err)
	}

	for _, id := range ids {
		sess, loadErr := store.Load(id)
		if loadErr != nil {
			skipped++
			continue
		}
		if err := ix.Upsert(sess); err != nil {
			return indexed, skipped, err
		}
		indexed++
	}
	return indexed, skipped, nil
}
