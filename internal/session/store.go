package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"
)

const stateFile = "state.json"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// Store persists one JSON snapshot per session under dir/<id>/state.json.
// Disk is authoritative: nothing is cached between calls.
type Store struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates the sessions directory if needed and returns a Store
// rooted there. logger may be nil.
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Root returns the sessions directory.
func (s *Store) Root() string {
	return s.dir
}

// Dir returns the directory holding one session's files.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.dir, id)
}

// ValidateID checks that id is usable as a single path component.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Save writes a full snapshot. The write goes to a temp file in the same
// directory and is renamed into place, so a reader sees either the old or
// the new snapshot.
func (s *Store) Save(sess *Session) error {
	if err := ValidateID(sess.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return &IOError{SessionID: sess.ID, Op: "marshal state", Err: err}
	}

	dir := s.Dir(sess.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &IOError{SessionID: sess.ID, Op: "create session directory", Err: err}
	}
	if err := writeFileAtomic(filepath.Join(dir, stateFile), data, 0644); err != nil {
		return &IOError{SessionID: sess.ID, Op: "write state", Err: err}
	}
	return nil
}

// Load reads a snapshot. It returns ErrNotFound when none exists and a
// *DecodeError when the file is not a valid snapshot. Phase/shape
// inconsistencies are logged, never returned.
func (s *Store) Load(id string) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(id), stateFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, &IOError{SessionID: id, Op: "read state", Err: err}
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, &DecodeError{SessionID: id, Err: err}
	}
	if sess.Iterations == nil {
		sess.Iterations = []Round{}
	}

	for _, issue := range Validate(id, &sess) {
		s.logger.Warn("inconsistent session state",
			zap.String("session", id),
			zap.String("phase", string(sess.Phase)),
			zap.String("issue", issue))
	}

	return &sess, nil
}

// Exists reports whether a snapshot exists without decoding it.
func (s *Store) Exists(id string) bool {
	if ValidateID(id) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.Dir(id), stateFile))
	return err == nil && info.Mode().IsRegular()
}

// Update is a read-merge-write: it loads the current snapshot, replaces
// the patched top-level fields, stamps UpdatedAt and saves. It is not safe
// under concurrent writers to the same id; callers hold a Locks entry.
func (s *Store) Update(id string, p Patch) (*Session, error) {
	sess, err := s.Load(id)
	if err != nil {
		return nil, err
	}

	sess.Apply(p)
	sess.UpdatedAt = s.now()

	if err := s.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// WriteArtifact atomically writes a file next to the session's snapshot
// and returns its path.
func (s *Store) WriteArtifact(id, name string, data []byte) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	if name == "" || name != filepath.Base(name) || name == stateFile {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}

	dir := s.Dir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &IOError{SessionID: id, Op: "create session directory", Err: err}
	}
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return "", &IOError{SessionID: id, Op: "write artifact", Err: err}
	}
	return path, nil
}

// List returns the ids of every stored session, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() || !s.Exists(entry.Name()) {
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a session and all its artifacts.
func (s *Store) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if !s.Exists(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := os.RemoveAll(s.Dir(id)); err != nil {
		return &IOError{SessionID: id, Op: "delete", Err: err}
	}
	return nil
}

// writeFileAtomic writes data to a temp file in path's directory, syncs
// it and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
