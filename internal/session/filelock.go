package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const lockFile = ".lock"

// lockRetry is how often a blocked Lock polls for the file lock.
const lockRetry = 10 * time.Millisecond

// Lock takes an exclusive OS file lock on dir/<id>/.lock, so mutations from
// separate processes sharing the sessions directory are serialized. It
// blocks until the lock is held or ctx is done. The returned function
// releases the lock and must be called exactly once.
func (s *Store) Lock(ctx context.Context, id string) (func(), error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if !s.Exists(id) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	fl := flock.New(filepath.Join(s.Dir(id), lockFile))
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil || !ok {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The session directory went away while we were waiting.
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, &IOError{SessionID: id, Op: "lock", Err: err}
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("release session lock failed",
				zap.String("session", id), zap.Error(err))
		}
	}, nil
}
