package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"btxconv/internal/domain/texture"
	"github.com/gofrs/flock"
)

const sweepLockFile = ".sweep.lock"

// SweepStale removes workspaces and output entries older than maxAge. Another
// process holding the sweep lock makes this call a no-op with Skipped set.
func (s *Store) SweepStale(maxAge time.Duration) (texture.SweepResult, error) {
	result := texture.SweepResult{}

	lock := flock.New(filepath.Join(s.UploadsDir, sweepLockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return result, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		result.Skipped = true
		return result, nil
	}
	defer func() { _ = lock.Unlock() }()

	cutoff := time.Now().Add(-maxAge)
	s.sweepDir(s.UploadsDir, cutoff, &result)
	s.sweepDir(s.OutputsDir, cutoff, &result)
	return result, nil
}

func (s *Store) sweepDir(root string, cutoff time.Time, result *texture.SweepResult) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, texture.SweepError{Path: root, Error: err})
		}
		return
	}

	for _, entry := range entries {
		if entry.Name() == sweepLockFile {
			continue
		}
		entryPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, texture.SweepError{Path: entryPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(entryPath); err != nil {
			result.Errors = append(result.Errors, texture.SweepError{Path: entryPath, Error: err})
			continue
		}
		result.Removed = append(result.Removed, entryPath)
	}
}
