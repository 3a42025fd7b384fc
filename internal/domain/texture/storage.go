package texture

import "path/filepath"

// Workspace is a directory owned by exactly one conversion job.
type Workspace struct {
	ID  string
	Dir string
}

// Path returns the location of name inside the workspace.
func (w Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// ClaimedArtifact is an output taken out of the download namespace for a
// single read. Path points at its private claim location.
type ClaimedArtifact struct {
	Name     string
	Path     string
	Size     int64
	Checksum string
}

// SweepResult contains the outcome of a stale artifact cleanup.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
	Skipped bool
}

// SweepError pairs a path with its cleanup error.
type SweepError struct {
	Path  string
	Error error
}
