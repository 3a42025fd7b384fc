package texture

import (
	"fmt"
	"io"
)

// UploadedFile is a file received from a client and not yet staged.
type UploadedFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Result describes a produced artifact waiting in the output area.
type Result struct {
	Name     string
	Path     string
	Size     int64
	Checksum string
}

// FileError records a failed file without affecting the rest of the batch.
type FileError struct {
	File    string
	Message string
}

// BatchReport aggregates job outcomes in input order.
type BatchReport struct {
	ID        string
	Direction Direction
	Total     int
	Results   []Result
	Errors    []FileError
}

// Succeeded reports whether at least one file converted.
func (r BatchReport) Succeeded() bool {
	return len(r.Results) > 0
}

// Summary returns the caller-facing outcome line.
func (r BatchReport) Summary() string {
	if !r.Succeeded() {
		return "All conversions failed"
	}
	return fmt.Sprintf("Converted %d/%d files", len(r.Results), r.Total)
}
