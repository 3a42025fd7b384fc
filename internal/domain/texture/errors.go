package texture

import "errors"

var (
	// ErrMalformedInput reports a container too short to hold the BTX header.
	ErrMalformedInput = errors.New("malformed input")
	// ErrStaging reports I/O failures while writing or reading workspace files.
	ErrStaging = errors.New("staging failure")
	// ErrConversionFailed reports a non-zero exit, a timeout, or a missing output file.
	ErrConversionFailed = errors.New("conversion failed")
	// ErrNotFound reports a download of an absent or already consumed artifact.
	ErrNotFound = errors.New("file not found")

	ErrInvalidName     = errors.New("invalid file name")
	ErrUnsupportedType = errors.New("unsupported file type")
)
