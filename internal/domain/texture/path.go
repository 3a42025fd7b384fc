package texture

import (
	"fmt"
	"path"
	"strings"
)

// NormalizeUploadName reduces a client-supplied file name to a safe base name.
// Hidden names are rejected; the output area uses them for in-flight files.
func NormalizeUploadName(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", ErrInvalidName
	}

	value = strings.ReplaceAll(value, "\\", "/")
	base := path.Base(path.Clean("/" + value))
	if base == "" || base == "/" || strings.HasPrefix(base, ".") {
		return "", ErrInvalidName
	}
	if strings.ContainsRune(base, 0) {
		return "", ErrInvalidName
	}
	return base, nil
}

// BaseName strips the final extension from name.
func BaseName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// OutputName derives the artifact name for a source file.
func OutputName(name string, d Direction) string {
	return BaseName(name) + d.TargetExt()
}

// CheckExtension verifies that name carries the source extension for d.
func CheckExtension(name string, d Direction) error {
	ext := strings.ToLower(path.Ext(name))
	if ext != d.SourceExt() {
		return fmt.Errorf("%w: %q, expected %s", ErrUnsupportedType, name, d.SourceExt())
	}
	return nil
}
