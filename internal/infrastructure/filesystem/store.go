package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"btxconv/internal/domain/texture"
	"github.com/google/uuid"
)

const (
	claimPrefix   = ".claim-"
	partialPrefix = ".partial-"
)

// Store manages job workspaces and the shared output area.
type Store struct {
	UploadsDir     string
	OutputsDir     string
	IsolateOutputs bool
}

// NewStore creates filesystem adapter with configured roots.
func NewStore(uploadsDir, outputsDir string, isolateOutputs bool) *Store {
	return &Store{UploadsDir: uploadsDir, OutputsDir: outputsDir, IsolateOutputs: isolateOutputs}
}

// EnsureDirs creates filesystem roots used by service.
func (s *Store) EnsureDirs() error {
	if err := os.MkdirAll(s.UploadsDir, 0o755); err != nil {
		return err
	}
	return os.MkdirAll(s.OutputsDir, 0o755)
}

// NewWorkspace creates uploads/<uuid>. Mkdir fails on an existing directory,
// so two jobs never share one.
func (s *Store) NewWorkspace() (texture.Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.UploadsDir, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return texture.Workspace{}, fmt.Errorf("%w: create workspace: %v", texture.ErrStaging, err)
	}
	return texture.Workspace{ID: id, Dir: dir}, nil
}

// ReleaseWorkspace removes the workspace. Errors are ignored.
func (s *Store) ReleaseWorkspace(ws texture.Workspace) {
	if ws.Dir == "" || !isWithinDir(s.UploadsDir, ws.Dir) {
		return
	}
	_ = os.RemoveAll(ws.Dir)
}

// OutputPath returns the download reference and absolute location for an
// artifact produced by job jobID of batch batchID. Isolated outputs live in
// <batchID>/<jobID>/<name>, so two jobs never share an artifact path even
// when their uploads carry the same name.
func (s *Store) OutputPath(batchID, jobID, name string) (string, string, error) {
	name, err := texture.NormalizeUploadName(name)
	if err != nil {
		return "", "", err
	}

	rel := name
	if s.IsolateOutputs {
		parts := make([]string, 0, 3)
		for _, segment := range []string{batchID, jobID} {
			if segment == "" {
				continue
			}
			if clean, err := texture.NormalizeUploadName(segment); err != nil || clean != segment {
				return "", "", fmt.Errorf("%w: output segment %q", texture.ErrInvalidName, segment)
			}
			parts = append(parts, segment)
		}
		rel = path.Join(append(parts, name)...)
	}
	full := filepath.Join(s.OutputsDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", "", fmt.Errorf("%w: create output dir: %v", texture.ErrStaging, err)
	}
	return rel, full, nil
}

// WriteArtifact writes data to full through a hidden temp file and a rename,
// so a download never observes a partial artifact.
func (s *Store) WriteArtifact(full string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(full), partialPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: write artifact: %v", texture.ErrStaging, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: publish artifact: %v", texture.ErrStaging, err)
	}
	return nil
}

// PublishFile moves a finished file from a workspace to full. A rename is
// tried first; across filesystems the content is copied through a hidden
// temp file instead.
func (s *Store) PublishFile(src, full string) error {
	if err := os.Rename(src, full); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: open converted file: %v", texture.ErrStaging, err)
	}
	defer in.Close()

	tmp := filepath.Join(filepath.Dir(full), partialPrefix+uuid.NewString())
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: create artifact: %v", texture.ErrStaging, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: copy artifact: %v", texture.ErrStaging, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: close artifact: %v", texture.ErrStaging, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: publish artifact: %v", texture.ErrStaging, err)
	}
	return nil
}

// Claim moves the artifact at rel out of the download namespace. Only one
// caller can claim a given artifact; later calls get ErrNotFound.
func (s *Store) Claim(rel string) (texture.ClaimedArtifact, error) {
	full, err := s.resolveOutput(rel)
	if err != nil {
		return texture.ClaimedArtifact{}, err
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() || strings.HasPrefix(filepath.Base(full), ".") {
		return texture.ClaimedArtifact{}, texture.ErrNotFound
	}

	claimed := filepath.Join(filepath.Dir(full), claimPrefix+uuid.NewString())
	if err := os.Rename(full, claimed); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return texture.ClaimedArtifact{}, texture.ErrNotFound
		}
		return texture.ClaimedArtifact{}, err
	}

	return texture.ClaimedArtifact{
		Name: filepath.Base(full),
		Path: claimed,
		Size: info.Size(),
	}, nil
}

// ReleaseClaim deletes a claimed artifact and prunes the emptied job and
// batch directories above it.
func (s *Store) ReleaseClaim(claimed texture.ClaimedArtifact) error {
	if !isWithinDir(s.OutputsDir, claimed.Path) {
		return fmt.Errorf("claimed path %q outside outputs", claimed.Path)
	}
	err := os.Remove(claimed.Path)
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	for dir := filepath.Dir(claimed.Path); isWithinDir(s.OutputsDir, dir); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return err
}

func (s *Store) resolveOutput(raw string) (string, error) {
	value := strings.TrimSpace(strings.ReplaceAll(raw, "\\", "/"))
	cleaned := strings.TrimPrefix(path.Clean("/"+value), "/")
	if cleaned == "" || cleaned == "." {
		return "", texture.ErrNotFound
	}
	full := filepath.Join(s.OutputsDir, filepath.FromSlash(cleaned))
	if !isWithinDir(s.OutputsDir, full) {
		return "", texture.ErrNotFound
	}
	return full, nil
}

func isWithinDir(basePath, targetPath string) bool {
	baseAbs, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return false
	}
	sep := string(os.PathSeparator)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+sep) {
		return false
	}
	return true
}
