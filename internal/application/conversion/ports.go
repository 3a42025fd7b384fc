package conversion

import (
	"context"
	"time"

	"btxconv/internal/domain/texture"
)

// Converter is an application port for the external texture tool.
type Converter interface {
	Args(inputPath, outputPath, format string) []string
	Run(ctx context.Context, args []string, expectedOutput string) error
}

// Framer is an application port for BTX header handling.
type Framer interface {
	Strip(data []byte) ([]byte, error)
	Wrap(inner []byte) []byte
}

// Storage is an application port for workspaces and the output area.
type Storage interface {
	NewWorkspace() (texture.Workspace, error)
	ReleaseWorkspace(ws texture.Workspace)
	OutputPath(batchID, jobID, name string) (string, string, error)
	WriteArtifact(full string, data []byte) error
	PublishFile(src, full string) error
	Checksum(full string) (string, error)
	Claim(rel string) (texture.ClaimedArtifact, error)
	ReleaseClaim(claimed texture.ClaimedArtifact) error
	SweepStale(maxAge time.Duration) (texture.SweepResult, error)
}
