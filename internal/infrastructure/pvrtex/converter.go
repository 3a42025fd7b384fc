package pvrtex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"btxconv/internal/domain/texture"
)

const (
	DefaultBinary  = "./PVRTexToolCLI"
	DefaultTimeout = 30 * time.Second
)

// Converter wraps PVRTexToolCLI invocations.
type Converter struct {
	Binary  string
	Timeout time.Duration
	logger  *slog.Logger
}

// NewConverter creates a converter adapter for the given executable.
func NewConverter(binary string, timeout time.Duration, logger *slog.Logger) *Converter {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{Binary: binary, Timeout: timeout, logger: logger}
}

// Args builds the command line for converting input into output with the given target format.
func (c *Converter) Args(inputPath, outputPath, format string) []string {
	return []string{"-i", inputPath, "-d", outputPath, "-ft", format}
}

// Run executes the tool once and verifies that expectedOutput exists afterwards.
func (c *Converter) Run(ctx context.Context, args []string, expectedOutput string) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	c.logger.Debug("converter exited",
		"binary", c.Binary,
		"args", args,
		"duration", time.Since(start),
		"error", err,
	)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out after %s", texture.ErrConversionFailed, c.Timeout)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", texture.ErrConversionFailed, diagnostic(&stderr, &stdout, err))
	}
	if _, statErr := os.Stat(expectedOutput); statErr != nil {
		return fmt.Errorf("%w: %s", texture.ErrConversionFailed, diagnostic(&stderr, &stdout, nil))
	}
	return nil
}

// Check verifies that the configured executable can be resolved.
func (c *Converter) Check() error {
	if _, err := exec.LookPath(c.Binary); err != nil {
		return fmt.Errorf("converter binary %q not found: %w", c.Binary, err)
	}
	return nil
}

func diagnostic(stderr, stdout *bytes.Buffer, err error) string {
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(stdout.String()); msg != "" {
		return msg
	}
	if err != nil {
		return err.Error()
	}
	return "no output produced"
}
