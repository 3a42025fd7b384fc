package conversion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"btxconv/internal/domain/texture"
	"btxconv/internal/telemetry"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options tunes batch processing.
type Options struct {
	// Concurrency bounds jobs in flight per batch. 1 processes files in order.
	Concurrency      int
	StrictExtensions bool
	MaxFileBytes     int64
}

// Service handles conversion use cases.
type Service struct {
	store     Storage
	converter Converter
	framer    Framer
	logger    *slog.Logger
	opts      Options

	sweepOnce sync.Once
}

// NewService creates a conversion use-case service with injected ports.
func NewService(store Storage, converter Converter, framer Framer, logger *slog.Logger, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		converter: converter,
		framer:    framer,
		logger:    logger,
		opts:      opts,
	}
}

type outcome struct {
	result texture.Result
	err    error
}

// Process converts every file independently and reports results and
// per-file errors in input order. A failed file never stops the batch.
func (s *Service) Process(ctx context.Context, files []texture.UploadedFile, dir texture.Direction) texture.BatchReport {
	batchID := uuid.NewString()
	logger := telemetry.FromContextOr(ctx, s.logger).With("batch_id", batchID, "direction", dir.String())
	logger.Info("batch started", "files", len(files))

	outcomes := make([]outcome, len(files))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			outcomes[i] = outcome{err: err}
			continue
		}
		i, file := i, file
		g.Go(func() error {
			outcomes[i] = s.runJob(ctx, logger, batchID, file, dir)
			return nil
		})
	}
	_ = g.Wait()

	names := make([]string, len(files))
	for i, file := range files {
		names[i] = file.Name
	}
	report := aggregate(batchID, dir, names, outcomes)
	logger.Info("batch finished",
		"summary", report.Summary(),
		"converted", len(report.Results),
		"failed", len(report.Errors),
	)
	return report
}

func (s *Service) runJob(ctx context.Context, logger *slog.Logger, batchID string, file texture.UploadedFile, dir texture.Direction) outcome {
	start := time.Now()
	result, workspaceID, err := s.convertFile(ctx, batchID, file, dir)
	elapsed := time.Since(start)
	conversionDuration.WithLabelValues(dir.String()).Observe(elapsed.Seconds())

	logger = logger.With("file", file.Name)
	if workspaceID != "" {
		logger = logger.With("workspace", workspaceID)
	}
	if err != nil {
		conversionsTotal.WithLabelValues(dir.String(), "failed").Inc()
		logger.Warn("conversion failed", "duration", elapsed, "error", err)
		return outcome{err: err}
	}
	conversionsTotal.WithLabelValues(dir.String(), "converted").Inc()
	logger.Info("conversion finished", "output", result.Path, "size", result.Size, "duration", elapsed)
	return outcome{result: result}
}

func aggregate(batchID string, dir texture.Direction, names []string, outcomes []outcome) texture.BatchReport {
	report := texture.BatchReport{
		ID:        batchID,
		Direction: dir,
		Total:     len(outcomes),
		Results:   make([]texture.Result, 0, len(outcomes)),
		Errors:    make([]texture.FileError, 0),
	}
	for i, o := range outcomes {
		if o.err != nil {
			report.Errors = append(report.Errors, texture.FileError{File: names[i], Message: o.err.Error()})
			continue
		}
		report.Results = append(report.Results, o.result)
	}
	return report
}

// Fetch claims an artifact for a single download. The caller must Release it
// after streaming.
func (s *Service) Fetch(rel string) (texture.ClaimedArtifact, error) {
	claimed, err := s.store.Claim(rel)
	if err != nil {
		if errors.Is(err, texture.ErrNotFound) {
			downloadsTotal.WithLabelValues("not_found").Inc()
		} else {
			downloadsTotal.WithLabelValues("error").Inc()
			s.logger.Error("claim artifact failed", "path", rel, "error", err)
		}
		return texture.ClaimedArtifact{}, err
	}
	if sum, err := s.store.Checksum(claimed.Path); err == nil {
		claimed.Checksum = sum
	}
	downloadsTotal.WithLabelValues("served").Inc()
	return claimed, nil
}

// Release deletes a claimed artifact once its download has been streamed.
func (s *Service) Release(claimed texture.ClaimedArtifact) error {
	return s.store.ReleaseClaim(claimed)
}

// Sweep removes workspaces and artifacts older than maxAge.
func (s *Service) Sweep(maxAge time.Duration) (texture.SweepResult, error) {
	result, err := s.store.SweepStale(maxAge)
	if err != nil {
		return result, err
	}
	sweptTotal.Add(float64(len(result.Removed)))
	for _, removed := range result.Removed {
		s.logger.Info("removed stale entry", "path", removed)
	}
	for _, failed := range result.Errors {
		s.logger.Warn("failed to remove stale entry", "path", failed.Path, "error", failed.Error)
	}
	return result, nil
}

// StartSweeper periodically removes leftovers older than maxAge until ctx ends.
func (s *Service) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 || maxAge <= 0 {
		return
	}

	s.sweepOnce.Do(func() {
		s.logger.Info("sweeper enabled", "interval", interval, "max_age", maxAge)
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				if _, err := s.Sweep(maxAge); err != nil {
					s.logger.Warn("sweep failed", "error", err)
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	})
}
