// Package app wires configuration, adapters and use cases into a runnable
// HTTP server. Both the server binary and the CLI's serve command use it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"btxconv/internal/application/conversion"
	"btxconv/internal/config"
	"btxconv/internal/infrastructure/btx"
	"btxconv/internal/infrastructure/filesystem"
	"btxconv/internal/infrastructure/pvrtex"
	httptransport "btxconv/internal/transport/http"
	"github.com/rs/cors"
)

const shutdownTimeout = 15 * time.Second

// App holds the wired service graph.
type App struct {
	Config    config.Config
	Store     *filesystem.Store
	Converter *pvrtex.Converter
	Framer    *btx.Framer
	Service   *conversion.Service

	logger *slog.Logger
}

// New builds the service graph from cfg and creates the storage roots. A
// missing converter binary is logged, not fatal; jobs will fail until it appears.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	magic, err := cfg.Magic()
	if err != nil {
		return nil, err
	}
	framer, err := btx.NewFramer(magic)
	if err != nil {
		return nil, err
	}

	store := filesystem.NewStore(cfg.Storage.UploadsDir, cfg.Storage.OutputsDir, cfg.Storage.IsolateOutputs)
	if err := store.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	converter := pvrtex.NewConverter(cfg.Converter.Path, cfg.ConverterTimeout(), logger)
	if err := converter.Check(); err != nil {
		logger.Warn("converter not available", "path", cfg.Converter.Path, "error", err)
	}

	service := conversion.NewService(store, converter, framer, logger, conversion.Options{
		Concurrency:      cfg.Converter.BatchConcurrency,
		StrictExtensions: cfg.Converter.StrictExtensions,
		MaxFileBytes:     cfg.MaxUploadBytes(),
	})

	return &App{
		Config:    cfg,
		Store:     store,
		Converter: converter,
		Framer:    framer,
		Service:   service,
		logger:    logger,
	}, nil
}

// Handler returns the full HTTP handler: routes, middleware and CORS.
func (a *App) Handler() http.Handler {
	router := httptransport.NewRouter(httptransport.NewHandler(a.Service, a.logger))
	chain := httptransport.Chain(
		httptransport.Recovery(a.logger),
		httptransport.Logging(a.logger),
		httptransport.MaxBytes(a.Config.MaxUploadBytes()),
	)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		ExposedHeaders: []string{"Content-Disposition", "ETag", "X-Request-ID"},
	})
	return c.Handler(chain(router))
}

// Serve runs the HTTP server and the stale sweeper until ctx is canceled,
// then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	a.Service.StartSweeper(ctx, a.Config.SweepInterval(), a.Config.WorkspaceMaxAge())

	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		a.logger.Info("server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
