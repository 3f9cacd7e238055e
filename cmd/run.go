package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/ecordell/optgen/helpers"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "github.com/kubev2v/pdf-extractor/api/v1"
	"github.com/kubev2v/pdf-extractor/internal/config"
	"github.com/kubev2v/pdf-extractor/internal/extractor"
	"github.com/kubev2v/pdf-extractor/internal/handlers"
	"github.com/kubev2v/pdf-extractor/internal/metrics"
	"github.com/kubev2v/pdf-extractor/internal/server"
	"github.com/kubev2v/pdf-extractor/internal/services"
	"github.com/kubev2v/pdf-extractor/internal/store"
	"github.com/kubev2v/pdf-extractor/internal/store/migrations"
	"github.com/kubev2v/pdf-extractor/internal/worker"
	"github.com/kubev2v/pdf-extractor/pkg/pool"
)

const (
	dbFilename        = "extractions.duckdb"
	spawnInitialDelay = 200 * time.Millisecond
	shutdownTimeout   = 30 * time.Second
)

func NewRunCommand(cfg *config.Configuration) *cobra.Command {
	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Run the HTTP server and the extraction pool",
		PreRunE: preRun(cfg),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			zap.S().Named("run").Infow("starting pdf-extractor", "configuration", helpers.Flatten(cfg.DebugMap()))
			return run(cmd.Context(), cfg)
		},
	}

	registerServerFlags(runCmd, cfg)
	registerPoolFlags(runCmd, cfg)
	runCmd.Flags().StringVar(&cfg.Store.DataFolder, "data-folder", cfg.Store.DataFolder, "folder holding the extraction history database; empty keeps it in memory")
	runCmd.Flags().BoolVar(&cfg.Auth.Enabled, "auth-enabled", cfg.Auth.Enabled, "require a bearer token on /api/v1")
	runCmd.Flags().StringVar(&cfg.Auth.Secret, "auth-secret", cfg.Auth.Secret, "HS256 secret used to verify bearer tokens")

	return runCmd
}

func registerServerFlags(cmd *cobra.Command, cfg *config.Configuration) {
	cmd.Flags().StringVar(&cfg.Server.ServerMode, "server-mode", cfg.Server.ServerMode, "server mode: dev or prod")
	cmd.Flags().IntVar(&cfg.Server.HTTPPort, "http-port", cfg.Server.HTTPPort, "HTTP listening port")
	cmd.Flags().StringVar(&cfg.Server.UploadsFolder, "uploads-folder", cfg.Server.UploadsFolder, "folder for temporary uploads")
	cmd.Flags().StringSliceVar(&cfg.Server.CORSOrigins, "cors-origins", cfg.Server.CORSOrigins, "allowed CORS origins")
}

func registerPoolFlags(cmd *cobra.Command, cfg *config.Configuration) {
	cmd.Flags().IntVar(&cfg.Pool.Workers, "workers", cfg.Pool.Workers, "number of worker units")
	cmd.Flags().StringVar(&cfg.Pool.Isolation, "isolation", cfg.Pool.Isolation, "worker isolation: process or goroutine")
	cmd.Flags().DurationVar(&cfg.Pool.JobTimeout, "job-timeout", cfg.Pool.JobTimeout, "maximum time a worker may spend on one job; 0 disables")
	cmd.Flags().UintVar(&cfg.Pool.SpawnMaxTries, "spawn-max-tries", cfg.Pool.SpawnMaxTries, "attempts to spawn a replacement worker")
	cmd.Flags().Float64Var(&cfg.Pool.FailureRate, "failure-rate", cfg.Pool.FailureRate, "probability of a simulated extraction failure, for testing")
}

func run(ctx context.Context, cfg *config.Configuration) error {
	log := zap.S().Named("run")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg.Store.DataFolder)
	if err != nil {
		return err
	}
	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	st := store.NewStore(db)
	defer func() {
		if err := st.Close(); err != nil {
			log.Errorw("failed to close store", "error", err)
		}
	}()

	if err := os.MkdirAll(cfg.Server.UploadsFolder, 0o750); err != nil {
		return fmt.Errorf("failed to create uploads folder: %w", err)
	}

	m := metrics.New()
	p, err := newPool(cfg, m)
	if err != nil {
		return err
	}
	defer p.Close()

	srv := services.NewExtractionService(p, st)
	h := handlers.New(srv, cfg.Server.UploadsFolder)

	httpServer, err := server.NewServer(cfg, m, func(router *gin.RouterGroup) {
		v1.RegisterHandlers(router, h)
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Errorw("failed to stop http server", "error", err)
	}
	return nil
}

func openDB(dataFolder string) (*sql.DB, error) {
	path := ":memory:"
	if dataFolder != "" {
		if err := os.MkdirAll(dataFolder, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data folder: %w", err)
		}
		path = filepath.Join(dataFolder, dbFilename)
	}
	return store.NewDB(path)
}

func newPool(cfg *config.Configuration, observer pool.Observer) (*pool.Pool, error) {
	spawner, err := newSpawner(cfg)
	if err != nil {
		return nil, err
	}
	return pool.New(cfg.Pool.Workers, spawner,
		pool.WithJobTimeout(cfg.Pool.JobTimeout),
		pool.WithSpawnRetry(cfg.Pool.SpawnMaxTries, spawnInitialDelay),
		pool.WithObserver(observer),
	)
}

func newSpawner(cfg *config.Configuration) (pool.Spawner, error) {
	if cfg.Pool.Isolation == config.IsolationGoroutine {
		return pool.NewInProcessSpawner(extractor.WithFailureRate(extractor.NewPDF(), cfg.Pool.FailureRate, nil)), nil
	}

	binary, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate executable for worker processes: %w", err)
	}
	args := []string{
		"worker",
		"--failure-rate", strconv.FormatFloat(cfg.Pool.FailureRate, 'f', -1, 64),
		"--log-format", cfg.LogFormat,
		"--log-level", cfg.LogLevel,
	}
	return worker.NewProcessSpawner(binary, args), nil
}
