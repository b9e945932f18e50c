// Workspaced is a workspace folder registry daemon.
//
// It tracks the workspace folders of an editing session, resolves files
// to their owning folder, and propagates folder lifecycle events to an
// analysis backend over NATS.
//
// Usage:
//
//	# Start the daemon with defaults
//	workspaced serve
//
//	# Configure via file or environment
//	workspaced serve --config ./workspaced.yaml
//	WORKSPACED_SERVER_PORT=9700 workspaced serve
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/workspaced/internal/backend"
	"github.com/fyrsmithlabs/workspaced/internal/binding"
	"github.com/fyrsmithlabs/workspaced/internal/config"
	"github.com/fyrsmithlabs/workspaced/internal/dispatch"
	"github.com/fyrsmithlabs/workspaced/internal/folders"
	httpserver "github.com/fyrsmithlabs/workspaced/internal/http"
	"github.com/fyrsmithlabs/workspaced/internal/logging"
	"github.com/fyrsmithlabs/workspaced/internal/telemetry"
	"github.com/fyrsmithlabs/workspaced/internal/walker"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "workspaced",
	Short: "Workspace folder registry daemon",
	Long: `workspaced tracks workspace folders for an editing session, resolves
files to their owning folder, and forwards folder lifecycle events to an
analysis backend.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workspaced daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		if err := run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("workspaced by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/workspaced/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// run starts the daemon and blocks until ctx is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize logger and telemetry
//  3. Connect the analysis backend (NATS, or log-only when unconfigured)
//  4. Start the dispatch queue and folder manager
//  5. Start the HTTP server
//  6. On cancellation, stop HTTP first, then drain the queue
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting workspaced",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	svc, closeBackend, err := initBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	// The queue owns its own lifetime: tasks queued before shutdown
	// must still drain after the signal context is cancelled.
	queue := dispatch.NewQueue(context.Background(), logger)
	queue.Start()

	manager := folders.NewManager(svc, binding.NewStaticResolver(), queue, logger)

	classifier, err := walker.NewClassifier(cfg.Analysis.TestFilePatterns)
	if err != nil {
		return fmt.Errorf("compile test file patterns: %w", err)
	}

	srv, err := httpserver.NewServer(manager, classifier, logger, &httpserver.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	})
	if err != nil {
		return fmt.Errorf("initialize http server: %w", err)
	}

	serveErr := srv.Start(ctx)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Backend.DrainTimeout.Duration())
	defer drainCancel()
	if err := manager.Shutdown(drainCtx); err != nil {
		logger.Warn("backend queue did not drain cleanly", zap.Error(err))
	}

	logger.Info("workspaced shutdown complete")
	return serveErr
}

// initBackend connects the analysis backend. An empty NATS URL selects
// the log-only backend so the daemon can run standalone.
func initBackend(cfg *config.Config, logger *zap.Logger) (folders.BackendService, func(), error) {
	if cfg.Backend.NATSURL == "" {
		logger.Info("no analysis backend configured, folder events will be logged only")
		return backend.NewLoggingService(logger), func() {}, nil
	}

	nc, err := nats.Connect(cfg.Backend.NATSURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS at %s: %w", cfg.Backend.NATSURL, err)
	}
	logger.Info("connected to NATS", zap.String("url", cfg.Backend.NATSURL))

	return backend.NewNATSService(nc, logger), nc.Close, nil
}
