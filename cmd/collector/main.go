// Command collector is the development sink for watchtower agents. It
// accepts profile and trail payloads and stores them verbatim in SQLite.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/okian/watchtower/internal/adapters/http/api"
	"github.com/okian/watchtower/internal/adapters/http/site"
	"github.com/okian/watchtower/internal/adapters/http/swagger"
	"github.com/okian/watchtower/internal/adapters/sink"
	"github.com/okian/watchtower/internal/config"
	"github.com/okian/watchtower/pkg/logger"
	"github.com/okian/watchtower/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		os.Stderr.WriteString("collector: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logOut io.Writer) error {
	fs := pflag.NewFlagSet("collector", pflag.ContinueOnError)
	var (
		configPath = fs.String("config", "", "YAML config file (overrides "+config.EnvConfigPath+")")
		addr       = fs.String("addr", "", "listen address")
		dbPath     = fs.String("db", "", "SQLite file payloads are stored in")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath != "" {
		if err := os.Setenv(config.EnvConfigPath, *configPath); err != nil {
			return err
		}
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if fs.Changed("addr") {
		cfg.CollectorAddr = *addr
	}
	if fs.Changed("db") {
		cfg.SinkPath = *dbPath
	}

	if err := logger.InitWithWriter(logOut, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	registerRuntimeCollectors()

	store, err := sink.Open(ctx, cfg.SinkPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "failed to close store", logger.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              cfg.CollectorAddr,
		Handler:           newHandler(ctx, store, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.CollectorAddr), logger.String("db", cfg.SinkPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newHandler mounts the landing page, the API docs and the ingest API.
func newHandler(ctx context.Context, store api.Dependencies, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(store, api.WithLogger(log.Named("api"))).Register(ctx, mux)
	return mux
}

// registerRuntimeCollectors exports Go runtime and process metrics next to
// the collector's own series. Repeated calls are no-ops.
func registerRuntimeCollectors() {
	reg := metrics.GetRegistry()
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
