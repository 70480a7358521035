// Command watchtower runs the telemetry agent for one page session. It
// reads movements as JSON lines on stdin (or simulates them) and tears the
// session down on EOF, SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/okian/watchtower/internal/adapters/transport"
	"github.com/okian/watchtower/internal/app"
	"github.com/okian/watchtower/internal/config"
	"github.com/okian/watchtower/internal/domain/fingerprint"
	"github.com/okian/watchtower/internal/domain/trail"
	"github.com/okian/watchtower/internal/input"
	"github.com/okian/watchtower/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stderr); err != nil {
		os.Stderr.WriteString("watchtower: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stderr io.Writer) error {
	fs := pflag.NewFlagSet("watchtower", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML config file (overrides "+config.EnvConfigPath+")")
		endpoint   = fs.String("endpoint", "", "collection base URL")
		pageURL    = fs.String("page-url", "", "URL of the page the session is bound to")
		referrer   = fs.String("referrer", "", "referrer of the page")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
		simulate   = fs.Bool("simulate", false, "generate a random walk instead of reading stdin")
		count      = fs.Int("count", 0, "stop the simulation after this many movements (0 runs until interrupted)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *configPath != "" {
		if err := os.Setenv(config.EnvConfigPath, *configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if fs.Changed("endpoint") {
		cfg.Endpoint = *endpoint
	}
	if fs.Changed("page-url") {
		cfg.PageURL = *pageURL
	}
	if fs.Changed("referrer") {
		cfg.Referrer = *referrer
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout stays free for the caller; logs go to stderr.
	if err := logger.InitWithWriter(stderr, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	tr, err := transport.New(cfg.Endpoint,
		transport.WithTimeout(cfg.RequestTimeout()),
		transport.WithCompression(cfg.Compress),
		transport.WithHTTP2(cfg.HTTP2),
		transport.WithQueueSize(cfg.BeaconQueueSize),
		transport.WithLogger(log.Named("transport")),
	)
	if err != nil {
		return err
	}

	agent := app.New(tr,
		app.WithLogger(log.Named("agent")),
		app.WithThrottle(cfg.Throttle()),
		app.WithFlushInterval(cfg.FlushInterval()),
		app.WithBufferCapacity(cfg.BufferCapacity),
		app.WithProbeTimeout(cfg.ProbeTimeout()),
		app.WithPage(fingerprint.Page{URL: cfg.PageURL, Referrer: cfg.Referrer}),
	)
	if err := agent.Start(ctx); err != nil {
		return errors.Join(err, tr.Close(context.Background()))
	}

	emit := func(m trail.Movement) { agent.Move(m) }
	var srcErr error
	if *simulate {
		walk := input.NewWalk()
		walk.Count = *count
		srcErr = walk.Run(ctx, emit)
	} else {
		srcErr = input.Read(ctx, stdin, time.Now, emit)
	}
	if errors.Is(srcErr, context.Canceled) {
		srcErr = nil
	}
	if srcErr != nil {
		log.Error(ctx, "movement source failed", logger.Error(srcErr))
	}

	agent.Teardown()
	stats := agent.Stats()
	log.Info(ctx, "session ended",
		logger.String("session_id", stats.SessionID),
		logger.Bool("profile_sent", stats.ProfileSent),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := tr.Close(shutdownCtx); err != nil {
		log.Error(ctx, "transport shutdown failed", logger.Error(err))
		return errors.Join(srcErr, err)
	}
	return srcErr
}
