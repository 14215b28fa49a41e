// Package main is the entry point for the img-updater application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/img-updater/internal/catalog"
	"github.com/joe/img-updater/internal/config"
	"github.com/joe/img-updater/internal/logging"
	"github.com/joe/img-updater/internal/metrics"
	"github.com/joe/img-updater/internal/syncengine"
	"github.com/joe/img-updater/internal/tui"
	"github.com/joe/img-updater/pkg/filesystem"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Parse(args)
	if errors.Is(err, arg.ErrHelp) {
		if parser, perr := config.NewParser(config.Defaults()); perr == nil {
			parser.WriteHelp(os.Stdout)
		}

		return 0
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return exitCode(err)
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))

	logger, err := logging.New(logging.Config{
		Debug:  cfg.Debug,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Stderr: !interactive,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return 1
	}

	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range cfg.Warnings {
		logger.Warn(warning)

		if interactive {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := update(ctx, cfg, logger, interactive); err != nil {
		logger.Error("update failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		return exitCode(err)
	}

	return 0
}

// exitCode maps a failed run to the process exit status: 2 for configuration errors,
// wherever they were detected, and 1 for everything else.
func exitCode(err error) int {
	var configErr *config.ConfigurationError
	if errors.As(err, &configErr) {
		return 2 //nolint:mnd // Usage error
	}

	return 1
}

func update(ctx context.Context, cfg *config.Config, logger *zap.Logger, interactive bool) error {
	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}

	defer closeSource()

	table := catalog.Repositories
	if cfg.Backend == config.Listing {
		table = catalog.ListingFolders
	}

	jobs, err := table.Jobs(cfg.Root, catalog.Request{Version: cfg.GameVersion, Type: cfg.Type, Style: cfg.Style})
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()

	if cfg.MetricsAddr != "" {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		go func() {
			if err := recorder.Serve(metricsCtx, cfg.MetricsAddr, logger); err != nil {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	session, err := syncengine.NewSession(syncengine.Options{
		Delay:     cfg.DelayDuration(),
		Adaptive:  cfg.Adaptive,
		Ceiling:   cfg.Stack,
		Overwrite: cfg.Overwrite,
		Pattern:   cfg.Pattern,
		Source:    source,
		FS:        filesystem.NewRealFileSystem(),
		Logger:    logger,
		Recorder:  recorder,
	})
	if err != nil {
		return err
	}

	logger.Info("starting update",
		zap.String("session", session.ID()),
		zap.Stringer("backend", cfg.Backend),
		zap.String("root", cfg.Root),
		zap.Int("folders", len(jobs)))

	events, err := session.Start(ctx, jobs)
	if err != nil {
		return err
	}

	if interactive {
		if err := tui.Run(session, events); err != nil {
			session.Cancel()

			for range events { //nolint:revive // Drain until the session closes the stream
			}

			return err
		}
	} else {
		tui.Report(os.Stdout, events)
	}

	tui.Summarize(os.Stdout, session.Summary())

	return nil
}
