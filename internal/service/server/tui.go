package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"

	"github.com/oshokin/noise-monitor/internal/config"
	"github.com/oshokin/noise-monitor/internal/logger"
	"github.com/oshokin/noise-monitor/internal/ui"
)

// TUIOptions controls the interactive terminal front end.
type TUIOptions struct {
	Options

	// LogFile receives logs while the screen is active; empty discards them.
	LogFile string
}

// RunTUI runs the monitor in the foreground with a terminal UI.
// It returns when the user quits or ctx is canceled.
func RunTUI(ctx context.Context, opts *TUIOptions) error {
	settings, err := loadSettings(&opts.Options)
	if err != nil {
		return err
	}

	closeLog, err := redirectLogs(opts.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx = logger.WithName(ctx, "noise-monitor-tui")

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}

	return runTUI(ctx, settings, screen, opts.StartDetection)
}

// runTUI drives the UI on screen until it quits.
func runTUI(ctx context.Context, settings *config.Config, screen tcell.Screen, start bool) error {
	app, err := build(ctx, settings)
	if err != nil {
		return fmt.Errorf("initialise monitor: %w", err)
	}

	view := ui.New(screen, app.service, app.controller.Snapshot())
	app.controller.AddObserver(view)

	loopCtx, cancelLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelLoop()

	group := new(errgroup.Group)

	group.Go(func() error {
		return app.loop.Run(loopCtx)
	})

	if start {
		group.Go(func() error {
			if _, startErr := app.service.Start(ctx); startErr != nil {
				logger.ErrorKV(ctx, "Initial detection start failed", "error", startErr)
			}

			return nil
		})
	}

	group.Go(func() error {
		// The UI stops detection itself before returning.
		defer app.shutdown(ctx, cancelLoop)

		return view.Run(ctx)
	})

	return group.Wait()
}

// redirectLogs sends logs to path, or discards them, while the screen owns the terminal.
func redirectLogs(path string) (func(), error) {
	previous := logger.Logger()

	var (
		w       io.Writer = io.Discard
		closeFn           = func() {}
	)

	if path != "" {
		f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, config.DefaultFilePermissions)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}

		w = f
		closeFn = func() { _ = f.Close() }
	}

	logger.SetLogger(logger.NewWithOutput(w, nil))

	return func() {
		logger.SetLogger(previous)
		closeFn()
	}, nil
}
