package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive now-playing view.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(shared.ExpandHome(cmd.String("log-file")))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if _, err := r.session(ctx); err != nil {
		return err
	}

	stop := r.startPlayback(ctx)
	if err := ui.Run(ctx, r.playback, r.library); err != nil {
		stop()
		return fmt.Errorf("error running TUI: %w", err)
	}
	return stop()
}
