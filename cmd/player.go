package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func (r *Runner) playerBefore(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if device := cmd.String("device"); device != "" {
		r.deviceID = device
	}
	return ctx, nil
}

// control restores the session and syncs the controller with the device before fn runs.
func (r *Runner) control(ctx context.Context, fn func(context.Context) error) error {
	if _, err := r.session(ctx); err != nil {
		return err
	}
	if err := r.playback.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to read playback state: %w", err)
	}
	return fn(ctx)
}

// startPlayback runs the device poller and the controller until the returned stop func is called.
func (r *Runner) startPlayback(ctx context.Context) func() error {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.player.Run(gctx)
		return nil
	})
	g.Go(func() error { return r.playback.Run(gctx) })

	return func() error {
		cancel()
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// PlayerPlay starts a track or context URI.
func (r *Runner) PlayerPlay(ctx context.Context, cmd *cli.Command) error {
	uri := cmd.StringArg("uri")
	if uri == "" {
		return fmt.Errorf("%w: uri is required", shared.ErrMissingArgument)
	}
	return r.control(ctx, func(ctx context.Context) error {
		if err := r.playback.Play(ctx, uri); err != nil {
			return err
		}
		return r.writePlain("▶ Playing %s\n", uri)
	})
}

// PlayerPause pauses playback.
func (r *Runner) PlayerPause(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, func(ctx context.Context) error {
		if err := r.playback.Pause(ctx); err != nil {
			return err
		}
		return r.writePlain("❚❚ Paused\n")
	})
}

// PlayerResume resumes playback.
func (r *Runner) PlayerResume(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, func(ctx context.Context) error {
		if err := r.playback.Resume(ctx); err != nil {
			return err
		}
		return r.writePlain("▶ Resumed\n")
	})
}

// PlayerToggle pauses or resumes depending on the current state.
func (r *Runner) PlayerToggle(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, func(ctx context.Context) error {
		wasPlaying := r.playback.State().IsPlaying
		if err := r.playback.TogglePlay(ctx); err != nil {
			return err
		}
		if wasPlaying {
			return r.writePlain("❚❚ Paused\n")
		}
		return r.writePlain("▶ Resumed\n")
	})
}

// PlayerNext skips forward.
func (r *Runner) PlayerNext(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, func(ctx context.Context) error {
		if err := r.playback.SkipNext(ctx); err != nil {
			return err
		}
		return r.writePlain("⏭ Next track\n")
	})
}

// PlayerPrevious skips back.
func (r *Runner) PlayerPrevious(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, func(ctx context.Context) error {
		if err := r.playback.SkipPrevious(ctx); err != nil {
			return err
		}
		return r.writePlain("⏮ Previous track\n")
	})
}

// PlayerSeek moves within the current track.
func (r *Runner) PlayerSeek(ctx context.Context, cmd *cli.Command) error {
	seconds := cmd.FloatArg("seconds")
	return r.control(ctx, func(ctx context.Context) error {
		if err := r.playback.Seek(ctx, seconds); err != nil {
			return err
		}
		return r.writePlain("→ Seeked to %s\n", models.FormatMs(int(max(seconds, 0)*1000)))
	})
}

// parseVolume reads "70" as absolute and "+5" / "-10" as relative.
func parseVolume(s string) (value int, relative bool, err error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false, fmt.Errorf("%w: volume level is required", shared.ErrMissingArgument)
	}
	value, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("%w: volume %q", shared.ErrInvalidArgument, s)
	}
	return value, s[0] == '+' || s[0] == '-', nil
}

// PlayerVolume sets or adjusts the volume.
func (r *Runner) PlayerVolume(ctx context.Context, cmd *cli.Command) error {
	value, relative, err := parseVolume(cmd.StringArg("level"))
	if err != nil {
		return err
	}
	return r.control(ctx, func(ctx context.Context) error {
		if relative {
			err = r.playback.AdjustVolume(ctx, value)
		} else {
			err = r.playback.SetVolume(ctx, value)
		}
		if err != nil {
			return err
		}
		return r.writePlain("Volume: %d%%\n", r.playback.State().Volume)
	})
}

// PlayerShuffle toggles shuffle.
func (r *Runner) PlayerShuffle(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, func(ctx context.Context) error {
		want := !r.playback.State().ShuffleState
		if err := r.playback.ToggleShuffle(ctx); err != nil {
			return err
		}
		return r.writePlain("Shuffle: %s\n", onOff(want))
	})
}

// PlayerRepeat sets the repeat mode, or cycles it when no mode is given.
func (r *Runner) PlayerRepeat(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.StringArg("mode")
	return r.control(ctx, func(ctx context.Context) error {
		if arg == "" {
			mode, err := r.playback.CycleRepeatMode(ctx)
			if err != nil {
				return err
			}
			return r.writePlain("Repeat: %s\n", mode)
		}

		mode, err := models.ParseRepeatMode(arg)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		if err := r.player.SetRepeatMode(ctx, mode); err != nil {
			return err
		}
		return r.writePlain("Repeat: %s\n", mode)
	})
}

// PlayerStatus prints the current playback state.
func (r *Runner) PlayerStatus(ctx context.Context, cmd *cli.Command) error {
	return r.control(ctx, func(ctx context.Context) error {
		state := r.playback.State()
		if cmd.Bool("json") {
			return r.writeJSON(state, cmd.Bool("pretty"))
		}
		return r.writePlain("%s\n", describeState(state))
	})
}

// PlayerWatch prints a line for every state change until ctx is cancelled.
func (r *Runner) PlayerWatch(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.session(ctx); err != nil {
		return err
	}

	states, unsubscribe := r.playback.Subscribe(0)
	defer unsubscribe()
	stop := r.startPlayback(ctx)

	var last string
	for {
		select {
		case <-ctx.Done():
			return stop()
		case state, ok := <-states:
			if !ok {
				return stop()
			}
			if line := describeState(state); line != last {
				r.writePlain("%s\n", line)
				last = line
			}
		}
	}
}

// PlayerDevices lists Connect devices.
func (r *Runner) PlayerDevices(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.session(ctx); err != nil {
		return err
	}

	devices, err := r.player.Devices(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(devices, cmd.Bool("pretty"))
	}

	if len(devices) == 0 {
		return r.writePlain("No devices available. Open Spotify on a device first.\n")
	}
	for _, d := range devices {
		marker := " "
		if d.IsActive {
			marker = "*"
		}
		r.writePlain("%s %s (%s)\n", marker, d.Name, d.Type)
		r.writePlain("   ID: %s\n", d.ID)
	}
	return nil
}

// describeState renders a one-line summary.
func describeState(s models.PlaybackState) string {
	if s.IsIdle() {
		return "■ Nothing playing"
	}

	icon := "❚❚"
	if s.IsPlaying {
		icon = "▶"
	}
	return fmt.Sprintf("%s %s - %s [%s/%s] vol %d%% shuffle %s repeat %s",
		icon, s.CurrentTrack.Artists(), s.CurrentTrack.Name,
		s.FormattedPosition(), s.FormattedDuration(),
		s.Volume, onOff(s.ShuffleState), s.RepeatMode)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
