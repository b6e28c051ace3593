// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func listFlags() []cli.Flag {
	return append(jsonFlags(), &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of items to print (0 for all)",
	})
}

func exportFlags() []cli.Flag {
	return append(listFlags(),
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: txt, csv or markdown",
			Value:   "txt",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write to a file (csv: base path, markdown: directory) instead of stdout",
		},
	)
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the token database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Spotify login",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in with Spotify in the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored tokens",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show whether a login is stored",
				Flags:  jsonFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new access token",
				Action: r.AuthRefresh,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in user's profile",
				Flags:  jsonFlags(),
				Action: r.AuthWhoami,
			},
		},
	}
}

// libraryCommand handles the user's collections
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Browse playlists, saved tracks, albums and artists",
		Commands: []*cli.Command{
			{
				Name:   "playlists",
				Usage:  "List playlists",
				Flags:  listFlags(),
				Action: r.LibraryPlaylists,
			},
			{
				Name:  "tracks",
				Usage: "List or export the tracks of a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist"},
				},
				Flags:  exportFlags(),
				Action: r.LibraryTracks,
			},
			{
				Name:   "saved-tracks",
				Usage:  "List or export saved tracks",
				Flags:  exportFlags(),
				Action: r.LibrarySavedTracks,
			},
			{
				Name:   "saved-albums",
				Usage:  "List saved albums",
				Flags:  listFlags(),
				Action: r.LibrarySavedAlbums,
			},
			{
				Name:   "artists",
				Usage:  "List followed artists",
				Flags:  listFlags(),
				Action: r.LibraryArtists,
			},
			{
				Name:   "summary",
				Usage:  "Load the whole library and print counts",
				Flags:  jsonFlags(),
				Action: r.LibrarySummary,
			},
		},
	}
}

// playerCommand handles remote control of the active Spotify device
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "Control playback on a Spotify Connect device",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "device",
				Usage: "Target device ID (defaults to the active device)",
			},
		},
		Before: r.playerBefore,
		Commands: []*cli.Command{
			{
				Name:  "play",
				Usage: "Play a track, album or playlist URI",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "uri"},
				},
				Action: r.PlayerPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Action: r.PlayerPause,
			},
			{
				Name:   "resume",
				Usage:  "Resume playback",
				Action: r.PlayerResume,
			},
			{
				Name:   "toggle",
				Usage:  "Pause when playing, resume otherwise",
				Action: r.PlayerToggle,
			},
			{
				Name:   "next",
				Usage:  "Skip to the next track",
				Action: r.PlayerNext,
			},
			{
				Name:    "prev",
				Aliases: []string{"previous"},
				Usage:   "Skip to the previous track",
				Action:  r.PlayerPrevious,
			},
			{
				Name:  "seek",
				Usage: "Seek to a position in seconds",
				Arguments: []cli.Argument{
					&cli.FloatArg{Name: "seconds"},
				},
				Action: r.PlayerSeek,
			},
			{
				Name:  "volume",
				Usage: "Set the volume (70) or change it (+5, -10)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "level"},
				},
				Action: r.PlayerVolume,
			},
			{
				Name:   "shuffle",
				Usage:  "Toggle shuffle",
				Action: r.PlayerShuffle,
			},
			{
				Name:  "repeat",
				Usage: "Set the repeat mode (off, context, track) or cycle it",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "mode"},
				},
				Action: r.PlayerRepeat,
			},
			{
				Name:   "status",
				Usage:  "Show what is playing",
				Flags:  jsonFlags(),
				Action: r.PlayerStatus,
			},
			{
				Name:   "watch",
				Usage:  "Print every playback change until interrupted",
				Action: r.PlayerWatch,
			},
			{
				Name:   "devices",
				Usage:  "List available devices",
				Flags:  jsonFlags(),
				Action: r.PlayerDevices,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the now-playing view.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "~/.wamp/wamp-tui.log",
			},
		},
		Action: r.TUI,
	}
}
