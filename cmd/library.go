package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/wamp/internal/formatter"
	"github.com/desertthunder/wamp/internal/library"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/urfave/cli/v3"
)

// progress returns a channel whose updates are logged, and a func that stops logging.
func (r *Runner) progress() (chan<- library.ProgressUpdate, func()) {
	ch := make(chan library.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range ch {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

func limitItems[T any](items []T, limit int) []T {
	if limit > 0 && limit < len(items) {
		return items[:limit]
	}
	return items
}

// LibraryPlaylists lists the user's playlists with optional limit.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.session(ctx); err != nil {
		return err
	}

	progress, stop := r.progress()
	playlists, err := r.library.UserPlaylists(ctx, progress)
	stop()
	if err != nil {
		return err
	}
	playlists = limitItems(playlists, cmd.Int("limit"))

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Owner != "" {
			r.writePlain("   Owner: %s\n", p.Owner)
		}
		r.writePlain("\n")
	}
	return nil
}

// LibraryTracks lists or exports every track of a playlist.
func (r *Runner) LibraryTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.StringArg("playlist")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist ID is required", shared.ErrMissingArgument)
	}
	if _, err := r.session(ctx); err != nil {
		return err
	}

	r.logger.Infof("fetching tracks of playlist %v", playlistID)

	playlist, err := r.api.Playlist(ctx, playlistID)
	if err != nil {
		return err
	}

	progress, stop := r.progress()
	tracks, err := r.library.PlaylistTracks(ctx, playlistID, progress)
	stop()
	if err != nil {
		return err
	}

	return r.writeListing(cmd, formatter.PlaylistListing(*playlist, limitItems(tracks, cmd.Int("limit"))))
}

// LibrarySavedTracks lists or exports the user's saved tracks.
func (r *Runner) LibrarySavedTracks(ctx context.Context, cmd *cli.Command) error {
	user, err := r.session(ctx)
	if err != nil {
		return err
	}

	progress, stop := r.progress()
	tracks, err := r.library.SavedTracks(ctx, progress)
	stop()
	if err != nil {
		return err
	}

	return r.writeListing(cmd, &formatter.Listing{
		ID:     "saved",
		Title:  "Saved Tracks",
		Owner:  user.Name(),
		Tracks: limitItems(tracks, cmd.Int("limit")),
	})
}

// writeListing prints l as JSON, in a text format, or writes it to --output.
func (r *Runner) writeListing(cmd *cli.Command, l *formatter.Listing) error {
	if cmd.Bool("json") {
		return r.writeJSON(l, cmd.Bool("pretty"))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		return formatter.Write(r.output, format, l)
	}

	switch format {
	case formatter.FormatCSV:
		result, err := formatter.WriteCSVExport(l, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Tracks exported to %s\n", result.TracksFile)
		r.writePlain("✓ Metadata exported to %s\n", result.MetadataFile)
	case formatter.FormatMarkdown:
		result, err := formatter.WriteMarkdownExport(l, output, r.httpClient, func(err error) {
			r.logger.Warn("failed to download cover image", "error", err)
		})
		if err != nil {
			return err
		}
		r.writePlain("✓ Exported %d files to %s\n", len(result.Files), result.Directory)
	default:
		path, err := formatter.WriteTextExport(l, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Tracks exported to %s\n", path)
	}

	r.writePlain("  Playlist: %s\n", l.Title)
	r.writePlain("  Tracks: %d\n", len(l.Tracks))
	return nil
}

// LibrarySavedAlbums lists the user's saved albums.
func (r *Runner) LibrarySavedAlbums(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.session(ctx); err != nil {
		return err
	}

	progress, stop := r.progress()
	albums, err := r.library.SavedAlbums(ctx, progress)
	stop()
	if err != nil {
		return err
	}
	albums = limitItems(albums, cmd.Int("limit"))

	if cmd.Bool("json") {
		return r.writeJSON(albums, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d albums:\n\n", len(albums))
	for i, a := range albums {
		r.writePlain("%d. %s - %s\n", i+1, a.Artists(), a.Name)
		if a.TrackCount > 0 {
			r.writePlain("   Tracks: %d\n", a.TrackCount)
		}
	}
	return nil
}

// LibraryArtists lists followed artists.
func (r *Runner) LibraryArtists(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.session(ctx); err != nil {
		return err
	}

	progress, stop := r.progress()
	artists, err := r.library.FollowedArtists(ctx, progress)
	stop()
	if err != nil {
		return err
	}
	artists = limitItems(artists, cmd.Int("limit"))

	if cmd.Bool("json") {
		return r.writeJSON(artists, cmd.Bool("pretty"))
	}

	r.writePlain("Following %d artists:\n\n", len(artists))
	for i, a := range artists {
		if genres := a.GenreList(); genres != "" {
			r.writePlain("%d. %s (%s)\n", i+1, a.Name, genres)
		} else {
			r.writePlain("%d. %s\n", i+1, a.Name)
		}
	}
	return nil
}

type librarySummary struct {
	Playlists int      `json:"playlists"`
	Tracks    int      `json:"saved_tracks"`
	Albums    int      `json:"saved_albums"`
	Artists   int      `json:"followed_artists"`
	Errors    []string `json:"errors,omitempty"`
}

// LibrarySummary loads every collection concurrently and prints the counts.
func (r *Runner) LibrarySummary(ctx context.Context, cmd *cli.Command) error {
	user, err := r.session(ctx)
	if err != nil {
		return err
	}

	progress, stop := r.progress()
	snap, err := r.library.Snapshot(ctx, progress)
	stop()
	if err != nil {
		return err
	}

	summary := librarySummary{
		Playlists: len(snap.Playlists),
		Tracks:    len(snap.Tracks),
		Albums:    len(snap.Albums),
		Artists:   len(snap.Artists),
	}
	for _, e := range snap.Errors {
		r.logger.Warn("partial library load", "phase", e.Phase, "error", e.Err)
		summary.Errors = append(summary.Errors, e.Error())
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Library of %s", user.Name()))
	r.writePlain("Playlists:        %d\n", summary.Playlists)
	r.writePlain("Saved tracks:     %d\n", summary.Tracks)
	r.writePlain("Saved albums:     %d\n", summary.Albums)
	r.writePlain("Followed artists: %d\n", summary.Artists)
	if len(summary.Errors) > 0 {
		r.writePlainln("⚠ Some collections could not be loaded:")
		r.writePlain("  %s\n", strings.Join(summary.Errors, "\n  "))
	}
	return nil
}
