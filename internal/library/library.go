package library

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/spotify"
	"golang.org/x/sync/errgroup"
)

const (
	PageSize = spotify.MaxPageSize
	MaxItems = 10000
)

// API is the subset of [spotify.Client] the library needs.
type API interface {
	Playlists(ctx context.Context) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)
	SavedTracks(ctx context.Context, limit, offset int) (models.Page[models.Track], error)
	SavedAlbums(ctx context.Context, limit, offset int) (models.Page[models.Album], error)
	FollowedArtists(ctx context.Context, limit int, after string) (models.Page[models.Artist], error)
}

var _ API = (*spotify.Client)(nil)

// Service runs the library use cases.
type Service struct {
	api    API
	logger *log.Logger
}

func NewService(api API, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Service{api: api, logger: logger.WithPrefix("library")}
}

// UserPlaylists returns every playlist of the signed-in user.
func (s *Service) UserPlaylists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error) {
	sendProgress(progress, ProgressUpdate{Phase: FetchPlaylists, Message: "Fetching playlists"})
	playlists, err := s.api.Playlists(ctx)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, loadedUpdate(FetchPlaylists, len(playlists), len(playlists)))
	return playlists, nil
}

// PlaylistTracks returns every track of a playlist.
func (s *Service) PlaylistTracks(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	sendProgress(progress, ProgressUpdate{Phase: FetchPlaylistTracks, Message: "Fetching playlist " + playlistID})
	tracks, err := s.api.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, loadedUpdate(FetchPlaylistTracks, len(tracks), len(tracks)))
	return tracks, nil
}

// SavedTracks returns the user's saved tracks, up to [MaxItems].
func (s *Service) SavedTracks(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Track, error) {
	return collectOffset(ctx, s, FetchSavedTracks, s.api.SavedTracks, progress)
}

// SavedAlbums returns the user's saved albums, up to [MaxItems].
func (s *Service) SavedAlbums(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Album, error) {
	return collectOffset(ctx, s, FetchSavedAlbums, s.api.SavedAlbums, progress)
}

// FollowedArtists returns every followed artist by walking the "after" cursor.
func (s *Service) FollowedArtists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Artist, error) {
	var all []models.Artist
	seen := map[string]bool{}
	after := ""

	for len(all) < MaxItems {
		page, err := s.api.FollowedArtists(ctx, PageSize, after)
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}
		all = append(all, page.Items...)
		sendProgress(progress, loadedUpdate(FetchArtists, len(all), page.Total))

		if !page.HasNext() {
			break
		}
		if seen[page.Next] || page.Next == after {
			s.logger.Warn("followed artists cursor repeated, stopping", "after", page.Next)
			break
		}
		seen[page.Next] = true
		after = page.Next
	}
	return capItems(all), nil
}

type offsetFetcher[T any] func(ctx context.Context, limit, offset int) (models.Page[T], error)

// collectOffset requests pages of [PageSize] until an empty page or [MaxItems].
func collectOffset[T any](ctx context.Context, s *Service, phase Phase, fetch offsetFetcher[T], progress chan<- ProgressUpdate) ([]T, error) {
	var all []T
	for offset := 0; len(all) < MaxItems; offset += PageSize {
		page, err := fetch(ctx, PageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}
		all = append(all, page.Items...)
		sendProgress(progress, loadedUpdate(phase, len(all), page.Total))
	}

	if len(all) >= MaxItems {
		s.logger.Warn("item cap reached", "phase", phase, "cap", MaxItems)
	}
	return capItems(all), nil
}

func capItems[T any](items []T) []T {
	if len(items) > MaxItems {
		return items[:MaxItems]
	}
	return items
}

// Snapshot is everything in the user's library. Errors holds the loads that failed; the
// corresponding fields are left empty.
type Snapshot struct {
	Playlists []models.Playlist `json:"playlists"`
	Tracks    []models.Track    `json:"saved_tracks"`
	Albums    []models.Album    `json:"saved_albums"`
	Artists   []models.Artist   `json:"followed_artists"`
	Errors    []LoadError       `json:"errors,omitempty"`
}

// LoadError records one failed load of a [Snapshot].
type LoadError struct {
	Phase Phase `json:"phase"`
	Err   error `json:"-"`
}

func (e LoadError) Error() string { return fmt.Sprintf("%s: %v", e.Phase, e.Err) }

// Snapshot loads all collections concurrently. Individual failures are collected, not fatal,
// except for unauthorized errors, which abort the whole snapshot.
func (s *Service) Snapshot(ctx context.Context, progress chan<- ProgressUpdate) (*Snapshot, error) {
	snap := &Snapshot{}
	failures := make([]error, 4)

	g, gctx := errgroup.WithContext(ctx)
	load := func(i int, fn func(context.Context) error) {
		g.Go(func() error {
			err := fn(gctx)
			if shared.IsKind(err, shared.KindUnauthorized) {
				return err
			}
			failures[i] = err
			return nil
		})
	}

	load(0, func(ctx context.Context) (err error) {
		snap.Playlists, err = s.UserPlaylists(ctx, progress)
		return err
	})
	load(1, func(ctx context.Context) (err error) {
		snap.Tracks, err = s.SavedTracks(ctx, progress)
		return err
	})
	load(2, func(ctx context.Context) (err error) {
		snap.Albums, err = s.SavedAlbums(ctx, progress)
		return err
	})
	load(3, func(ctx context.Context) (err error) {
		snap.Artists, err = s.FollowedArtists(ctx, progress)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	phases := []Phase{FetchPlaylists, FetchSavedTracks, FetchSavedAlbums, FetchArtists}
	for i, err := range failures {
		if err != nil {
			s.logger.Warn("library load failed", "phase", phases[i], "err", err)
			snap.Errors = append(snap.Errors, LoadError{Phase: phases[i], Err: err})
		}
	}
	return snap, nil
}
