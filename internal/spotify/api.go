package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/transport"
)

const (
	MaxPageSize         = 50
	playlistTracksLimit = 100
	followedArtistsType = "artist"
	playlistFields      = "id,name,description,owner(id,display_name),images,tracks.total"
)

// clampLimit keeps a page size within 1..50; zero or negative means the maximum.
func clampLimit(limit int) int {
	if limit <= 0 {
		return MaxPageSize
	}
	return shared.Clamp(limit, 1, MaxPageSize)
}

// UserProfile retrieves the current authenticated user's profile.
func (c *Client) UserProfile(ctx context.Context) (*models.User, error) {
	var user SpotifyUser
	if err := c.do(ctx, &transport.Request{Path: "/me"}, &user); err != nil {
		return nil, err
	}
	m := user.ToModel()
	return &m, nil
}

// Playlists retrieves every playlist of the current user, following "next" links.
func (c *Client) Playlists(ctx context.Context) ([]models.Playlist, error) {
	first := &transport.Request{
		Path:  "/me/playlists",
		Query: url.Values{"limit": {strconv.Itoa(MaxPageSize)}},
	}
	return collect(ctx, c, first, func(resp *paging[SpotifySimplePlaylist]) ([]models.Playlist, int, string) {
		out := make([]models.Playlist, 0, len(resp.Items))
		for _, p := range resp.Items {
			out = append(out, p.ToModel())
		}
		return out, len(resp.Items), resp.Next
	})
}

// Playlist retrieves a single playlist's metadata.
func (c *Client) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	req := &transport.Request{
		Path:  "/playlists/" + url.PathEscape(playlistID),
		Query: url.Values{"fields": {playlistFields}},
	}
	var resp SpotifySimplePlaylist
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	m := resp.ToModel()
	return &m, nil
}

// PlaylistTracks retrieves every track of a playlist. Entries without a track object are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	first := &transport.Request{
		Path:  "/playlists/" + url.PathEscape(playlistID) + "/tracks",
		Query: url.Values{"limit": {strconv.Itoa(playlistTracksLimit)}},
	}
	return collect(ctx, c, first, func(resp *paging[SpotifyPlaylistTrack]) ([]models.Track, int, string) {
		out := make([]models.Track, 0, len(resp.Items))
		for _, item := range resp.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			out = append(out, item.Track.ToModel())
		}
		return out, len(resp.Items), resp.Next
	})
}

// SavedTracks retrieves one page of the user's saved tracks.
func (c *Client) SavedTracks(ctx context.Context, limit, offset int) (models.Page[models.Track], error) {
	var resp paging[SpotifySavedTrack]
	if err := c.do(ctx, offsetRequest("/me/tracks", limit, offset), &resp); err != nil {
		return models.Page[models.Track]{}, err
	}

	page := models.Page[models.Track]{Items: make([]models.Track, 0, len(resp.Items)), Next: resp.Next, Total: resp.Total}
	for _, item := range resp.Items {
		page.Items = append(page.Items, item.Track.ToModel())
	}
	return page, nil
}

// SavedAlbums retrieves one page of the user's saved albums.
func (c *Client) SavedAlbums(ctx context.Context, limit, offset int) (models.Page[models.Album], error) {
	var resp paging[SpotifySavedAlbum]
	if err := c.do(ctx, offsetRequest("/me/albums", limit, offset), &resp); err != nil {
		return models.Page[models.Album]{}, err
	}

	page := models.Page[models.Album]{Items: make([]models.Album, 0, len(resp.Items)), Next: resp.Next, Total: resp.Total}
	for _, item := range resp.Items {
		page.Items = append(page.Items, item.Album.ToModel())
	}
	return page, nil
}

// FollowedArtists retrieves one cursor page of followed artists. Page.Next is the cursor to pass as after.
func (c *Client) FollowedArtists(ctx context.Context, limit int, after string) (models.Page[models.Artist], error) {
	query := url.Values{
		"type":  {followedArtistsType},
		"limit": {strconv.Itoa(clampLimit(limit))},
	}
	if after != "" {
		query.Set("after", after)
	}

	var resp followedArtists
	if err := c.do(ctx, &transport.Request{Path: "/me/following", Query: query}, &resp); err != nil {
		return models.Page[models.Artist]{}, err
	}

	page := models.Page[models.Artist]{
		Items: make([]models.Artist, 0, len(resp.Artists.Items)),
		Total: resp.Artists.Total,
		Next:  nextArtistCursor(resp.Artists.Next, resp.Artists.Cursors.After),
	}
	for _, a := range resp.Artists.Items {
		page.Items = append(page.Items, a.ToModel())
	}
	return page, nil
}

// nextArtistCursor prefers the explicit cursor and falls back to the "after" parameter of the next URL.
// No next URL means the last page, whatever the cursor says.
func nextArtistCursor(next, after string) string {
	if next == "" {
		return ""
	}
	if after != "" {
		return after
	}
	if u, err := url.Parse(next); err == nil {
		return u.Query().Get("after")
	}
	return ""
}

func offsetRequest(path string, limit, offset int) *transport.Request {
	return &transport.Request{
		Path: path,
		Query: url.Values{
			"limit":  {strconv.Itoa(clampLimit(limit))},
			"offset": {strconv.Itoa(max(offset, 0))},
		},
	}
}
