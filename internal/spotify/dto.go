package spotify

import "github.com/desertthunder/wamp/internal/models"

// Spotify Web API response types, based on https://developer.spotify.com/documentation/web-api/reference/

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

func (u SpotifyUser) ToModel() models.User {
	return models.User{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		ImageURL:    firstImage(u.Images),
	}
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

func (a SpotifyArtist) ToModel() models.Artist {
	genres := a.Genres
	if genres == nil {
		genres = []string{}
	}
	return models.Artist{ID: a.ID, Name: a.Name, ImageURL: firstImage(a.Images), Genres: genres}
}

func artistNames(artists []SpotifyArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	URI         string          `json:"uri"`
}

func (a SpotifyAlbum) ToModel() models.Album {
	return models.Album{
		ID:          a.ID,
		Name:        a.Name,
		ArtistNames: artistNames(a.Artists),
		ReleaseDate: a.ReleaseDate,
		TrackCount:  a.TotalTracks,
		ImageURL:    firstImage(a.Images),
	}
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
}

func (t SpotifyTrack) ToModel() models.Track {
	return models.Track{
		ID:          t.ID,
		URI:         t.URI,
		Name:        t.Name,
		ArtistNames: artistNames(t.Artists),
		AlbumName:   t.Album.Name,
		DurationMs:  t.DurationMS,
		AlbumArtURL: firstImage(t.Album.Images),
	}
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Owner       Owner                `json:"owner"`
	Public      bool                 `json:"public"`
	Tracks      simplePlaylistTracks `json:"tracks"`
	Images      []SpotifyImage       `json:"images"`
	URI         string               `json:"uri"`
}

func (p SpotifySimplePlaylist) ToModel() models.Playlist {
	owner := p.Owner.DisplayName
	if owner == "" {
		owner = p.Owner.ID
	}
	return models.Playlist{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		TrackCount:  p.Tracks.Total,
		ImageURL:    firstImage(p.Images),
		Owner:       owner,
	}
}

// paging is the envelope shared by offset-paginated collections.
type paging[T any] struct {
	Items  []T    `json:"items"`
	Next   string `json:"next"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// SpotifyPlaylistTrack is a playlist entry. Track is null for removed or local-only items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifySavedAlbum represents an album saved in the user's library.
type SpotifySavedAlbum struct {
	AddedAt string       `json:"added_at"`
	Album   SpotifyAlbum `json:"album"`
}

type cursors struct {
	After  string `json:"after"`
	Before string `json:"before"`
}

// followedArtists is the /me/following body: the page is nested under "artists" and uses cursors.
type followedArtists struct {
	Artists struct {
		Items   []SpotifyArtist `json:"items"`
		Next    string          `json:"next"`
		Total   int             `json:"total"`
		Cursors cursors         `json:"cursors"`
	} `json:"artists"`
}

// SpotifyDevice is a Connect device.
type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"`
}

// SpotifyPlaybackState is the body of GET /me/player.
type SpotifyPlaybackState struct {
	Device       SpotifyDevice `json:"device"`
	RepeatState  string        `json:"repeat_state"`
	ShuffleState bool          `json:"shuffle_state"`
	ProgressMS   int           `json:"progress_ms"`
	IsPlaying    bool          `json:"is_playing"`
	Item         *SpotifyTrack `json:"item"`
}
