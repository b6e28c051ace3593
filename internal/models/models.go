package models

import (
	"fmt"
	"slices"
	"strings"
)

// User is the signed-in Spotify account. Email and ImageURL are empty when the scope or profile lacks them.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Name returns the display name, falling back to the id.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.ID
}

// Track represents a playable song.
type Track struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	ArtistNames []string `json:"artists"`
	AlbumName   string   `json:"album"`
	DurationMs  int      `json:"duration_ms"`
	AlbumArtURL string   `json:"album_art_url,omitempty"`
}

// Artists joins the artist names with commas.
func (t Track) Artists() string { return strings.Join(t.ArtistNames, ", ") }

// FormattedDuration renders the duration as m:ss.
func (t Track) FormattedDuration() string { return FormatMs(t.DurationMs) }

// Equal reports structural equality.
func (t Track) Equal(o Track) bool {
	return t.ID == o.ID && t.URI == o.URI && t.Name == o.Name &&
		slices.Equal(t.ArtistNames, o.ArtistNames) && t.AlbumName == o.AlbumName &&
		t.DurationMs == o.DurationMs && t.AlbumArtURL == o.AlbumArtURL
}

// Album represents a saved album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ArtistNames []string `json:"artists"`
	ReleaseDate string   `json:"release_date"`
	TrackCount  int      `json:"track_count"`
	ImageURL    string   `json:"image_url,omitempty"`
}

func (a Album) Artists() string { return strings.Join(a.ArtistNames, ", ") }

// Artist represents a followed artist.
type Artist struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ImageURL string   `json:"image_url,omitempty"`
	Genres   []string `json:"genres"`
}

func (a Artist) GenreList() string { return strings.Join(a.Genres, ", ") }

// Playlist represents basic playlist metadata.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	ImageURL    string `json:"image_url,omitempty"`
	Owner       string `json:"owner"`
}

// Page is one page of a collection. Next is empty on the last page; it holds either a URL or an opaque cursor.
type Page[T any] struct {
	Items []T
	Next  string
	Total int
}

// HasNext reports whether another page is available.
func (p Page[T]) HasNext() bool { return p.Next != "" }

// FormatMs renders milliseconds as m:ss. Negative values render as 0:00.
func FormatMs(ms int) string {
	secs := max(ms, 0) / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
