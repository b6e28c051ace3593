// package playback turns player intents into calls on a [Player] and
// republishes the player's raw state stream as [models.PlaybackState] values.
package playback

import (
	"context"

	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/shared"
)

// Player is the collaborator that actually renders audio: the Web Playback SDK,
// a Connect device driven over the Web API, or a fake in tests.
//
// States is closed by the player when it stops publishing.
type Player interface {
	Play(ctx context.Context, uri string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, positionMs int) error
	SetVolume(ctx context.Context, percent int) error
	ToggleShuffle(ctx context.Context) error
	SetRepeatMode(ctx context.Context, mode models.RepeatMode) error
	States() <-chan StateUpdate
}

// Wire values of repeat_mode.
const (
	wireRepeatOff     = 0
	wireRepeatContext = 1
	wireRepeatTrack   = 2
)

// StateUpdate is the player's state message, shaped like the Web Playback SDK's player_state_changed payload.
// Volume is only present when the player reports it.
type StateUpdate struct {
	Paused      bool        `json:"paused"`
	Position    int         `json:"position"`
	Duration    int         `json:"duration"`
	Shuffle     bool        `json:"shuffle"`
	RepeatMode  int         `json:"repeat_mode"`
	TrackWindow TrackWindow `json:"track_window"`
	Volume      *int        `json:"volume,omitempty"`
}

type TrackWindow struct {
	CurrentTrack *TrackInfo `json:"current_track"`
}

type TrackInfo struct {
	ID         string      `json:"id"`
	URI        string      `json:"uri"`
	Name       string      `json:"name"`
	Artists    []NamedItem `json:"artists"`
	Album      AlbumInfo   `json:"album"`
	DurationMs int         `json:"duration_ms"`
}

type NamedItem struct {
	Name string `json:"name"`
}

type AlbumInfo struct {
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

type Image struct {
	URL string `json:"url"`
}

// RepeatModeFromWire maps 0/1/2 to off/context/track. Unknown values are off.
func RepeatModeFromWire(v int) models.RepeatMode {
	switch v {
	case wireRepeatContext:
		return models.RepeatContext
	case wireRepeatTrack:
		return models.RepeatTrack
	default:
		return models.RepeatOff
	}
}

// RepeatModeToWire is the inverse of [RepeatModeFromWire].
func RepeatModeToWire(m models.RepeatMode) int {
	switch m {
	case models.RepeatContext:
		return wireRepeatContext
	case models.RepeatTrack:
		return wireRepeatTrack
	default:
		return wireRepeatOff
	}
}

// ToModel converts the update. fallbackVolume is used when the update carries no volume.
func (u StateUpdate) ToModel(fallbackVolume int) models.PlaybackState {
	volume := fallbackVolume
	if u.Volume != nil {
		volume = shared.Clamp(*u.Volume, 0, 100)
	}

	state := models.PlaybackState{
		IsPlaying:    !u.Paused,
		PositionMs:   max(u.Position, 0),
		DurationMs:   max(u.Duration, 0),
		Volume:       volume,
		ShuffleState: u.Shuffle,
		RepeatMode:   RepeatModeFromWire(u.RepeatMode),
	}

	if ct := u.TrackWindow.CurrentTrack; ct != nil {
		track := models.Track{
			ID:          ct.ID,
			URI:         ct.URI,
			Name:        ct.Name,
			AlbumName:   ct.Album.Name,
			DurationMs:  ct.DurationMs,
			ArtistNames: make([]string, 0, len(ct.Artists)),
		}
		for _, a := range ct.Artists {
			track.ArtistNames = append(track.ArtistNames, a.Name)
		}
		if len(ct.Album.Images) > 0 {
			track.AlbumArtURL = ct.Album.Images[0].URL
		}
		state.CurrentTrack = &track
	} else {
		state.IsPlaying = false
	}
	return state
}
