package models

import "fmt"

// RepeatMode is the player's repeat setting.
type RepeatMode string

const (
	RepeatOff     RepeatMode = "off"
	RepeatTrack   RepeatMode = "track"
	RepeatContext RepeatMode = "context"
)

// Next returns the mode after m in the cycle off -> context -> track -> off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatContext
	case RepeatContext:
		return RepeatTrack
	default:
		return RepeatOff
	}
}

// ParseRepeatMode accepts the mode names used by the Web API.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch m := RepeatMode(s); m {
	case RepeatOff, RepeatTrack, RepeatContext:
		return m, nil
	default:
		return RepeatOff, fmt.Errorf("unknown repeat mode %q", s)
	}
}

// DefaultVolume is the volume of the idle state.
const DefaultVolume = 50

// PlaybackState is a snapshot of the player. Values are replaced wholesale on every update.
type PlaybackState struct {
	IsPlaying    bool       `json:"is_playing"`
	CurrentTrack *Track     `json:"current_track,omitempty"`
	PositionMs   int        `json:"position_ms"`
	DurationMs   int        `json:"duration_ms"`
	Volume       int        `json:"volume"`
	ShuffleState bool       `json:"shuffle"`
	RepeatMode   RepeatMode `json:"repeat_mode"`
}

// IdlePlaybackState is the state before any update: no track, position 0, volume 50.
func IdlePlaybackState() PlaybackState {
	return PlaybackState{Volume: DefaultVolume, RepeatMode: RepeatOff}
}

// Equal reports structural equality, comparing the current track by value.
func (s PlaybackState) Equal(o PlaybackState) bool {
	if s.IsPlaying != o.IsPlaying || s.PositionMs != o.PositionMs || s.DurationMs != o.DurationMs ||
		s.Volume != o.Volume || s.ShuffleState != o.ShuffleState || s.RepeatMode != o.RepeatMode {
		return false
	}
	switch {
	case s.CurrentTrack == nil && o.CurrentTrack == nil:
		return true
	case s.CurrentTrack == nil || o.CurrentTrack == nil:
		return false
	default:
		return s.CurrentTrack.Equal(*o.CurrentTrack)
	}
}

// IsIdle is true when nothing is loaded.
func (s PlaybackState) IsIdle() bool { return s.CurrentTrack == nil }

// Progress returns position/duration in [0, 1].
func (s PlaybackState) Progress() float64 {
	if s.DurationMs <= 0 {
		return 0
	}
	return min(1, max(0, float64(s.PositionMs)/float64(s.DurationMs)))
}

func (s PlaybackState) FormattedPosition() string { return FormatMs(s.PositionMs) }

func (s PlaybackState) FormattedDuration() string { return FormatMs(s.DurationMs) }
