package library

import "fmt"

// ProgressUpdate represents a progress event during a library load.
type ProgressUpdate struct {
	Phase   Phase  // Collection being loaded
	Step    int    // Items loaded so far
	Total   int    // Total reported by the API, zero when unknown
	Message string // Human-readable message for display
}

// Phase names the collection a [ProgressUpdate] belongs to.
type Phase int

const (
	FetchPlaylists Phase = iota
	FetchPlaylistTracks
	FetchSavedTracks
	FetchSavedAlbums
	FetchArtists
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchPlaylistTracks:
		return "fetch_playlist_tracks"
	case FetchSavedTracks:
		return "fetch_saved_tracks"
	case FetchSavedAlbums:
		return "fetch_saved_albums"
	case FetchArtists:
		return "fetch_artists"
	default:
		return ""
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p Phase) noun() string {
	switch p {
	case FetchPlaylists:
		return "playlists"
	case FetchSavedAlbums:
		return "albums"
	case FetchArtists:
		return "artists"
	default:
		return "tracks"
	}
}

func loadedUpdate(phase Phase, step, total int) ProgressUpdate {
	msg := fmt.Sprintf("Loaded %d %s", step, phase.noun())
	if total > 0 {
		msg = fmt.Sprintf("Loaded %d/%d %s", step, total, phase.noun())
	}
	return ProgressUpdate{Phase: phase, Step: step, Total: total, Message: msg}
}

// sendProgress never blocks: a full or nil channel drops the update.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
