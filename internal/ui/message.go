package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/wamp/internal/library"
	"github.com/desertthunder/wamp/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgStateChanged MsgKind = iota
	MsgPlaylistsFetched
	MsgTracksFetched
	MsgProgressUpdate
	MsgCommandDone
)

type playlistsPayload struct {
	playlists []models.Playlist
	err       error
}

type tracksPayload struct {
	playlist models.Playlist
	tracks   []models.Track
	err      error
}

type commandPayload struct {
	action string
	err    error
}

// stateChangedMsg is the constructor for [MsgStateChanged]
func stateChangedMsg(state models.PlaybackState) Msg {
	return Msg{kind: MsgStateChanged, data: state}
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsPayload{playlists, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(playlist models.Playlist, tracks []models.Track, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksPayload{playlist, tracks, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update library.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// commandDoneMsg is the constructor for [MsgCommandDone]
func commandDoneMsg(action string, err error) Msg {
	return Msg{kind: MsgCommandDone, data: commandPayload{action, err}}
}
