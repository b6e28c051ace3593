// Package ui implements the interactive player using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [NowPlayingView] : Current track, position bar, volume, shuffle and repeat
//  2. [PlaylistListView] : Browse the user's playlists
//  3. [TrackListView] : Pick a track to start playback in its playlist
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Playback state arrives through a [playback.Controller] subscription; library fetches report progress over a channel
// so long playlists show a running count instead of a frozen screen.
//
// Keyboard bindings are listed with charmbracelet/bubbles/help; press ? for the full set.
package ui
