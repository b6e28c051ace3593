package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/wamp/internal/library"
	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/playback"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	NowPlayingView ViewState = iota
	PlaylistListView
	TrackListView
)

const (
	SeekStep   = 5 * time.Second
	VolumeStep = 5
)

// Player is the playback surface the TUI drives.
type Player interface {
	State() models.PlaybackState
	Subscribe(buffer int) (<-chan models.PlaybackState, func())
	Play(ctx context.Context, uri string) error
	TogglePlay(ctx context.Context) error
	SkipNext(ctx context.Context) error
	SkipPrevious(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	AdjustVolume(ctx context.Context, delta int) error
	ToggleShuffle(ctx context.Context) error
	CycleRepeatMode(ctx context.Context) (models.RepeatMode, error)
}

// Library loads the collections the TUI browses.
type Library interface {
	UserPlaylists(ctx context.Context, progress chan<- library.ProgressUpdate) ([]models.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string, progress chan<- library.ProgressUpdate) ([]models.Track, error)
}

var (
	_ Player  = (*playback.Controller)(nil)
	_ Library = (*library.Service)(nil)
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	player       Player
	library      Library
	states       <-chan models.PlaybackState
	unsubscribe  func()
	state        models.PlaybackState
	width        int
	height       int
	playlistList list.Model
	trackList    list.Model
	hasPlaylists bool
	selected     models.Playlist
	progressChan chan library.ProgressUpdate
	loading      string
	bar          progress.Model
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model subscribed to player. Call [Model.Close] when done.
func NewModel(ctx context.Context, player Player, lib Library) *Model {
	states, unsubscribe := player.Subscribe(0)
	return &Model{
		ctx:         ctx,
		view:        NowPlayingView,
		player:      player,
		library:     lib,
		states:      states,
		unsubscribe: unsubscribe,
		state:       player.State(),
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Run starts the program on the alternate screen and blocks until the user quits or ctx is done.
func Run(ctx context.Context, player Player, lib Library) error {
	m := NewModel(ctx, player, lib)
	defer m.Close()

	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close ends the playback subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts listening for playback state.
func (m *Model) Init() tea.Cmd {
	return m.waitForState()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(min(msg.Width-16, 60), 10)
		m.help.Width = msg.Width
		if m.hasPlaylists {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.view == TrackListView {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		default:
			return m.handleNowPlayingKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStateChanged:
		m.state = msg.data.(models.PlaybackState)
		return m, m.waitForState()

	case MsgProgressUpdate:
		if m.progressChan == nil {
			return m, nil
		}
		m.loading = msg.data.(library.ProgressUpdate).Message
		return m, m.waitForProgress(m.progressChan)

	case MsgPlaylistsFetched:
		p := msg.data.(playlistsPayload)
		m.progressChan = nil
		m.loading = ""
		if p.err != nil {
			m.err = p.err
			m.view = NowPlayingView
			return m, nil
		}
		m.err = nil
		m.playlistList = list.New(playlistItems(p.playlists), list.NewDefaultDelegate(), 0, 0)
		m.playlistList.Title = "Playlists"
		m.playlistList.SetSize(m.width-4, m.height-8)
		m.hasPlaylists = true
		return m, nil

	case MsgTracksFetched:
		p := msg.data.(tracksPayload)
		m.progressChan = nil
		m.loading = ""
		if p.err != nil {
			m.err = p.err
			m.view = PlaylistListView
			return m, nil
		}
		m.err = nil
		m.selected = p.playlist
		m.trackList = list.New(trackItems(p.tracks), list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = p.playlist.Name
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case MsgCommandDone:
		p := msg.data.(commandPayload)
		if p.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("%s failed: %v", p.action, p.err))
		} else {
			m.status = p.action
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleNowPlayingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		return m, m.do("Play/Pause", m.player.TogglePlay)
	case key.Matches(msg, m.keys.next):
		return m, m.do("Next", m.player.SkipNext)
	case key.Matches(msg, m.keys.prev):
		return m, m.do("Previous", m.player.SkipPrevious)
	case key.Matches(msg, m.keys.seekBack):
		return m, m.seek(-SeekStep)
	case key.Matches(msg, m.keys.seekFwd):
		return m, m.seek(SeekStep)
	case key.Matches(msg, m.keys.volumeUp):
		return m, m.volume(VolumeStep)
	case key.Matches(msg, m.keys.volumeDown):
		return m, m.volume(-VolumeStep)
	case key.Matches(msg, m.keys.shuffle):
		return m, m.do("Shuffle", m.player.ToggleShuffle)
	case key.Matches(msg, m.keys.repeat):
		return m, m.do("Repeat", func(ctx context.Context) error {
			_, err := m.player.CycleRepeatMode(ctx)
			return err
		})
	case key.Matches(msg, m.keys.library):
		m.view = PlaylistListView
		if m.hasPlaylists {
			return m, nil
		}
		return m, m.fetchPlaylists()
	}
	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.hasPlaylists && m.playlistList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.library):
		m.view = NowPlayingView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if !m.hasPlaylists || m.progressChan != nil {
			return m, nil
		}
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			return m, m.fetchTracks(pl.playlist)
		}
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if t, ok := m.trackList.SelectedItem().(trackItem); ok {
			m.view = NowPlayingView
			uri := t.track.URI
			return m, m.do("Play "+t.track.Name, func(ctx context.Context) error {
				return m.player.Play(ctx, uri)
			})
		}
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		if m.hasPlaylists {
			m.playlistList, cmd = m.playlistList.Update(msg)
		}
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) do(action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg(action, fn(m.ctx))
	}
}

func (m *Model) seek(delta time.Duration) tea.Cmd {
	target := time.Duration(m.state.PositionMs)*time.Millisecond + delta
	return m.do("Seek", func(ctx context.Context) error {
		return m.player.Seek(ctx, target.Seconds())
	})
}

func (m *Model) volume(delta int) tea.Cmd {
	return m.do("Volume", func(ctx context.Context) error {
		return m.player.AdjustVolume(ctx, delta)
	})
}

func (m *Model) waitForState() tea.Cmd {
	states := m.states
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return nil
		}
		return stateChangedMsg(state)
	}
}

func (m *Model) fetchPlaylists() tea.Cmd {
	ch := make(chan library.ProgressUpdate, 16)
	m.progressChan = ch
	m.loading = "Loading playlists..."

	fetch := func() tea.Msg {
		defer close(ch)
		playlists, err := m.library.UserPlaylists(m.ctx, ch)
		return playlistsFetchedMsg(playlists, err)
	}
	return tea.Batch(fetch, m.waitForProgress(ch))
}

func (m *Model) fetchTracks(playlist models.Playlist) tea.Cmd {
	ch := make(chan library.ProgressUpdate, 16)
	m.progressChan = ch
	m.loading = fmt.Sprintf("Loading %s...", playlist.Name)

	fetch := func() tea.Msg {
		defer close(ch)
		tracks, err := m.library.PlaylistTracks(m.ctx, playlist.ID, ch)
		return tracksFetchedMsg(playlist, tracks, err)
	}
	return tea.Batch(fetch, m.waitForProgress(ch))
}

func (m *Model) waitForProgress(ch <-chan library.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PlaylistListView:
		body = m.renderPlaylistList()
	case TrackListView:
		body = m.renderTrackList()
	default:
		body = m.renderNowPlaying()
	}

	if m.err != nil {
		body = fmt.Sprintf("%s\n\n%s", body, styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	return body
}

func (m *Model) renderNowPlaying() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("wamp"))
	b.WriteString("\n")

	s := m.state
	if s.IsIdle() {
		b.WriteString(styles.help.Render("Nothing playing"))
		b.WriteString("\n\n")
	} else {
		icon := "❚❚"
		if s.IsPlaying {
			icon = "▶"
		}
		fmt.Fprintf(&b, "%s %s\n", icon, styles.track.Render(s.CurrentTrack.Name))
		fmt.Fprintf(&b, "%s", s.CurrentTrack.Artists())
		if s.CurrentTrack.AlbumName != "" {
			fmt.Fprintf(&b, " • %s", s.CurrentTrack.AlbumName)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "%s %s / %s\n", m.bar.ViewAs(s.Progress()), s.FormattedPosition(), s.FormattedDuration())
	fmt.Fprintf(&b, "Vol %d%%  Shuffle %s  Repeat %s\n", s.Volume, onOff(s.ShuffleState), s.RepeatMode)

	screen := styles.screen.Render(b.String())

	footer := m.status
	if m.loading != "" {
		footer = styles.warn.Render(m.loading)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", screen, footer, m.help.View(m.keys))
}

func (m *Model) renderPlaylistList() string {
	if !m.hasPlaylists {
		return fmt.Sprintf("%s\n\n%s", styles.warn.Render(m.loading), m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
	if m.loading != "" {
		helpView = fmt.Sprintf("%s\n%s", styles.warn.Render(m.loading), helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	playKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play"))
	helpView := m.help.ShortHelpView([]key.Binding{playKey, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
