package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/playback"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/transport"
)

// DefaultPollInterval is how often [WebPlayer] reads /me/player.
const DefaultPollInterval = time.Second

// WebPlayer drives the user's active Connect device through the Web API player endpoints
// and publishes its state by polling. It satisfies [playback.Player].
type WebPlayer struct {
	client   *Client
	interval time.Duration
	deviceID string
	logger   *log.Logger

	states chan playback.StateUpdate
	kick   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	shuffle bool
}

var (
	_ playback.Player      = (*WebPlayer)(nil)
	_ playback.StateReader = (*WebPlayer)(nil)
)

// NewWebPlayer creates a player. deviceID may be empty to target the currently active device.
func NewWebPlayer(client *Client, interval time.Duration, deviceID string) *WebPlayer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &WebPlayer{
		client:   client,
		interval: interval,
		deviceID: deviceID,
		logger:   client.logger.WithPrefix("player"),
		states:   make(chan playback.StateUpdate, 1),
		kick:     make(chan struct{}, 1),
	}
}

// States returns the update stream. It is closed when [WebPlayer.Run] returns.
func (p *WebPlayer) States() <-chan playback.StateUpdate { return p.states }

// Run polls until ctx is done. Commands trigger an immediate extra poll. Only the first call does anything.
func (p *WebPlayer) Run(ctx context.Context) {
	p.once.Do(func() {
		defer close(p.states)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			p.poll(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-p.kick:
			}
		}
	})
}

func (p *WebPlayer) poll(ctx context.Context) {
	u, ok, err := p.CurrentState(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug("poll failed", "err", err)
		}
		return
	}
	if !ok {
		return
	}

	select {
	case p.states <- u:
	case <-ctx.Done():
	}
}

// CurrentState reads /me/player. ok is false when nothing is playing on any device (204).
func (p *WebPlayer) CurrentState(ctx context.Context) (playback.StateUpdate, bool, error) {
	var raw json.RawMessage
	if err := p.client.do(ctx, &transport.Request{Path: "/me/player"}, &raw); err != nil {
		return playback.StateUpdate{}, false, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return playback.StateUpdate{}, false, nil
	}

	var s SpotifyPlaybackState
	if err := json.Unmarshal(raw, &s); err != nil {
		return playback.StateUpdate{}, false, shared.NewError(shared.KindDecode, err)
	}

	p.mu.Lock()
	p.shuffle = s.ShuffleState
	p.mu.Unlock()

	return toStateUpdate(s), true, nil
}

func toStateUpdate(s SpotifyPlaybackState) playback.StateUpdate {
	u := playback.StateUpdate{
		Paused:     !s.IsPlaying,
		Position:   s.ProgressMS,
		Shuffle:    s.ShuffleState,
		RepeatMode: playback.RepeatModeToWire(models.RepeatMode(s.RepeatState)),
		Volume:     s.Device.VolumePercent,
	}
	if t := s.Item; t != nil {
		u.Duration = t.DurationMS
		info := &playback.TrackInfo{
			ID:         t.ID,
			URI:        t.URI,
			Name:       t.Name,
			DurationMs: t.DurationMS,
			Album:      playback.AlbumInfo{Name: t.Album.Name},
		}
		for _, a := range t.Artists {
			info.Artists = append(info.Artists, playback.NamedItem{Name: a.Name})
		}
		for _, img := range t.Album.Images {
			info.Album.Images = append(info.Album.Images, playback.Image{URL: img.URL})
		}
		u.TrackWindow.CurrentTrack = info
	}
	return u
}

// Play starts a track URI, or a context (album, playlist, artist) URI.
func (p *WebPlayer) Play(ctx context.Context, uri string) error {
	body := map[string]any{"context_uri": uri}
	if strings.HasPrefix(uri, "spotify:track:") || strings.HasPrefix(uri, "spotify:episode:") {
		body = map[string]any{"uris": []string{uri}}
	}
	return p.command(ctx, http.MethodPut, "/me/player/play", nil, body)
}

func (p *WebPlayer) Pause(ctx context.Context) error {
	return p.command(ctx, http.MethodPut, "/me/player/pause", nil, nil)
}

func (p *WebPlayer) Resume(ctx context.Context) error {
	return p.command(ctx, http.MethodPut, "/me/player/play", nil, nil)
}

func (p *WebPlayer) Next(ctx context.Context) error {
	return p.command(ctx, http.MethodPost, "/me/player/next", nil, nil)
}

func (p *WebPlayer) Previous(ctx context.Context) error {
	return p.command(ctx, http.MethodPost, "/me/player/previous", nil, nil)
}

func (p *WebPlayer) Seek(ctx context.Context, positionMs int) error {
	q := url.Values{"position_ms": {strconv.Itoa(max(positionMs, 0))}}
	return p.command(ctx, http.MethodPut, "/me/player/seek", q, nil)
}

func (p *WebPlayer) SetVolume(ctx context.Context, percent int) error {
	q := url.Values{"volume_percent": {strconv.Itoa(shared.Clamp(percent, 0, 100))}}
	return p.command(ctx, http.MethodPut, "/me/player/volume", q, nil)
}

// ToggleShuffle flips the shuffle state last seen by polling.
func (p *WebPlayer) ToggleShuffle(ctx context.Context) error {
	p.mu.Lock()
	next := !p.shuffle
	p.mu.Unlock()

	q := url.Values{"state": {strconv.FormatBool(next)}}
	if err := p.command(ctx, http.MethodPut, "/me/player/shuffle", q, nil); err != nil {
		return err
	}

	p.mu.Lock()
	p.shuffle = next
	p.mu.Unlock()
	return nil
}

func (p *WebPlayer) SetRepeatMode(ctx context.Context, mode models.RepeatMode) error {
	if _, err := models.ParseRepeatMode(string(mode)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	q := url.Values{"state": {string(mode)}}
	return p.command(ctx, http.MethodPut, "/me/player/repeat", q, nil)
}

// Devices lists the user's available Connect devices.
func (p *WebPlayer) Devices(ctx context.Context) ([]SpotifyDevice, error) {
	var resp struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := p.client.do(ctx, &transport.Request{Path: "/me/player/devices"}, &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

func (p *WebPlayer) command(ctx context.Context, method, path string, query url.Values, body any) error {
	if p.deviceID != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("device_id", p.deviceID)
	}

	req := &transport.Request{Method: method, Path: path, Query: query}
	if body != nil {
		req.JSON = body
	}
	if err := p.client.do(ctx, req, nil); err != nil {
		p.logger.Debug("command failed", "method", method, "path", path, "err", err)
		return err
	}

	select {
	case p.kick <- struct{}{}:
	default:
	}
	return nil
}
