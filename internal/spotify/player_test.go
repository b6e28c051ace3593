package spotify

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/playback"
	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/transport"
)

func playingState() SpotifyPlaybackState {
	vol := 64
	return SpotifyPlaybackState{
		Device:       SpotifyDevice{ID: "d1", Name: "Desk", VolumePercent: &vol},
		RepeatState:  "context",
		ShuffleState: true,
		ProgressMS:   42000,
		IsPlaying:    true,
		Item: &SpotifyTrack{
			ID: "t1", URI: "spotify:track:t1", Name: "Llama", DurationMS: 180000,
			Artists: []SpotifyArtist{{Name: "Winamp"}},
			Album:   SpotifyAlbum{Name: "Whips", Images: []SpotifyImage{{URL: "https://i.scdn.co/w.jpg"}}},
		},
	}
}

func TestWebPlayerCommands(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func(p *WebPlayer) error
		method string
		path   string
		query  map[string]string
		body   any
	}{
		{"play track", func(p *WebPlayer) error { return p.Play(ctx, "spotify:track:t1") },
			http.MethodPut, "/me/player/play", nil, map[string]any{"uris": []string{"spotify:track:t1"}}},
		{"play context", func(p *WebPlayer) error { return p.Play(ctx, "spotify:album:a1") },
			http.MethodPut, "/me/player/play", nil, map[string]any{"context_uri": "spotify:album:a1"}},
		{"pause", func(p *WebPlayer) error { return p.Pause(ctx) },
			http.MethodPut, "/me/player/pause", nil, nil},
		{"resume", func(p *WebPlayer) error { return p.Resume(ctx) },
			http.MethodPut, "/me/player/play", nil, nil},
		{"next", func(p *WebPlayer) error { return p.Next(ctx) },
			http.MethodPost, "/me/player/next", nil, nil},
		{"previous", func(p *WebPlayer) error { return p.Previous(ctx) },
			http.MethodPost, "/me/player/previous", nil, nil},
		{"seek", func(p *WebPlayer) error { return p.Seek(ctx, 90500) },
			http.MethodPut, "/me/player/seek", map[string]string{"position_ms": "90500"}, nil},
		{"volume is clamped", func(p *WebPlayer) error { return p.SetVolume(ctx, 150) },
			http.MethodPut, "/me/player/volume", map[string]string{"volume_percent": "100"}, nil},
		{"repeat", func(p *WebPlayer) error { return p.SetRepeatMode(ctx, models.RepeatTrack) },
			http.MethodPut, "/me/player/repeat", map[string]string{"state": "track"}, nil},
		{"shuffle toggles from off", func(p *WebPlayer) error { return p.ToggleShuffle(ctx) },
			http.MethodPut, "/me/player/shuffle", map[string]string{"state": "true"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, exec := newTestClient(func(int, *transport.Request) (any, error) { return nil, nil })
			client.SetAccessToken("A1")
			player := NewWebPlayer(client, time.Hour, "")

			if err := tt.call(player); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			req := exec.Requests()[0]
			if req.Method != tt.method || req.Path != tt.path {
				t.Errorf("expected %s %s, got %s %s", tt.method, tt.path, req.Method, req.Path)
			}
			for k, v := range tt.query {
				if got := req.Query.Get(k); got != v {
					t.Errorf("query %s: expected %q, got %q", k, v, got)
				}
			}
			if tt.body == nil && req.JSON != nil {
				t.Errorf("expected no body, got %v", req.JSON)
			}
			if tt.body != nil && req.JSON == nil {
				t.Errorf("expected body %v", tt.body)
			}
			if bearer(&req) != "Bearer A1" {
				t.Errorf("missing bearer token")
			}
		})
	}

	t.Run("targets configured device", func(t *testing.T) {
		client, exec := newTestClient(func(int, *transport.Request) (any, error) { return nil, nil })
		client.SetAccessToken("A1")
		player := NewWebPlayer(client, time.Hour, "d1")

		if err := player.Pause(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := exec.Requests()[0].Query.Get("device_id"); got != "d1" {
			t.Errorf("expected device_id d1, got %q", got)
		}
	})

	t.Run("invalid repeat mode is rejected locally", func(t *testing.T) {
		client, exec := newTestClient(func(int, *transport.Request) (any, error) { return nil, nil })
		client.SetAccessToken("A1")
		player := NewWebPlayer(client, time.Hour, "")

		if err := player.SetRepeatMode(ctx, models.RepeatMode("forever")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if exec.Count() != 0 {
			t.Errorf("expected no calls, got %d", exec.Count())
		}
	})

	t.Run("shuffle toggles from polled state", func(t *testing.T) {
		client, exec := newTestClient(func(n int, _ *transport.Request) (any, error) {
			if n == 0 {
				return playingState(), nil
			}
			return nil, nil
		})
		client.SetAccessToken("A1")
		player := NewWebPlayer(client, time.Hour, "")

		if _, _, err := player.CurrentState(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := player.ToggleShuffle(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := exec.Requests()[1].Query.Get("state"); got != "false" {
			t.Errorf("expected shuffle off, got %q", got)
		}
	})

	t.Run("command errors propagate", func(t *testing.T) {
		client, _ := newTestClient(func(int, *transport.Request) (any, error) {
			return nil, shared.NewError(shared.KindNotFound, nil)
		})
		client.SetAccessToken("A1")
		player := NewWebPlayer(client, time.Hour, "")

		if err := player.Next(ctx); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestWebPlayerCurrentState(t *testing.T) {
	ctx := context.Background()

	t.Run("maps playback state", func(t *testing.T) {
		client, exec := newTestClient(func(int, *transport.Request) (any, error) { return playingState(), nil })
		client.SetAccessToken("A1")
		player := NewWebPlayer(client, time.Hour, "")

		u, ok, err := player.CurrentState(ctx)
		if err != nil || !ok {
			t.Fatalf("expected state, got ok=%v err=%v", ok, err)
		}
		if exec.Requests()[0].Path != "/me/player" {
			t.Errorf("unexpected path %q", exec.Requests()[0].Path)
		}

		state := u.ToModel(models.DefaultVolume)
		if !state.IsPlaying || state.PositionMs != 42000 || state.DurationMs != 180000 {
			t.Errorf("unexpected state %+v", state)
		}
		if state.Volume != 64 || !state.ShuffleState || state.RepeatMode != models.RepeatContext {
			t.Errorf("unexpected settings %+v", state)
		}
		if state.CurrentTrack == nil || state.CurrentTrack.Name != "Llama" || state.CurrentTrack.Artists() != "Winamp" {
			t.Errorf("unexpected track %+v", state.CurrentTrack)
		}
		if state.CurrentTrack.AlbumArtURL != "https://i.scdn.co/w.jpg" {
			t.Errorf("unexpected art %q", state.CurrentTrack.AlbumArtURL)
		}
	})

	t.Run("no content means nothing is playing", func(t *testing.T) {
		client, _ := newTestClient(func(int, *transport.Request) (any, error) { return nil, nil })
		client.SetAccessToken("A1")
		player := NewWebPlayer(client, time.Hour, "")

		_, ok, err := player.CurrentState(ctx)
		if err != nil || ok {
			t.Errorf("expected no state, got ok=%v err=%v", ok, err)
		}
	})
}

func TestWebPlayerRun(t *testing.T) {
	t.Run("publishes polled state and closes on cancel", func(t *testing.T) {
		client, _ := newTestClient(func(int, *transport.Request) (any, error) { return playingState(), nil })
		client.SetAccessToken("A1")
		player := NewWebPlayer(client, 10*time.Millisecond, "")

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			player.Run(ctx)
			close(done)
		}()

		select {
		case u := <-player.States():
			if u.TrackWindow.CurrentTrack == nil || u.TrackWindow.CurrentTrack.ID != "t1" {
				t.Errorf("unexpected update %+v", u)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for state")
		}

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancel")
		}
		for range player.States() {
		}
	})

	t.Run("drives a controller end to end", func(t *testing.T) {
		client, _ := newTestClient(func(_ int, req *transport.Request) (any, error) {
			if req.Path == "/me/player" {
				return playingState(), nil
			}
			return nil, nil
		})
		client.SetAccessToken("A1")
		player := NewWebPlayer(client, 10*time.Millisecond, "")
		controller := playback.NewController(player, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		states, unsubscribe := controller.Subscribe(4)
		defer unsubscribe()

		go player.Run(ctx)
		go controller.Run(ctx)

		select {
		case s := <-states:
			if !s.IsPlaying || s.CurrentTrack == nil {
				t.Errorf("unexpected state %+v", s)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for controller state")
		}
	})
}
