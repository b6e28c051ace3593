package spotify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/wamp/internal/shared"
	"github.com/desertthunder/wamp/internal/transport"
)

func playlistPage(next string, ids ...string) paging[SpotifySimplePlaylist] {
	page := paging[SpotifySimplePlaylist]{Next: next, Total: len(ids)}
	for _, id := range ids {
		page.Items = append(page.Items, SpotifySimplePlaylist{ID: id, Name: "Playlist " + id, Owner: Owner{ID: "owner"}})
	}
	return page
}

func playlistIDs(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestPlaylists(t *testing.T) {
	ctx := context.Background()
	const next = "https://api.spotify.com/v1/me/playlists?offset=%d&limit=50"

	collectIDs := func(client *Client) []string {
		t.Helper()
		playlists, err := client.Playlists(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ids := make([]string, 0, len(playlists))
		for _, p := range playlists {
			ids = append(ids, p.ID)
		}
		return ids
	}

	t.Run("concatenates pages in order until next is absent", func(t *testing.T) {
		pages := []paging[SpotifySimplePlaylist]{
			playlistPage(fmt.Sprintf(next, 2), "p1", "p2"),
			playlistPage(fmt.Sprintf(next, 4), "p3", "p4"),
			playlistPage("", "p5"),
		}
		client, exec := newTestClient(func(n int, _ *transport.Request) (any, error) { return pages[n], nil })
		client.SetAccessToken("A1")

		playlistIDs(t, collectIDs(client), "p1", "p2", "p3", "p4", "p5")

		reqs := exec.Requests()
		if len(reqs) != 3 {
			t.Fatalf("expected 3 requests, got %d", len(reqs))
		}
		if reqs[0].Path != "/me/playlists" || reqs[0].Query.Get("limit") != "50" {
			t.Errorf("unexpected first request %+v", reqs[0])
		}
		if reqs[1].Path != "/me/playlists?offset=2&limit=50" {
			t.Errorf("unexpected cursor path %q", reqs[1].Path)
		}
	})

	t.Run("empty first page yields empty result", func(t *testing.T) {
		client, exec := newTestClient(func(int, *transport.Request) (any, error) {
			return playlistPage(fmt.Sprintf(next, 50)), nil
		})
		client.SetAccessToken("A1")

		playlistIDs(t, collectIDs(client))
		if exec.Count() != 1 {
			t.Errorf("expected 1 request, got %d", exec.Count())
		}
	})

	t.Run("repeated cursor terminates", func(t *testing.T) {
		client, exec := newTestClient(func(n int, _ *transport.Request) (any, error) {
			return playlistPage(fmt.Sprintf(next, 2), fmt.Sprintf("p%d", n)), nil
		})
		client.SetAccessToken("A1")

		playlistIDs(t, collectIDs(client), "p0", "p1")
		if exec.Count() != 2 {
			t.Errorf("expected 2 requests, got %d", exec.Count())
		}
	})

	t.Run("foreign host cursor terminates", func(t *testing.T) {
		client, exec := newTestClient(func(int, *transport.Request) (any, error) {
			return playlistPage("https://evil.example.com/v1/me/playlists?offset=1", "p1"), nil
		})
		client.SetAccessToken("A1")

		playlistIDs(t, collectIDs(client), "p1")
		if exec.Count() != 1 {
			t.Errorf("expected 1 request, got %d", exec.Count())
		}
	})

	t.Run("page cap terminates an endless cursor chain", func(t *testing.T) {
		client, exec := newTestClient(func(n int, _ *transport.Request) (any, error) {
			return playlistPage(fmt.Sprintf(next, n+1), fmt.Sprintf("p%d", n)), nil
		}, WithMaxPages(3))
		client.SetAccessToken("A1")

		playlistIDs(t, collectIDs(client), "p0", "p1", "p2")
		if exec.Count() != 3 {
			t.Errorf("expected 3 requests, got %d", exec.Count())
		}
	})

	t.Run("error mid-way is returned", func(t *testing.T) {
		client, _ := newTestClient(func(n int, _ *transport.Request) (any, error) {
			if n == 1 {
				return nil, shared.NewError(shared.KindServiceUnavailable, nil)
			}
			return playlistPage(fmt.Sprintf(next, 1), "p0"), nil
		})
		client.SetAccessToken("A1")

		_, err := client.Playlists(ctx)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected service unavailable, got %v", err)
		}
	})
}

func TestPlaylistTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("requires playlist id", func(t *testing.T) {
		client, _ := newTestClient(func(int, *transport.Request) (any, error) { return nil, nil })
		client.SetAccessToken("A1")

		if _, err := client.PlaylistTracks(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("skips entries without a track", func(t *testing.T) {
		page := paging[SpotifyPlaylistTrack]{Items: []SpotifyPlaylistTrack{
			{Track: &SpotifyTrack{ID: "t1", Name: "One", DurationMS: 61000}},
			{Track: nil},
			{Track: &SpotifyTrack{Name: "local file"}},
			{Track: &SpotifyTrack{ID: "t2", Name: "Two"}},
		}}
		client, exec := newTestClient(func(int, *transport.Request) (any, error) { return page, nil })
		client.SetAccessToken("A1")

		tracks, err := client.PlaylistTracks(ctx, "pl 1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 2 || tracks[0].ID != "t1" || tracks[1].ID != "t2" {
			t.Errorf("unexpected tracks %+v", tracks)
		}
		if got := exec.Requests()[0].Path; got != "/playlists/pl%201/tracks" {
			t.Errorf("unexpected path %q", got)
		}
	})
}

func TestPlaylist(t *testing.T) {
	ctx := context.Background()

	t.Run("maps metadata", func(t *testing.T) {
		body := SpotifySimplePlaylist{
			ID: "pl1", Name: "Mix", Owner: Owner{ID: "u1", DisplayName: "Ada"},
			Tracks: simplePlaylistTracks{Total: 12}, Images: []SpotifyImage{{URL: "https://i.scdn.co/a.jpg"}},
		}
		client, exec := newTestClient(func(int, *transport.Request) (any, error) { return body, nil })
		client.SetAccessToken("A1")

		p, err := client.Playlist(ctx, "pl1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Name != "Mix" || p.Owner != "Ada" || p.TrackCount != 12 || p.ImageURL != "https://i.scdn.co/a.jpg" {
			t.Errorf("unexpected playlist %+v", p)
		}
		req := exec.Requests()[0]
		if req.Path != "/playlists/pl1" || req.Query.Get("fields") != playlistFields {
			t.Errorf("unexpected request %s %v", req.Path, req.Query)
		}
	})

	t.Run("requires playlist id", func(t *testing.T) {
		client, _ := newTestClient(func(int, *transport.Request) (any, error) { return nil, nil })
		if _, err := client.Playlist(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestOffsetEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("saved tracks clamps the page size", func(t *testing.T) {
		tests := []struct {
			limit, offset int
			wantLimit     string
			wantOffset    string
		}{
			{0, 0, "50", "0"},
			{80, 100, "50", "100"},
			{10, -5, "10", "0"},
		}
		for _, tt := range tests {
			client, exec := newTestClient(func(int, *transport.Request) (any, error) {
				return paging[SpotifySavedTrack]{Items: []SpotifySavedTrack{{Track: SpotifyTrack{ID: "t1"}}}, Total: 1}, nil
			})
			client.SetAccessToken("A1")

			page, err := client.SavedTracks(ctx, tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(page.Items) != 1 || page.Total != 1 {
				t.Errorf("unexpected page %+v", page)
			}
			q := exec.Requests()[0].Query
			if q.Get("limit") != tt.wantLimit || q.Get("offset") != tt.wantOffset {
				t.Errorf("limit=%d offset=%d: got query %v", tt.limit, tt.offset, q)
			}
		}
	})

	t.Run("saved albums maps albums", func(t *testing.T) {
		client, exec := newTestClient(func(int, *transport.Request) (any, error) {
			return paging[SpotifySavedAlbum]{Items: []SpotifySavedAlbum{{Album: SpotifyAlbum{
				ID: "a1", Name: "Album", Artists: []SpotifyArtist{{Name: "X"}, {Name: "Y"}}, TotalTracks: 9,
			}}}}, nil
		})
		client.SetAccessToken("A1")

		page, err := client.SavedAlbums(ctx, 20, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Items[0].Artists() != "X, Y" || page.Items[0].TrackCount != 9 {
			t.Errorf("unexpected album %+v", page.Items[0])
		}
		if exec.Requests()[0].Path != "/me/albums" {
			t.Errorf("unexpected path %q", exec.Requests()[0].Path)
		}
	})

	t.Run("followed artists returns the after cursor", func(t *testing.T) {
		client, exec := newTestClient(func(int, *transport.Request) (any, error) {
			var resp followedArtists
			resp.Artists.Items = []SpotifyArtist{{ID: "ar1", Name: "Artist"}}
			resp.Artists.Next = "https://api.spotify.com/v1/me/following?type=artist&after=ar1&limit=50"
			resp.Artists.Total = 2
			return resp, nil
		})
		client.SetAccessToken("A1")

		page, err := client.FollowedArtists(ctx, 0, "ar0")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Next != "ar1" || !page.HasNext() {
			t.Errorf("expected cursor ar1, got %q", page.Next)
		}
		q := exec.Requests()[0].Query
		if q.Get("type") != "artist" || q.Get("after") != "ar0" || q.Get("limit") != "50" {
			t.Errorf("unexpected query %v", q)
		}
	})
}

func TestNextArtistCursor(t *testing.T) {
	tests := []struct {
		name, next, after, want string
	}{
		{"last page", "", "ar9", ""},
		{"explicit cursor", "https://api.spotify.com/v1/me/following?after=x", "ar2", "ar2"},
		{"cursor from next url", "https://api.spotify.com/v1/me/following?type=artist&after=ar3", "", "ar3"},
		{"no cursor anywhere", "https://api.spotify.com/v1/me/following", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextArtistCursor(tt.next, tt.after); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRelativePath(t *testing.T) {
	client := NewClient("https://api.spotify.com/v1")

	tests := []struct {
		next, want string
		ok         bool
	}{
		{"https://api.spotify.com/v1/me/tracks?offset=50", "/me/tracks?offset=50", true},
		{"/me/tracks?offset=50", "/me/tracks?offset=50", true},
		{"http://api.spotify.com/v1/me/tracks", "", false},
		{"https://api.spotify.com/v2/me/tracks", "", false},
		{"me/tracks", "", false},
	}
	for _, tt := range tests {
		got, ok := client.relativePath(tt.next)
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s: expected (%q, %v), got (%q, %v)", tt.next, tt.want, tt.ok, got, ok)
		}
	}
}
