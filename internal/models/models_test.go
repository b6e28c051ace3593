package models

import "testing"

func TestRepeatMode(t *testing.T) {
	t.Run("Next cycles off context track", func(t *testing.T) {
		m := RepeatOff
		want := []RepeatMode{RepeatContext, RepeatTrack, RepeatOff, RepeatContext}
		for i, w := range want {
			m = m.Next()
			if m != w {
				t.Fatalf("step %d: got %s, want %s", i, m, w)
			}
		}
	})

	t.Run("ParseRepeatMode", func(t *testing.T) {
		if m, err := ParseRepeatMode("track"); err != nil || m != RepeatTrack {
			t.Errorf("expected track, got %s %v", m, err)
		}
		if _, err := ParseRepeatMode("all"); err == nil {
			t.Error("expected error for unknown mode")
		}
	})
}

func TestPlaybackState(t *testing.T) {
	track := Track{ID: "t1", URI: "spotify:track:t1", Name: "Song", ArtistNames: []string{"A", "B"}, DurationMs: 185000}

	t.Run("idle", func(t *testing.T) {
		idle := IdlePlaybackState()
		if !idle.IsIdle() || idle.PositionMs != 0 || idle.Volume != 50 || idle.RepeatMode != RepeatOff {
			t.Errorf("unexpected idle state %+v", idle)
		}
	})

	t.Run("Equal compares track by value", func(t *testing.T) {
		a := PlaybackState{IsPlaying: true, CurrentTrack: &track, Volume: 40, RepeatMode: RepeatOff}
		copyTrack := track
		copyTrack.ArtistNames = []string{"A", "B"}
		b := PlaybackState{IsPlaying: true, CurrentTrack: &copyTrack, Volume: 40, RepeatMode: RepeatOff}

		if !a.Equal(b) {
			t.Error("expected equal states")
		}

		b.Volume = 41
		if a.Equal(b) {
			t.Error("volume change should break equality")
		}

		if a.Equal(IdlePlaybackState()) {
			t.Error("track vs no track should differ")
		}
	})

	t.Run("progress and formatting", func(t *testing.T) {
		s := PlaybackState{PositionMs: 61000, DurationMs: 122000}
		if s.Progress() != 0.5 {
			t.Errorf("expected 0.5, got %f", s.Progress())
		}
		if s.FormattedPosition() != "1:01" || s.FormattedDuration() != "2:02" {
			t.Errorf("unexpected formatting %s / %s", s.FormattedPosition(), s.FormattedDuration())
		}
		if (PlaybackState{PositionMs: 5}).Progress() != 0 {
			t.Error("zero duration should give zero progress")
		}
		if (PlaybackState{PositionMs: 500, DurationMs: 100}).Progress() != 1 {
			t.Error("progress should clamp to 1")
		}
	})

	t.Run("track helpers", func(t *testing.T) {
		if track.Artists() != "A, B" {
			t.Errorf("unexpected artists %q", track.Artists())
		}
		if track.FormattedDuration() != "3:05" {
			t.Errorf("unexpected duration %q", track.FormattedDuration())
		}
		if FormatMs(-1) != "0:00" {
			t.Error("negative should render 0:00")
		}
	})
}

func TestPage(t *testing.T) {
	if (Page[Track]{}).HasNext() {
		t.Error("empty page has no next")
	}
	if !(Page[Artist]{Next: "cursor"}).HasNext() {
		t.Error("expected next")
	}
	if (User{ID: "u1"}).Name() != "u1" {
		t.Error("Name should fall back to id")
	}
}
