package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/shared"
	th "github.com/desertthunder/wamp/internal/testing"
)

func testListing() *Listing {
	return PlaylistListing(
		models.Playlist{ID: "test123", Name: "Test Playlist", Description: "A test playlist", Owner: "ada"},
		[]models.Track{
			{ID: "track1", URI: "spotify:track:track1", Name: "Song One", ArtistNames: []string{"Artist One"}, AlbumName: "Album One", DurationMs: 180000},
			{ID: "track2", URI: "spotify:track:track2", Name: "Song Two", ArtistNames: []string{"Artist Two", "Guest"}, DurationMs: 240000},
		},
	)
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testListing())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Title,Artist,Album,Duration,URI\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "track1,Song One,Artist One,Album One,180,spotify:track:track1") {
			t.Errorf("CSV missing track1 row, got: %s", output)
		}
		if !strings.Contains(output, `track2,Song Two,"Artist Two, Guest",,240,spotify:track:track2`) {
			t.Errorf("CSV should quote joined artists, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testListing(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}

			output := string(data)
			for _, want := range []string{
				"# Test Playlist",
				"**Description**: A test playlist",
				"**Owner**: ada",
				"**Tracks**: 2",
				"**Length**: 7m0s",
				"## Tracks",
				"1. Artist One - Song One (Album One) [3:00]",
				"2. Artist Two, Guest - Song Two [4:00]",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got: %s", want, output)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("unexpected cover reference")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(testListing(), "test_cover.jpg")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			if !strings.Contains(string(data), "![Cover](test_cover.jpg)") {
				t.Errorf("Markdown missing cover image reference")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testListing())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"Playlist: Test Playlist",
			"Description: A test playlist",
			"Tracks: 2",
			"1. Artist One - Song One [3:00]",
			"2. Artist Two, Guest - Song Two [4:00]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Text missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testListing())
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got["title"] != "Test Playlist" || got["track_count"] != float64(2) {
			t.Errorf("unexpected metadata %v", got)
		}
		if _, ok := got["tracks"]; ok {
			t.Error("metadata should not include tracks")
		}
	})
}

func TestWrite(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"csv", "ID,Title,Artist"},
		{"md", "# Test Playlist"},
		{"Markdown", "## Tracks"},
		{"", "Playlist: Test Playlist"},
		{"text", "Tracks: 2"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Write(&buf, tt.format, testListing()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, buf.String())
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		err := Write(&bytes.Buffer{}, "xml", testListing())
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("writer failure", func(t *testing.T) {
		if err := Write(&th.FWriter{}, "txt", testListing()); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestFileExports(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "export")

		result, err := WriteCSVExport(testListing(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}
		th.AssertFileExists(t, result.TracksFile)
		th.AssertFileExists(t, result.MetadataFile)
		if !strings.Contains(th.MustReadFile(t, result.MetadataFile), `"owner": "ada"`) {
			t.Error("metadata missing owner")
		}
	})

	t.Run("WriteTextExport defaults to listing id", func(t *testing.T) {
		dir := t.TempDir()
		wd := th.MustGetwd(t)
		th.MustChdir(t, dir)
		defer th.MustChdir(t, wd)

		path, err := WriteTextExport(testListing(), "")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "test123_tracks.txt" {
			t.Errorf("unexpected path %q", path)
		}
		th.AssertFileExists(t, filepath.Join(dir, path))
	})

	t.Run("WriteMarkdownExport downloads cover", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpegdata"))
		}))
		defer server.Close()

		l := testListing()
		l.ImageURL = server.URL + "/cover.jpg"
		dir := filepath.Join(t.TempDir(), "md")

		result, err := WriteMarkdownExport(l, dir, server.Client(), nil)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if result.CoverImage == "" || th.MustReadFile(t, result.CoverImage) != "jpegdata" {
			t.Errorf("cover not written: %+v", result)
		}
		if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
			t.Error("README missing cover reference")
		}
	})

	t.Run("WriteMarkdownExport tolerates cover failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		l := testListing()
		l.ImageURL = server.URL + "/missing.jpg"

		var warned error
		result, err := WriteMarkdownExport(l, filepath.Join(t.TempDir(), "md"), server.Client(), func(err error) { warned = err })
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if warned == nil {
			t.Error("expected a warning")
		}
		if result.CoverImage != "" || len(result.Files) != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("DownloadImage requires url", func(t *testing.T) {
		if _, err := DownloadImage(nil, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
