// package formatter renders track listings (a playlist, saved tracks) as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/wamp/internal/models"
	"github.com/desertthunder/wamp/internal/shared"
)

// Format names accepted by [Write].
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Listing is a titled, ordered list of tracks.
type Listing struct {
	ID          string         `json:"id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	Tracks      []models.Track `json:"tracks"`
}

// PlaylistListing builds a [Listing] from playlist metadata and its tracks.
func PlaylistListing(p models.Playlist, tracks []models.Track) *Listing {
	return &Listing{
		ID:          p.ID,
		Title:       p.Name,
		Description: p.Description,
		Owner:       p.Owner,
		ImageURL:    p.ImageURL,
		Tracks:      tracks,
	}
}

// TotalDuration sums the track durations.
func (l *Listing) TotalDuration() time.Duration {
	var ms int
	for _, t := range l.Tracks {
		ms += t.DurationMs
	}
	return time.Duration(ms) * time.Millisecond
}

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text", "plain", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (csv, markdown, txt)", shared.ErrInvalidArgument, s)
	}
}

// Write renders l in format to w.
func Write(w io.Writer, format string, l *Listing) error {
	format, err := ParseFormat(format)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case FormatCSV:
		data, err = ExportToCSV(l)
	case FormatMarkdown:
		data, err = ExportToMarkdown(l, "")
	default:
		data, err = ExportToText(l)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// ExportToCSV converts a Listing to CSV format with columns: ID, Title, Artist, Album, Duration, URI
func ExportToCSV(l *Listing) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range l.Tracks {
		record := []string{
			track.ID,
			track.Name,
			track.Artists(),
			track.AlbumName,
			strconv.Itoa(track.DurationMs / 1000),
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Listing to Markdown with an optional cover image
func ExportToMarkdown(l *Listing, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", l.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if l.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", l.Description)
	}
	if l.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", l.Owner)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(l.Tracks))
	fmt.Fprintf(&buf, "**Length**: %s\n\n", l.TotalDuration().Round(time.Second))

	buf.WriteString("## Tracks\n\n")
	for i, track := range l.Tracks {
		albumPart := ""
		if track.AlbumName != "" {
			albumPart = fmt.Sprintf(" (%s)", track.AlbumName)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artists(), track.Name, albumPart, track.FormattedDuration())
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Listing to plain text
func ExportToText(l *Listing) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", l.Title)
	if l.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", l.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(l.Tracks))

	for i, track := range l.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artists(), track.Name, track.FormattedDuration())
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty image URL", shared.ErrMissingArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, shared.NewError(shared.KindNetwork, fmt.Errorf("failed to download image: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

type metadata struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	TrackCount  int    `json:"track_count"`
	Length      string `json:"length"`
}

// ToMetadataJSON renders the listing's metadata without its tracks.
func ToMetadataJSON(l *Listing) ([]byte, error) {
	return json.MarshalIndent(metadata{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Owner:       l.Owner,
		ImageURL:    l.ImageURL,
		TrackCount:  len(l.Tracks),
		Length:      l.TotalDuration().Round(time.Second).String(),
	}, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport writes {base}_tracks.csv and {base}_metadata.json. base defaults to the listing ID.
func WriteCSVExport(l *Listing, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = l.ID
	}

	csvData, err := ExportToCSV(l)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(l)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{TracksFile: tracksFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when the listing has an image and client is non-nil,
// {dir}/cover.jpg. A failed cover download is reported through warn and otherwise ignored.
func WriteMarkdownExport(l *Listing, outputDir string, client *http.Client, warn func(error)) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = l.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var coverImageFilename string
	if l.ImageURL != "" && client != nil {
		imageData, err := DownloadImage(client, l.ImageURL)
		if err == nil {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err = os.WriteFile(coverImagePath, imageData, 0644); err == nil {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			} else {
				coverImageFilename = ""
			}
		}
		if err != nil && warn != nil {
			warn(err)
		}
	}

	mdData, err := ExportToMarkdown(l, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport writes the plain text listing. path defaults to {ID}_tracks.txt.
func WriteTextExport(l *Listing, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", l.ID)
	}

	textData, err := ExportToText(l)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
