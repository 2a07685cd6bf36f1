// package formatter provides functions to export track listings to various
// formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/muse/internal/services"
)

// formatDuration renders a millisecond duration as M:SS.
func formatDuration(ms int) string {
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// artistNames joins a track's artist names.
func artistNames(track services.SpotifyTrack) string {
	names := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		names = append(names, artist.Name)
	}
	return strings.Join(names, ", ")
}

// TracksToCSV converts saved tracks to CSV with columns: ID, Title, Artist, Album, Duration, ISRC
func TracksToCSV(tracks []services.SpotifySavedTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "ISRC"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, saved := range tracks {
		track := saved.Track
		record := []string{
			track.ID,
			track.Name,
			artistNames(track),
			track.Album.Name,
			strconv.Itoa(track.DurationMS / 1000),
			track.ExternalIDs.ISRC,
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

// TracksToMarkdown converts saved tracks to a Markdown listing.
func TracksToMarkdown(title string, tracks []services.SpotifySavedTrack) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	for i, saved := range tracks {
		track := saved.Track
		albumPart := ""
		if track.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n",
			i+1, artistNames(track), track.Name, albumPart, formatDuration(track.DurationMS)))
	}

	return buf.Bytes()
}

// TracksToText converts saved tracks to a plain text listing.
func TracksToText(title string, tracks []services.SpotifySavedTrack) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s (%d tracks)\n\n", title, len(tracks)))
	for i, saved := range tracks {
		track := saved.Track
		buf.WriteString(fmt.Sprintf("%3d. %s - %s [%s]\n",
			i+1, artistNames(track), track.Name, formatDuration(track.DurationMS)))
	}

	return buf.Bytes()
}

// WriteToFile writes exported data to the given path.
func WriteToFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
