// package formatter renders query results for the terminal and
// exports playlist data to CSV and Markdown.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/evanherd/spotsync/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)

	return t.Render()
}

// ArtistTable renders ranked artists with their track counts and up to
// three genres each.
func ArtistTable(ranks []models.ArtistRank) string {
	rows := make([][]string, len(ranks))
	for i, r := range ranks {
		genres := r.Artist.Genres
		if len(genres) > 3 {
			genres = genres[:3]
		}

		rows[i] = []string{
			strconv.Itoa(i + 1),
			r.Artist.Name,
			strconv.Itoa(r.TrackCount),
			strings.Join(genres, ", "),
		}
	}

	return renderTable([]string{"Rank", "Artist", "Tracks", "Genres"}, rows)
}

// TrackTable renders tracks with their artists.
func TrackTable(tracks []models.Track, artistNames func(trackID string) []string) string {
	rows := make([][]string, len(tracks))
	for i, t := range tracks {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			t.Name,
			strings.Join(artistNames(t.ID), ", "),
			FormatDuration(t.DurationMS),
		}
	}

	return renderTable([]string{"#", "Track", "Artist", "Duration"}, rows)
}

// PlaylistTable renders playlists with their track counts.
func PlaylistTable(playlists []models.Playlist) string {
	rows := make([][]string, len(playlists))
	for i, p := range playlists {
		rows[i] = []string{p.Name, strconv.Itoa(p.TotalTracks), visibility(p.Public)}
	}

	return renderTable([]string{"Playlist", "Tracks", "Visibility"}, rows)
}

func visibility(public bool) string {
	if public {
		return "public"
	}

	return "private"
}

// ExportToCSV renders a playlist's tracks as CSV with columns: ID,
// Title, Artists, Duration, Release Date.
func ExportToCSV(tracks []models.Track, artistNames func(trackID string) []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Duration", "Release Date"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Name,
			strings.Join(artistNames(track.ID), "; "),
			FormatDuration(track.DurationMS),
			track.ReleaseDate,
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

// ExportToMarkdown renders a playlist and its tracks as a Markdown
// document.
func ExportToMarkdown(playlist models.Playlist, tracks []models.Track, artistNames func(trackID string) []string) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Name))

	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", playlist.Description))
	}

	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", len(tracks)))
	buf.WriteString(fmt.Sprintf("**Visibility**: %s\n\n", visibility(playlist.Public)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		artists := strings.Join(artistNames(track.ID), ", ")
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, artists, track.Name, FormatDuration(track.DurationMS)))
	}

	return buf.Bytes()
}
