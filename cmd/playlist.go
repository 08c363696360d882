package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/urfave/cli/v3"

	"github.com/evanherd/spotsync/internal/formatter"
	"github.com/evanherd/spotsync/internal/models"
	"github.com/evanherd/spotsync/internal/shared"
	"github.com/evanherd/spotsync/internal/store"
	"github.com/evanherd/spotsync/internal/tasks"
)

const (
	similarityThreshold = 0.8
	previewTracks       = 5
)

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Stored playlist queries",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List stored playlists",
				Action: r.PlaylistList,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output playlists as JSON",
					},
				},
			},
			{
				Name:  "export",
				Usage: "Export a stored playlist to CSV or Markdown",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "name",
						UsageText: "playlist name, matched fuzzily",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv or markdown",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to stdout)",
					},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

func showPlaylistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "show-playlist",
		Usage: "Show a stored playlist by approximate name",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "name",
				UsageText: "playlist name, matched fuzzily",
			},
		},
		Action: r.PlaylistShow,
	}
}

func createUnsortedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "create-unsorted",
		Usage: "Create a playlist from liked tracks missing from a playlist family",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "pattern",
				UsageText: "name fragment identifying the playlist family",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "Maximum number of tracks on the new playlist",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Track order: popularity, date, release, or random",
				Value: "popularity",
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist name (defaults to the next volume in the family)",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Make the created playlist public",
			},
		},
		Action: r.PlaylistCreateUnsorted,
	}
}

// PlaylistList prints every stored playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStore()
	if err != nil {
		return err
	}

	playlists, err := st.AllPlaylists()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists stored. Run `spotsync sync` first.\n")
	}

	return r.writePlainln("%s", formatter.PlaylistTable(playlists))
}

// PlaylistShow finds a stored playlist by approximate name and prints
// its details with a short track preview.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	playlist, err := r.findPlaylist(name)
	if err != nil {
		return err
	}

	tracks, err := st.PlaylistTrackList(playlist.ID)
	if err != nil {
		return err
	}

	r.writePlain("Playlist: %s\n", playlist.Name)
	if playlist.Description != "" {
		r.writePlain("Description: %s\n", playlist.Description)
	}
	r.writePlain("Tracks: %d\n", len(tracks))

	preview := tracks
	if len(preview) > previewTracks {
		preview = preview[:previewTracks]
	}

	if len(preview) > 0 {
		r.writePlainln("%s", formatter.TrackTable(preview, r.artistNames(st)))
	}

	return nil
}

// PlaylistExport writes a stored playlist as CSV or Markdown.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	st, err := r.openStore()
	if err != nil {
		return err
	}

	playlist, err := r.findPlaylist(name)
	if err != nil {
		return err
	}

	tracks, err := st.PlaylistTrackList(playlist.ID)
	if err != nil {
		return err
	}

	var data []byte
	switch format := cmd.String("format"); format {
	case "csv":
		if data, err = formatter.ExportToCSV(tracks, r.artistNames(st)); err != nil {
			return err
		}
	case "markdown", "md":
		data = formatter.ExportToMarkdown(*playlist, tracks, r.artistNames(st))
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}

	if path := cmd.String("output"); path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}

		return r.writePlain("Exported %q to %s\n", playlist.Name, path)
	}

	return r.writePlain("%s", data)
}

// PlaylistCreateUnsorted runs the builder and prints the created
// playlist with a short preview.
func (r *Runner) PlaylistCreateUnsorted(ctx context.Context, cmd *cli.Command) error {
	pattern := cmd.StringArg("pattern")
	if pattern == "" {
		return fmt.Errorf("%w: playlist family pattern", shared.ErrMissingArgument)
	}

	order, err := tasks.ParseSortOrder(cmd.String("sort"))
	if err != nil {
		return err
	}

	engine, err := r.engine()
	if err != nil {
		return err
	}

	result, err := engine.BuildUnsorted(ctx, tasks.BuildOpts{
		Pattern: pattern,
		Count:   cmd.Int("count"),
		Sort:    order,
		Name:    cmd.String("name"),
		Public:  cmd.Bool("public"),
	})
	if errors.Is(err, shared.ErrTrackNotFound) {
		return r.writePlain("No unsorted liked tracks match %q, nothing to do\n", pattern)
	}
	if err != nil {
		return err
	}

	r.writePlain("Created playlist %q with %d tracks\n", result.Playlist.Name, len(result.Tracks))

	st, err := r.openStore()
	if err != nil {
		return err
	}

	preview := result.Tracks
	if len(preview) > previewTracks {
		preview = preview[:previewTracks]
	}

	return r.writePlainln("%s", formatter.TrackTable(preview, r.artistNames(st)))
}

// findPlaylist matches a stored playlist by name, accepting substring
// matches and close Jaro-Winkler matches.
func (r *Runner) findPlaylist(name string) (*models.Playlist, error) {
	st, err := r.openStore()
	if err != nil {
		return nil, err
	}

	playlists, err := st.AllPlaylists()
	if err != nil {
		return nil, err
	}

	jw := metrics.NewJaroWinkler()
	target := strings.ToLower(name)

	var best *models.Playlist
	bestScore := 0.0
	for i := range playlists {
		candidate := strings.ToLower(playlists[i].Name)
		if strings.Contains(candidate, target) {
			return &playlists[i], nil
		}

		score := strutil.Similarity(candidate, target, jw)
		if score > bestScore {
			bestScore = score
			best = &playlists[i]
		}
	}

	if best != nil && bestScore >= similarityThreshold {
		return best, nil
	}

	return nil, fmt.Errorf("%w: no playlist matches %q", shared.ErrPlaylistNotFound, name)
}

func (r *Runner) artistNames(st *store.Store) func(string) []string {
	return func(trackID string) []string {
		names, err := st.TrackArtistNames(trackID)
		if err != nil {
			r.logger.Warn("failed to load artist names", "track", trackID, "error", err)
			return nil
		}

		return names
	}
}
