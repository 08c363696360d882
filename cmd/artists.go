package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/evanherd/spotsync/internal/formatter"
)

func topArtistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "top-artists",
		Usage: "Rank artists by how many stored tracks they appear on",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "pattern",
				UsageText: "restrict to tracks on playlists whose name contains this",
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of artists to show",
				Value:   10,
			},
			&cli.BoolFlag{
				Name:  "liked-only",
				Usage: "Count only liked tracks",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the ranking as JSON",
			},
		},
		Action: r.TopArtists,
	}
}

// TopArtists renders the artist ranking from local data only.
func (r *Runner) TopArtists(ctx context.Context, cmd *cli.Command) error {
	st, err := r.openStore()
	if err != nil {
		return err
	}

	ranks, err := st.TopArtists(cmd.StringArg("pattern"), cmd.Bool("liked-only"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		type rankedArtist struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			TrackCount int    `json:"track_count"`
		}

		out := make([]rankedArtist, len(ranks))
		for i, rk := range ranks {
			out[i] = rankedArtist{ID: rk.Artist.ID, Name: rk.Artist.Name, TrackCount: rk.TrackCount}
		}

		return r.writeJSON(out, true)
	}

	if len(ranks) == 0 {
		return r.writePlain("No artists found. Run `spotsync sync` first.\n")
	}

	return r.writePlainln("%s", formatter.ArtistTable(ranks))
}
