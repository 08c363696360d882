package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api-info",
		Usage: "Show the authenticated account and a connectivity sample",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print the JSON output",
				Value: true,
			},
		},
		Action: r.APIInfo,
	}
}

// APIInfo fetches the account profile plus the first playlist as a
// quick end-to-end connectivity check.
func (r *Runner) APIInfo(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.requireCatalog()
	if err != nil {
		return err
	}

	me, err := catalog.Me(ctx)
	if err != nil {
		return err
	}

	info := map[string]any{
		"user_id":      me.ID,
		"display_name": me.DisplayName,
	}

	playlists, err := catalog.Playlists(ctx)
	if err != nil {
		r.logger.Warn("failed to list playlists", "error", err)
	} else {
		info["playlists"] = len(playlists)
		if len(playlists) > 0 {
			info["first_playlist"] = playlists[0].Name
		}
	}

	return r.writeJSON(info, cmd.Bool("pretty"))
}
