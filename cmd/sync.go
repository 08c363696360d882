package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror the Spotify library into the local database",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "liked",
				Usage: "Sync only the liked-tracks library",
			},
			&cli.BoolFlag{
				Name:  "playlists",
				Usage: "Sync only playlists",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the result as JSON",
			},
		},
		Action: r.Sync,
	}
}

// Sync runs the requested sync kinds, defaulting to both. Sync
// failures are already recorded in the sync log, so they are logged
// here rather than re-raised.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.engine()
	if err != nil {
		return err
	}

	likedOnly := cmd.Bool("liked")
	playlistsOnly := cmd.Bool("playlists")
	runBoth := likedOnly == playlistsOnly

	var liked, skipped, playlists int

	if runBoth || likedOnly {
		if liked, skipped, err = engine.SyncLikedTracks(ctx); err != nil {
			r.logger.Error("liked-tracks sync failed", "error", err)
			return nil
		}
	}

	if runBoth || playlistsOnly {
		if playlists, err = engine.SyncPlaylists(ctx); err != nil {
			r.logger.Error("playlist sync failed", "error", err)
			return nil
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]int{"liked_tracks": liked, "skipped_older": skipped, "playlists": playlists}, true)
	}

	if runBoth || likedOnly {
		r.writePlain("Liked tracks synced: %d (skipped %d already synced)\n", liked, skipped)
	}
	if runBoth || playlistsOnly {
		r.writePlain("Playlists synced: %d\n", playlists)
	}

	return nil
}
