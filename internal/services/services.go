// package services talks to the Spotify Web API. The [Catalog]
// interface is the seam the sync engine and the commands consume, so
// tests can swap in a fake without touching the network.
package services

import (
	"context"

	"github.com/evanherd/spotsync/internal/models"
)

// Catalog is the remote music library. Paged listing methods drain
// every page before returning.
type Catalog interface {
	// Me returns the authenticated user's profile.
	Me(ctx context.Context) (*models.User, error)
	// LikedTracks streams the liked library newest-first, invoking fn
	// for each entry. Returning [ErrStopIteration] from fn ends the
	// stream early without error.
	LikedTracks(ctx context.Context, fn func(models.SavedTrack) error) error
	// Playlists returns every playlist the user owns or follows.
	Playlists(ctx context.Context) ([]models.Playlist, error)
	// PlaylistTracks returns a playlist's items in playlist order.
	// Items whose track payload is unavailable carry a nil Track.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistItem, error)
	// Artists fetches full artist records by id, in batches.
	Artists(ctx context.Context, ids []string) ([]models.Artist, error)
	// CreatePlaylist creates a playlist for the authenticated user.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error)
	// AddToPlaylist appends tracks to a playlist, in batches.
	AddToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
}
