package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"github.com/evanherd/spotsync/internal/models"
	"github.com/evanherd/spotsync/internal/shared"
)

// ErrStopIteration ends a paged stream early. It is swallowed by the
// streaming methods and never surfaces to callers.
var ErrStopIteration = errors.New("stop iteration")

const (
	pageSize          = 50
	artistBatchSize   = 50
	trackAddBatchSize = 100
	requestInterval   = 200 * time.Millisecond
)

// SpotifyCatalog implements [Catalog] over the Spotify Web API. Every
// request passes through a rate limiter so paged drains stay under the
// API's throttling threshold.
type SpotifyCatalog struct {
	client  *spotify.Client
	limiter *rate.Limiter
}

// NewSpotifyCatalog wraps an authenticated HTTP client.
func NewSpotifyCatalog(httpClient *http.Client) *SpotifyCatalog {
	return &SpotifyCatalog{
		client:  spotify.New(httpClient),
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
	}
}

func (c *SpotifyCatalog) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}

	return nil
}

// Me returns the authenticated user's profile.
func (c *SpotifyCatalog) Me(ctx context.Context) (*models.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	user, err := c.client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: current user: %w", shared.ErrAPIRequest, err)
	}

	return &models.User{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}, nil
}

// LikedTracks drains the saved-tracks feed newest-first, invoking fn
// per entry.
func (c *SpotifyCatalog) LikedTracks(ctx context.Context, fn func(models.SavedTrack) error) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	page, err := c.client.CurrentUsersTracks(ctx, spotify.Limit(pageSize))
	if err != nil {
		return fmt.Errorf("%w: liked tracks: %w", shared.ErrAPIRequest, err)
	}

	for {
		for _, saved := range page.Tracks {
			addedAt, err := time.Parse(spotify.TimestampLayout, saved.AddedAt)
			if err != nil {
				return fmt.Errorf("parse added_at %q: %w", saved.AddedAt, err)
			}

			entry := models.SavedTrack{
				AddedAt: addedAt,
				Track:   trackFromAPI(saved.FullTrack),
			}
			if err := fn(entry); err != nil {
				if errors.Is(err, ErrStopIteration) {
					return nil
				}

				return err
			}
		}

		if err := c.wait(ctx); err != nil {
			return err
		}

		err = c.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: liked tracks page: %w", shared.ErrAPIRequest, err)
		}
	}
}

// Playlists drains the user's playlist listing.
func (c *SpotifyCatalog) Playlists(ctx context.Context) ([]models.Playlist, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	page, err := c.client.CurrentUsersPlaylists(ctx, spotify.Limit(pageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: playlists: %w", shared.ErrAPIRequest, err)
	}

	var playlists []models.Playlist
	for {
		for _, p := range page.Playlists {
			playlists = append(playlists, playlistFromAPI(p))
		}

		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		err = c.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return playlists, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: playlists page: %w", shared.ErrAPIRequest, err)
		}
	}
}

// PlaylistTracks drains a playlist's items in order. Unavailable
// tracks come back with a nil Track so callers can count skips.
func (c *SpotifyCatalog) PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(pageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: playlist %s items: %w", shared.ErrAPIRequest, playlistID, err)
	}

	var items []models.PlaylistItem
	for {
		for _, it := range page.Items {
			item := models.PlaylistItem{}
			if t, err := time.Parse(spotify.TimestampLayout, it.AddedAt); err == nil {
				item.AddedAt = &t
			}
			if it.Track.Track != nil {
				track := trackFromAPI(*it.Track.Track)
				item.Track = &track
			}

			items = append(items, item)
		}

		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		err = c.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: playlist %s page: %w", shared.ErrAPIRequest, playlistID, err)
		}
	}
}

// Artists fetches full artist records in batches of up to fifty ids.
func (c *SpotifyCatalog) Artists(ctx context.Context, ids []string) ([]models.Artist, error) {
	var artists []models.Artist
	for _, batch := range chunkStrings(ids, artistBatchSize) {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		spotifyIDs := make([]spotify.ID, len(batch))
		for i, id := range batch {
			spotifyIDs[i] = spotify.ID(id)
		}

		full, err := c.client.GetArtists(ctx, spotifyIDs...)
		if err != nil {
			return nil, fmt.Errorf("%w: artist batch: %w", shared.ErrAPIRequest, err)
		}

		for _, a := range full {
			if a == nil {
				continue
			}

			artists = append(artists, fullArtistFromAPI(*a))
		}
	}

	return artists, nil
}

// CreatePlaylist creates a playlist owned by the authenticated user.
func (c *SpotifyCatalog) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	created, err := c.client.CreatePlaylistForUser(ctx, me.ID, name, description, public, false)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist %q: %w", shared.ErrAPIRequest, name, err)
	}

	playlist := playlistFromAPI(created.SimplePlaylist)
	playlist.OwnerID = me.ID

	return &playlist, nil
}

// AddToPlaylist appends tracks in batches of up to one hundred ids.
func (c *SpotifyCatalog) AddToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	for _, batch := range chunkStrings(trackIDs, trackAddBatchSize) {
		if err := c.wait(ctx); err != nil {
			return err
		}

		spotifyIDs := make([]spotify.ID, len(batch))
		for i, id := range batch {
			spotifyIDs[i] = spotify.ID(id)
		}

		if _, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), spotifyIDs...); err != nil {
			return fmt.Errorf("%w: add tracks to %s: %w", shared.ErrAPIRequest, playlistID, err)
		}
	}

	return nil
}

func trackFromAPI(t spotify.FullTrack) models.Track {
	pop := int(t.Popularity)
	album := albumFromAPI(t.Album)

	track := models.Track{
		ID:          string(t.ID),
		Name:        t.Name,
		DurationMS:  int(t.Duration),
		Explicit:    t.Explicit,
		Popularity:  &pop,
		PreviewURL:  t.PreviewURL,
		TrackNumber: int(t.TrackNumber),
		ReleaseDate: album.ReleaseDate,
		Album:       &album,
	}
	for _, a := range t.Artists {
		track.Artists = append(track.Artists, simpleArtistFromAPI(a))
	}

	return track
}

func albumFromAPI(a spotify.SimpleAlbum) models.Album {
	total := int(a.TotalTracks)

	return models.Album{
		ID:          string(a.ID),
		Name:        a.Name,
		AlbumType:   a.AlbumType,
		ReleaseDate: a.ReleaseDate,
		TotalTracks: &total,
		ImageURL:    firstImageURL(a.Images),
	}
}

func simpleArtistFromAPI(a spotify.SimpleArtist) models.Artist {
	return models.Artist{
		ID:   string(a.ID),
		Name: a.Name,
	}
}

func fullArtistFromAPI(a spotify.FullArtist) models.Artist {
	pop := int(a.Popularity)

	return models.Artist{
		ID:         string(a.ID),
		Name:       a.Name,
		Popularity: &pop,
		Genres:     a.Genres,
		ImageURL:   firstImageURL(a.Images),
	}
}

func playlistFromAPI(p spotify.SimplePlaylist) models.Playlist {
	return models.Playlist{
		ID:            string(p.ID),
		Name:          p.Name,
		Public:        p.IsPublic,
		Collaborative: p.Collaborative,
		ImageURL:      firstImageURL(p.Images),
		OwnerID:       p.Owner.ID,
		TotalTracks:   int(p.Tracks.Total),
	}
}

func firstImageURL(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}

	return images[0].URL
}

func chunkStrings(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}

	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}

		chunks = append(chunks, ids[start:end])
	}

	return chunks
}
