// package tasks runs the sync pipeline: it drains the remote catalog,
// upserts entities into the store in batched transactions, and records
// each run in the sync log.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/evanherd/spotsync/internal/models"
	"github.com/evanherd/spotsync/internal/services"
	"github.com/evanherd/spotsync/internal/store"
)

const defaultFlushEvery = 100

// Engine coordinates one sync run at a time. It is not safe for
// concurrent use.
type Engine struct {
	catalog    services.Catalog
	store      *store.Store
	logger     *log.Logger
	flushEvery int
}

// NewEngine builds an engine. A non-positive flushEvery falls back to
// the default batch size.
func NewEngine(catalog services.Catalog, st *store.Store, logger *log.Logger, flushEvery int) *Engine {
	if flushEvery <= 0 {
		flushEvery = defaultFlushEvery
	}

	return &Engine{
		catalog:    catalog,
		store:      st,
		logger:     logger,
		flushEvery: flushEvery,
	}
}

// SyncResult summarizes a full sync.
type SyncResult struct {
	LikedTracks  int `json:"liked_tracks"`
	SkippedOlder int `json:"skipped_older"`
	Playlists    int `json:"playlists"`
}

// SyncAll runs the liked-tracks sync then the playlist sync. A failed
// liked-tracks run aborts before playlists start.
func (e *Engine) SyncAll(ctx context.Context) (*SyncResult, error) {
	liked, skipped, err := e.SyncLikedTracks(ctx)
	if err != nil {
		return nil, err
	}

	playlists, err := e.SyncPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	return &SyncResult{LikedTracks: liked, SkippedOlder: skipped, Playlists: playlists}, nil
}

// SyncLikedTracks drains the liked-tracks feed newest-first, skipping
// entries liked before the previous successful run's completion. Each
// batch commits its tracks, albums, and abbreviated artists; full
// artist details are refetched in one pass at the end. Returns the
// number of entries written and the number skipped as already synced.
func (e *Engine) SyncLikedTracks(ctx context.Context) (int, int, error) {
	entry, err := e.store.StartSync(models.SyncKindLikedTracks)
	if err != nil {
		return 0, 0, err
	}

	watermark := e.watermark(models.SyncKindLikedTracks)

	tx, err := e.store.Begin()
	if err != nil {
		return 0, 0, e.abort(entry, 0, err)
	}

	var (
		synced    int
		skipped   int
		pending   int
		cursor    string
		artistIDs = map[string]struct{}{}
	)

	err = e.catalog.LikedTracks(ctx, func(saved models.SavedTrack) error {
		// the feed arrives newest-first, but older entries are skipped
		// individually rather than ending the stream, so an out-of-order
		// feed cannot silently drop new likes
		if watermark != nil && saved.AddedAt.Before(*watermark) {
			skipped++
			return nil
		}

		if cursor == "" {
			cursor = saved.AddedAt.UTC().Format(time.RFC3339)
		}

		addedAt := saved.AddedAt
		if err := upsertTrackTree(tx, saved.Track, true, &addedAt); err != nil {
			return err
		}

		for _, a := range saved.Track.Artists {
			artistIDs[a.ID] = struct{}{}
		}

		synced++
		pending++
		if pending >= e.flushEvery {
			if err := tx.Commit(); err != nil {
				return err
			}

			pending = 0
			tx, err = e.store.Begin()
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("rollback failed", "error", rbErr)
		}

		return 0, 0, e.abort(entry, synced, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, e.abort(entry, synced, err)
	}

	if err := e.refreshArtistDetails(ctx, artistIDs); err != nil {
		return 0, 0, e.abort(entry, synced, err)
	}

	if err := e.store.CompleteSync(entry, synced, true, "", cursor); err != nil {
		return 0, 0, err
	}

	e.logger.Info("liked tracks synced", "synced", synced, "skipped_older", skipped)

	return synced, skipped, nil
}

// SyncPlaylists mirrors every playlist and its track listing. Each
// playlist commits as its own batch, so a failure mid-run keeps the
// playlists already flushed. Returns the number of playlists synced.
func (e *Engine) SyncPlaylists(ctx context.Context) (int, error) {
	entry, err := e.store.StartSync(models.SyncKindPlaylists)
	if err != nil {
		return 0, err
	}

	playlists, err := e.catalog.Playlists(ctx)
	if err != nil {
		return 0, e.abort(entry, 0, err)
	}

	var synced int
	artistIDs := map[string]struct{}{}
	for _, p := range playlists {
		if err := e.syncOnePlaylist(ctx, p, artistIDs); err != nil {
			return 0, e.abort(entry, synced, err)
		}

		synced++
	}

	if err := e.refreshArtistDetails(ctx, artistIDs); err != nil {
		return 0, e.abort(entry, synced, err)
	}

	if err := e.store.CompleteSync(entry, synced, true, "", ""); err != nil {
		return 0, err
	}

	e.logger.Info("playlists synced", "playlists", synced)

	return synced, nil
}

func (e *Engine) syncOnePlaylist(ctx context.Context, p models.Playlist, seen map[string]struct{}) error {
	items, err := e.catalog.PlaylistTracks(ctx, p.ID)
	if err != nil {
		return err
	}

	for _, item := range items {
		if item.Track == nil {
			continue
		}
		for _, a := range item.Track.Artists {
			seen[a.ID] = struct{}{}
		}
	}

	tx, err := e.store.Begin()
	if err != nil {
		return err
	}

	if err := e.writePlaylist(tx, p, items); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("rollback failed", "playlist", p.ID, "error", rbErr)
		}

		return err
	}

	return tx.Commit()
}

func (e *Engine) writePlaylist(tx *store.Tx, p models.Playlist, items []models.PlaylistItem) error {
	if err := tx.UpsertPlaylist(p); err != nil {
		return err
	}

	var unavailable int
	for i, item := range items {
		if item.Track == nil {
			unavailable++
			continue
		}

		if err := upsertTrackTree(tx, *item.Track, false, nil); err != nil {
			return err
		}

		// Positions keep the fetch index, so an unavailable slot
		// still occupies its ordinal.
		if err := tx.LinkTrackPlaylist(p.ID, item.Track.ID, i, item.AddedAt); err != nil {
			return err
		}
	}

	if unavailable > 0 {
		e.logger.Warn("skipped unavailable tracks", "playlist", p.Name, "count", unavailable)
	}

	return nil
}

// upsertTrackTree writes a track with its album and abbreviated
// artists in dependency order, so foreign keys hold within the
// transaction.
func upsertTrackTree(tx *store.Tx, track models.Track, liked bool, likedAt *time.Time) error {
	if track.Album != nil {
		if err := tx.UpsertAlbum(*track.Album); err != nil {
			return err
		}
	}

	if err := tx.UpsertTrack(track, liked, likedAt); err != nil {
		return err
	}

	for _, artist := range track.Artists {
		if err := tx.UpsertArtist(artist); err != nil {
			return err
		}

		if err := tx.LinkTrackArtist(track.ID, artist.ID); err != nil {
			return err
		}
	}

	return nil
}

// refreshArtistDetails refetches full records for the artists seen
// during a run, in one committed batch.
func (e *Engine) refreshArtistDetails(ctx context.Context, seen map[string]struct{}) error {
	if len(seen) == 0 {
		return nil
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	artists, err := e.catalog.Artists(ctx, ids)
	if err != nil {
		return err
	}

	tx, err := e.store.Begin()
	if err != nil {
		return err
	}

	for _, a := range artists {
		if err := tx.UpsertArtist(a); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Error("rollback failed", "error", rbErr)
			}

			return err
		}
	}

	return tx.Commit()
}

// watermark returns the completion time of the last successful run of
// the kind. Lookup errors degrade to a full resync rather than
// blocking the run.
func (e *Engine) watermark(kind string) *time.Time {
	last, err := e.store.LastSuccessfulSync(kind)
	if err != nil {
		e.logger.Warn("sync log lookup failed, running full sync", "error", err)
		return nil
	}
	if last == nil || last.CompletedAt == nil {
		return nil
	}

	return last.CompletedAt
}

// abort records a failed run and wraps the cause. The failed log entry
// is written outside any entity transaction, so it survives the
// rollback.
func (e *Engine) abort(entry *models.SyncLog, items int, cause error) error {
	if err := e.store.CompleteSync(entry, items, false, cause.Error(), ""); err != nil {
		e.logger.Error("failed to record sync failure", "error", err)
	}

	return fmt.Errorf("sync %s: %w", entry.SyncKind, cause)
}
