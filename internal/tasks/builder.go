package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/evanherd/spotsync/internal/models"
	"github.com/evanherd/spotsync/internal/shared"
)

// SortOrder selects how the playlist builder orders candidate tracks.
type SortOrder string

const (
	SortPopularity SortOrder = "popularity"
	SortDate       SortOrder = "date"
	SortRelease    SortOrder = "release"
	SortRandom     SortOrder = "random"
)

// ParseSortOrder validates a sort-order flag value. Empty means
// popularity.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "":
		return SortPopularity, nil
	case SortPopularity, SortDate, SortRelease, SortRandom:
		return SortOrder(s), nil
	default:
		return "", fmt.Errorf("%w: unknown sort order %q", shared.ErrInvalidFlag, s)
	}
}

// BuildOpts configures one builder run.
type BuildOpts struct {
	// Pattern matches the playlist family the liked tracks are sorted
	// into, and names the new volume.
	Pattern string
	// Count caps how many tracks land on the new playlist. Zero or
	// negative means no cap.
	Count int
	// Sort orders candidates before the cap applies.
	Sort SortOrder
	// Name overrides the generated volume name when non-empty.
	Name string
	// Public marks the created playlist public.
	Public bool
}

// BuildResult describes the playlist a builder run created.
type BuildResult struct {
	Playlist models.Playlist
	Tracks   []models.Track
}

// BuildUnsorted creates a remote playlist from liked tracks that sit
// on no playlist matching the pattern. The created playlist is also
// mirrored locally so a later analytics query sees it without another
// sync.
func (e *Engine) BuildUnsorted(ctx context.Context, opts BuildOpts) (*BuildResult, error) {
	candidates, err := e.store.UnsortedLikedTracks(opts.Pattern)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no unsorted liked tracks match %q", shared.ErrTrackNotFound, opts.Pattern)
	}

	sortTracks(candidates, opts.Sort)

	if opts.Count > 0 && len(candidates) > opts.Count {
		candidates = candidates[:opts.Count]
	}

	name := opts.Name
	if name == "" {
		existing, err := e.store.PlaylistsMatching(opts.Pattern)
		if err != nil {
			return nil, err
		}

		name = nextVolumeName(opts.Pattern, existing)
	}

	description := fmt.Sprintf("Unsorted tracks from liked songs for %s. Created on %s",
		opts.Pattern, time.Now().Format("2006-01-02"))

	created, err := e.catalog.CreatePlaylist(ctx, name, description, opts.Public)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(candidates))
	for i, t := range candidates {
		ids[i] = t.ID
	}

	if err := e.catalog.AddToPlaylist(ctx, created.ID, ids); err != nil {
		return nil, err
	}

	created.TotalTracks = len(candidates)
	if err := e.mirrorPlaylist(*created, candidates); err != nil {
		return nil, err
	}

	e.logger.Info("playlist created", "name", created.Name, "tracks", len(candidates))

	return &BuildResult{Playlist: *created, Tracks: candidates}, nil
}

func (e *Engine) mirrorPlaylist(p models.Playlist, tracks []models.Track) error {
	tx, err := e.store.Begin()
	if err != nil {
		return err
	}

	if err := tx.UpsertPlaylist(p); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("rollback failed", "playlist", p.ID, "error", rbErr)
		}

		return err
	}

	for i, t := range tracks {
		if err := tx.LinkTrackPlaylist(p.ID, t.ID, i, nil); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				e.logger.Error("rollback failed", "playlist", p.ID, "error", rbErr)
			}

			return err
		}
	}

	return tx.Commit()
}

func sortTracks(tracks []models.Track, order SortOrder) {
	switch order {
	case SortDate:
		sort.SliceStable(tracks, func(i, j int) bool {
			switch {
			case tracks[i].LikedAt == nil:
				return false
			case tracks[j].LikedAt == nil:
				return true
			default:
				return tracks[i].LikedAt.After(*tracks[j].LikedAt)
			}
		})
	case SortRelease:
		sort.SliceStable(tracks, func(i, j int) bool {
			return tracks[i].ReleaseDate > tracks[j].ReleaseDate
		})
	case SortRandom:
		rand.Shuffle(len(tracks), func(i, j int) {
			tracks[i], tracks[j] = tracks[j], tracks[i]
		})
	default:
		sort.SliceStable(tracks, func(i, j int) bool {
			return popularity(tracks[i]) > popularity(tracks[j])
		})
	}
}

func popularity(t models.Track) int {
	if t.Popularity == nil {
		return -1
	}

	return *t.Popularity
}

// nextVolumeName derives "<pattern> - vol. NN" from the highest volume
// number among existing playlists in the family. A family with no
// numbered volumes starts at volume one.
func nextVolumeName(pattern string, existing []models.Playlist) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(pattern) + `.*vol\.?\s*(\d+)`)

	highest := 0
	for _, p := range existing {
		m := re.FindStringSubmatch(p.Name)
		if m == nil {
			continue
		}

		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		if n > highest {
			highest = n
		}
	}

	return fmt.Sprintf("%s - vol. %02d", strings.TrimSpace(pattern), highest+1)
}
