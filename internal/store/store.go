// package store persists the mirrored library in sqlite and answers
// the analytics queries the commands expose.
//
// Writes happen through an explicit transaction handle: a caller opens
// a Tx with [Store.Begin], issues upserts against it, and commits at
// its own flush boundaries. Every upsert is idempotent, and optional
// fields missing from a payload never clobber values an earlier sync
// stored.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanherd/spotsync/internal/models"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("not found")

// Store wraps the sqlite handle.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for callers that manage their own
// statements (the sync log writes outside entity transactions).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Tx is an open write transaction. It is not safe for concurrent use.
type Tx struct {
	tx *sql.Tx
}

// Begin opens a write transaction.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &Tx{tx: tx}, nil
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Rollback discards the transaction's writes. Rolling back an already
// finished transaction is a no-op.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback transaction: %w", err)
	}

	return nil
}

// UpsertArtist inserts or refreshes an artist row. Popularity, genres,
// and the image are kept when the payload omits them, so an
// abbreviated artist from a track listing never erases details a batch
// lookup stored.
func (t *Tx) UpsertArtist(a models.Artist) error {
	_, err := t.tx.Exec(`
		INSERT INTO artists (id, name, popularity, genres, image_url, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			popularity = COALESCE(excluded.popularity, artists.popularity),
			genres = COALESCE(excluded.genres, artists.genres),
			image_url = COALESCE(excluded.image_url, artists.image_url),
			last_updated = excluded.last_updated`,
		a.ID, a.Name, nullInt(a.Popularity), nullJoin(a.Genres), nullStr(a.ImageURL), timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert artist %s: %w", a.ID, err)
	}

	return nil
}

// UpsertAlbum inserts or refreshes an album row.
func (t *Tx) UpsertAlbum(a models.Album) error {
	_, err := t.tx.Exec(`
		INSERT INTO albums (id, name, album_type, release_date, total_tracks, image_url, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			album_type = COALESCE(excluded.album_type, albums.album_type),
			release_date = COALESCE(excluded.release_date, albums.release_date),
			total_tracks = COALESCE(excluded.total_tracks, albums.total_tracks),
			image_url = COALESCE(excluded.image_url, albums.image_url),
			last_updated = excluded.last_updated`,
		a.ID, a.Name, nullStr(a.AlbumType), nullStr(a.ReleaseDate), nullInt(a.TotalTracks),
		nullStr(a.ImageURL), timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert album %s: %w", a.ID, err)
	}

	return nil
}

// UpsertTrack inserts or refreshes a track row. The liked flag is only
// ever raised here: passing liked=false leaves an existing liked row
// liked, so a playlist sync cannot demote liked-library state. The
// album's release date is denormalized onto the track when the payload
// carries an album.
func (t *Tx) UpsertTrack(tr models.Track, liked bool, likedAt *time.Time) error {
	var albumID, releaseDate any
	if tr.Album != nil {
		albumID = tr.Album.ID
		releaseDate = nullStr(tr.Album.ReleaseDate)
	}

	likedVal := 0
	if liked {
		likedVal = 1
	}

	_, err := t.tx.Exec(`
		INSERT INTO tracks (id, name, duration_ms, explicit, popularity, preview_url,
			track_number, is_liked, liked_at, release_date, album_id, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			duration_ms = excluded.duration_ms,
			explicit = excluded.explicit,
			popularity = COALESCE(excluded.popularity, tracks.popularity),
			preview_url = COALESCE(excluded.preview_url, tracks.preview_url),
			track_number = excluded.track_number,
			is_liked = CASE WHEN excluded.is_liked = 1 THEN 1 ELSE tracks.is_liked END,
			liked_at = COALESCE(excluded.liked_at, tracks.liked_at),
			release_date = COALESCE(excluded.release_date, tracks.release_date),
			album_id = COALESCE(excluded.album_id, tracks.album_id),
			last_updated = excluded.last_updated`,
		tr.ID, tr.Name, tr.DurationMS, tr.Explicit, nullInt(tr.Popularity), nullStr(tr.PreviewURL),
		tr.TrackNumber, likedVal, nullTime(likedAt), releaseDate, albumID, timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert track %s: %w", tr.ID, err)
	}

	return nil
}

// UpsertPlaylist inserts or refreshes a playlist row.
func (t *Tx) UpsertPlaylist(p models.Playlist) error {
	_, err := t.tx.Exec(`
		INSERT INTO playlists (id, name, description, public, collaborative, image_url,
			owner_id, total_tracks, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = COALESCE(excluded.description, playlists.description),
			public = excluded.public,
			collaborative = excluded.collaborative,
			image_url = COALESCE(excluded.image_url, playlists.image_url),
			owner_id = COALESCE(excluded.owner_id, playlists.owner_id),
			total_tracks = excluded.total_tracks,
			last_updated = excluded.last_updated`,
		p.ID, p.Name, nullStr(p.Description), p.Public, p.Collaborative, nullStr(p.ImageURL),
		nullStr(p.OwnerID), p.TotalTracks, timestamp(),
	)
	if err != nil {
		return fmt.Errorf("upsert playlist %s: %w", p.ID, err)
	}

	return nil
}

// LinkTrackArtist records a track/artist association. Re-linking an
// existing pair is a no-op.
func (t *Tx) LinkTrackArtist(trackID, artistID string) error {
	_, err := t.tx.Exec(`
		INSERT INTO track_artists (track_id, artist_id)
		VALUES (?, ?)
		ON CONFLICT(track_id, artist_id) DO NOTHING`,
		trackID, artistID,
	)
	if err != nil {
		return fmt.Errorf("link track %s to artist %s: %w", trackID, artistID, err)
	}

	return nil
}

// LinkTrackPlaylist records a playlist membership at the given
// position, refreshing position and added-at when the pair exists.
func (t *Tx) LinkTrackPlaylist(playlistID, trackID string, position int, addedAt *time.Time) error {
	_, err := t.tx.Exec(`
		INSERT INTO playlist_tracks (playlist_id, track_id, position, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(playlist_id, track_id) DO UPDATE SET
			position = excluded.position,
			added_at = COALESCE(excluded.added_at, playlist_tracks.added_at)`,
		playlistID, trackID, position, nullTime(addedAt),
	)
	if err != nil {
		return fmt.Errorf("link track %s to playlist %s: %w", trackID, playlistID, err)
	}

	return nil
}

// GetArtist fetches one artist row.
func (s *Store) GetArtist(id string) (*models.Artist, error) {
	row := s.db.QueryRow(`
		SELECT id, name, popularity, genres, image_url
		FROM artists WHERE id = ?`, id)

	var (
		a      models.Artist
		pop    sql.NullInt64
		genres sql.NullString
		image  sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &pop, &genres, &image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artist %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("get artist %s: %w", id, err)
	}

	a.Popularity = intPtr(pop)
	a.ImageURL = image.String
	if genres.Valid && genres.String != "" {
		a.Genres = strings.Split(genres.String, ",")
	}

	return &a, nil
}

// GetAlbum fetches one album row.
func (s *Store) GetAlbum(id string) (*models.Album, error) {
	row := s.db.QueryRow(`
		SELECT id, name, album_type, release_date, total_tracks, image_url
		FROM albums WHERE id = ?`, id)

	var (
		a       models.Album
		typ     sql.NullString
		release sql.NullString
		total   sql.NullInt64
		image   sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &typ, &release, &total, &image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("album %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("get album %s: %w", id, err)
	}

	a.AlbumType = typ.String
	a.ReleaseDate = release.String
	a.TotalTracks = intPtr(total)
	a.ImageURL = image.String

	return &a, nil
}

// GetTrack fetches one track row without its artist associations.
func (s *Store) GetTrack(id string) (*models.Track, error) {
	row := s.db.QueryRow(`
		SELECT id, name, duration_ms, explicit, popularity, preview_url,
			track_number, is_liked, liked_at, release_date, album_id
		FROM tracks WHERE id = ?`, id)

	tr, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("track %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("get track %s: %w", id, err)
	}

	return tr, nil
}

// GetPlaylist fetches one playlist row.
func (s *Store) GetPlaylist(id string) (*models.Playlist, error) {
	row := s.db.QueryRow(`
		SELECT id, name, description, public, collaborative, image_url, owner_id, total_tracks
		FROM playlists WHERE id = ?`, id)

	var (
		p     models.Playlist
		desc  sql.NullString
		image sql.NullString
		owner sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.Public, &p.Collaborative, &image, &owner, &p.TotalTracks); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("get playlist %s: %w", id, err)
	}

	p.Description = desc.String
	p.ImageURL = image.String
	p.OwnerID = owner.String

	return &p, nil
}

// GetPlaylistEntry fetches one playlist membership row.
func (s *Store) GetPlaylistEntry(playlistID, trackID string) (position int, addedAt *time.Time, err error) {
	row := s.db.QueryRow(`
		SELECT position, added_at
		FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?`,
		playlistID, trackID)

	var added sql.NullTime
	if err := row.Scan(&position, &added); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, fmt.Errorf("playlist %s track %s: %w", playlistID, trackID, ErrNotFound)
		}

		return 0, nil, fmt.Errorf("get playlist entry: %w", err)
	}

	return position, timePtr(added), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var (
		tr      models.Track
		pop     sql.NullInt64
		preview sql.NullString
		likedAt sql.NullTime
		release sql.NullString
		albumID sql.NullString
	)
	err := row.Scan(&tr.ID, &tr.Name, &tr.DurationMS, &tr.Explicit, &pop, &preview,
		&tr.TrackNumber, &tr.IsLiked, &likedAt, &release, &albumID)
	if err != nil {
		return nil, err
	}

	tr.Popularity = intPtr(pop)
	tr.PreviewURL = preview.String
	tr.LikedAt = timePtr(likedAt)
	tr.ReleaseDate = release.String
	if albumID.Valid {
		tr.Album = &models.Album{ID: albumID.String}
	}

	return &tr, nil
}

func timestamp() time.Time {
	return time.Now().UTC()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}

	return *n
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return t.UTC()
}

func nullJoin(parts []string) any {
	if len(parts) == 0 {
		return nil
	}

	return strings.Join(parts, ",")
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}

	v := int(n.Int64)

	return &v
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}

	t := nt.Time.UTC()

	return &t
}
