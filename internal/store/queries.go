package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/evanherd/spotsync/internal/models"
)

// TopArtists ranks artists by how many distinct stored tracks they
// appear on, descending, ties broken by artist id ascending. A
// non-empty pattern restricts the count to tracks on playlists whose
// name contains the pattern; likedOnly restricts it to liked tracks.
// Both filters compose. Limit caps the result when positive.
func (s *Store) TopArtists(pattern string, likedOnly bool, limit int) ([]models.ArtistRank, error) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString(`
		SELECT a.id, a.name, a.popularity, a.genres, a.image_url, COUNT(DISTINCT t.id) AS track_count
		FROM artists a
		JOIN track_artists ta ON ta.artist_id = a.id
		JOIN tracks t ON t.id = ta.track_id`)

	if pattern != "" {
		sb.WriteString(`
		JOIN playlist_tracks pt ON pt.track_id = t.id
		JOIN playlists p ON p.id = pt.playlist_id AND p.name LIKE '%' || ? || '%'`)
		args = append(args, pattern)
	}

	if likedOnly {
		sb.WriteString(`
		WHERE t.is_liked = 1`)
	}

	sb.WriteString(`
		GROUP BY a.id
		ORDER BY track_count DESC, a.id ASC`)

	if limit > 0 {
		sb.WriteString(`
		LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query top artists: %w", err)
	}
	defer rows.Close()

	var ranks []models.ArtistRank
	for rows.Next() {
		var (
			r      models.ArtistRank
			pop    sql.NullInt64
			genres sql.NullString
			image  sql.NullString
		)
		if err := rows.Scan(&r.Artist.ID, &r.Artist.Name, &pop, &genres, &image, &r.TrackCount); err != nil {
			return nil, fmt.Errorf("scan artist rank: %w", err)
		}

		r.Artist.Popularity = intPtr(pop)
		r.Artist.ImageURL = image.String
		if genres.Valid && genres.String != "" {
			r.Artist.Genres = strings.Split(genres.String, ",")
		}

		ranks = append(ranks, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artist ranks: %w", err)
	}

	return ranks, nil
}

// UnsortedLikedTracks returns liked tracks that sit on no playlist
// whose name contains the pattern, ordered by liked-at descending so
// recent likes come first. Liked tracks on unrelated playlists still
// count as unsorted.
func (s *Store) UnsortedLikedTracks(pattern string) ([]models.Track, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.duration_ms, t.explicit, t.popularity, t.preview_url,
			t.track_number, t.is_liked, t.liked_at, t.release_date, t.album_id
		FROM tracks t
		WHERE t.is_liked = 1
		AND NOT EXISTS (
			SELECT 1 FROM playlist_tracks pt
			JOIN playlists p ON p.id = pt.playlist_id
			WHERE pt.track_id = t.id AND p.name LIKE '%' || ? || '%'
		)
		ORDER BY t.liked_at DESC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("query unsorted liked tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		tr, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}

		tracks = append(tracks, *tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}

	return tracks, nil
}

// PlaylistsMatching returns playlists whose names contain the pattern,
// alphabetically.
func (s *Store) PlaylistsMatching(pattern string) ([]models.Playlist, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, public, collaborative, image_url, owner_id, total_tracks
		FROM playlists
		WHERE name LIKE '%' || ? || '%'
		ORDER BY name ASC`, pattern)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var (
			p     models.Playlist
			desc  sql.NullString
			image sql.NullString
			owner sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &desc, &p.Public, &p.Collaborative, &image, &owner, &p.TotalTracks); err != nil {
			return nil, fmt.Errorf("scan playlist: %w", err)
		}

		p.Description = desc.String
		p.ImageURL = image.String
		p.OwnerID = owner.String

		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	return playlists, nil
}

// AllPlaylists returns every stored playlist, alphabetically.
func (s *Store) AllPlaylists() ([]models.Playlist, error) {
	return s.PlaylistsMatching("")
}

// PlaylistTrackList returns a playlist's tracks ordered by position.
func (s *Store) PlaylistTrackList(playlistID string) ([]models.Track, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.duration_ms, t.explicit, t.popularity, t.preview_url,
			t.track_number, t.is_liked, t.liked_at, t.release_date, t.album_id
		FROM tracks t
		JOIN playlist_tracks pt ON pt.track_id = t.id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		tr, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}

		tracks = append(tracks, *tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}

	return tracks, nil
}

// TrackArtistNames returns the names of a track's artists,
// alphabetically.
func (s *Store) TrackArtistNames(trackID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT a.name
		FROM artists a
		JOIN track_artists ta ON ta.artist_id = a.id
		WHERE ta.track_id = ?
		ORDER BY a.name ASC`, trackID)
	if err != nil {
		return nil, fmt.Errorf("query track artists: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan artist name: %w", err)
		}

		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artist names: %w", err)
	}

	return names, nil
}
