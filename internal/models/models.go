// package models defines the entity payloads exchanged between the
// remote catalog client, the sync engine, and the local store.
//
// Every entity carries the remote catalog's id; the local store is a
// cache of the remote library and never mints ids of its own. Optional
// fields are pointers (or empty strings) so the store can tell "absent
// from this payload" apart from "present and zero" — absent fields are
// preserved on upsert.
package models

import "time"

// Sync kinds recorded in the sync log.
const (
	SyncKindLikedTracks = "liked_tracks"
	SyncKindPlaylists   = "playlists"
)

// Artist is a Spotify artist. Track payloads embed abbreviated artists
// (id and name only); the full record with popularity, genres, and an
// image arrives from the batch artist lookup.
type Artist struct {
	ID         string
	Name       string
	Popularity *int
	Genres     []string
	ImageURL   string
}

// Album is a Spotify album. ReleaseDate is an opaque string that may be
// year-only, year-month, or a full date, and is never parsed.
type Album struct {
	ID          string
	Name        string
	AlbumType   string
	ReleaseDate string
	TotalTracks *int
	ImageURL    string
}

// Track is a Spotify track, both as a remote payload (with embedded
// Album and Artists) and as a stored record (with liked state and the
// denormalized release date).
type Track struct {
	ID          string
	Name        string
	DurationMS  int
	Explicit    bool
	Popularity  *int
	PreviewURL  string
	TrackNumber int
	IsLiked     bool
	LikedAt     *time.Time
	ReleaseDate string
	Album       *Album
	Artists     []Artist
}

// Playlist is a Spotify playlist. TotalTracks is the remote's reported
// count, not a local aggregate.
type Playlist struct {
	ID            string
	Name          string
	Description   string
	Public        bool
	Collaborative bool
	ImageURL      string
	OwnerID       string
	TotalTracks   int
}

// SavedTrack is a liked-library entry: a track plus the moment it was
// liked. The saved-tracks feed delivers these newest-first.
type SavedTrack struct {
	AddedAt time.Time
	Track   Track
}

// PlaylistItem is one slot of a playlist's track listing. Track is nil
// when the remote no longer carries a payload for the slot (deleted or
// unavailable tracks surface this way).
type PlaylistItem struct {
	AddedAt *time.Time
	Track   *Track
}

// SyncLog is one append-only record of a sync attempt. CompletedAt is
// nil while the run is in progress.
type SyncLog struct {
	ID           string
	SyncKind     string
	StartedAt    time.Time
	CompletedAt  *time.Time
	ItemsSynced  int
	Cursor       string
	Success      bool
	ErrorMessage string
}

// User is the authenticated Spotify account.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// ArtistRank pairs an artist with its distinct-track count for the
// top-artists query.
type ArtistRank struct {
	Artist     Artist
	TrackCount int
}
