package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/evanherd/spotsync/internal/models"
	"github.com/evanherd/spotsync/internal/shared"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewStore(db)
}

func mustCommit(t *testing.T, tx *Tx) {
	t.Helper()
	if err := tx.Commit(); err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
}

func beginTx(t *testing.T, st *Store) *Tx {
	t.Helper()
	tx, err := st.Begin()
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	return tx
}

func intp(n int) *int { return &n }

func timep(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestUpsertArtist(t *testing.T) {
	st := setupTestDB(t)

	t.Run("Insert And Idempotent Reapply", func(t *testing.T) {
		artist := models.Artist{
			ID:         "artist1",
			Name:       "First Artist",
			Popularity: intp(70),
			Genres:     []string{"rock", "indie"},
			ImageURL:   "https://img/artist1",
		}

		for i := 0; i < 2; i++ {
			tx := beginTx(t, st)
			if err := tx.UpsertArtist(artist); err != nil {
				t.Fatalf("failed to upsert artist: %v", err)
			}
			mustCommit(t, tx)
		}

		got, err := st.GetArtist("artist1")
		if err != nil {
			t.Fatalf("failed to get artist: %v", err)
		}
		if got.Name != "First Artist" {
			t.Errorf("expected name First Artist, got %q", got.Name)
		}
		if got.Popularity == nil || *got.Popularity != 70 {
			t.Errorf("expected popularity 70, got %v", got.Popularity)
		}
		if len(got.Genres) != 2 || got.Genres[0] != "rock" {
			t.Errorf("unexpected genres: %v", got.Genres)
		}

		var count int
		if err := st.DB().QueryRow("SELECT COUNT(*) FROM artists").Scan(&count); err != nil {
			t.Fatalf("failed to count artists: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 artist row, got %d", count)
		}
	})

	t.Run("Abbreviated Payload Preserves Details", func(t *testing.T) {
		tx := beginTx(t, st)
		if err := tx.UpsertArtist(models.Artist{ID: "artist1", Name: "Renamed Artist"}); err != nil {
			t.Fatalf("failed to upsert artist: %v", err)
		}
		mustCommit(t, tx)

		got, err := st.GetArtist("artist1")
		if err != nil {
			t.Fatalf("failed to get artist: %v", err)
		}
		if got.Name != "Renamed Artist" {
			t.Errorf("expected renamed artist, got %q", got.Name)
		}
		if got.Popularity == nil || *got.Popularity != 70 {
			t.Errorf("popularity should survive abbreviated upsert, got %v", got.Popularity)
		}
		if len(got.Genres) != 2 {
			t.Errorf("genres should survive abbreviated upsert, got %v", got.Genres)
		}
		if got.ImageURL != "https://img/artist1" {
			t.Errorf("image should survive abbreviated upsert, got %q", got.ImageURL)
		}
	})
}

func TestUpsertTrack(t *testing.T) {
	album := models.Album{ID: "album1", Name: "The Album", ReleaseDate: "2019-05-01", TotalTracks: intp(12)}
	track := models.Track{
		ID:          "track1",
		Name:        "The Track",
		DurationMS:  215000,
		Explicit:    true,
		Popularity:  intp(55),
		PreviewURL:  "https://preview/track1",
		TrackNumber: 3,
		Album:       &album,
	}

	t.Run("Denormalizes Album Release Date", func(t *testing.T) {
		st := setupTestDB(t)

		tx := beginTx(t, st)
		if err := tx.UpsertAlbum(album); err != nil {
			t.Fatalf("failed to upsert album: %v", err)
		}
		if err := tx.UpsertTrack(track, false, nil); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}
		mustCommit(t, tx)

		got, err := st.GetTrack("track1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if got.ReleaseDate != "2019-05-01" {
			t.Errorf("expected denormalized release date, got %q", got.ReleaseDate)
		}
		if got.Album == nil || got.Album.ID != "album1" {
			t.Errorf("expected album reference, got %v", got.Album)
		}
	})

	t.Run("Liked Flag Only Raised", func(t *testing.T) {
		st := setupTestDB(t)
		likedAt := timep("2024-03-01T10:00:00Z")

		tx := beginTx(t, st)
		if err := tx.UpsertAlbum(album); err != nil {
			t.Fatalf("failed to upsert album: %v", err)
		}
		if err := tx.UpsertTrack(track, true, likedAt); err != nil {
			t.Fatalf("failed to upsert liked track: %v", err)
		}
		mustCommit(t, tx)

		tx = beginTx(t, st)
		if err := tx.UpsertTrack(track, false, nil); err != nil {
			t.Fatalf("failed to re-upsert track: %v", err)
		}
		mustCommit(t, tx)

		got, err := st.GetTrack("track1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if !got.IsLiked {
			t.Error("liked flag should survive a playlist-context upsert")
		}
		if got.LikedAt == nil || !got.LikedAt.Equal(*likedAt) {
			t.Errorf("liked_at should survive, got %v", got.LikedAt)
		}
	})

	t.Run("Optional Fields Preserved When Absent", func(t *testing.T) {
		st := setupTestDB(t)

		tx := beginTx(t, st)
		if err := tx.UpsertAlbum(album); err != nil {
			t.Fatalf("failed to upsert album: %v", err)
		}
		if err := tx.UpsertTrack(track, false, nil); err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}

		bare := models.Track{ID: "track1", Name: "The Track", DurationMS: 215000, TrackNumber: 3}
		if err := tx.UpsertTrack(bare, false, nil); err != nil {
			t.Fatalf("failed to upsert bare track: %v", err)
		}
		mustCommit(t, tx)

		got, err := st.GetTrack("track1")
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if got.Popularity == nil || *got.Popularity != 55 {
			t.Errorf("popularity should survive bare upsert, got %v", got.Popularity)
		}
		if got.PreviewURL != "https://preview/track1" {
			t.Errorf("preview url should survive bare upsert, got %q", got.PreviewURL)
		}
		if got.Album == nil {
			t.Error("album reference should survive bare upsert")
		}
	})
}

func TestLinks(t *testing.T) {
	st := setupTestDB(t)

	tx := beginTx(t, st)
	if err := tx.UpsertArtist(models.Artist{ID: "artist1", Name: "A"}); err != nil {
		t.Fatalf("failed to upsert artist: %v", err)
	}
	if err := tx.UpsertTrack(models.Track{ID: "track1", Name: "T"}, false, nil); err != nil {
		t.Fatalf("failed to upsert track: %v", err)
	}
	if err := tx.UpsertPlaylist(models.Playlist{ID: "pl1", Name: "Mix"}); err != nil {
		t.Fatalf("failed to upsert playlist: %v", err)
	}
	mustCommit(t, tx)

	t.Run("Track Artist Link Idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			tx := beginTx(t, st)
			if err := tx.LinkTrackArtist("track1", "artist1"); err != nil {
				t.Fatalf("failed to link: %v", err)
			}
			mustCommit(t, tx)
		}

		var count int
		if err := st.DB().QueryRow("SELECT COUNT(*) FROM track_artists").Scan(&count); err != nil {
			t.Fatalf("failed to count links: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 link row, got %d", count)
		}
	})

	t.Run("Playlist Link Updates Position", func(t *testing.T) {
		added := timep("2024-01-15T08:30:00Z")

		tx := beginTx(t, st)
		if err := tx.LinkTrackPlaylist("pl1", "track1", 4, added); err != nil {
			t.Fatalf("failed to link: %v", err)
		}
		mustCommit(t, tx)

		tx = beginTx(t, st)
		if err := tx.LinkTrackPlaylist("pl1", "track1", 0, nil); err != nil {
			t.Fatalf("failed to re-link: %v", err)
		}
		mustCommit(t, tx)

		pos, addedAt, err := st.GetPlaylistEntry("pl1", "track1")
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if pos != 0 {
			t.Errorf("expected updated position 0, got %d", pos)
		}
		if addedAt == nil || !addedAt.Equal(*added) {
			t.Errorf("added_at should survive nil re-link, got %v", addedAt)
		}
	})
}

func TestRollbackDiscardsWrites(t *testing.T) {
	st := setupTestDB(t)

	tx := beginTx(t, st)
	if err := tx.UpsertArtist(models.Artist{ID: "artist1", Name: "A"}); err != nil {
		t.Fatalf("failed to upsert artist: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("failed to rollback: %v", err)
	}

	_, err := st.GetArtist("artist1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after rollback, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	st := setupTestDB(t)

	cases := []struct {
		name string
		get  func() error
	}{
		{"Artist", func() error { _, err := st.GetArtist("missing"); return err }},
		{"Album", func() error { _, err := st.GetAlbum("missing"); return err }},
		{"Track", func() error { _, err := st.GetTrack("missing"); return err }},
		{"Playlist", func() error { _, err := st.GetPlaylist("missing"); return err }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.get(); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestNullHelpers(t *testing.T) {
	if nullStr("") != nil {
		t.Error("empty string should map to NULL")
	}
	if nullStr("x") != "x" {
		t.Error("non-empty string should pass through")
	}
	if nullInt(nil) != nil {
		t.Error("nil int should map to NULL")
	}
	if nullJoin(nil) != nil {
		t.Error("empty slice should map to NULL")
	}
	if got := nullJoin([]string{"a", "b"}); got != "a,b" {
		t.Errorf("expected joined genres, got %v", got)
	}
	if got := intPtr(sql.NullInt64{Valid: true, Int64: 9}); got == nil || *got != 9 {
		t.Errorf("expected 9, got %v", got)
	}
}
