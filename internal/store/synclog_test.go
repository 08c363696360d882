package store

import (
	"testing"

	"github.com/evanherd/spotsync/internal/models"
)

func TestSyncLog(t *testing.T) {
	st := setupTestDB(t)

	t.Run("Start Writes In Progress Entry", func(t *testing.T) {
		entry, err := st.StartSync(models.SyncKindLikedTracks)
		if err != nil {
			t.Fatalf("failed to start sync: %v", err)
		}
		if entry.ID == "" {
			t.Error("expected a generated id")
		}

		history, err := st.SyncHistory(models.SyncKindLikedTracks, 10)
		if err != nil {
			t.Fatalf("failed to read history: %v", err)
		}
		if len(history) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(history))
		}
		if history[0].CompletedAt != nil {
			t.Error("in-progress entry should have no completion time")
		}
	})

	t.Run("Complete Records Outcome", func(t *testing.T) {
		entry, err := st.StartSync(models.SyncKindPlaylists)
		if err != nil {
			t.Fatalf("failed to start sync: %v", err)
		}

		if err := st.CompleteSync(entry, 12, true, "", "2024-05-01T00:00:00Z"); err != nil {
			t.Fatalf("failed to complete sync: %v", err)
		}

		last, err := st.LastSuccessfulSync(models.SyncKindPlaylists)
		if err != nil {
			t.Fatalf("failed to read last sync: %v", err)
		}
		if last == nil {
			t.Fatal("expected a successful entry")
		}
		if last.ItemsSynced != 12 {
			t.Errorf("expected 12 items, got %d", last.ItemsSynced)
		}
		if last.Cursor != "2024-05-01T00:00:00Z" {
			t.Errorf("unexpected cursor %q", last.Cursor)
		}
		if last.CompletedAt == nil {
			t.Error("expected a completion time")
		}
	})

	t.Run("Failed Runs Never Become Watermarks", func(t *testing.T) {
		st := setupTestDB(t)

		entry, err := st.StartSync(models.SyncKindLikedTracks)
		if err != nil {
			t.Fatalf("failed to start sync: %v", err)
		}
		if err := st.CompleteSync(entry, 3, false, "network down", ""); err != nil {
			t.Fatalf("failed to complete sync: %v", err)
		}

		last, err := st.LastSuccessfulSync(models.SyncKindLikedTracks)
		if err != nil {
			t.Fatalf("failed to read last sync: %v", err)
		}
		if last != nil {
			t.Errorf("failed run should not be a watermark, got %v", last)
		}
	})

	t.Run("Kinds Are Independent", func(t *testing.T) {
		st := setupTestDB(t)

		entry, err := st.StartSync(models.SyncKindPlaylists)
		if err != nil {
			t.Fatalf("failed to start sync: %v", err)
		}
		if err := st.CompleteSync(entry, 1, true, "", ""); err != nil {
			t.Fatalf("failed to complete sync: %v", err)
		}

		last, err := st.LastSuccessfulSync(models.SyncKindLikedTracks)
		if err != nil {
			t.Fatalf("failed to read last sync: %v", err)
		}
		if last != nil {
			t.Errorf("liked-tracks watermark should be empty, got %v", last)
		}
	})

	t.Run("History Newest First", func(t *testing.T) {
		st := setupTestDB(t)

		for i := 0; i < 3; i++ {
			entry, err := st.StartSync(models.SyncKindLikedTracks)
			if err != nil {
				t.Fatalf("failed to start sync: %v", err)
			}
			if err := st.CompleteSync(entry, i, true, "", ""); err != nil {
				t.Fatalf("failed to complete sync: %v", err)
			}
		}

		history, err := st.SyncHistory("", 2)
		if err != nil {
			t.Fatalf("failed to read history: %v", err)
		}
		if len(history) != 2 {
			t.Errorf("expected limit of 2, got %d", len(history))
		}
	})
}
