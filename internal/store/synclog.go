package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evanherd/spotsync/internal/models"
	"github.com/evanherd/spotsync/internal/shared"
)

// StartSync appends an in-progress sync-log entry and returns it. The
// entry is committed immediately so a crashed run still leaves a
// record.
func (s *Store) StartSync(kind string) (*models.SyncLog, error) {
	entry := &models.SyncLog{
		ID:        shared.GenerateID(),
		SyncKind:  kind,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO sync_log (id, sync_kind, started_at, items_synced, success)
		VALUES (?, ?, ?, 0, 0)`,
		entry.ID, entry.SyncKind, entry.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("start sync log: %w", err)
	}

	return entry, nil
}

// CompleteSync finalizes a sync-log entry with its outcome. The cursor
// records the newest item timestamp the run observed, for diagnostics.
func (s *Store) CompleteSync(entry *models.SyncLog, items int, success bool, errMsg, cursor string) error {
	completed := time.Now().UTC()

	_, err := s.db.Exec(`
		UPDATE sync_log
		SET completed_at = ?, items_synced = ?, success = ?, error_message = ?, cursor = ?
		WHERE id = ?`,
		completed, items, success, nullStr(errMsg), nullStr(cursor), entry.ID,
	)
	if err != nil {
		return fmt.Errorf("complete sync log: %w", err)
	}

	entry.CompletedAt = &completed
	entry.ItemsSynced = items
	entry.Success = success
	entry.ErrorMessage = errMsg
	entry.Cursor = cursor

	return nil
}

// LastSuccessfulSync returns the most recently completed successful
// entry for the kind, or nil when the kind has never succeeded.
func (s *Store) LastSuccessfulSync(kind string) (*models.SyncLog, error) {
	row := s.db.QueryRow(`
		SELECT id, sync_kind, started_at, completed_at, items_synced, cursor, success, error_message
		FROM sync_log
		WHERE sync_kind = ? AND success = 1
		ORDER BY completed_at DESC
		LIMIT 1`, kind)

	entry, err := scanSyncLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("get last successful sync: %w", err)
	}

	return entry, nil
}

// SyncHistory returns the newest entries for a kind, most recent
// first. An empty kind returns entries of every kind.
func (s *Store) SyncHistory(kind string, limit int) ([]models.SyncLog, error) {
	rows, err := s.db.Query(`
		SELECT id, sync_kind, started_at, completed_at, items_synced, cursor, success, error_message
		FROM sync_log
		WHERE (? = '' OR sync_kind = ?)
		ORDER BY started_at DESC
		LIMIT ?`, kind, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("query sync history: %w", err)
	}
	defer rows.Close()

	var entries []models.SyncLog
	for rows.Next() {
		entry, err := scanSyncLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}

		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync log: %w", err)
	}

	return entries, nil
}

func scanSyncLog(row rowScanner) (*models.SyncLog, error) {
	var (
		entry     models.SyncLog
		completed sql.NullTime
		cursor    sql.NullString
		errMsg    sql.NullString
	)
	err := row.Scan(&entry.ID, &entry.SyncKind, &entry.StartedAt, &completed,
		&entry.ItemsSynced, &cursor, &entry.Success, &errMsg)
	if err != nil {
		return nil, err
	}

	entry.StartedAt = entry.StartedAt.UTC()
	entry.CompletedAt = timePtr(completed)
	entry.Cursor = cursor.String
	entry.ErrorMessage = errMsg.String

	return &entry, nil
}
