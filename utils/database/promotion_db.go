package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staff-helper/model"

	"github.com/jmoiron/sqlx"
)

// EnqueuePromotionIfAbsent inserts a pending queue entry unless one already
// exists for the same (guild, user, target tier). The existence check and
// the insert run in one transaction so two concurrent evaluations cannot
// both enqueue. Returns false when a pending entry was already there.
func EnqueuePromotionIfAbsent(db *sqlx.DB, entry model.PromotionQueueEntry) (bool, error) {
	tx, err := db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin promotion enqueue transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	query := `SELECT COUNT(*) FROM promotion_queue
              WHERE guild_id = ? AND user_id = ? AND to_tier = ? AND status = ?`
	if err := tx.Get(&count, query, entry.GuildID, entry.UserID, entry.ToTier, model.QueueStatusPending); err != nil {
		return false, fmt.Errorf("failed to check for pending promotion entry: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	insert := `INSERT INTO promotion_queue
               (id, guild_id, user_id, from_tier, to_tier,
                tickets_resolved, support_messages, hours_clocked_in,
                status, reviewed_by, reviewed_at, created_at)
               VALUES
               (:id, :guild_id, :user_id, :from_tier, :to_tier,
                :tickets_resolved, :support_messages, :hours_clocked_in,
                :status, :reviewed_by, :reviewed_at, :created_at)`
	if _, err := tx.NamedExec(insert, entry); err != nil {
		return false, fmt.Errorf("failed to insert promotion queue entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit promotion enqueue transaction: %w", err)
	}
	return true, nil
}

// GetQueueEntry retrieves a promotion queue entry by its ID, or nil.
func GetQueueEntry(db *sqlx.DB, id string) (*model.PromotionQueueEntry, error) {
	var entry model.PromotionQueueEntry
	query := "SELECT * FROM promotion_queue WHERE id = ?"
	err := db.Get(&entry, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get promotion queue entry %s: %w", id, err)
	}
	return &entry, nil
}

// ReviewQueueEntry flips a pending entry to approved or denied. The WHERE
// clause on status makes the review exactly-once; false means the entry was
// already reviewed.
func ReviewQueueEntry(db *sqlx.DB, id, status, reviewedBy string, reviewedAt time.Time) (bool, error) {
	query := `UPDATE promotion_queue SET status = ?, reviewed_by = ?, reviewed_at = ?
              WHERE id = ? AND status = ?`
	result, err := db.Exec(query, status, reviewedBy, reviewedAt, id, model.QueueStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to review promotion queue entry %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for queue entry %s: %w", id, err)
	}
	return rowsAffected > 0, nil
}

// ListPendingPromotions retrieves all pending queue entries for a guild,
// oldest first.
func ListPendingPromotions(db *sqlx.DB, guildID string) ([]model.PromotionQueueEntry, error) {
	var entries []model.PromotionQueueEntry
	query := "SELECT * FROM promotion_queue WHERE guild_id = ? AND status = ? ORDER BY created_at ASC"
	err := db.Select(&entries, query, guildID, model.QueueStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending promotions for guild %s: %w", guildID, err)
	}
	return entries, nil
}
