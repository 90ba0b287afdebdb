package database

import (
	"fmt"

	"staff-helper/model"

	"github.com/jmoiron/sqlx"
)

// InsertPromotionLog appends one promotion audit entry.
func InsertPromotionLog(db *sqlx.DB, entry model.PromotionLogEntry) error {
	query := `INSERT INTO promotion_log (guild_id, user_id, from_tier, to_tier, reason, auto, created_at)
              VALUES (:guild_id, :user_id, :from_tier, :to_tier, :reason, :auto, :created_at)`
	_, err := db.NamedExec(query, entry)
	if err != nil {
		return fmt.Errorf("failed to insert promotion log entry: %w", err)
	}
	return nil
}

// InsertDemotionLog appends one demotion audit entry.
func InsertDemotionLog(db *sqlx.DB, entry model.DemotionLogEntry) error {
	query := `INSERT INTO demotion_log (guild_id, user_id, from_tier, to_tier, reason, auto, created_at)
              VALUES (:guild_id, :user_id, :from_tier, :to_tier, :reason, :auto, :created_at)`
	_, err := db.NamedExec(query, entry)
	if err != nil {
		return fmt.Errorf("failed to insert demotion log entry: %w", err)
	}
	return nil
}

// ListPromotionLog retrieves promotion audit entries for a guild, newest
// first.
func ListPromotionLog(db *sqlx.DB, guildID string) ([]model.PromotionLogEntry, error) {
	var entries []model.PromotionLogEntry
	query := "SELECT * FROM promotion_log WHERE guild_id = ? ORDER BY created_at DESC"
	err := db.Select(&entries, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotion log for guild %s: %w", guildID, err)
	}
	return entries, nil
}

// ListDemotionLog retrieves demotion audit entries for a guild, newest
// first.
func ListDemotionLog(db *sqlx.DB, guildID string) ([]model.DemotionLogEntry, error) {
	var entries []model.DemotionLogEntry
	query := "SELECT * FROM demotion_log WHERE guild_id = ? ORDER BY created_at DESC"
	err := db.Select(&entries, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list demotion log for guild %s: %w", guildID, err)
	}
	return entries, nil
}

// ListDemotionLogByUser retrieves demotion audit entries for one member,
// newest first. Used by appeal review.
func ListDemotionLogByUser(db *sqlx.DB, guildID, userID string) ([]model.DemotionLogEntry, error) {
	var entries []model.DemotionLogEntry
	query := "SELECT * FROM demotion_log WHERE guild_id = ? AND user_id = ? ORDER BY created_at DESC"
	err := db.Select(&entries, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list demotion log for user %s in guild %s: %w", userID, guildID, err)
	}
	return entries, nil
}
