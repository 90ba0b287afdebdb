package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staff-helper/model"

	"github.com/jmoiron/sqlx"
)

// UpsertActivity records staff activity, creating the record lazily on first
// observation. The exemption flag is left alone on update.
func UpsertActivity(db *sqlx.DB, guildID, userID string, tier model.TierRank, at time.Time) error {
	query := `INSERT INTO activity_records (guild_id, user_id, current_tier, last_activity_at)
              VALUES (?, ?, ?, ?)
              ON CONFLICT (guild_id, user_id) DO UPDATE SET
                  current_tier = excluded.current_tier,
                  last_activity_at = excluded.last_activity_at`
	_, err := db.Exec(query, guildID, userID, tier, at)
	if err != nil {
		return fmt.Errorf("failed to upsert activity for user %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}

// GetActivity retrieves one activity record, or nil when the user is not
// tracked as staff.
func GetActivity(db *sqlx.DB, guildID, userID string) (*model.ActivityRecord, error) {
	var record model.ActivityRecord
	query := "SELECT * FROM activity_records WHERE guild_id = ? AND user_id = ?"
	err := db.Get(&record, query, guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity record for user %s in guild %s: %w", userID, guildID, err)
	}
	return &record, nil
}

// ListActivity retrieves all tracked staff for a guild.
func ListActivity(db *sqlx.DB, guildID string) ([]model.ActivityRecord, error) {
	var records []model.ActivityRecord
	query := "SELECT * FROM activity_records WHERE guild_id = ?"
	err := db.Select(&records, query, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity records for guild %s: %w", guildID, err)
	}
	return records, nil
}

// ListInactive retrieves non-exempt staff whose last activity is at or
// before the cutoff. Exempted records never appear here regardless of age.
func ListInactive(db *sqlx.DB, guildID string, cutoff time.Time) ([]model.ActivityRecord, error) {
	var records []model.ActivityRecord
	query := `SELECT * FROM activity_records
              WHERE guild_id = ? AND exempted = 0 AND current_tier > 0 AND last_activity_at <= ?`
	err := db.Select(&records, query, guildID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list inactive staff for guild %s: %w", guildID, err)
	}
	return records, nil
}

// UpdateActivityTier sets the tracked tier for one staff member.
func UpdateActivityTier(db *sqlx.DB, guildID, userID string, tier model.TierRank) error {
	query := "UPDATE activity_records SET current_tier = ? WHERE guild_id = ? AND user_id = ?"
	_, err := db.Exec(query, tier, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to update tier for user %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}

// SetExemption flips the inactivity-demotion exemption for one staff member.
func SetExemption(db *sqlx.DB, guildID, userID string, exempt bool, reason string) error {
	query := "UPDATE activity_records SET exempted = ?, exemption_reason = ? WHERE guild_id = ? AND user_id = ?"
	result, err := db.Exec(query, exempt, reason, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to set exemption for user %s in guild %s: %w", userID, guildID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for user %s in guild %s: %w", userID, guildID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no activity record found for user %s in guild %s", userID, guildID)
	}
	return nil
}

// DeleteActivity removes the record when staff status ends entirely.
func DeleteActivity(db *sqlx.DB, guildID, userID string) error {
	query := "DELETE FROM activity_records WHERE guild_id = ? AND user_id = ?"
	_, err := db.Exec(query, guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete activity record for user %s in guild %s: %w", userID, guildID, err)
	}
	return nil
}
