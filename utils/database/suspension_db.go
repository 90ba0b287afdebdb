package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staff-helper/model"

	"github.com/jmoiron/sqlx"
)

// InsertSuspension persists a new suspension record.
func InsertSuspension(db *sqlx.DB, record model.SuspensionRecord) error {
	query := `INSERT INTO suspensions
              (id, guild_id, user_id, reason, suspended_by, start_at, end_at,
               original_roles, demoted_role, suspended_tier, is_permanent, is_active, resolved_at, cancelled_by)
              VALUES
              (:id, :guild_id, :user_id, :reason, :suspended_by, :start_at, :end_at,
               :original_roles, :demoted_role, :suspended_tier, :is_permanent, :is_active, :resolved_at, :cancelled_by)`
	_, err := db.NamedExec(query, record)
	if err != nil {
		return fmt.Errorf("failed to insert suspension record: %w", err)
	}
	return nil
}

// GetSuspension retrieves a suspension record by its ID, or nil when no such
// record exists.
func GetSuspension(db *sqlx.DB, id string) (*model.SuspensionRecord, error) {
	var record model.SuspensionRecord
	query := "SELECT * FROM suspensions WHERE id = ?"
	err := db.Get(&record, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suspension record %s: %w", id, err)
	}
	return &record, nil
}

// GetActiveSuspension retrieves the active suspension for a member, or nil.
// At most one active record per (guild, user) exists at any time.
func GetActiveSuspension(db *sqlx.DB, guildID, userID string) (*model.SuspensionRecord, error) {
	var record model.SuspensionRecord
	query := "SELECT * FROM suspensions WHERE guild_id = ? AND user_id = ? AND is_active = 1"
	err := db.Get(&record, query, guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active suspension for user %s in guild %s: %w", userID, guildID, err)
	}
	return &record, nil
}

// ListDueSuspensions retrieves active suspensions due at or before now,
// across every guild. The scan is deliberately unfiltered so records for
// guilds no longer configured still come up for resolution.
func ListDueSuspensions(db *sqlx.DB, now time.Time) ([]model.SuspensionRecord, error) {
	var records []model.SuspensionRecord
	query := "SELECT * FROM suspensions WHERE is_active = 1 AND end_at <= ?"
	err := db.Select(&records, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due suspensions: %w", err)
	}
	return records, nil
}

// CloseSuspension flips one suspension from active to resolved. The WHERE
// clause on is_active makes the flip exactly-once: the boolean result tells
// the caller whether this invocation won the transition, so a scheduler
// retry or a racing cancel cannot double-apply side effects.
func CloseSuspension(db *sqlx.DB, id string, resolvedAt time.Time, cancelledBy string) (bool, error) {
	query := `UPDATE suspensions SET is_active = 0, resolved_at = ?, cancelled_by = ?
              WHERE id = ? AND is_active = 1`
	result, err := db.Exec(query, resolvedAt, cancelledBy, id)
	if err != nil {
		return false, fmt.Errorf("failed to close suspension %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for suspension %s: %w", id, err)
	}
	return rowsAffected > 0, nil
}

// ListSuspensionsByUser retrieves the full suspension history for a member,
// newest first.
func ListSuspensionsByUser(db *sqlx.DB, guildID, userID string) ([]model.SuspensionRecord, error) {
	var records []model.SuspensionRecord
	query := "SELECT * FROM suspensions WHERE guild_id = ? AND user_id = ? ORDER BY start_at DESC"
	err := db.Select(&records, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suspensions for user %s in guild %s: %w", userID, guildID, err)
	}
	return records, nil
}

// GetLatestSuspension retrieves the most recent suspension for a member, or
// nil when the member has never been suspended.
func GetLatestSuspension(db *sqlx.DB, guildID, userID string) (*model.SuspensionRecord, error) {
	var record model.SuspensionRecord
	query := "SELECT * FROM suspensions WHERE guild_id = ? AND user_id = ? ORDER BY start_at DESC LIMIT 1"
	err := db.Get(&record, query, guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest suspension for user %s in guild %s: %w", userID, guildID, err)
	}
	return &record, nil
}
