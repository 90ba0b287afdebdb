package model

import (
	"database/sql"
	"encoding/json"
	"time"
)

// ActivityRecord tracks a staff member's current tier and last observed
// activity. The database table will be named 'activity_records'.
type ActivityRecord struct {
	GuildID         string    `db:"guild_id"`
	UserID          string    `db:"user_id"`
	CurrentTier     TierRank  `db:"current_tier"`
	LastActivityAt  time.Time `db:"last_activity_at"`
	Exempted        bool      `db:"exempted"`
	ExemptionReason string    `db:"exemption_reason"`
}

// SuspensionRecord represents a single time-boxed suspension in the database.
// The database table will be named 'suspensions'. Records are never deleted;
// closing one flips is_active and sets resolved_at.
type SuspensionRecord struct {
	ID            string       `db:"id"` // UUID
	GuildID       string       `db:"guild_id"`
	UserID        string       `db:"user_id"`
	Reason        string       `db:"reason"`
	SuspendedBy   string       `db:"suspended_by"`
	StartAt       time.Time    `db:"start_at"`
	EndAt         time.Time    `db:"end_at"`
	OriginalRoles string       `db:"original_roles"`     // JSON array of role IDs held at suspension time
	DemotedRole   string       `db:"demoted_role"`       // role to restore on expiry; empty when permanent
	SuspendedTier TierRank     `db:"suspended_tier"`     // tier held when the suspension began
	IsPermanent   bool         `db:"is_permanent"`
	IsActive      bool         `db:"is_active"`
	ResolvedAt    sql.NullTime `db:"resolved_at"`
	CancelledBy   string       `db:"cancelled_by"`
}

// Roles decodes the original_roles snapshot.
func (r *SuspensionRecord) Roles() ([]string, error) {
	if r.OriginalRoles == "" || r.OriginalRoles == "[]" {
		return nil, nil
	}
	var roles []string
	if err := json.Unmarshal([]byte(r.OriginalRoles), &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// EncodeRoles serializes a role-ID snapshot for the original_roles column.
func EncodeRoles(roles []string) (string, error) {
	if len(roles) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(roles)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PromotionStats is the performance snapshot a promotion decision is judged
// on. Embedded by value wherever a decision input must survive later changes
// to live statistics.
type PromotionStats struct {
	TicketsResolved int     `db:"tickets_resolved"`
	SupportMessages int     `db:"support_messages"`
	HoursClockedIn  float64 `db:"hours_clocked_in"`
}

// Promotion queue entry review states.
const (
	QueueStatusPending  = "pending"
	QueueStatusApproved = "approved"
	QueueStatusDenied   = "denied"
)

// PromotionQueueEntry is a promotion awaiting manual approval. The database
// table will be named 'promotion_queue'.
type PromotionQueueEntry struct {
	ID       string   `db:"id"` // UUID
	GuildID  string   `db:"guild_id"`
	UserID   string   `db:"user_id"`
	FromTier TierRank `db:"from_tier"`
	ToTier   TierRank `db:"to_tier"`
	PromotionStats
	Status     string       `db:"status"`
	ReviewedBy string       `db:"reviewed_by"`
	ReviewedAt sql.NullTime `db:"reviewed_at"`
	CreatedAt  time.Time    `db:"created_at"`
}

// PromotionLogEntry is an append-only audit row for a promotion.
type PromotionLogEntry struct {
	ID        int64     `db:"id"` // Primary Key, Auto-increment
	GuildID   string    `db:"guild_id"`
	UserID    string    `db:"user_id"`
	FromTier  TierRank  `db:"from_tier"`
	ToTier    TierRank  `db:"to_tier"`
	Reason    string    `db:"reason"`
	Auto      bool      `db:"auto"`
	CreatedAt time.Time `db:"created_at"`
}

// DemotionLogEntry is an append-only audit row for a demotion.
type DemotionLogEntry struct {
	ID        int64     `db:"id"` // Primary Key, Auto-increment
	GuildID   string    `db:"guild_id"`
	UserID    string    `db:"user_id"`
	FromTier  TierRank  `db:"from_tier"`
	ToTier    TierRank  `db:"to_tier"`
	Reason    string    `db:"reason"`
	Auto      bool      `db:"auto"`
	CreatedAt time.Time `db:"created_at"`
}
