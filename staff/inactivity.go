package staff

import (
	"context"
	"fmt"
	"time"

	"staff-helper/model"
	"staff-helper/utils/database"

	"go.uber.org/zap"
)

const reasonInactivity = "inactivity"

// RecordActivity notes that a staff member was active, creating the ledger
// record lazily on first observation.
func (m *Manager) RecordActivity(guildID, userID string, tier model.TierRank, at time.Time) error {
	return database.UpsertActivity(m.db, guildID, userID, tier, at)
}

// SetExemption marks a member as shielded from (or again subject to) the
// inactivity demotion sweep. Exemption is a standing override, not a timer
// reset: an exempted member stays untouched no matter how stale.
func (m *Manager) SetExemption(guildID, userID string, exempt bool, reason string) error {
	return database.SetExemption(m.db, guildID, userID, exempt, reason)
}

// Activity retrieves one member's ledger record, or nil when the member is
// not tracked staff.
func (m *Manager) Activity(guildID, userID string) (*model.ActivityRecord, error) {
	return database.GetActivity(m.db, guildID, userID)
}

// StaffList retrieves every tracked staff member in a guild.
func (m *Manager) StaffList(guildID string) ([]model.ActivityRecord, error) {
	return database.ListActivity(m.db, guildID)
}

// SweepInactive demotes every non-exempt staff member whose last activity is
// older than the guild's inactivity window. Demotion from the lowest tier is
// terminal and ends staff tracking. One member's failure never stops the
// rest of the sweep.
func (m *Manager) SweepInactive(ctx context.Context, cfg *model.GuildStaffConfig, now time.Time) error {
	cutoff := now.Add(-cfg.InactivityWindow())
	stale, err := database.ListInactive(m.db, cfg.GuildID, cutoff)
	if err != nil {
		return err
	}

	for _, record := range stale {
		m.demoteInactive(ctx, cfg, record, now)
	}
	return nil
}

func (m *Manager) demoteInactive(ctx context.Context, cfg *model.GuildStaffConfig, record model.ActivityRecord, now time.Time) {
	unlock := m.locks.Lock(record.GuildID, record.UserID)
	defer unlock()

	// Re-read under the lock; a promotion or suspension may have landed
	// since the listing.
	current, err := database.GetActivity(m.db, record.GuildID, record.UserID)
	if err != nil {
		m.log.Error("failed to re-read activity record",
			zap.String("guild_id", record.GuildID),
			zap.String("user_id", record.UserID),
			zap.Error(err))
		return
	}
	if current == nil || current.Exempted || current.CurrentTier == model.TierNone {
		return
	}

	// An active suspension owns this member's roles until it resolves;
	// their inactivity is the suspension, not absence.
	suspended, err := database.GetActiveSuspension(m.db, record.GuildID, record.UserID)
	if err != nil {
		m.log.Error("failed to check for active suspension",
			zap.String("guild_id", record.GuildID),
			zap.String("user_id", record.UserID),
			zap.Error(err))
		return
	}
	if suspended != nil {
		return
	}

	target, terminal := current.CurrentTier.DemotionTarget()

	if roleID, ok := cfg.RoleForTier(current.CurrentTier); ok {
		m.removeRole(ctx, record.GuildID, record.UserID, roleID, "inactivity")
	}
	if terminal {
		if err := database.DeleteActivity(m.db, record.GuildID, record.UserID); err != nil {
			m.log.Error("failed to drop activity record after terminal inactivity demotion",
				zap.String("guild_id", record.GuildID),
				zap.String("user_id", record.UserID),
				zap.Error(err))
		}
	} else {
		if roleID, ok := cfg.RoleForTier(target); ok {
			m.addRole(ctx, record.GuildID, record.UserID, roleID, "inactivity")
		}
		if err := database.UpdateActivityTier(m.db, record.GuildID, record.UserID, target); err != nil {
			m.log.Error("failed to update tier after inactivity demotion",
				zap.String("guild_id", record.GuildID),
				zap.String("user_id", record.UserID),
				zap.Error(err))
		}
	}

	if err := database.InsertDemotionLog(m.db, model.DemotionLogEntry{
		GuildID:   record.GuildID,
		UserID:    record.UserID,
		FromTier:  current.CurrentTier,
		ToTier:    target,
		Reason:    reasonInactivity,
		Auto:      true,
		CreatedAt: now,
	}); err != nil {
		m.log.Error("failed to write demotion log entry",
			zap.String("guild_id", record.GuildID),
			zap.String("user_id", record.UserID),
			zap.Error(err))
	}

	m.log.Info("inactivity demotion applied",
		zap.String("guild_id", record.GuildID),
		zap.String("user_id", record.UserID),
		zap.String("from_tier", current.CurrentTier.String()),
		zap.String("to_tier", target.String()))

	m.notifyUser(ctx, record.UserID, fmt.Sprintf(
		"You have been demoted to the %s tier due to inactivity.", target))
	m.postAudit(ctx, record.GuildID, fmt.Sprintf(
		"Demoted <@%s> from %s to %s for inactivity (last active <t:%d:R>).",
		record.UserID, current.CurrentTier, target, current.LastActivityAt.Unix()))
}
