package staff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staff-helper/model"
	"staff-helper/utils/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reasonSuspensionExpired = "suspension expired"

// Resolution is the outcome of resolving one expired suspension.
type Resolution struct {
	Suspension model.SuspensionRecord
	// Restored is true when the demoted role was handed back. Always false
	// for permanent suspensions, which leave the user removed pending
	// appeal.
	Restored bool
	// Err carries a failed role restoration. The record is resolved either
	// way.
	Err error
}

// Suspend creates a time-boxed suspension for a staff member. The member's
// held roles are snapshotted and the tier roles stripped; the persisted
// record is the source of truth, so a failed strip is logged and left for
// reconciliation rather than aborting the suspension.
func (m *Manager) Suspend(ctx context.Context, cfg *model.GuildStaffConfig, userID, reason, suspendedBy string, durationDays int) (*model.SuspensionRecord, error) {
	unlock := m.locks.Lock(cfg.GuildID, userID)
	defer unlock()

	record, err := m.suspendLocked(ctx, cfg, userID, reason, suspendedBy, durationDays)
	if err != nil {
		return nil, err
	}

	m.notifyUser(ctx, userID, fmt.Sprintf(
		"You have been suspended from the staff team until <t:%d:F>. Reason: %s", record.EndAt.Unix(), reason))
	m.postAudit(ctx, cfg.GuildID, fmt.Sprintf(
		"Suspended <@%s> for %d days (by <@%s>): %s", userID, durationDays, suspendedBy, reason))

	return record, nil
}

func (m *Manager) suspendLocked(ctx context.Context, cfg *model.GuildStaffConfig, userID, reason, suspendedBy string, durationDays int) (*model.SuspensionRecord, error) {
	activity, err := database.GetActivity(m.db, cfg.GuildID, userID)
	if err != nil {
		return nil, err
	}
	if activity == nil || activity.CurrentTier == model.TierNone {
		return nil, fmt.Errorf("%w: user %s is not staff in guild %s", ErrInvalidState, userID, cfg.GuildID)
	}

	existing, err := database.GetActiveSuspension(m.db, cfg.GuildID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: user %s already has an active suspension in guild %s", ErrInvalidState, userID, cfg.GuildID)
	}

	roles := m.snapshotRoles(ctx, cfg, userID, activity.CurrentTier)
	encoded, err := model.EncodeRoles(roles)
	if err != nil {
		return nil, fmt.Errorf("failed to encode role snapshot for user %s: %w", userID, err)
	}

	target, terminal := activity.CurrentTier.DemotionTarget()
	demotedRole := ""
	if !terminal {
		if roleID, ok := cfg.RoleForTier(target); ok {
			demotedRole = roleID
		}
	}

	// Strip only the tier-bound roles; other roles in the snapshot stay.
	for _, roleID := range roles {
		if _, ok := cfg.TierOfRole(roleID); !ok {
			continue
		}
		m.removeRole(ctx, cfg.GuildID, userID, roleID, "suspend")
	}

	now := m.now()
	record := model.SuspensionRecord{
		ID:            uuid.NewString(),
		GuildID:       cfg.GuildID,
		UserID:        userID,
		Reason:        reason,
		SuspendedBy:   suspendedBy,
		StartAt:       now,
		EndAt:         now.Add(time.Duration(durationDays) * 24 * time.Hour),
		OriginalRoles: encoded,
		DemotedRole:   demotedRole,
		SuspendedTier: activity.CurrentTier,
		IsPermanent:   terminal,
		IsActive:      true,
	}
	if err := database.InsertSuspension(m.db, record); err != nil {
		return nil, err
	}

	m.log.Info("suspension created",
		zap.String("suspension_id", record.ID),
		zap.String("guild_id", cfg.GuildID),
		zap.String("user_id", userID),
		zap.String("tier", activity.CurrentTier.String()),
		zap.Bool("permanent", terminal),
		zap.Time("end_at", record.EndAt))

	return &record, nil
}

// snapshotRoles reads the member's live role set. When the platform read
// fails the config-bound tier roles up to the member's tier stand in, so the
// record still carries a restorable snapshot.
func (m *Manager) snapshotRoles(ctx context.Context, cfg *model.GuildStaffConfig, userID string, tier model.TierRank) []string {
	cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	roles, err := m.membership.UserRoles(cctx, cfg.GuildID, userID)
	if err == nil {
		return roles
	}
	m.log.Warn("role snapshot read failed, falling back to configured tier roles",
		zap.String("guild_id", cfg.GuildID),
		zap.String("user_id", userID),
		zap.Error(err))

	var fallback []string
	for t := model.TierTrial; t <= tier; t++ {
		if roleID, ok := cfg.RoleForTier(t); ok {
			fallback = append(fallback, roleID)
		}
	}
	return fallback
}

// Cancel closes an active suspension and restores the exact original role
// snapshot, not the demoted tier. The record is closed even when the
// restoration fails; in that case the returned ExternalCallError is an
// operational alert, not a blocked transition.
func (m *Manager) Cancel(ctx context.Context, suspensionID, cancelledBy string) error {
	record, err := database.GetSuspension(m.db, suspensionID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("%w: suspension %s", ErrNotFound, suspensionID)
	}

	unlock := m.locks.Lock(record.GuildID, record.UserID)
	defer unlock()

	closed, err := database.CloseSuspension(m.db, suspensionID, m.now(), cancelledBy)
	if err != nil {
		return err
	}
	if !closed {
		return fmt.Errorf("%w: suspension %s is not active", ErrInvalidState, suspensionID)
	}

	roles, err := record.Roles()
	if err != nil {
		return fmt.Errorf("failed to decode role snapshot for suspension %s: %w", suspensionID, err)
	}

	var restoreErr error
	for _, roleID := range roles {
		if err := m.addRole(ctx, record.GuildID, record.UserID, roleID, "cancel"); err != nil {
			restoreErr = errors.Join(restoreErr, err)
		}
	}

	m.postAudit(ctx, record.GuildID, fmt.Sprintf(
		"Suspension of <@%s> cancelled by <@%s>.", record.UserID, cancelledBy))

	return restoreErr
}

// ResolveExpired closes every active suspension due at or before now,
// across all guilds. Only the reconciliation scheduler calls this. The scan
// is deployment-wide on purpose: a record carries everything its resolution
// needs, so suspensions in guilds that have since been dropped from the
// configuration still drain instead of staying active forever. Each close is
// exactly-once in the store, so re-invoking with the same now is a no-op for
// records already resolved, and one member's failure never stops the rest of
// the batch.
func (m *Manager) ResolveExpired(ctx context.Context, now time.Time) ([]Resolution, error) {
	due, err := database.ListDueSuspensions(m.db, now)
	if err != nil {
		return nil, err
	}

	var resolutions []Resolution
	for _, record := range due {
		res, ok := m.resolveOne(ctx, record, now)
		if !ok {
			continue
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}

func (m *Manager) resolveOne(ctx context.Context, record model.SuspensionRecord, now time.Time) (Resolution, bool) {
	unlock := m.locks.Lock(record.GuildID, record.UserID)
	defer unlock()

	closed, err := database.CloseSuspension(m.db, record.ID, now, "")
	if err != nil {
		m.log.Error("failed to close expired suspension",
			zap.String("suspension_id", record.ID),
			zap.String("guild_id", record.GuildID),
			zap.String("user_id", record.UserID),
			zap.Error(err))
		return Resolution{Suspension: record, Err: err}, true
	}
	if !closed {
		// Already resolved by a cancel or an earlier tick.
		return Resolution{}, false
	}

	// The record, not the current config, says which tier was held: a role
	// remapping between suspension and expiry must not rewrite history.
	fromTier := record.SuspendedTier
	toTier, _ := fromTier.DemotionTarget()

	res := Resolution{Suspension: record}
	if record.IsPermanent {
		// Terminal: no role comes back; the user is removed pending appeal.
		if err := database.DeleteActivity(m.db, record.GuildID, record.UserID); err != nil {
			m.log.Error("failed to drop activity record after permanent removal",
				zap.String("guild_id", record.GuildID),
				zap.String("user_id", record.UserID),
				zap.Error(err))
		}
		m.postAudit(ctx, record.GuildID, fmt.Sprintf(
			"Suspension of <@%s> expired: permanent removal, reinstatement requires appeal.", record.UserID))
	} else {
		if record.DemotedRole != "" {
			if err := m.addRole(ctx, record.GuildID, record.UserID, record.DemotedRole, "resolve"); err != nil {
				res.Err = err
			} else {
				res.Restored = true
			}
		}
		if err := database.UpdateActivityTier(m.db, record.GuildID, record.UserID, toTier); err != nil {
			m.log.Error("failed to update tier after suspension expiry",
				zap.String("guild_id", record.GuildID),
				zap.String("user_id", record.UserID),
				zap.Error(err))
		}
		m.notifyUser(ctx, record.UserID, fmt.Sprintf(
			"Your suspension has ended. You have been reinstated at the %s tier.", toTier))
		m.postAudit(ctx, record.GuildID, fmt.Sprintf(
			"Suspension of <@%s> expired: reinstated at %s.", record.UserID, toTier))
	}

	if err := database.InsertDemotionLog(m.db, model.DemotionLogEntry{
		GuildID:   record.GuildID,
		UserID:    record.UserID,
		FromTier:  fromTier,
		ToTier:    toTier,
		Reason:    reasonSuspensionExpired,
		Auto:      true,
		CreatedAt: now,
	}); err != nil {
		m.log.Error("failed to write demotion log entry",
			zap.String("suspension_id", record.ID),
			zap.Error(err))
	}

	return res, true
}

// PendingAppeal reports whether a member sits in the terminal
// "permanently removed, pending appeal" state consumed by the appeals
// collaborator.
func (m *Manager) PendingAppeal(guildID, userID string) (bool, error) {
	latest, err := database.GetLatestSuspension(m.db, guildID, userID)
	if err != nil {
		return false, err
	}
	if latest == nil || latest.IsActive || !latest.IsPermanent {
		return false, nil
	}
	// A cancelled permanent suspension restored the original roles.
	if latest.CancelledBy != "" {
		return false, nil
	}
	return true, nil
}

// Suspension retrieves one suspension record for review.
func (m *Manager) Suspension(suspensionID string) (*model.SuspensionRecord, error) {
	record, err := database.GetSuspension(m.db, suspensionID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: suspension %s", ErrNotFound, suspensionID)
	}
	return record, nil
}

// SuspensionHistory retrieves a member's full suspension history, newest
// first. This is the appeal-review read path the audit trail exists for.
func (m *Manager) SuspensionHistory(guildID, userID string) ([]model.SuspensionRecord, error) {
	return database.ListSuspensionsByUser(m.db, guildID, userID)
}
