package staff

import (
	"context"
	"fmt"

	"staff-helper/model"
	"staff-helper/utils/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PromotionOutcome is the result of one promotion evaluation.
type PromotionOutcome int

const (
	// OutcomeNone: not eligible, nothing changed.
	OutcomeNone PromotionOutcome = iota
	// OutcomePromoted: thresholds met and the target tier promotes
	// automatically; the promotion was applied.
	OutcomePromoted
	// OutcomeQueued: thresholds met, manual approval required; a pending
	// queue entry was created.
	OutcomeQueued
	// OutcomeAlreadyQueued: thresholds met but a pending entry already
	// exists, so nothing was added.
	OutcomeAlreadyQueued
)

// Evaluate compares a member's statistics against the thresholds for the
// next tier. All three thresholds must be met. Automatic tiers promote on
// the spot; manual tiers enqueue at most one pending entry per target tier,
// so reviewers are never notified twice for the same candidacy.
func (m *Manager) Evaluate(ctx context.Context, cfg *model.GuildStaffConfig, userID string, stats model.PromotionStats) (PromotionOutcome, error) {
	unlock := m.locks.Lock(cfg.GuildID, userID)
	defer unlock()

	activity, err := database.GetActivity(m.db, cfg.GuildID, userID)
	if err != nil {
		return OutcomeNone, err
	}
	if activity == nil || activity.CurrentTier == model.TierNone {
		return OutcomeNone, nil
	}

	// Suspended members hold no tier roles; they are evaluated again after
	// reinstatement.
	suspended, err := database.GetActiveSuspension(m.db, cfg.GuildID, userID)
	if err != nil {
		return OutcomeNone, err
	}
	if suspended != nil {
		return OutcomeNone, nil
	}

	target, ok := activity.CurrentTier.PromotionTarget()
	if !ok {
		return OutcomeNone, nil
	}
	rule, ok := cfg.RuleForTarget(target)
	if !ok || !rule.Met(stats) {
		return OutcomeNone, nil
	}

	if rule.Automatic {
		m.applyPromotion(ctx, cfg, userID, activity.CurrentTier, target, true,
			"performance thresholds met")
		return OutcomePromoted, nil
	}

	entry := model.PromotionQueueEntry{
		ID:             uuid.NewString(),
		GuildID:        cfg.GuildID,
		UserID:         userID,
		FromTier:       activity.CurrentTier,
		ToTier:         target,
		PromotionStats: stats,
		Status:         model.QueueStatusPending,
		CreatedAt:      m.now(),
	}
	inserted, err := database.EnqueuePromotionIfAbsent(m.db, entry)
	if err != nil {
		return OutcomeNone, err
	}
	if !inserted {
		return OutcomeAlreadyQueued, nil
	}

	m.log.Info("promotion queued for approval",
		zap.String("entry_id", entry.ID),
		zap.String("guild_id", cfg.GuildID),
		zap.String("user_id", userID),
		zap.String("to_tier", target.String()))
	m.postAudit(ctx, cfg.GuildID, fmt.Sprintf(
		"<@%s> qualifies for promotion to %s (tickets %d, messages %d, hours %.1f) and awaits approval.",
		userID, target, stats.TicketsResolved, stats.SupportMessages, stats.HoursClockedIn))

	return OutcomeQueued, nil
}

// Approve promotes the queued member. The review flip is exactly-once; a
// second Approve or Deny on the same entry fails with ErrAlreadyReviewed.
// The promotion is judged on the statistics snapshot captured at enqueue
// time, never re-fetched.
func (m *Manager) Approve(ctx context.Context, cfg *model.GuildStaffConfig, queueID, reviewerID string) error {
	entry, err := database.GetQueueEntry(m.db, queueID)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: promotion queue entry %s", ErrNotFound, queueID)
	}

	unlock := m.locks.Lock(entry.GuildID, entry.UserID)
	defer unlock()

	reviewed, err := database.ReviewQueueEntry(m.db, queueID, model.QueueStatusApproved, reviewerID, m.now())
	if err != nil {
		return err
	}
	if !reviewed {
		return fmt.Errorf("%w: promotion queue entry %s", ErrAlreadyReviewed, queueID)
	}

	m.applyPromotion(ctx, cfg, entry.UserID, entry.FromTier, entry.ToTier, false,
		fmt.Sprintf("approved by %s", reviewerID))
	return nil
}

// Deny closes the queued promotion with no audit log entry; the reviewed
// queue row itself records the denial.
func (m *Manager) Deny(ctx context.Context, queueID, reviewerID string) error {
	entry, err := database.GetQueueEntry(m.db, queueID)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: promotion queue entry %s", ErrNotFound, queueID)
	}

	unlock := m.locks.Lock(entry.GuildID, entry.UserID)
	defer unlock()

	reviewed, err := database.ReviewQueueEntry(m.db, queueID, model.QueueStatusDenied, reviewerID, m.now())
	if err != nil {
		return err
	}
	if !reviewed {
		return fmt.Errorf("%w: promotion queue entry %s", ErrAlreadyReviewed, queueID)
	}

	m.log.Info("promotion denied",
		zap.String("entry_id", queueID),
		zap.String("guild_id", entry.GuildID),
		zap.String("user_id", entry.UserID),
		zap.String("reviewed_by", reviewerID))
	return nil
}

// PromotionStatsFor fetches fresh statistics from the external provider,
// bounded by the manager's call timeout.
func (m *Manager) PromotionStatsFor(ctx context.Context, guildID, userID string) (model.PromotionStats, error) {
	cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	stats, err := m.stats.PromotionStats(cctx, guildID, userID)
	if err != nil {
		return model.PromotionStats{}, &ExternalCallError{Op: "stats", GuildID: guildID, UserID: userID, Err: err}
	}
	return stats, nil
}

// PendingPromotions lists a guild's queue entries awaiting review.
func (m *Manager) PendingPromotions(guildID string) ([]model.PromotionQueueEntry, error) {
	return database.ListPendingPromotions(m.db, guildID)
}

// applyPromotion swaps the tier roles, updates the ledger and writes the
// audit entry. Role mutations are best-effort; the ledger and log are the
// source of truth.
func (m *Manager) applyPromotion(ctx context.Context, cfg *model.GuildStaffConfig, userID string, from, to model.TierRank, auto bool, reason string) {
	if roleID, ok := cfg.RoleForTier(from); ok {
		m.removeRole(ctx, cfg.GuildID, userID, roleID, "promote")
	}
	if roleID, ok := cfg.RoleForTier(to); ok {
		m.addRole(ctx, cfg.GuildID, userID, roleID, "promote")
	}

	if err := database.UpdateActivityTier(m.db, cfg.GuildID, userID, to); err != nil {
		m.log.Error("failed to update tier after promotion",
			zap.String("guild_id", cfg.GuildID),
			zap.String("user_id", userID),
			zap.Error(err))
	}

	if err := database.InsertPromotionLog(m.db, model.PromotionLogEntry{
		GuildID:   cfg.GuildID,
		UserID:    userID,
		FromTier:  from,
		ToTier:    to,
		Reason:    reason,
		Auto:      auto,
		CreatedAt: m.now(),
	}); err != nil {
		m.log.Error("failed to write promotion log entry",
			zap.String("guild_id", cfg.GuildID),
			zap.String("user_id", userID),
			zap.Error(err))
	}

	m.log.Info("promotion applied",
		zap.String("guild_id", cfg.GuildID),
		zap.String("user_id", userID),
		zap.String("from_tier", from.String()),
		zap.String("to_tier", to.String()),
		zap.Bool("auto", auto))

	m.notifyUser(ctx, userID, fmt.Sprintf("Congratulations, you have been promoted to the %s tier!", to))
	m.postAudit(ctx, cfg.GuildID, fmt.Sprintf("Promoted <@%s> from %s to %s (%s).", userID, from, to, reason))
}
