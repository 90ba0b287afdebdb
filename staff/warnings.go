package staff

import (
	"context"
	"fmt"

	"staff-helper/model"
	"staff-helper/utils/database"

	"go.uber.org/zap"
)

const (
	warningThreshold = 3

	// Warning suspensions run a randomized 4 to 7 whole days.
	warningSuspensionMinDays = 4
	warningSuspensionMaxDays = 7

	systemActor = "system"
)

// CheckWarnings fires the warnings-based auto-suspend trigger: a member with
// three or more warnings and no active suspension is suspended for a
// randomized 4-7 day duration. The inactivity exemption flag is deliberately
// not consulted here; it gates only the inactivity sweep.
func (m *Manager) CheckWarnings(ctx context.Context, cfg *model.GuildStaffConfig, userID string) (*model.SuspensionRecord, error) {
	cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	count, err := m.warnings.WarningCount(cctx, cfg.GuildID, userID)
	cancel()
	if err != nil {
		m.log.Warn("warning count fetch failed",
			zap.String("guild_id", cfg.GuildID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, &ExternalCallError{Op: "warnings", GuildID: cfg.GuildID, UserID: userID, Err: err}
	}
	if count < warningThreshold {
		return nil, nil
	}

	existing, err := database.GetActiveSuspension(m.db, cfg.GuildID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	days := warningSuspensionMinDays + m.randInt(warningSuspensionMaxDays-warningSuspensionMinDays+1)
	reason := fmt.Sprintf("accumulated %d warnings", count)

	record, err := m.Suspend(ctx, cfg, userID, reason, systemActor, days)
	if err != nil {
		return nil, err
	}

	m.log.Info("warnings-triggered suspension",
		zap.String("suspension_id", record.ID),
		zap.String("guild_id", cfg.GuildID),
		zap.String("user_id", userID),
		zap.Int("warnings", count),
		zap.Int("days", days))

	return record, nil
}
