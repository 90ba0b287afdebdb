package staff

import (
	"context"
	"math/rand/v2"
	"time"

	"staff-helper/model"
	"staff-helper/utils"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Platform calls made from sweep loops are bounded so one slow member cannot
// stall the rest of the batch.
const defaultCallTimeout = 10 * time.Second

// Manager owns every staff lifecycle transition: suspensions, promotions,
// inactivity demotion and the warnings trigger. All mutations for one
// (guild, user) pair serialize on a keyed lock, and every state flip goes
// through a conditional update in the store, so concurrent triggers cannot
// double-apply role mutations.
type Manager struct {
	db         *sqlx.DB
	membership model.Membership
	stats      model.StatsProvider
	warnings   model.WarningsProvider
	notifier   model.Notifier
	log        *zap.Logger
	locks      *utils.KeyedLocks

	callTimeout time.Duration
	now         func() time.Time
	randInt     func(n int) int
}

// NewManager creates the staff lifecycle manager.
func NewManager(db *sqlx.DB, membership model.Membership, stats model.StatsProvider, warnings model.WarningsProvider, notifier model.Notifier, log *zap.Logger) *Manager {
	return &Manager{
		db:          db,
		membership:  membership,
		stats:       stats,
		warnings:    warnings,
		notifier:    notifier,
		log:         log,
		locks:       utils.NewKeyedLocks(),
		callTimeout: defaultCallTimeout,
		now:         time.Now,
		randInt:     rand.IntN,
	}
}

// DB exposes the underlying store for read paths that live outside the
// manager, e.g. the audit history commands.
func (m *Manager) DB() *sqlx.DB {
	return m.db
}

func (m *Manager) addRole(ctx context.Context, guildID, userID, roleID, op string) error {
	cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	if err := m.membership.AddRole(cctx, guildID, userID, roleID); err != nil {
		m.log.Warn("role add failed",
			zap.String("op", op),
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.String("role_id", roleID),
			zap.Error(err))
		return &ExternalCallError{Op: op, GuildID: guildID, UserID: userID, Err: err}
	}
	return nil
}

func (m *Manager) removeRole(ctx context.Context, guildID, userID, roleID, op string) error {
	cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	if err := m.membership.RemoveRole(cctx, guildID, userID, roleID); err != nil {
		m.log.Warn("role remove failed",
			zap.String("op", op),
			zap.String("guild_id", guildID),
			zap.String("user_id", userID),
			zap.String("role_id", roleID),
			zap.Error(err))
		return &ExternalCallError{Op: op, GuildID: guildID, UserID: userID, Err: err}
	}
	return nil
}

// notifyUser is fire-and-forget: failure is logged and swallowed.
func (m *Manager) notifyUser(ctx context.Context, userID, message string) {
	cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	if err := m.notifier.NotifyUser(cctx, userID, message); err != nil {
		m.log.Warn("user notification failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// postAudit is fire-and-forget: failure is logged and swallowed.
func (m *Manager) postAudit(ctx context.Context, guildID, message string) {
	cctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	if err := m.notifier.PostAudit(cctx, guildID, message); err != nil {
		m.log.Warn("audit post failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}
