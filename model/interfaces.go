package model

import "context"

// Membership is the platform role-mutation API. All calls are best-effort
// from the caller's point of view: a failure is logged and retried on a
// later sweep, never treated as fatal to the owning state transition.
type Membership interface {
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID string) error
	UserRoles(ctx context.Context, guildID, userID string) ([]string, error)
}

// StatsProvider supplies the performance statistics promotion decisions are
// judged on. Queried fresh on each evaluation.
type StatsProvider interface {
	PromotionStats(ctx context.Context, guildID, userID string) (PromotionStats, error)
}

// WarningsProvider exposes the external warnings counter.
type WarningsProvider interface {
	WarningCount(ctx context.Context, guildID, userID string) (int, error)
}

// Notifier delivers fire-and-forget notifications. Failures never fail the
// operation that triggered them.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, message string) error
	PostAudit(ctx context.Context, guildID, message string) error
}
