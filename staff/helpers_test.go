package staff

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"staff-helper/model"
	"staff-helper/utils/database"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testGuild = "guild-1"
	trialRole = "role-trial"
	suppRole  = "role-support"
	headRole  = "role-head"
)

var baseTime = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

type fakeMembership struct {
	mu         sync.Mutex
	roles      map[string][]string
	failAdd    bool
	failRemove bool
	failRoles  bool
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{roles: make(map[string][]string)}
}

func (f *fakeMembership) key(guildID, userID string) string {
	return guildID + ":" + userID
}

func (f *fakeMembership) setRoles(guildID, userID string, roles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[f.key(guildID, userID)] = append([]string(nil), roles...)
}

func (f *fakeMembership) has(guildID, userID, roleID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles[f.key(guildID, userID)] {
		if r == roleID {
			return true
		}
	}
	return false
}

func (f *fakeMembership) AddRole(_ context.Context, guildID, userID, roleID string) error {
	if f.failAdd {
		return errors.New("add role failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.key(guildID, userID)
	for _, r := range f.roles[key] {
		if r == roleID {
			return nil
		}
	}
	f.roles[key] = append(f.roles[key], roleID)
	return nil
}

func (f *fakeMembership) RemoveRole(_ context.Context, guildID, userID, roleID string) error {
	if f.failRemove {
		return errors.New("remove role failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := f.key(guildID, userID)
	kept := f.roles[key][:0]
	for _, r := range f.roles[key] {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	f.roles[key] = kept
	return nil
}

func (f *fakeMembership) UserRoles(_ context.Context, guildID, userID string) ([]string, error) {
	if f.failRoles {
		return nil, errors.New("member fetch failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.roles[f.key(guildID, userID)]...), nil
}

type fakeStats struct {
	stats map[string]model.PromotionStats
	err   error
}

func (f *fakeStats) PromotionStats(_ context.Context, _, userID string) (model.PromotionStats, error) {
	if f.err != nil {
		return model.PromotionStats{}, f.err
	}
	return f.stats[userID], nil
}

type fakeWarnings struct {
	counts map[string]int
	err    error
}

func (f *fakeWarnings) WarningCount(_ context.Context, _, userID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[userID], nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	dms    []string
	audits []string
	fail   bool
}

func (f *fakeNotifier) NotifyUser(_ context.Context, _, message string) error {
	if f.fail {
		return errors.New("dm failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, message)
	return nil
}

func (f *fakeNotifier) PostAudit(_ context.Context, _, message string) error {
	if f.fail {
		return errors.New("audit post failed")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, message)
	return nil
}

type testEnv struct {
	mgr        *Manager
	membership *fakeMembership
	stats      *fakeStats
	warnings   *fakeWarnings
	notifier   *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Init(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		membership: newFakeMembership(),
		stats:      &fakeStats{stats: make(map[string]model.PromotionStats)},
		warnings:   &fakeWarnings{counts: make(map[string]int)},
		notifier:   &fakeNotifier{},
	}
	env.mgr = NewManager(db, env.membership, env.stats, env.warnings, env.notifier, zap.NewNop())
	env.mgr.now = func() time.Time { return baseTime }
	return env
}

func testGuildConfig() *model.GuildStaffConfig {
	return &model.GuildStaffConfig{
		Name:           "Test Guild",
		GuildID:        testGuild,
		AuditChannelID: "audit-channel",
		TierRoles: map[string]string{
			"trial":   trialRole,
			"support": suppRole,
			"head":    headRole,
		},
		Promotions:           model.DefaultPromotionRules(),
		InactivityWindowDays: 2,
	}
}

// seedStaff tracks a member at a tier and gives them the matching guild
// role plus any extras.
func (e *testEnv) seedStaff(t *testing.T, cfg *model.GuildStaffConfig, userID string, tier model.TierRank, extraRoles ...string) {
	t.Helper()
	require.NoError(t, e.mgr.RecordActivity(testGuild, userID, tier, baseTime))
	roles := extraRoles
	if roleID, ok := cfg.RoleForTier(tier); ok {
		roles = append([]string{roleID}, extraRoles...)
	}
	e.membership.setRoles(testGuild, userID, roles...)
}

func (e *testEnv) demotionLog(t *testing.T, userID string) []model.DemotionLogEntry {
	t.Helper()
	entries, err := database.ListDemotionLogByUser(e.mgr.DB(), testGuild, userID)
	require.NoError(t, err)
	return entries
}

func (e *testEnv) promotionLog(t *testing.T) []model.PromotionLogEntry {
	t.Helper()
	entries, err := database.ListPromotionLog(e.mgr.DB(), testGuild)
	require.NoError(t, err)
	return entries
}
