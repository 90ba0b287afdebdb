package staff

import (
	"context"
	"testing"
	"time"

	"staff-helper/model"
	"staff-helper/utils/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuspendNonStaffFails(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()

	_, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSuspendTierOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		tier        model.TierRank
		permanent   bool
		demotedRole string
	}{
		{"trial is terminal", model.TierTrial, true, ""},
		{"support demotes to trial", model.TierSupport, false, trialRole},
		{"head demotes to support", model.TierHead, false, suppRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			cfg := testGuildConfig()
			env.seedStaff(t, cfg, "user-1", tt.tier, "role-vanity")

			record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
			require.NoError(t, err)

			assert.Equal(t, tt.permanent, record.IsPermanent)
			assert.Equal(t, tt.demotedRole, record.DemotedRole)
			assert.True(t, record.IsActive)
			assert.Equal(t, baseTime.Add(5*24*time.Hour), record.EndAt)

			// Tier role stripped, unrelated role left alone.
			tierRole, _ := cfg.RoleForTier(tt.tier)
			assert.False(t, env.membership.has(testGuild, "user-1", tierRole))
			assert.True(t, env.membership.has(testGuild, "user-1", "role-vanity"))

			// Snapshot holds everything that was worn, including the
			// non-tier role.
			roles, err := record.Roles()
			require.NoError(t, err)
			assert.Contains(t, roles, tierRole)
			assert.Contains(t, roles, "role-vanity")
		})
	}
}

func TestSuspendWhileActiveFails(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)

	_, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "first", "mod-1", 5)
	require.NoError(t, err)

	_, err = env.mgr.Suspend(context.Background(), cfg, "user-1", "second", "mod-2", 3)
	assert.ErrorIs(t, err, ErrInvalidState)

	history, err := env.mgr.SuspensionHistory(testGuild, "user-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSuspendSurvivesRoleStripFailure(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	env.membership.failRemove = true

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)
	assert.True(t, record.IsActive)
}

func TestSuspendNotificationFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	env.notifier.fail = true

	_, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	assert.NoError(t, err)
}

func TestCancelRestoresOriginalRoles(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierHead, "role-vanity")

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)
	assert.False(t, env.membership.has(testGuild, "user-1", headRole))

	require.NoError(t, env.mgr.Cancel(context.Background(), record.ID, "mod-2"))

	// The exact snapshot comes back, not the demoted tier.
	assert.True(t, env.membership.has(testGuild, "user-1", headRole))
	assert.True(t, env.membership.has(testGuild, "user-1", "role-vanity"))
	assert.False(t, env.membership.has(testGuild, "user-1", suppRole))

	updated, err := env.mgr.Suspension(record.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "mod-2", updated.CancelledBy)
	assert.True(t, updated.ResolvedAt.Valid)

	// A closed record cannot be cancelled again.
	assert.ErrorIs(t, env.mgr.Cancel(context.Background(), record.ID, "mod-3"), ErrInvalidState)
}

func TestCancelClosesRecordEvenWhenRestoreFails(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)

	env.membership.failAdd = true
	err = env.mgr.Cancel(context.Background(), record.ID, "mod-2")

	var extErr *ExternalCallError
	assert.ErrorAs(t, err, &extErr)

	updated, getErr := env.mgr.Suspension(record.ID)
	require.NoError(t, getErr)
	assert.False(t, updated.IsActive)
}

func TestCancelUnknownSuspension(t *testing.T) {
	env := newTestEnv(t)
	assert.ErrorIs(t, env.mgr.Cancel(context.Background(), "missing", "mod-1"), ErrNotFound)
}

func TestResolveExpiredRestoresDemotedRole(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)

	after := record.EndAt.Add(time.Minute)
	resolutions, err := env.mgr.ResolveExpired(context.Background(),after)
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	assert.True(t, resolutions[0].Restored)

	assert.True(t, env.membership.has(testGuild, "user-1", trialRole))
	assert.False(t, env.membership.has(testGuild, "user-1", suppRole))

	updated, err := env.mgr.Suspension(record.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	activity, err := env.mgr.Activity(testGuild, "user-1")
	require.NoError(t, err)
	require.NotNil(t, activity)
	assert.Equal(t, model.TierTrial, activity.CurrentTier)

	entries := env.demotionLog(t, "user-1")
	require.Len(t, entries, 1)
	assert.Equal(t, "suspension expired", entries[0].Reason)
	assert.True(t, entries[0].Auto)
	assert.Equal(t, model.TierSupport, entries[0].FromTier)
	assert.Equal(t, model.TierTrial, entries[0].ToTier)
}

func TestResolveExpiredIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)

	after := record.EndAt.Add(time.Minute)
	first, err := env.mgr.ResolveExpired(context.Background(),after)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Same now again: nothing to do, no second demotion log entry.
	second, err := env.mgr.ResolveExpired(context.Background(),after)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.Len(t, env.demotionLog(t, "user-1"), 1)
}

func TestResolveExpiredPermanentRemoval(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierTrial)

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)
	require.True(t, record.IsPermanent)

	after := record.EndAt.Add(time.Minute)
	resolutions, err := env.mgr.ResolveExpired(context.Background(),after)
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	assert.False(t, resolutions[0].Restored)

	// No role comes back and staff tracking ends.
	assert.False(t, env.membership.has(testGuild, "user-1", trialRole))
	activity, err := env.mgr.Activity(testGuild, "user-1")
	require.NoError(t, err)
	assert.Nil(t, activity)

	entries := env.demotionLog(t, "user-1")
	require.Len(t, entries, 1)
	assert.Equal(t, model.TierTrial, entries[0].FromTier)
	assert.Equal(t, model.TierNone, entries[0].ToTier)

	pending, err := env.mgr.PendingAppeal(testGuild, "user-1")
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestResolveExpiredSkipsUndueRecords(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)

	resolutions, err := env.mgr.ResolveExpired(context.Background(),record.EndAt.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, resolutions)
}

func TestResolveExpiredRecordsRestoreFailure(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)

	env.membership.failAdd = true
	resolutions, err := env.mgr.ResolveExpired(context.Background(),record.EndAt.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	assert.False(t, resolutions[0].Restored)

	var extErr *ExternalCallError
	assert.ErrorAs(t, resolutions[0].Err, &extErr)

	// The record is resolved regardless; role drift is an operational
	// alert, not a blocked transition.
	updated, err := env.mgr.Suspension(record.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
}

func TestResolveExpiredUsesTierHeldAtSuspension(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)
	assert.Equal(t, model.TierSupport, record.SuspendedTier)

	// An operator remaps the guild's tier roles while the suspension runs.
	// The record, not the live mapping, decides which tiers get logged.
	cfg.TierRoles["trial"] = "role-trial-v2"
	cfg.TierRoles["support"] = "role-support-v2"

	resolutions, err := env.mgr.ResolveExpired(context.Background(), record.EndAt.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	assert.True(t, resolutions[0].Restored)
	assert.True(t, env.membership.has(testGuild, "user-1", trialRole))

	entries := env.demotionLog(t, "user-1")
	require.Len(t, entries, 1)
	assert.Equal(t, model.TierSupport, entries[0].FromTier)
	assert.Equal(t, model.TierTrial, entries[0].ToTier)
}

func TestResolveExpiredDrainsUnconfiguredGuild(t *testing.T) {
	env := newTestEnv(t)
	retiredGuild := "guild-retired"

	// The guild holding this record is absent from the configuration; its
	// record alone carries everything resolution needs.
	record := model.SuspensionRecord{
		ID:            "susp-retired",
		GuildID:       retiredGuild,
		UserID:        "user-1",
		Reason:        "rude",
		SuspendedBy:   "mod-1",
		StartAt:       baseTime,
		EndAt:         baseTime.Add(5 * 24 * time.Hour),
		OriginalRoles: `["role-old-support"]`,
		DemotedRole:   "role-old-trial",
		SuspendedTier: model.TierSupport,
		IsActive:      true,
	}
	require.NoError(t, database.InsertSuspension(env.mgr.DB(), record))
	require.NoError(t, env.mgr.RecordActivity(retiredGuild, "user-1", model.TierSupport, baseTime))

	resolutions, err := env.mgr.ResolveExpired(context.Background(), record.EndAt.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	assert.True(t, resolutions[0].Restored)
	assert.True(t, env.membership.has(retiredGuild, "user-1", "role-old-trial"))

	updated, err := env.mgr.Suspension(record.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	activity, err := env.mgr.Activity(retiredGuild, "user-1")
	require.NoError(t, err)
	require.NotNil(t, activity)
	assert.Equal(t, model.TierTrial, activity.CurrentTier)

	entries, err := database.ListDemotionLogByUser(env.mgr.DB(), retiredGuild, "user-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TierSupport, entries[0].FromTier)
	assert.Equal(t, model.TierTrial, entries[0].ToTier)
}

func TestPendingAppealFalseCases(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()

	// Never suspended.
	pending, err := env.mgr.PendingAppeal(testGuild, "user-1")
	require.NoError(t, err)
	assert.False(t, pending)

	// Active suspension is not a pending appeal.
	env.seedStaff(t, cfg, "user-1", model.TierTrial)
	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)
	pending, err = env.mgr.PendingAppeal(testGuild, "user-1")
	require.NoError(t, err)
	assert.False(t, pending)

	// A cancelled permanent suspension restored the member.
	require.NoError(t, env.mgr.Cancel(context.Background(), record.ID, "mod-2"))
	pending, err = env.mgr.PendingAppeal(testGuild, "user-1")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestSuspendSnapshotFallsBackToConfiguredRoles(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	env.membership.failRoles = true

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)

	roles, err := record.Roles()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{trialRole, suppRole}, roles)
}

func TestSuspensionInsertRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)

	record, err := env.mgr.Suspend(context.Background(), cfg, "user-1", "rude", "mod-1", 5)
	require.NoError(t, err)

	stored, err := database.GetActiveSuspension(env.mgr.DB(), testGuild, "user-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, record.ID, stored.ID)
	assert.Equal(t, "mod-1", stored.SuspendedBy)
}
