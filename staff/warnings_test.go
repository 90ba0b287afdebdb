package staff

import (
	"context"
	"testing"
	"time"

	"staff-helper/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckWarningsSuspends(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	env.warnings.counts["user-1"] = 3

	record, err := env.mgr.CheckWarnings(context.Background(), cfg, "user-1")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.False(t, record.IsPermanent)
	assert.Equal(t, trialRole, record.DemotedRole)
	assert.Contains(t, record.Reason, "3 warnings")
	assert.Equal(t, "system", record.SuspendedBy)
	assert.False(t, env.membership.has(testGuild, "user-1", suppRole))

	days := record.EndAt.Sub(record.StartAt) / (24 * time.Hour)
	assert.GreaterOrEqual(t, int(days), 4)
	assert.LessOrEqual(t, int(days), 7)
}

func TestCheckWarningsDurationBounds(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.warnings.counts["user-1"] = 5

	// Pin the roll to each end of the range.
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	env.mgr.randInt = func(int) int { return 0 }
	record, err := env.mgr.CheckWarnings(context.Background(), cfg, "user-1")
	require.NoError(t, err)
	assert.Equal(t, record.StartAt.Add(4*24*time.Hour), record.EndAt)

	env.seedStaff(t, cfg, "user-2", model.TierSupport)
	env.warnings.counts["user-2"] = 5
	env.mgr.randInt = func(n int) int { return n - 1 }
	record, err = env.mgr.CheckWarnings(context.Background(), cfg, "user-2")
	require.NoError(t, err)
	assert.Equal(t, record.StartAt.Add(7*24*time.Hour), record.EndAt)
}

func TestCheckWarningsBelowThreshold(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	env.warnings.counts["user-1"] = 2

	record, err := env.mgr.CheckWarnings(context.Background(), cfg, "user-1")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.True(t, env.membership.has(testGuild, "user-1", suppRole))
}

func TestCheckWarningsSkipsActiveSuspension(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	env.warnings.counts["user-1"] = 4

	first, err := env.mgr.CheckWarnings(context.Background(), cfg, "user-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := env.mgr.CheckWarnings(context.Background(), cfg, "user-1")
	require.NoError(t, err)
	assert.Nil(t, second)

	history, err := env.mgr.SuspensionHistory(testGuild, "user-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

// The inactivity exemption gates only the inactivity sweep; the warnings
// trigger fires regardless.
func TestCheckWarningsIgnoresExemption(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	require.NoError(t, env.mgr.SetExemption(testGuild, "user-1", true, "on sabbatical"))
	env.warnings.counts["user-1"] = 3

	record, err := env.mgr.CheckWarnings(context.Background(), cfg, "user-1")
	require.NoError(t, err)
	assert.NotNil(t, record)
}

func TestCheckWarningsProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	cfg := testGuildConfig()
	env.seedStaff(t, cfg, "user-1", model.TierSupport)
	env.warnings.err = assert.AnError

	_, err := env.mgr.CheckWarnings(context.Background(), cfg, "user-1")
	var extErr *ExternalCallError
	assert.ErrorAs(t, err, &extErr)
}
