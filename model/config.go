package model

import "time"

// PromotionRule holds the thresholds a candidate must meet to reach a target
// tier, and whether meeting them promotes automatically or queues the
// promotion for manual review.
type PromotionRule struct {
	Tickets   int     `mapstructure:"tickets"`
	Messages  int     `mapstructure:"messages"`
	Hours     float64 `mapstructure:"hours"`
	Automatic bool    `mapstructure:"automatic"`
}

// Met reports whether stats satisfy every threshold. All three must pass;
// there is no partial credit.
func (r PromotionRule) Met(stats PromotionStats) bool {
	return stats.TicketsResolved >= r.Tickets &&
		stats.SupportMessages >= r.Messages &&
		stats.HoursClockedIn >= r.Hours
}

// GuildStaffConfig is the per-guild staff configuration block from
// staff_config.yaml.
type GuildStaffConfig struct {
	Name                 string                   `mapstructure:"name"`
	GuildID              string                   `mapstructure:"guild_id"`
	AuditChannelID       string                   `mapstructure:"audit_channel_id"`
	TierRoles            map[string]string        `mapstructure:"tier_roles"` // tier name -> role ID
	Promotions           map[string]PromotionRule `mapstructure:"promotions"` // target tier name -> rule
	InactivityWindowDays int                      `mapstructure:"inactivity_window_days"`
}

// RoleForTier returns the guild role ID bound to a tier.
func (c *GuildStaffConfig) RoleForTier(t TierRank) (string, bool) {
	id, ok := c.TierRoles[t.String()]
	return id, ok && id != ""
}

// TierOfRole returns the tier a guild role ID is bound to.
func (c *GuildStaffConfig) TierOfRole(roleID string) (TierRank, bool) {
	for name, id := range c.TierRoles {
		if id == roleID {
			t, err := ParseTier(name)
			if err != nil {
				return TierNone, false
			}
			return t, true
		}
	}
	return TierNone, false
}

// HighestTierOf returns the highest tier among a set of held role IDs.
func (c *GuildStaffConfig) HighestTierOf(roleIDs []string) TierRank {
	highest := TierNone
	for _, id := range roleIDs {
		if t, ok := c.TierOfRole(id); ok && t > highest {
			highest = t
		}
	}
	return highest
}

// TierRoleIDs returns all role IDs bound to staff tiers in this guild.
func (c *GuildStaffConfig) TierRoleIDs() []string {
	ids := make([]string, 0, len(c.TierRoles))
	for _, id := range c.TierRoles {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// RuleForTarget returns the promotion rule for reaching a target tier.
func (c *GuildStaffConfig) RuleForTarget(t TierRank) (PromotionRule, bool) {
	r, ok := c.Promotions[t.String()]
	return r, ok
}

// InactivityWindow returns the configured inactivity window as a duration.
func (c *GuildStaffConfig) InactivityWindow() time.Duration {
	days := c.InactivityWindowDays
	if days <= 0 {
		days = DefaultInactivityWindowDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// Config defaults applied when the config file leaves a field unset.
const (
	DefaultInactivityWindowDays = 2
	DefaultReconcileInterval    = 10 * time.Minute
)

// DefaultPromotionRules mirror the product defaults: Trial to Support is
// automatic, Support to Head requires manual approval.
func DefaultPromotionRules() map[string]PromotionRule {
	return map[string]PromotionRule{
		TierSupport.String(): {Tickets: 20, Messages: 150, Hours: 12, Automatic: true},
		TierHead.String():    {Tickets: 45, Messages: 300, Hours: 25, Automatic: false},
	}
}

// Config stores the application's configuration.
type Config struct {
	BotToken          string
	LogLevel          string
	DBPath            string
	StatsBaseURL      string
	ReconcileInterval time.Duration
	Guilds            map[string]GuildStaffConfig
}

// GuildConfig returns the staff configuration for one guild.
func (c *Config) GuildConfig(guildID string) (*GuildStaffConfig, bool) {
	g, ok := c.Guilds[guildID]
	if !ok {
		return nil, false
	}
	return &g, true
}
