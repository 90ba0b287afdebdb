package bot

import (
	"sync/atomic"

	"staff-helper/config"
	"staff-helper/model"
	"staff-helper/platform"
	"staff-helper/staff"

	"github.com/bwmarrin/discordgo"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Bot struct {
	Session   *discordgo.Session
	DB        *sqlx.DB
	Staff     *staff.Manager
	Log       *zap.Logger
	config    atomic.Value // *model.Config
	scheduler *Scheduler
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetStaff() *staff.Manager {
	return b.Staff
}

func (b *Bot) GetLogger() *zap.Logger {
	return b.Log
}

// New wires the Discord session, the platform collaborators and the staff
// manager. The stats/warnings collaborator is the external aggregation
// service reached over HTTP.
func New(cfg *model.Config, db *sqlx.DB, logger *zap.Logger) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	dg.StateEnabled = false

	b := &Bot{
		Session: dg,
		DB:      db,
		Log:     logger,
	}
	b.config.Store(cfg)

	membership := platform.NewDiscordMembership(dg)
	notifier := platform.NewDiscordNotifier(dg, func(guildID string) string {
		if g, ok := b.GetConfig().GuildConfig(guildID); ok {
			return g.AuditChannelID
		}
		return ""
	})
	statsClient := platform.NewHTTPStatsClient(cfg.StatsBaseURL)

	b.Staff = staff.NewManager(db, membership, statsClient, statsClient, notifier, logger)
	b.scheduler = NewScheduler(b)
	return b, nil
}

// ReloadConfig re-reads the environment and staff_config.yaml and swaps the
// running configuration. The next reconciliation tick picks it up.
func (b *Bot) ReloadConfig() error {
	b.Log.Info("reloading configuration")
	newCfg, err := config.Load()
	if err != nil {
		b.Log.Error("config reload failed", zap.Error(err))
		return err
	}
	b.config.Store(newCfg)
	b.Log.Info("configuration reloaded", zap.Int("guilds", len(newCfg.Guilds)))
	return nil
}

func (b *Bot) Close() {
	b.Log.Info("shutting down")
	b.scheduler.Stop()
	b.Session.Close()
	b.DB.Close()
}
