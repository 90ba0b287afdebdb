package bot

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staff-helper/model"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) Run() {
	b.Session.AddHandler(b.onMessageCreate)

	if err := b.Session.Open(); err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	b.scheduler.Start()

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}

// onMessageCreate feeds the activity ledger: any message from a member
// holding a staff tier role counts as staff activity.
func (b *Bot) onMessageCreate(s *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" || msg.Member == nil {
		return
	}
	cfg, ok := b.GetConfig().GuildConfig(msg.GuildID)
	if !ok {
		return
	}

	tier := cfg.HighestTierOf(msg.Member.Roles)
	if tier == model.TierNone {
		return
	}

	if err := b.Staff.RecordActivity(msg.GuildID, msg.Author.ID, tier, time.Now()); err != nil {
		b.Log.Warn("failed to record staff activity",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.Author.ID),
			zap.Error(err))
	}
}
