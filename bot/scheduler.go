package bot

import (
	"context"
	"sync"
	"time"

	"staff-helper/model"
	"staff-helper/staff"

	"go.uber.org/zap"
)

// Guilds are independent; the tick fans them out across a bounded pool.
const guildWorkerLimit = 5

// Provider defines the methods the scheduler needs from the Bot.
type Provider interface {
	GetConfig() *model.Config
	GetStaff() *staff.Manager
	GetLogger() *zap.Logger
}

// Scheduler drives every time-based staff transition: it is the only thing
// that resolves expired suspensions, demotes for inactivity and re-evaluates
// promotion eligibility. Nothing transitions "live" except suspension
// creation and queue review, which are externally triggered.
type Scheduler struct {
	bot  Provider
	done chan struct{}
	wg   sync.WaitGroup
}

// NewScheduler creates a new scheduler.
func NewScheduler(bot Provider) *Scheduler {
	return &Scheduler{
		bot:  bot,
		done: make(chan struct{}),
	}
}

// Start begins the reconciliation loop. An immediate pass runs first so a
// restart catches up on transitions that came due while the process was
// down.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop terminates the reconciliation loop gracefully.
func (s *Scheduler) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	interval := s.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.reconcileAll()
	for {
		select {
		case <-ticker.C:
			s.reconcileAll()
			// A config reload may have swapped the interval; follow it on
			// the next cycle rather than holding the boot-time value.
			if next := s.interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) interval() time.Duration {
	interval := s.bot.GetConfig().ReconcileInterval
	if interval <= 0 {
		interval = model.DefaultReconcileInterval
	}
	return interval
}

func (s *Scheduler) reconcileAll() {
	cfg := s.bot.GetConfig()
	log := s.bot.GetLogger()
	log.Info("reconciliation tick", zap.Int("guilds", len(cfg.Guilds)))

	now := time.Now()

	// Expired suspensions resolve deployment-wide, before the per-guild
	// fan-out: records outlive configuration, so a guild dropped from the
	// config must still have its suspensions drain.
	resolutions, err := s.bot.GetStaff().ResolveExpired(context.Background(), now)
	if err != nil {
		log.Error("expired suspension pass failed", zap.Error(err))
	}
	for _, res := range resolutions {
		if res.Err != nil {
			log.Warn("role restoration pending retry",
				zap.String("suspension_id", res.Suspension.ID),
				zap.String("guild_id", res.Suspension.GuildID),
				zap.Error(res.Err))
		}
	}

	var wg sync.WaitGroup
	guard := make(chan struct{}, guildWorkerLimit)

	for guildID := range cfg.Guilds {
		guildCfg, ok := cfg.GuildConfig(guildID)
		if !ok {
			continue
		}

		wg.Add(1)
		guard <- struct{}{}

		go func(guildCfg *model.GuildStaffConfig) {
			defer func() {
				<-guard
				wg.Done()
			}()
			s.reconcileGuild(context.Background(), guildCfg, now)
		}(guildCfg)
	}

	wg.Wait()
}

// reconcileGuild runs one guild's sweep: inactivity demotions, then
// promotion and warnings re-evaluation per tracked member. Steps and members
// are isolated; one failure is logged and the rest keep going.
func (s *Scheduler) reconcileGuild(ctx context.Context, cfg *model.GuildStaffConfig, now time.Time) {
	st := s.bot.GetStaff()
	log := s.bot.GetLogger()

	if err := st.SweepInactive(ctx, cfg, now); err != nil {
		log.Error("inactivity sweep failed", zap.String("guild_id", cfg.GuildID), zap.Error(err))
	}

	members, err := st.StaffList(cfg.GuildID)
	if err != nil {
		log.Error("staff listing failed", zap.String("guild_id", cfg.GuildID), zap.Error(err))
		return
	}

	for _, member := range members {
		stats, err := st.PromotionStatsFor(ctx, cfg.GuildID, member.UserID)
		if err != nil {
			log.Warn("stats fetch failed, skipping promotion evaluation",
				zap.String("guild_id", cfg.GuildID),
				zap.String("user_id", member.UserID),
				zap.Error(err))
		} else if _, err := st.Evaluate(ctx, cfg, member.UserID, stats); err != nil {
			log.Error("promotion evaluation failed",
				zap.String("guild_id", cfg.GuildID),
				zap.String("user_id", member.UserID),
				zap.Error(err))
		}

		if _, err := st.CheckWarnings(ctx, cfg, member.UserID); err != nil {
			log.Warn("warnings check failed",
				zap.String("guild_id", cfg.GuildID),
				zap.String("user_id", member.UserID),
				zap.Error(err))
		}
	}
}
