package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"staff-helper/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultStaffConfigPath = "data/staff_config.yaml"

// Load loads the configuration from environment variables and the per-guild
// staff config file.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Fatal("Error: BOT_TOKEN environment variable not set")
	}

	statsBaseURL := os.Getenv("STATS_BASE_URL")
	if statsBaseURL == "" {
		log.Println("Warning: STATS_BASE_URL not set, promotion stats and warnings will be unavailable")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "data/staff.db"
	}

	interval := model.DefaultReconcileInterval
	if raw := os.Getenv("RECONCILE_INTERVAL_MINUTES"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			log.Printf("Warning: Invalid RECONCILE_INTERVAL_MINUTES value %q, using default. Error: %v", raw, err)
		} else {
			interval = time.Duration(minutes) * time.Minute
		}
	}

	cfg := &model.Config{
		BotToken:          token,
		LogLevel:          os.Getenv("LOG_LEVEL"),
		DBPath:            dbPath,
		StatsBaseURL:      statsBaseURL,
		ReconcileInterval: interval,
		Guilds:            make(map[string]model.GuildStaffConfig),
	}

	path := os.Getenv("STAFF_CONFIG_PATH")
	if path == "" {
		path = defaultStaffConfigPath
	}
	guilds, err := loadGuilds(path)
	if err != nil {
		return nil, err
	}
	cfg.Guilds = guilds

	return cfg, nil
}

func loadGuilds(path string) (map[string]model.GuildStaffConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			log.Printf("Warning: Staff config file not found at %s, no guilds configured.", path)
			return map[string]model.GuildStaffConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read staff config %s: %w", path, err)
	}

	guilds := make(map[string]model.GuildStaffConfig)
	if err := v.UnmarshalKey("guilds", &guilds); err != nil {
		return nil, fmt.Errorf("failed to parse staff config %s: %w", path, err)
	}

	for guildID, guild := range guilds {
		guild.GuildID = guildID
		if guild.InactivityWindowDays <= 0 {
			guild.InactivityWindowDays = model.DefaultInactivityWindowDays
		}
		if len(guild.Promotions) == 0 {
			guild.Promotions = model.DefaultPromotionRules()
		}
		guilds[guildID] = guild
	}
	return guilds, nil
}
