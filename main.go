package main

import (
	"log"
	"os"

	"staff-helper/bot"
	"staff-helper/config"
	"staff-helper/utils"
	"staff-helper/utils/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	if err := os.MkdirAll("./data", os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Init(cfg.DBPath)
	if err != nil {
		log.Fatalf("Error initializing staff database: %v", err)
	}

	b, err := bot.New(cfg, db, logger)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}

	b.Run()

	defer b.Close()
}
