package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/robfig/cron"

	"github.com/anuragind003/cdp-backend/internal/db"
	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/services"
	"github.com/anuragind003/cdp-backend/internal/utils"
)

// retention runs the data purge, either once (-once) or on a cron schedule.
func main() {
	_ = godotenv.Load()

	once := flag.Bool("once", false, "purge once and exit")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	retentionDays := utils.GetEnvAsInt("RETENTION_DAYS", 180, log)
	schedule := utils.GetEnv("RETENTION_CRON", "0 30 2 * * *", log)

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	thePG := postgresService.DB()

	offerRepo := repos.NewOfferRepo(thePG, log)
	campaignEventRepo := repos.NewCampaignEventRepo(thePG, log)
	ingestionRunRepo := repos.NewIngestionRunRepo(thePG, log)
	retentionService := services.NewRetentionService(thePG, log, offerRepo, campaignEventRepo, ingestionRunRepo, retentionDays)

	purge := func() {
		report, err := retentionService.Purge(context.Background())
		if err != nil {
			log.Error("Purge failed", "error", err)
			return
		}
		log.Info("Purge complete",
			"offers", report.Offers,
			"events", report.Events,
			"runs", report.Runs)
	}

	if *once {
		purge()
		return
	}

	c := cron.New()
	if err := c.AddFunc(schedule, purge); err != nil {
		log.Fatal("Invalid RETENTION_CRON", "schedule", schedule, "error", err)
	}
	log.Info("Retention scheduler started", "schedule", schedule)
	c.Run()
}
