package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/anuragind003/cdp-backend/internal/clients/redis"
	"github.com/anuragind003/cdp-backend/internal/db"
	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/precedence"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/services"
	"github.com/anuragind003/cdp-backend/internal/utils"
)

// offermart-batch enqueues a dump file for ingestion and drains the run
// queue, then writes the export bundle. Meant for the nightly Offermart
// hand-off.
func main() {
	_ = godotenv.Load()

	filePath := flag.String("file", "", "path to the Offermart CSV dump")
	exportDir := flag.String("export-dir", "", "write moengage/duplicates/uniques CSVs here after the run")
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

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	customerRepo := repos.NewCustomerRepo(thePG, log)
	offerRepo := repos.NewOfferRepo(thePG, log)
	offerHistoryRepo := repos.NewOfferHistoryRepo(thePG, log)
	campaignEventRepo := repos.NewCampaignEventRepo(thePG, log)
	ingestionRunRepo := repos.NewIngestionRunRepo(thePG, log)

	identityCache, err := redis.NewIdentityCache(log)
	if err != nil {
		log.Warn("Identity cache disabled", "error", err)
		identityCache = nil
	}

	rules := precedence.DefaultRuleTable()
	if rulesPath := os.Getenv("PRECEDENCE_RULES_PATH"); rulesPath != "" {
		rules, err = precedence.LoadRuleTable(rulesPath)
		if err != nil {
			log.Fatal("Failed to load precedence rules", "path", rulesPath, "error", err)
		}
	}

	customerService := services.NewCustomerService(thePG, log, customerRepo, campaignEventRepo, identityCache)
	offerService := services.NewOfferService(thePG, log, offerRepo, offerHistoryRepo, rules)
	ingestionService := services.NewIngestionService(thePG, log, ingestionRunRepo, customerService, offerService)
	exportService := services.NewExportService(thePG, log, offerRepo, customerRepo, ingestionRunRepo)

	ctx := context.Background()

	if *filePath != "" {
		run, err := ingestionService.EnqueueFile(ctx, *filePath)
		if err != nil {
			log.Fatal("Failed to enqueue file", "path", *filePath, "error", err)
		}
		log.Info("Enqueued ingestion run", "runID", run.ID, "path", *filePath)
	}

	// Drain: keep claiming until nothing is runnable.
	start := time.Now()
	for {
		claimed, err := ingestionService.ProcessNextRun(ctx)
		if err != nil {
			log.Error("Run failed", "error", err)
			continue
		}
		if !claimed {
			break
		}
	}
	log.Info("Queue drained", "elapsed", time.Since(start))

	if *exportDir != "" {
		since := utils.GetEnvAsInt("EXPORT_SINCE_HOURS", 24, log)
		cutoff := time.Now().Add(-time.Duration(since) * time.Hour)
		if err := exportService.WriteBundle(ctx, *exportDir, cutoff); err != nil {
			log.Fatal("Export bundle failed", "dir", *exportDir, "error", err)
		}
		log.Info("Export bundle written", "dir", *exportDir)
	}
}
