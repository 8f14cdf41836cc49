package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/anuragind003/cdp-backend/internal/clients/redis"
	"github.com/anuragind003/cdp-backend/internal/db"
	"github.com/anuragind003/cdp-backend/internal/handlers"
	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/middleware"
	"github.com/anuragind003/cdp-backend/internal/observability"
	"github.com/anuragind003/cdp-backend/internal/precedence"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/server"
	"github.com/anuragind003/cdp-backend/internal/services"
	"github.com/anuragind003/cdp-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
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

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	port := utils.GetEnv("PORT", "8080", log)

	// Tracing
	ctx := context.Background()
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "cdp-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	defer shutdownOTel(ctx)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	customerRepo := repos.NewCustomerRepo(thePG, log)
	offerRepo := repos.NewOfferRepo(thePG, log)
	offerHistoryRepo := repos.NewOfferHistoryRepo(thePG, log)
	campaignEventRepo := repos.NewCampaignEventRepo(thePG, log)
	ingestionRunRepo := repos.NewIngestionRunRepo(thePG, log)

	// Redis identity cache (optional)
	identityCache, err := redis.NewIdentityCache(log)
	if err != nil {
		log.Warn("Identity cache disabled", "error", err)
		identityCache = nil
	}

	// Precedence rules
	rules := precedence.DefaultRuleTable()
	if rulesPath := os.Getenv("PRECEDENCE_RULES_PATH"); rulesPath != "" {
		rules, err = precedence.LoadRuleTable(rulesPath)
		if err != nil {
			log.Fatal("Failed to load precedence rules", "path", rulesPath, "error", err)
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(log, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, loadClients(log))
	customerService := services.NewCustomerService(thePG, log, customerRepo, campaignEventRepo, identityCache)
	offerService := services.NewOfferService(thePG, log, offerRepo, offerHistoryRepo, rules)
	ingestionService := services.NewIngestionService(thePG, log, ingestionRunRepo, customerService, offerService)
	exportService := services.NewExportService(thePG, log, offerRepo, customerRepo, ingestionRunRepo)
	eventService := services.NewEventService(thePG, log, campaignEventRepo, offerService)

	// Background file ingestion
	ingestionService.StartWorker(ctx)

	// Handlers + middleware
	authHandler := handlers.NewAuthHandler(authService)
	leadHandler := handlers.NewLeadHandler(ingestionService)
	customerHandler := handlers.NewCustomerHandler(customerService)
	offerHandler := handlers.NewOfferHandler(offerService)
	ingestionHandler := handlers.NewIngestionHandler(ingestionService)
	exportHandler := handlers.NewExportHandler(exportService)
	eventHandler := handlers.NewEventHandler(eventService)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	router := server.NewRouter(server.RouterConfig{
		ServiceName:      "cdp-backend",
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		LeadHandler:      leadHandler,
		CustomerHandler:  customerHandler,
		OfferHandler:     offerHandler,
		IngestionHandler: ingestionHandler,
		ExportHandler:    exportHandler,
		EventHandler:     eventHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server exited", "error", err)
	}
}

// loadClients reads the allowed API clients from the environment. Each entry
// in API_CLIENTS is id:bcrypt-hash:scope1|scope2.
func loadClients(log *logger.Logger) []services.Client {
	raw := strings.TrimSpace(os.Getenv("API_CLIENTS"))
	if raw == "" {
		log.Warn("API_CLIENTS not set, token endpoint will reject all clients")
		return nil
	}
	var clients []services.Client
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			log.Warn("Skipping malformed API_CLIENTS entry", "entry", entry)
			continue
		}
		client := services.Client{ID: parts[0], SecretHash: parts[1]}
		if len(parts) == 3 && parts[2] != "" {
			client.Scopes = strings.Split(parts[2], "|")
		}
		clients = append(clients, client)
	}
	return clients
}
