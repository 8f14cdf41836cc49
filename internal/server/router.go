package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/anuragind003/cdp-backend/internal/handlers"
	"github.com/anuragind003/cdp-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName      string
	AuthHandler      *handlers.AuthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	LeadHandler      *handlers.LeadHandler
	CustomerHandler  *handlers.CustomerHandler
	OfferHandler     *handlers.OfferHandler
	IngestionHandler *handlers.IngestionHandler
	ExportHandler    *handlers.ExportHandler
	EventHandler     *handlers.EventHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/auth/token", cfg.AuthHandler.Token)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Leads + events
	api.POST("/leads", cfg.LeadHandler.Create)
	api.POST("/events", cfg.EventHandler.Create)
	// Customers
	api.GET("/customers/:customerID", cfg.CustomerHandler.Get)
	api.GET("/customers/:customerID/events", cfg.CustomerHandler.ListEvents)
	api.GET("/customers/:customerID/offers", cfg.OfferHandler.ListByCustomer)
	// Offers
	api.GET("/offers/:offerID", cfg.OfferHandler.Get)
	api.GET("/offers/:offerID/history", cfg.OfferHandler.History)
	// Exports
	api.GET("/exports/moengage", cfg.ExportHandler.Moengage)
	api.GET("/exports/duplicates", cfg.ExportHandler.Duplicates)
	api.GET("/exports/uniques", cfg.ExportHandler.Uniques)
	api.GET("/exports/errors/:runID", cfg.ExportHandler.RunErrors)
	// Admin
	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireScope("admin"))
	admin.POST("/uploads", cfg.IngestionHandler.Upload)
	admin.GET("/runs", cfg.IngestionHandler.LatestRun)
	admin.GET("/runs/:runID", cfg.IngestionHandler.GetRun)

	return router
}
