package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/types"
	"github.com/anuragind003/cdp-backend/internal/utils"
)

type PostgresService struct {
	db     *gorm.DB
	driver string
	log    *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "postgres", log))

	var (
		gormDB *gorm.DB
		err    error
	)
	switch driver {
	case "sqlite":
		// Local/dev mode. IDs are always assigned in code, so the
		// uuid_generate_v4 column defaults are never exercised here.
		path := utils.GetEnv("SQLITE_PATH", "cdp.db", log)
		gormDB, err = gorm.Open(sqlite.Open(path), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
	default:
		driver = "postgres"
		host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		port := utils.GetEnv("POSTGRES_PORT", "5432", log)
		user := utils.GetEnv("POSTGRES_USER", "postgres", log)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		name := utils.GetEnv("POSTGRES_NAME", "cdp", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		gormDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
	}
	if err != nil {
		serviceLog.Error("Failed to connect to database", "driver", driver, "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "postgres" {
		if err := gormDB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			serviceLog.Error("Failed to enable uuid-ossp extension", "error", err)
			return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
		}
	}

	return &PostgresService{db: gormDB, driver: driver, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.Customer{},
		&types.Offer{},
		&types.OfferHistory{},
		&types.CampaignEvent{},
		&types.IngestionRun{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if s.driver != "postgres" {
		return nil
	}
	s.log.Info("Configuring foreign key relationships...")
	if err := s.db.Exec(`
		ALTER TABLE "offer"
		DROP CONSTRAINT IF EXISTS "fk_offer_customer_id";
	`).Error; err != nil {
		return fmt.Errorf("failed to reset fk_offer_customer_id: %w", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "offer"
		ADD CONSTRAINT "fk_offer_customer_id"
		FOREIGN KEY ("customer_id")
		REFERENCES "customer"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		return fmt.Errorf("failed to add fk_offer_customer_id: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
