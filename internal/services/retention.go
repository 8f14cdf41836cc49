package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/types"
)

// PurgeReport counts what one retention sweep removed.
type PurgeReport struct {
	Offers int64 `json:"offers"`
	Events int64 `json:"events"`
	Runs   int64 `json:"runs"`
}

type RetentionService interface {
	// Purge hard-deletes Expired/Duplicate offers, campaign events, and
	// finished ingestion runs older than the retention window. Offer history
	// is never touched (audit log).
	Purge(ctx context.Context) (*PurgeReport, error)
}

type retentionService struct {
	db            *gorm.DB
	log           *logger.Logger
	offerRepo     repos.OfferRepo
	eventRepo     repos.CampaignEventRepo
	runRepo       repos.IngestionRunRepo
	retentionDays int
}

func NewRetentionService(db *gorm.DB, log *logger.Logger, offerRepo repos.OfferRepo, eventRepo repos.CampaignEventRepo, runRepo repos.IngestionRunRepo, retentionDays int) RetentionService {
	serviceLog := log.With("service", "RetentionService")
	if retentionDays <= 0 {
		retentionDays = 180
	}
	return &retentionService{
		db:            db,
		log:           serviceLog,
		offerRepo:     offerRepo,
		eventRepo:     eventRepo,
		runRepo:       runRepo,
		retentionDays: retentionDays,
	}
}

func (rs *retentionService) Purge(ctx context.Context) (*PurgeReport, error) {
	cutoff := time.Now().AddDate(0, 0, -rs.retentionDays)
	report := &PurgeReport{}

	if err := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers, err := rs.offerRepo.PurgeStatusesOlderThan(ctx, tx, []string{types.OfferStatusExpired, types.OfferStatusDuplicate}, cutoff)
		if err != nil {
			return fmt.Errorf("error purging offers: %w", err)
		}
		report.Offers = offers

		events, err := rs.eventRepo.PurgeOlderThan(ctx, tx, cutoff)
		if err != nil {
			return fmt.Errorf("error purging campaign events: %w", err)
		}
		report.Events = events

		runs, err := rs.runRepo.PurgeFinishedOlderThan(ctx, tx, cutoff)
		if err != nil {
			return fmt.Errorf("error purging ingestion runs: %w", err)
		}
		report.Runs = runs
		return nil
	}); err != nil {
		return nil, err
	}

	rs.log.Info("Retention purge finished",
		"cutoff", cutoff,
		"offers", report.Offers,
		"events", report.Events,
		"runs", report.Runs,
	)
	return report, nil
}
