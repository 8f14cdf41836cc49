package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/types"
)

type CampaignEventRepo interface {
	Create(ctx context.Context, tx *gorm.DB, events []*types.CampaignEvent) ([]*types.CampaignEvent, error)
	ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, limit, offset int) ([]*types.CampaignEvent, error)
	PurgeOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type campaignEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCampaignEventRepo(db *gorm.DB, baseLog *logger.Logger) CampaignEventRepo {
	repoLog := baseLog.With("repo", "CampaignEventRepo")
	return &campaignEventRepo{db: db, log: repoLog}
}

func (r *campaignEventRepo) Create(ctx context.Context, tx *gorm.DB, events []*types.CampaignEvent) ([]*types.CampaignEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return []*types.CampaignEvent{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *campaignEventRepo) ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, limit, offset int) ([]*types.CampaignEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.CampaignEvent
	if customerID == uuid.Nil {
		return results, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	if err := transaction.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("occurred_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *campaignEventRepo) PurgeOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("occurred_at < ?", cutoff).
		Delete(&types.CampaignEvent{})
	return res.RowsAffected, res.Error
}
