package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/types"
)

type OfferHistoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.OfferHistory) ([]*types.OfferHistory, error)
	ListByOfferID(ctx context.Context, tx *gorm.DB, offerID uuid.UUID) ([]*types.OfferHistory, error)
}

type offerHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOfferHistoryRepo(db *gorm.DB, baseLog *logger.Logger) OfferHistoryRepo {
	repoLog := baseLog.With("repo", "OfferHistoryRepo")
	return &offerHistoryRepo{db: db, log: repoLog}
}

func (r *offerHistoryRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.OfferHistory) ([]*types.OfferHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.OfferHistory{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *offerHistoryRepo) ListByOfferID(ctx context.Context, tx *gorm.DB, offerID uuid.UUID) ([]*types.OfferHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.OfferHistory
	if offerID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
