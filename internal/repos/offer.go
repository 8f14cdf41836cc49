package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/types"
)

type OfferRepo interface {
	Create(ctx context.Context, tx *gorm.DB, offers []*types.Offer) ([]*types.Offer, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Offer, error)
	ListActiveByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]*types.Offer, error)
	ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]*types.Offer, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	// ListExportable returns active offers inside their validity window with
	// the owning customer preloaded, DND customers excluded.
	ListExportable(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Offer, error)
	ListByStatusSince(ctx context.Context, tx *gorm.DB, status string, since time.Time) ([]*types.Offer, error)
	PurgeStatusesOlderThan(ctx context.Context, tx *gorm.DB, statuses []string, cutoff time.Time) (int64, error)
}

type offerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOfferRepo(db *gorm.DB, baseLog *logger.Logger) OfferRepo {
	repoLog := baseLog.With("repo", "OfferRepo")
	return &offerRepo{db: db, log: repoLog}
}

func (r *offerRepo) Create(ctx context.Context, tx *gorm.DB, offers []*types.Offer) ([]*types.Offer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(offers) == 0 {
		return []*types.Offer{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *offerRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Offer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Offer
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *offerRepo) ListActiveByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]*types.Offer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Offer
	if customerID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, types.OfferStatusActive).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *offerRepo) ListByCustomerID(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]*types.Offer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Offer
	if customerID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *offerRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Offer{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *offerRepo) ListExportable(ctx context.Context, tx *gorm.DB, now time.Time) ([]*types.Offer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Offer
	if err := transaction.WithContext(ctx).
		Preload("Customer").
		Joins("JOIN customer ON customer.id = offer.customer_id").
		Where("offer.status = ?", types.OfferStatusActive).
		Where("(offer.valid_from IS NULL OR offer.valid_from <= ?)", now).
		Where("(offer.valid_to IS NULL OR offer.valid_to >= ?)", now).
		Where("customer.dnd = ?", false).
		Where("customer.deleted_at IS NULL").
		Order("offer.created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *offerRepo) ListByStatusSince(ctx context.Context, tx *gorm.DB, status string, since time.Time) ([]*types.Offer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Offer
	if err := transaction.WithContext(ctx).
		Preload("Customer").
		Where("status = ?", status).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *offerRepo) PurgeStatusesOlderThan(ctx context.Context, tx *gorm.DB, statuses []string, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(statuses) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Unscoped().
		Where("status IN ?", statuses).
		Where("updated_at < ?", cutoff).
		Delete(&types.Offer{})
	return res.RowsAffected, res.Error
}
