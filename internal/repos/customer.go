package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/types"
)

type CustomerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, customers []*types.Customer) ([]*types.Customer, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Customer, error)
	// FindByIdentifiers returns every row where any supplied identifier
	// matches its column. The incoming record's nil identifiers are ignored.
	FindByIdentifiers(ctx context.Context, tx *gorm.DB, incoming *types.Customer) ([]*types.Customer, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListCreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Customer, error)
	CountDND(ctx context.Context, tx *gorm.DB) (int64, error)
}

type customerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	repoLog := baseLog.With("repo", "CustomerRepo")
	return &customerRepo{db: db, log: repoLog}
}

func (r *customerRepo) Create(ctx context.Context, tx *gorm.DB, customers []*types.Customer) ([]*types.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(customers) == 0 {
		return []*types.Customer{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *customerRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Customer
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

func (r *customerRepo) FindByIdentifiers(ctx context.Context, tx *gorm.DB, incoming *types.Customer) ([]*types.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if incoming == nil {
		return nil, nil
	}

	q := transaction.WithContext(ctx).Model(&types.Customer{})
	cond := transaction.Session(&gorm.Session{NewDB: true}).Model(&types.Customer{})
	supplied := false
	if incoming.Mobile != nil && *incoming.Mobile != "" {
		cond = cond.Or("mobile = ?", *incoming.Mobile)
		supplied = true
	}
	if incoming.PAN != nil && *incoming.PAN != "" {
		cond = cond.Or("pan = ?", *incoming.PAN)
		supplied = true
	}
	if incoming.Aadhaar != nil && *incoming.Aadhaar != "" {
		cond = cond.Or("aadhaar = ?", *incoming.Aadhaar)
		supplied = true
	}
	if incoming.UCID != nil && *incoming.UCID != "" {
		cond = cond.Or("ucid = ?", *incoming.UCID)
		supplied = true
	}
	if incoming.PrevLAN != nil && *incoming.PrevLAN != "" {
		cond = cond.Or("prev_lan = ?", *incoming.PrevLAN)
		supplied = true
	}
	if !supplied {
		return nil, nil
	}

	var results []*types.Customer
	if err := q.Where(cond).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *customerRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Customer{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *customerRepo) ListCreatedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Customer, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Customer
	if err := transaction.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *customerRepo) CountDND(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Customer{}).
		Where("dnd = ?", true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
