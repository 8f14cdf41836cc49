package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/types"
)

type IngestionRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, runs []*types.IngestionRun) ([]*types.IngestionRun, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.IngestionRun, error)
	GetLatestBySource(ctx context.Context, tx *gorm.DB, source string) (*types.IngestionRun, error)

	// ClaimNextRunnable claims the next run that is:
	// - status=queued
	// - OR status=failed with attempts < maxAttempts and last_error_at older
	//   than retryDelay (or NULL)
	// - OR status=running with a stale heartbeat (crash recovery)
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*types.IngestionRun, error)

	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	PurgeFinishedOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type ingestionRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestionRunRepo(db *gorm.DB, baseLog *logger.Logger) IngestionRunRepo {
	repoLog := baseLog.With("repo", "IngestionRunRepo")
	return &ingestionRunRepo{db: db, log: repoLog}
}

func (r *ingestionRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.IngestionRun) ([]*types.IngestionRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(runs) == 0 {
		return []*types.IngestionRun{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *ingestionRunRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.IngestionRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.IngestionRun
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

func (r *ingestionRunRepo) GetLatestBySource(ctx context.Context, tx *gorm.DB, source string) (*types.IngestionRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var run types.IngestionRun
	err := transaction.WithContext(ctx).
		Where("source = ?", source).
		Order("created_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}

func (r *ingestionRunRepo) ClaimNextRunnable(
	ctx context.Context,
	tx *gorm.DB,
	maxAttempts int,
	retryDelay time.Duration,
	staleRunning time.Duration,
) (*types.IngestionRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)

	var claimed *types.IngestionRun

	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var run types.IngestionRun

		q := txx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
				(
					status = ?
					OR (
						status = ?
						AND attempts < ?
						AND (last_error_at IS NULL OR last_error_at < ?)
					)
					OR (
						status = ?
						AND heartbeat_at IS NOT NULL
						AND heartbeat_at < ?
					)
				)
			`, types.RunStatusQueued, types.RunStatusFailed, maxAttempts, retryCutoff, types.RunStatusRunning, staleCutoff).
			Order("created_at ASC")

		qErr := q.First(&run).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		uErr := txx.Model(&types.IngestionRun{}).
			Where("id = ?", run.ID).
			Updates(map[string]interface{}{
				"status":       types.RunStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"started_at":   now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}

		claimed = &run
		return nil
	})

	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *ingestionRunRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.IngestionRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ingestionRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.IngestionRun{}).
		Where("id = ? AND status = ?", id, types.RunStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *ingestionRunRepo) PurgeFinishedOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("status IN ?", []string{types.RunStatusCompleted, types.RunStatusFailed}).
		Where("created_at < ?", cutoff).
		Delete(&types.IngestionRun{})
	return res.RowsAffected, res.Error
}
