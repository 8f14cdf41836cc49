package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/anuragind003/cdp-backend/internal/repos/testutil"
	"github.com/anuragind003/cdp-backend/internal/types"
)

func TestIngestionRunRepoClaimNextRunnable(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewIngestionRunRepo(db, testutil.Logger(t))
	ctx := context.Background()

	queued := testutil.SeedIngestionRun(t, ctx, tx, types.RunStatusQueued)

	claimed, err := repo.ClaimNextRunnable(ctx, tx, 3, 30*time.Second, 5*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed == nil || claimed.ID != queued.ID {
		t.Fatalf("ClaimNextRunnable: expected queued run, got %+v", claimed)
	}

	rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{queued.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(rows) != 1 || rows[0].Status != types.RunStatusRunning || rows[0].Attempts != 1 {
		t.Fatalf("claim did not transition run: %+v", rows)
	}

	// A fresh-heartbeat running run is not claimable again.
	claimed, err = repo.ClaimNextRunnable(ctx, tx, 3, 30*time.Second, 5*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable second: %v", err)
	}
	if claimed != nil {
		t.Fatalf("ClaimNextRunnable second: expected nil, got %+v", claimed)
	}

	// Stale heartbeat makes it claimable (crash recovery).
	stale := time.Now().Add(-time.Hour)
	if err := repo.UpdateFields(ctx, tx, queued.ID, map[string]interface{}{
		"heartbeat_at": stale,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	claimed, err = repo.ClaimNextRunnable(ctx, tx, 3, 30*time.Second, 5*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable stale: %v", err)
	}
	if claimed == nil || claimed.ID != queued.ID {
		t.Fatalf("ClaimNextRunnable stale: expected run, got %+v", claimed)
	}
}

func TestIngestionRunRepoGetLatestBySource(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewIngestionRunRepo(db, testutil.Logger(t))
	ctx := context.Background()

	older := testutil.SeedIngestionRun(t, ctx, tx, types.RunStatusCompleted)
	if err := repo.UpdateFields(ctx, tx, older.ID, map[string]interface{}{
		"created_at": time.Now().Add(-time.Hour),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	newer := testutil.SeedIngestionRun(t, ctx, tx, types.RunStatusQueued)

	latest, err := repo.GetLatestBySource(ctx, tx, types.RunSourceAPICSV)
	if err != nil {
		t.Fatalf("GetLatestBySource: %v", err)
	}
	if latest == nil || latest.ID != newer.ID {
		t.Fatalf("expected run %s, got %+v", newer.ID, latest)
	}

	none, err := repo.GetLatestBySource(ctx, tx, types.RunSourceOffermart)
	if err != nil {
		t.Fatalf("GetLatestBySource offermart: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no offermart runs, got %+v", none)
	}
}

func TestIngestionRunRepoFailedRetry(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewIngestionRunRepo(db, testutil.Logger(t))
	ctx := context.Background()

	failed := testutil.SeedIngestionRun(t, ctx, tx, types.RunStatusFailed)
	recent := time.Now()
	if err := repo.UpdateFields(ctx, tx, failed.ID, map[string]interface{}{
		"attempts":      1,
		"last_error_at": recent,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	// Too soon after the last failure.
	claimed, err := repo.ClaimNextRunnable(ctx, tx, 3, 30*time.Second, 5*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected retry delay to hold run back, got %+v", claimed)
	}

	// Past the retry delay.
	if err := repo.UpdateFields(ctx, tx, failed.ID, map[string]interface{}{
		"last_error_at": time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	claimed, err = repo.ClaimNextRunnable(ctx, tx, 3, 30*time.Second, 5*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable retry: %v", err)
	}
	if claimed == nil || claimed.ID != failed.ID {
		t.Fatalf("ClaimNextRunnable retry: expected run, got %+v", claimed)
	}

	// Attempts exhausted.
	if err := repo.UpdateFields(ctx, tx, failed.ID, map[string]interface{}{
		"status":        types.RunStatusFailed,
		"attempts":      3,
		"last_error_at": time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	claimed, err = repo.ClaimNextRunnable(ctx, tx, 3, 30*time.Second, 5*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable exhausted: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected exhausted run to stay failed, got %+v", claimed)
	}
}
