package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/anuragind003/cdp-backend/internal/repos/testutil"
	"github.com/anuragind003/cdp-backend/internal/types"
)

func TestOfferRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewOfferRepo(db, testutil.Logger(t))
	ctx := context.Background()

	customer := testutil.SeedCustomer(t, ctx, tx, "9990001111")
	now := time.Now()

	created, err := repo.Create(ctx, tx, []*types.Offer{
		{
			ID:          uuid.New(),
			CustomerID:  customer.ID,
			OfferType:   types.OfferTypeFresh,
			ProductType: "Preapproved",
			Status:      types.OfferStatusActive,
			ValidFrom:   now.Add(-time.Hour),
			ValidTo:     now.Add(24 * time.Hour),
			Amount:      250000,
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Create: expected 1 offer, got %d", len(created))
	}

	gotByIDs, err := repo.GetByIDs(ctx, tx, []uuid.UUID{created[0].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(gotByIDs) != 1 || gotByIDs[0].ID != created[0].ID {
		t.Fatalf("GetByIDs: unexpected result: %+v", gotByIDs)
	}

	active, err := repo.ListActiveByCustomerID(ctx, tx, customer.ID)
	if err != nil {
		t.Fatalf("ListActiveByCustomerID: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("ListActiveByCustomerID: expected 1 offer, got %d", len(active))
	}

	if err := repo.UpdateFields(ctx, tx, created[0].ID, map[string]interface{}{
		"status": types.OfferStatusExpired,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	active, err = repo.ListActiveByCustomerID(ctx, tx, customer.ID)
	if err != nil {
		t.Fatalf("ListActiveByCustomerID after expire: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("ListActiveByCustomerID after expire: expected 0, got %d", len(active))
	}

	all, err := repo.ListByCustomerID(ctx, tx, customer.ID)
	if err != nil {
		t.Fatalf("ListByCustomerID: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListByCustomerID: expected 1, got %d", len(all))
	}
}

func TestOfferRepoListExportable(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewOfferRepo(db, testutil.Logger(t))
	ctx := context.Background()
	now := time.Now()

	reachable := testutil.SeedCustomer(t, ctx, tx, "9990002222")
	testutil.SeedOffer(t, ctx, tx, reachable.ID, "Preapproved", types.OfferStatusActive)

	// DND customers never export.
	dnd := testutil.SeedCustomer(t, ctx, tx, "9990003333")
	if err := tx.WithContext(ctx).Model(dnd).Update("dnd", true).Error; err != nil {
		t.Fatalf("set dnd: %v", err)
	}
	testutil.SeedOffer(t, ctx, tx, dnd.ID, "Top-up", types.OfferStatusActive)

	// Lapsed validity window never exports.
	lapsed := testutil.SeedOffer(t, ctx, tx, reachable.ID, "Insta", types.OfferStatusActive)
	if err := tx.WithContext(ctx).Model(lapsed).Update("valid_to", now.Add(-time.Hour)).Error; err != nil {
		t.Fatalf("lapse offer: %v", err)
	}

	exportable, err := repo.ListExportable(ctx, tx, now)
	if err != nil {
		t.Fatalf("ListExportable: %v", err)
	}
	if len(exportable) != 1 {
		t.Fatalf("ListExportable: expected 1 offer, got %d", len(exportable))
	}
	if exportable[0].Customer == nil || exportable[0].Customer.ID != reachable.ID {
		t.Fatalf("ListExportable: customer not preloaded: %+v", exportable[0])
	}
}

func TestOfferRepoPurgeStatusesOlderThan(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewOfferRepo(db, testutil.Logger(t))
	ctx := context.Background()

	customer := testutil.SeedCustomer(t, ctx, tx, "9990004444")
	old := testutil.SeedOffer(t, ctx, tx, customer.ID, "Preapproved", types.OfferStatusExpired)
	if err := tx.WithContext(ctx).Model(old).Update("updated_at", time.Now().AddDate(0, 0, -200)).Error; err != nil {
		t.Fatalf("age offer: %v", err)
	}
	testutil.SeedOffer(t, ctx, tx, customer.ID, "Top-up", types.OfferStatusActive)

	purged, err := repo.PurgeStatusesOlderThan(ctx, tx, []string{types.OfferStatusExpired, types.OfferStatusDuplicate}, time.Now().AddDate(0, 0, -180))
	if err != nil {
		t.Fatalf("PurgeStatusesOlderThan: %v", err)
	}
	if purged != 1 {
		t.Fatalf("PurgeStatusesOlderThan: expected 1 row, got %d", purged)
	}

	remaining, err := repo.ListByCustomerID(ctx, tx, customer.ID)
	if err != nil {
		t.Fatalf("ListByCustomerID: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != types.OfferStatusActive {
		t.Fatalf("unexpected survivors: %+v", remaining)
	}
}
