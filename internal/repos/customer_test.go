package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/anuragind003/cdp-backend/internal/repos/testutil"
	"github.com/anuragind003/cdp-backend/internal/types"
)

func strptr(s string) *string { return &s }

func TestCustomerRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewCustomerRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, tx, []*types.Customer{
		{
			ID:      uuid.New(),
			Mobile:  strptr("9880001111"),
			PAN:     strptr("ABCDE1234F"),
			Segment: "retail",
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Create: expected 1 customer, got %d", len(created))
	}

	gotByIDs, err := repo.GetByIDs(ctx, tx, []uuid.UUID{created[0].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(gotByIDs) != 1 || gotByIDs[0].ID != created[0].ID {
		t.Fatalf("GetByIDs: unexpected result: %+v", gotByIDs)
	}

	if err := repo.UpdateFields(ctx, tx, created[0].ID, map[string]interface{}{
		"dnd": true,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	dndCount, err := repo.CountDND(ctx, tx)
	if err != nil {
		t.Fatalf("CountDND: %v", err)
	}
	if dndCount != 1 {
		t.Fatalf("CountDND: expected 1, got %d", dndCount)
	}

	since, err := repo.ListCreatedSince(ctx, tx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("ListCreatedSince: %v", err)
	}
	if len(since) != 1 {
		t.Fatalf("ListCreatedSince: expected 1, got %d", len(since))
	}
}

func TestCustomerRepoFindByIdentifiers(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewCustomerRepo(db, testutil.Logger(t))
	ctx := context.Background()

	byMobile := testutil.SeedCustomer(t, ctx, tx, "9880002222")
	byPAN, err := repo.Create(ctx, tx, []*types.Customer{
		{ID: uuid.New(), PAN: strptr("FGHIJ5678K")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Mobile from one row, PAN from another: both must come back.
	matches, err := repo.FindByIdentifiers(ctx, tx, &types.Customer{
		Mobile: strptr("9880002222"),
		PAN:    strptr("FGHIJ5678K"),
	})
	if err != nil {
		t.Fatalf("FindByIdentifiers: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("FindByIdentifiers: expected 2 rows, got %d", len(matches))
	}
	found := map[uuid.UUID]bool{}
	for _, m := range matches {
		found[m.ID] = true
	}
	if !found[byMobile.ID] || !found[byPAN[0].ID] {
		t.Fatalf("FindByIdentifiers: missing expected rows: %+v", matches)
	}

	matches, err = repo.FindByIdentifiers(ctx, tx, &types.Customer{
		Mobile: strptr("9880002222"),
	})
	if err != nil {
		t.Fatalf("FindByIdentifiers single: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != byMobile.ID {
		t.Fatalf("FindByIdentifiers single: unexpected result: %+v", matches)
	}

	matches, err = repo.FindByIdentifiers(ctx, tx, &types.Customer{
		UCID: strptr("no-such-ucid"),
	})
	if err != nil {
		t.Fatalf("FindByIdentifiers miss: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("FindByIdentifiers miss: expected 0 rows, got %d", len(matches))
	}
}
