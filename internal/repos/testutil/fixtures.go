package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/types"
)

func SeedCustomer(tb testing.TB, ctx context.Context, tx *gorm.DB, mobile string) *types.Customer {
	tb.Helper()
	c := &types.Customer{
		ID:      uuid.New(),
		Mobile:  &mobile,
		Segment: "retail",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed customer: %v", err)
	}
	return c
}

func SeedOffer(tb testing.TB, ctx context.Context, tx *gorm.DB, customerID uuid.UUID, productType, status string) *types.Offer {
	tb.Helper()
	now := time.Now()
	o := &types.Offer{
		ID:          uuid.New(),
		CustomerID:  customerID,
		OfferType:   types.OfferTypeFresh,
		ProductType: productType,
		Status:      status,
		ValidFrom:   now.Add(-24 * time.Hour),
		ValidTo:     now.Add(24 * time.Hour),
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed offer: %v", err)
	}
	return o
}

func SeedIngestionRun(tb testing.TB, ctx context.Context, tx *gorm.DB, status string) *types.IngestionRun {
	tb.Helper()
	r := &types.IngestionRun{
		ID:     uuid.New(),
		Source: types.RunSourceAPICSV,
		Status: status,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed ingestion run: %v", err)
	}
	return r
}
