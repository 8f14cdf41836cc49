package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/anuragind003/cdp-backend/internal/types"
)

func headerIndex(names ...string) map[string]int {
	columns := make(map[string]int, len(names))
	for i, n := range names {
		columns[n] = i
	}
	return columns
}

func TestRowToLead(t *testing.T) {
	columns := headerIndex("mobile", "pan", "product_type", "offer_type", "valid_from", "valid_to", "amount", "dnd")

	input, rowErr := rowToLead(columns, []string{"9876543210", "abcde1234f", "Preapproved", "Fresh", "2026-01-01", "2026-03-31", "500000", "false"})
	if rowErr != nil {
		t.Fatalf("rowToLead: %+v", rowErr)
	}
	if input.Mobile != "9876543210" || input.ProductType != "Preapproved" {
		t.Fatalf("unexpected lead: %+v", input)
	}
	if input.Amount != 500000 {
		t.Fatalf("unexpected amount: %v", input.Amount)
	}
	if input.DND {
		t.Fatalf("expected dnd false")
	}
}

func TestRowToLeadMissingProductType(t *testing.T) {
	columns := headerIndex("mobile", "product_type")

	_, rowErr := rowToLead(columns, []string{"9876543210", ""})
	if rowErr == nil || rowErr.Column != "product_type" {
		t.Fatalf("expected product_type error, got %+v", rowErr)
	}
}

func TestRowToLeadBadValues(t *testing.T) {
	columns := headerIndex("product_type", "amount", "dnd")

	_, rowErr := rowToLead(columns, []string{"Top-up", "not-a-number", "false"})
	if rowErr == nil || rowErr.Column != "amount" {
		t.Fatalf("expected amount error, got %+v", rowErr)
	}

	_, rowErr = rowToLead(columns, []string{"Top-up", "1000", "maybe"})
	if rowErr == nil || rowErr.Column != "dnd" {
		t.Fatalf("expected dnd error, got %+v", rowErr)
	}
}

func TestRowToLeadShortRecord(t *testing.T) {
	columns := headerIndex("mobile", "product_type", "amount")

	// Record shorter than the header: trailing columns read as empty.
	input, rowErr := rowToLead(columns, []string{"9876543210", "Insta"})
	if rowErr != nil {
		t.Fatalf("rowToLead: %+v", rowErr)
	}
	if input.Amount != 0 {
		t.Fatalf("expected zero amount, got %v", input.Amount)
	}
}

func TestLeadInputToSubmission(t *testing.T) {
	in := &LeadInput{
		ProductType: " Preapproved ",
		OfferType:   "Fresh",
		ValidFrom:   "2026-01-01",
		ValidTo:     "2026-03-31",
		Amount:      250000,
		LAN:         " LAN123 ",
	}
	sub, err := in.toSubmission()
	if err != nil {
		t.Fatalf("toSubmission: %v", err)
	}
	if sub.ProductType != "Preapproved" {
		t.Fatalf("product type not trimmed: %q", sub.ProductType)
	}
	if sub.LAN == nil || *sub.LAN != "LAN123" {
		t.Fatalf("lan not trimmed: %v", sub.LAN)
	}
	wantFrom, _ := time.Parse(csvDateLayout, "2026-01-01")
	if !sub.ValidFrom.Equal(wantFrom) {
		t.Fatalf("unexpected valid_from: %v", sub.ValidFrom)
	}
}

func TestLeadInputToSubmissionRejectsInvertedWindow(t *testing.T) {
	in := &LeadInput{
		ProductType: "Preapproved",
		ValidFrom:   "2026-03-31",
		ValidTo:     "2026-01-01",
	}
	if _, err := in.toSubmission(); err == nil {
		t.Fatalf("expected inverted validity window to be rejected")
	}
}

func TestLeadInputToSubmissionRequiresProductType(t *testing.T) {
	in := &LeadInput{Mobile: "9876543210"}
	if _, err := in.toSubmission(); err == nil {
		t.Fatalf("expected missing product_type to be rejected")
	}
}

func TestLeadInputToCustomer(t *testing.T) {
	in := &LeadInput{
		Mobile:  " 9876543210 ",
		PAN:     "",
		Segment: "retail",
		DND:     true,
	}
	c := in.toCustomer()
	if c.Mobile == nil || *c.Mobile != "9876543210" {
		t.Fatalf("mobile not trimmed: %v", c.Mobile)
	}
	if c.PAN != nil {
		t.Fatalf("empty pan should map to nil")
	}
	if !c.DND || c.Segment != "retail" {
		t.Fatalf("unexpected customer: %+v", c)
	}
}

func TestIngestionServiceLatestRun(t *testing.T) {
	run := &types.IngestionRun{
		ID:     uuid.New(),
		Source: types.RunSourceOffermart,
		Status: types.RunStatusCompleted,
	}
	svc := NewIngestionService(nil, testLogger(t), &fakeRunRepo{run: run}, nil, nil)
	ctx := context.Background()

	got, err := svc.LatestRun(ctx, "")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got.ID != run.ID {
		t.Fatalf("expected run %s, got %+v", run.ID, got)
	}

	if _, err := svc.LatestRun(ctx, "sftp"); err == nil {
		t.Fatalf("expected unknown source to error")
	}

	empty := NewIngestionService(nil, testLogger(t), &fakeRunRepo{}, nil, nil)
	if _, err := empty.LatestRun(ctx, types.RunSourceAPICSV); err == nil {
		t.Fatalf("expected missing runs to error")
	}
}
