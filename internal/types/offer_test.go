package types

import (
	"testing"
	"time"
)

func TestOfferLive(t *testing.T) {
	now := time.Now()
	offer := &Offer{Status: OfferStatusActive, ValidTo: now.Add(time.Hour)}
	if !offer.Live(now) {
		t.Fatalf("active offer inside its window must be live")
	}

	offer.ValidTo = now.Add(-time.Hour)
	if offer.Live(now) {
		t.Fatalf("active offer past valid_to must not be live")
	}

	offer.ValidTo = time.Time{}
	if !offer.Live(now) {
		t.Fatalf("active offer with no valid_to must be live")
	}

	offer.Status = OfferStatusExpired
	if offer.Live(now) {
		t.Fatalf("non-active offer must not be live")
	}
}
