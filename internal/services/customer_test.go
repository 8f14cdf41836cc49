package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/anuragind003/cdp-backend/internal/types"
)

func sp(s string) *string { return &s }

func TestNormalizeIdentifiers(t *testing.T) {
	c := &types.Customer{
		Mobile:  sp("  9876543210 "),
		PAN:     sp(" abcde1234f "),
		Aadhaar: sp("   "),
		Segment: " retail ",
	}
	normalizeIdentifiers(c)

	if c.Mobile == nil || *c.Mobile != "9876543210" {
		t.Fatalf("mobile not trimmed: %v", c.Mobile)
	}
	if c.PAN == nil || *c.PAN != "ABCDE1234F" {
		t.Fatalf("pan not uppercased: %v", c.PAN)
	}
	if c.Aadhaar != nil {
		t.Fatalf("blank aadhaar should be nil")
	}
	if c.Segment != "retail" {
		t.Fatalf("segment not trimmed: %q", c.Segment)
	}
}

func TestHasAnyIdentifier(t *testing.T) {
	if hasAnyIdentifier(&types.Customer{Segment: "retail"}) {
		t.Fatalf("no identifiers should report false")
	}
	if !hasAnyIdentifier(&types.Customer{PrevLAN: sp("LAN1")}) {
		t.Fatalf("prev_lan alone should report true")
	}
}

func TestPickWinnerSingleMatch(t *testing.T) {
	existing := &types.Customer{ID: uuid.New(), Mobile: sp("9876543210")}
	incoming := &types.Customer{Mobile: sp("9876543210"), PAN: sp("ABCDE1234F")}

	winner, field, losers := pickWinner(incoming, []*types.Customer{existing})
	if winner.ID != existing.ID || field != "mobile" || len(losers) != 0 {
		t.Fatalf("unexpected result: winner=%v field=%q losers=%d", winner.ID, field, len(losers))
	}
}

func TestPickWinnerConflictPrefersMobile(t *testing.T) {
	byMobile := &types.Customer{ID: uuid.New(), Mobile: sp("9876543210")}
	byPAN := &types.Customer{ID: uuid.New(), PAN: sp("ABCDE1234F")}
	incoming := &types.Customer{Mobile: sp("9876543210"), PAN: sp("ABCDE1234F")}

	winner, field, losers := pickWinner(incoming, []*types.Customer{byPAN, byMobile})
	if winner.ID != byMobile.ID {
		t.Fatalf("mobile match should win, got %v", winner.ID)
	}
	if field != "mobile" {
		t.Fatalf("unexpected matched field: %q", field)
	}
	if len(losers) != 1 || losers[0].ID != byPAN.ID {
		t.Fatalf("unexpected losers: %+v", losers)
	}
}

func TestPickWinnerFallsDownPriorityOrder(t *testing.T) {
	byAadhaar := &types.Customer{ID: uuid.New(), Aadhaar: sp("123412341234")}
	byUCID := &types.Customer{ID: uuid.New(), UCID: sp("UC1")}
	// Incoming has no mobile or pan, so aadhaar decides.
	incoming := &types.Customer{Aadhaar: sp("123412341234"), UCID: sp("UC1")}

	winner, field, _ := pickWinner(incoming, []*types.Customer{byUCID, byAadhaar})
	if winner.ID != byAadhaar.ID || field != "aadhaar" {
		t.Fatalf("aadhaar match should win, got %v (%q)", winner.ID, field)
	}
}

func TestMergeAttributes(t *testing.T) {
	existing := datatypes.JSON([]byte(`{"city":"Pune","income":100}`))
	incoming := datatypes.JSON([]byte(`{"income":200,"employer":"Acme"}`))

	merged, err := mergeAttributes(existing, incoming)
	if err != nil {
		t.Fatalf("mergeAttributes: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(merged, &got); err != nil {
		t.Fatalf("unmarshal merged: %v", err)
	}
	if got["city"] != "Pune" {
		t.Fatalf("existing keys should survive: %+v", got)
	}
	if got["income"] != float64(200) {
		t.Fatalf("incoming keys should win: %+v", got)
	}
	if got["employer"] != "Acme" {
		t.Fatalf("new keys should land: %+v", got)
	}
}

func TestMergeAttributesEmptyIncoming(t *testing.T) {
	merged, err := mergeAttributes(datatypes.JSON([]byte(`{"a":1}`)), nil)
	if err != nil {
		t.Fatalf("mergeAttributes: %v", err)
	}
	if merged != nil {
		t.Fatalf("nothing incoming should mean no update, got %s", merged)
	}
}

func TestMergeAttributesInvalidIncoming(t *testing.T) {
	if _, err := mergeAttributes(nil, datatypes.JSON([]byte(`not json`))); err == nil {
		t.Fatalf("expected invalid incoming attributes to error")
	}
}
