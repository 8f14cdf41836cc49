package precedence

import (
	"sort"

	"github.com/google/uuid"
)

// Action is the outcome of resolving an incoming offer against a customer's
// active offers.
type Action string

const (
	// ActionCreateActive writes the incoming offer as Active. Decision.Expire
	// lists the active offers it displaces (may be empty).
	ActionCreateActive Action = "create-active"
	// ActionMarkDuplicate writes the incoming offer with status Duplicate.
	ActionMarkDuplicate Action = "mark-duplicate"
	// ActionEnrichExisting refreshes the active offer named by
	// Decision.EnrichTarget in place; no new offer row is written.
	ActionEnrichExisting Action = "enrich-existing"
	// ActionReject drops the incoming offer entirely.
	ActionReject Action = "reject"
)

// Resolution reasons, recorded verbatim into offer history.
const (
	ReasonNoActiveOffers      = "no active offers"
	ReasonOutranksActive      = "outranks all active offers"
	ReasonSameProductActive   = "same product type already active"
	ReasonOutranked           = "outranked by active offer"
	ReasonPriorityTie         = "priority tie with active offer"
	ReasonUnknownProduct      = "unknown product type"
	ReasonJourneyInFlight     = "journey started on active offer"
	ReasonEnrichActiveOffer   = "enrich active offer of same product"
	ReasonEnrichWithoutTarget = "enrich with no active offer to enrich"
)

// ExistingOffer is the slice of offer state precedence needs.
type ExistingOffer struct {
	ID             uuid.UUID
	ProductType    string
	OfferType      string
	Status         string
	JourneyStarted bool
}

// Incoming is the new offer under resolution.
type Incoming struct {
	ProductType string
	OfferType   string
}

// Decision is the resolved outcome. BlockedBy names the active offer that
// caused a duplicate/reject outcome, when one exists.
type Decision struct {
	Action       Action
	Reason       string
	Expire       []uuid.UUID
	EnrichTarget uuid.UUID
	BlockedBy    uuid.UUID
}

const statusActive = "Active"
const offerTypeEnrich = "Enrich"

// Resolve decides what to do with an incoming offer given the customer's
// existing offers. It is pure and order-independent over the existing slice:
// non-Active rows are ignored, ranking works off the rule table only.
func Resolve(table *RuleTable, existing []ExistingOffer, incoming Incoming) Decision {
	if table == nil {
		table = DefaultRuleTable()
	}

	incomingPrio, known := table.Priority(incoming.ProductType)
	if !known {
		return Decision{Action: ActionReject, Reason: ReasonUnknownProduct}
	}

	active := make([]ExistingOffer, 0, len(existing))
	for _, offer := range existing {
		if offer.Status == statusActive {
			active = append(active, offer)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].ID.String() < active[j].ID.String()
	})

	incomingKey := canonicalKey(incoming.ProductType)

	if incoming.OfferType == offerTypeEnrich {
		for _, offer := range active {
			if canonicalKey(offer.ProductType) == incomingKey {
				return Decision{
					Action:       ActionEnrichExisting,
					Reason:       ReasonEnrichActiveOffer,
					EnrichTarget: offer.ID,
				}
			}
		}
		return Decision{Action: ActionReject, Reason: ReasonEnrichWithoutTarget}
	}

	if len(active) == 0 {
		return Decision{Action: ActionCreateActive, Reason: ReasonNoActiveOffers}
	}

	for _, offer := range active {
		if canonicalKey(offer.ProductType) == incomingKey {
			return Decision{
				Action:    ActionMarkDuplicate,
				Reason:    ReasonSameProductActive,
				BlockedBy: offer.ID,
			}
		}
	}

	// An in-flight journey of equal or higher rank is never disturbed, and
	// nothing is written behind it.
	for _, offer := range active {
		if !offer.JourneyStarted {
			continue
		}
		prio, _ := table.Priority(offer.ProductType)
		if prio >= incomingPrio {
			return Decision{
				Action:    ActionReject,
				Reason:    ReasonJourneyInFlight,
				BlockedBy: offer.ID,
			}
		}
	}

	// Rank against the strongest active offer. Unknown products already in
	// the table's past live on with priority 0 so a known incoming offer
	// always outranks them.
	var blocker *ExistingOffer
	blockerPrio := -1
	for i := range active {
		prio, _ := table.Priority(active[i].ProductType)
		if prio > blockerPrio {
			blockerPrio = prio
			blocker = &active[i]
		}
	}

	if blockerPrio > incomingPrio {
		return Decision{
			Action:    ActionMarkDuplicate,
			Reason:    ReasonOutranked,
			BlockedBy: blocker.ID,
		}
	}
	if blockerPrio == incomingPrio {
		return Decision{
			Action:    ActionMarkDuplicate,
			Reason:    ReasonPriorityTie,
			BlockedBy: blocker.ID,
		}
	}

	// Incoming strictly outranks everything. An in-flight journey is never
	// disturbed, even by a stronger offer.
	for _, offer := range active {
		if offer.JourneyStarted {
			return Decision{
				Action:    ActionReject,
				Reason:    ReasonJourneyInFlight,
				BlockedBy: offer.ID,
			}
		}
	}

	expire := make([]uuid.UUID, 0, len(active))
	for _, offer := range active {
		expire = append(expire, offer.ID)
	}
	return Decision{
		Action: ActionCreateActive,
		Reason: ReasonOutranksActive,
		Expire: expire,
	}
}
