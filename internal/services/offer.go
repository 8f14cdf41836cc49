package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/precedence"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/types"
)

// OfferSubmission is the offer part of an incoming lead/row.
type OfferSubmission struct {
	OfferType   string
	ProductType string
	ValidFrom   time.Time
	ValidTo     time.Time
	Amount      float64
	LAN         *string
	Payload     datatypes.JSON
}

// SubmitOutcome reports the precedence decision and the offer row it landed
// on. Offer is nil when the submission was rejected.
type SubmitOutcome struct {
	Decision precedence.Decision
	Offer    *types.Offer
}

type OfferService interface {
	// Submit resolves the incoming offer against the customer's active
	// offers and applies the decision: expirations, the new/refreshed row,
	// and an OfferHistory entry per transition, all in one transaction.
	Submit(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, sub OfferSubmission) (*SubmitOutcome, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Offer, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*types.Offer, error)
	History(ctx context.Context, offerID uuid.UUID) ([]*types.OfferHistory, error)
	// MarkJourneyStarted flips the journey flag and appends a history row.
	MarkJourneyStarted(ctx context.Context, tx *gorm.DB, offerID uuid.UUID, reason string) error
}

type offerService struct {
	db          *gorm.DB
	log         *logger.Logger
	offerRepo   repos.OfferRepo
	historyRepo repos.OfferHistoryRepo
	rules       *precedence.RuleTable
}

func NewOfferService(db *gorm.DB, log *logger.Logger, offerRepo repos.OfferRepo, historyRepo repos.OfferHistoryRepo, rules *precedence.RuleTable) OfferService {
	serviceLog := log.With("service", "OfferService")
	if rules == nil {
		rules = precedence.DefaultRuleTable()
	}
	return &offerService{
		db:          db,
		log:         serviceLog,
		offerRepo:   offerRepo,
		historyRepo: historyRepo,
		rules:       rules,
	}
}

func (os *offerService) Submit(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, sub OfferSubmission) (*SubmitOutcome, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("customer id required")
	}
	if sub.ProductType == "" {
		return nil, fmt.Errorf("product_type required")
	}
	if sub.OfferType == "" {
		sub.OfferType = types.OfferTypeFresh
	}

	if tx != nil {
		return os.submit(ctx, tx, customerID, sub)
	}
	var outcome *SubmitOutcome
	if err := os.db.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		out, err := os.submit(ctx, txx, customerID, sub)
		if err != nil {
			return err
		}
		outcome = out
		return nil
	}); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (os *offerService) submit(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, sub OfferSubmission) (*SubmitOutcome, error) {
	rows, err := os.offerRepo.ListActiveByCustomerID(ctx, tx, customerID)
	if err != nil {
		return nil, fmt.Errorf("error listing active offers: %w", err)
	}

	// Active rows whose validity window has lapsed must not block newer
	// offers; expire them here instead of waiting for retention.
	now := time.Now()
	active := make([]*types.Offer, 0, len(rows))
	for _, offer := range rows {
		if offer.Live(now) {
			active = append(active, offer)
			continue
		}
		if err := os.offerRepo.UpdateFields(ctx, tx, offer.ID, map[string]interface{}{
			"status":     types.OfferStatusExpired,
			"updated_at": now,
		}); err != nil {
			return nil, fmt.Errorf("error expiring lapsed offer %s: %w", offer.ID, err)
		}
		from := offer.Status
		offer.Status = types.OfferStatusExpired
		if err := os.appendHistory(ctx, tx, offer, from, types.OfferStatusExpired, "validity window lapsed"); err != nil {
			return nil, err
		}
	}

	existing := make([]precedence.ExistingOffer, 0, len(active))
	for _, offer := range active {
		existing = append(existing, precedence.ExistingOffer{
			ID:             offer.ID,
			ProductType:    offer.ProductType,
			OfferType:      offer.OfferType,
			Status:         offer.Status,
			JourneyStarted: offer.JourneyStarted,
		})
	}

	decision := precedence.Resolve(os.rules, existing, precedence.Incoming{
		ProductType: sub.ProductType,
		OfferType:   sub.OfferType,
	})
	outcome := &SubmitOutcome{Decision: decision}

	switch decision.Action {
	case precedence.ActionReject:
		os.log.Info("Offer rejected",
			"customer_id", customerID,
			"product_type", sub.ProductType,
			"reason", decision.Reason,
		)
		return outcome, nil

	case precedence.ActionEnrichExisting:
		target := findOffer(active, decision.EnrichTarget)
		if target == nil {
			return nil, fmt.Errorf("enrich target %s not found among active offers", decision.EnrichTarget)
		}
		updates := map[string]interface{}{
			"amount":     sub.Amount,
			"updated_at": time.Now(),
		}
		if !sub.ValidFrom.IsZero() {
			updates["valid_from"] = sub.ValidFrom
			target.ValidFrom = sub.ValidFrom
		}
		if !sub.ValidTo.IsZero() {
			updates["valid_to"] = sub.ValidTo
			target.ValidTo = sub.ValidTo
		}
		if len(sub.Payload) > 0 {
			updates["payload"] = sub.Payload
			target.Payload = sub.Payload
		}
		if sub.LAN != nil {
			updates["lan"] = *sub.LAN
			target.LAN = sub.LAN
		}
		target.Amount = sub.Amount
		if err := os.offerRepo.UpdateFields(ctx, tx, target.ID, updates); err != nil {
			return nil, fmt.Errorf("error enriching offer: %w", err)
		}
		if err := os.appendHistory(ctx, tx, target, types.OfferStatusActive, types.OfferStatusActive, decision.Reason); err != nil {
			return nil, err
		}
		outcome.Offer = target
		return outcome, nil

	case precedence.ActionMarkDuplicate:
		offer, err := os.createOffer(ctx, tx, customerID, sub, types.OfferStatusDuplicate)
		if err != nil {
			return nil, err
		}
		if err := os.appendHistory(ctx, tx, offer, "", types.OfferStatusDuplicate, decision.Reason); err != nil {
			return nil, err
		}
		outcome.Offer = offer
		return outcome, nil

	case precedence.ActionCreateActive:
		for _, id := range decision.Expire {
			displaced := findOffer(active, id)
			if displaced == nil {
				return nil, fmt.Errorf("offer %s to expire not found among active offers", id)
			}
			if err := os.offerRepo.UpdateFields(ctx, tx, id, map[string]interface{}{
				"status":     types.OfferStatusExpired,
				"updated_at": time.Now(),
			}); err != nil {
				return nil, fmt.Errorf("error expiring offer %s: %w", id, err)
			}
			from := displaced.Status
			displaced.Status = types.OfferStatusExpired
			if err := os.appendHistory(ctx, tx, displaced, from, types.OfferStatusExpired, fmt.Sprintf("displaced by %s offer", sub.ProductType)); err != nil {
				return nil, err
			}
		}
		offer, err := os.createOffer(ctx, tx, customerID, sub, types.OfferStatusActive)
		if err != nil {
			return nil, err
		}
		if err := os.appendHistory(ctx, tx, offer, "", types.OfferStatusActive, decision.Reason); err != nil {
			return nil, err
		}
		outcome.Offer = offer
		return outcome, nil
	}

	return nil, fmt.Errorf("unhandled precedence action %q", decision.Action)
}

func findOffer(offers []*types.Offer, id uuid.UUID) *types.Offer {
	for _, o := range offers {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (os *offerService) createOffer(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, sub OfferSubmission, status string) (*types.Offer, error) {
	offer := &types.Offer{
		ID:          uuid.New(),
		CustomerID:  customerID,
		OfferType:   sub.OfferType,
		Status:      status,
		ProductType: sub.ProductType,
		ValidFrom:   sub.ValidFrom,
		ValidTo:     sub.ValidTo,
		LAN:         sub.LAN,
		Amount:      sub.Amount,
		Payload:     sub.Payload,
	}
	created, err := os.offerRepo.Create(ctx, tx, []*types.Offer{offer})
	if err != nil {
		return nil, fmt.Errorf("error creating offer: %w", err)
	}
	return created[0], nil
}

func (os *offerService) appendHistory(ctx context.Context, tx *gorm.DB, offer *types.Offer, fromStatus, toStatus, reason string) error {
	snapshot, err := json.Marshal(offer)
	if err != nil {
		snapshot = nil
	}
	row := &types.OfferHistory{
		ID:         uuid.New(),
		OfferID:    offer.ID,
		CustomerID: offer.CustomerID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Reason:     reason,
		Snapshot:   datatypes.JSON(snapshot),
	}
	if _, err := os.historyRepo.Create(ctx, tx, []*types.OfferHistory{row}); err != nil {
		return fmt.Errorf("error writing offer history: %w", err)
	}
	return nil
}

func (os *offerService) GetByID(ctx context.Context, id uuid.UUID) (*types.Offer, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("offer id required")
	}
	rows, err := os.offerRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("error fetching offer: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("offer does not exist")
	}
	return rows[0], nil
}

func (os *offerService) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*types.Offer, error) {
	if customerID == uuid.Nil {
		return nil, fmt.Errorf("customer id required")
	}
	return os.offerRepo.ListByCustomerID(ctx, nil, customerID)
}

func (os *offerService) History(ctx context.Context, offerID uuid.UUID) ([]*types.OfferHistory, error) {
	if offerID == uuid.Nil {
		return nil, fmt.Errorf("offer id required")
	}
	return os.historyRepo.ListByOfferID(ctx, nil, offerID)
}

func (os *offerService) MarkJourneyStarted(ctx context.Context, tx *gorm.DB, offerID uuid.UUID, reason string) error {
	if offerID == uuid.Nil {
		return fmt.Errorf("offer id required")
	}
	rows, err := os.offerRepo.GetByIDs(ctx, tx, []uuid.UUID{offerID})
	if err != nil {
		return fmt.Errorf("error fetching offer: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("offer does not exist")
	}
	offer := rows[0]
	if offer.JourneyStarted {
		return nil
	}
	if err := os.offerRepo.UpdateFields(ctx, tx, offerID, map[string]interface{}{
		"journey_started": true,
		"updated_at":      time.Now(),
	}); err != nil {
		return fmt.Errorf("error setting journey flag: %w", err)
	}
	offer.JourneyStarted = true
	return os.appendHistory(ctx, tx, offer, offer.Status, offer.Status, reason)
}
