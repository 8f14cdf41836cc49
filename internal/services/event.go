package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/anuragind003/cdp-backend/internal/logger"
	"github.com/anuragind003/cdp-backend/internal/repos"
	"github.com/anuragind003/cdp-backend/internal/types"
)

// EventInput is one campaign/journey tracking event.
type EventInput struct {
	Source     string          `json:"source"`
	Type       string          `json:"type"`
	CustomerID *uuid.UUID      `json:"customer_id,omitempty"`
	OfferID    *uuid.UUID      `json:"offer_id,omitempty"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type EventService interface {
	// Record appends the event. A journey_started event with an offer ref
	// also flips the offer's journey flag, in the same transaction.
	Record(ctx context.Context, input *EventInput) (*types.CampaignEvent, error)
}

type eventService struct {
	db           *gorm.DB
	log          *logger.Logger
	eventRepo    repos.CampaignEventRepo
	offerService OfferService
}

func NewEventService(db *gorm.DB, log *logger.Logger, eventRepo repos.CampaignEventRepo, offerService OfferService) EventService {
	serviceLog := log.With("service", "EventService")
	return &eventService{
		db:           db,
		log:          serviceLog,
		eventRepo:    eventRepo,
		offerService: offerService,
	}
}

func (es *eventService) Record(ctx context.Context, input *EventInput) (*types.CampaignEvent, error) {
	if input == nil {
		return nil, fmt.Errorf("no event given")
	}
	source := strings.TrimSpace(input.Source)
	eventType := strings.TrimSpace(input.Type)
	if source == "" {
		return nil, fmt.Errorf("source required")
	}
	if eventType == "" {
		return nil, fmt.Errorf("type required")
	}

	occurredAt := time.Now()
	if input.OccurredAt != nil && !input.OccurredAt.IsZero() {
		occurredAt = *input.OccurredAt
	}

	event := &types.CampaignEvent{
		ID:         uuid.New(),
		CustomerID: input.CustomerID,
		OfferID:    input.OfferID,
		Source:     source,
		Type:       eventType,
		OccurredAt: occurredAt,
	}
	if len(input.Payload) > 0 {
		event.Payload = datatypes.JSON(input.Payload)
	}

	if err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := es.eventRepo.Create(ctx, tx, []*types.CampaignEvent{event}); err != nil {
			return fmt.Errorf("error recording event: %w", err)
		}
		if eventType == types.EventTypeJourneyStarted && input.OfferID != nil {
			reason := fmt.Sprintf("journey started via %s event", source)
			if err := es.offerService.MarkJourneyStarted(ctx, tx, *input.OfferID, reason); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return event, nil
}
