package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Well-known campaign event types. Payloads are free-form; only these two
// carry behavior inside the service.
const (
	EventTypeJourneyStarted     = "journey_started"
	EventTypeIdentifierConflict = "identifier_conflict"
)

type CampaignEvent struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CustomerID *uuid.UUID     `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	OfferID    *uuid.UUID     `gorm:"type:uuid;index" json:"offer_id,omitempty"`
	Source     string         `gorm:"column:source;not null" json:"source"`
	Type       string         `gorm:"column:type;not null;index" json:"type"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	OccurredAt time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (CampaignEvent) TableName() string { return "campaign_event" }
