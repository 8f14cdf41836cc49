package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Offer statuses.
const (
	OfferStatusActive    = "Active"
	OfferStatusInactive  = "Inactive"
	OfferStatusExpired   = "Expired"
	OfferStatusDuplicate = "Duplicate"
)

// Offer types as delivered by Offermart feeds.
const (
	OfferTypeFresh  = "Fresh"
	OfferTypeEnrich = "Enrich"
	OfferTypeNewOld = "New-old"
	OfferTypeNewNew = "New-new"
)

type Offer struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CustomerID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer       *Customer      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	OfferType      string         `gorm:"column:offer_type;not null" json:"offer_type"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	ProductType    string         `gorm:"column:product_type;not null;index" json:"product_type"`
	ValidFrom      time.Time      `gorm:"column:valid_from" json:"valid_from"`
	ValidTo        time.Time      `gorm:"column:valid_to" json:"valid_to"`
	JourneyStarted bool           `gorm:"column:journey_started;not null;default:false" json:"journey_started"`
	LAN            *string        `gorm:"column:lan;index" json:"lan,omitempty"`
	Amount         float64        `gorm:"column:amount" json:"amount"`
	Payload        datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Offer) TableName() string { return "offer" }

// Live reports whether the offer counts against incoming precedence checks.
func (o *Offer) Live(now time.Time) bool {
	if o.Status != OfferStatusActive {
		return false
	}
	if !o.ValidTo.IsZero() && o.ValidTo.Before(now) {
		return false
	}
	return true
}
