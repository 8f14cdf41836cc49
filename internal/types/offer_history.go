package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OfferHistory is an append-only audit row for every offer status
// transition. Rows are never updated or purged.
type OfferHistory struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OfferID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"offer_id"`
	Offer      *Offer         `gorm:"constraint:OnDelete:CASCADE;foreignKey:OfferID;references:ID" json:"offer,omitempty"`
	CustomerID uuid.UUID      `gorm:"type:uuid;not null;index" json:"customer_id"`
	FromStatus string         `gorm:"column:from_status" json:"from_status"`
	ToStatus   string         `gorm:"column:to_status;not null" json:"to_status"`
	Reason     string         `gorm:"column:reason" json:"reason"`
	Snapshot   datatypes.JSON `gorm:"column:snapshot;type:jsonb" json:"snapshot,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (OfferHistory) TableName() string { return "offer_history" }
