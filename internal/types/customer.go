package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Customer is the single deduplicated party record. Each identifier column
// is optional but unique when present; dedup matches on any of them.
type Customer struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Mobile     *string        `gorm:"column:mobile;uniqueIndex" json:"mobile,omitempty"`
	PAN        *string        `gorm:"column:pan;uniqueIndex" json:"pan,omitempty"`
	Aadhaar    *string        `gorm:"column:aadhaar;uniqueIndex" json:"aadhaar,omitempty"`
	UCID       *string        `gorm:"column:ucid;uniqueIndex" json:"ucid,omitempty"`
	PrevLAN    *string        `gorm:"column:prev_lan;uniqueIndex" json:"prev_lan,omitempty"`
	Segment    string         `gorm:"column:segment;index" json:"segment"`
	DND        bool           `gorm:"column:dnd;not null;default:false" json:"dnd"`
	Attributes datatypes.JSON `gorm:"column:attributes;type:jsonb" json:"attributes,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Customer) TableName() string { return "customer" }
