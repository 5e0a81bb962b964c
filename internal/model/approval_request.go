package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRequest status constants
const (
	ApprovalStatusPending  = "PENDING"
	ApprovalStatusApproved = "APPROVED"
	ApprovalStatusRejected = "REJECTED"
)

// ApprovalTypeInventoryAdjustment is the only request type approvals handle today.
const ApprovalTypeInventoryAdjustment = "INVENTORY_ADJUSTMENT"

// ApprovalRequest asks the owner to sign off on a stock adjustment. Only an
// approval turns it into a ledger event.
type ApprovalRequest struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequestType       string     `gorm:"type:varchar(30);not null" json:"request_type"`
	ProductID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	StoreID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"store_id"`
	RequestedQuantity int        `gorm:"type:int;not null" json:"requested_quantity"` // signed delta
	Reason            string     `gorm:"type:text;not null" json:"reason"`
	Status            string     `gorm:"type:varchar(20);not null;index" json:"status"`
	RequestedBy       uuid.UUID  `gorm:"type:uuid;not null;index" json:"requested_by"`
	ReviewedBy        *uuid.UUID `gorm:"type:uuid" json:"reviewed_by"`
	ReviewedAt        *time.Time `json:"reviewed_at"`
	ReviewNotes       string     `gorm:"type:text" json:"review_notes"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (a *ApprovalRequest) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
