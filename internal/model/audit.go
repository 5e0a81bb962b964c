package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionSaleVoid         = "SALE_VOID"
	ActionApprovalCreated  = "APPROVAL_CREATED"
	ActionApprovalApproved = "APPROVAL_APPROVED"
	ActionApprovalRejected = "APPROVAL_REJECTED"
	ActionStockAdjustment  = "STOCK_ADJUSTMENT"
)

// Audited entity types
const (
	EntitySale            = "sale"
	EntityApprovalRequest = "approval_request"
	EntityStockEvent      = "stock_event"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(30);not null" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	Reason     string     `gorm:"type:text" json:"reason"`
	Details    string     `gorm:"type:text" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
