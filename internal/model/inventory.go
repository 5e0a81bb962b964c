package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Stock levels are never stored on it; they are
// derived from the stock event ledger.
type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SKU         string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Unit        string          `gorm:"type:varchar(20)" json:"unit"`
	RetailPrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"retail_price"`
	IsActive    bool            `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `gorm:"index" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Stock event types
const (
	EventTypeReceive    = "RECEIVE"
	EventTypeSale       = "SALE"
	EventTypeAdjustment = "ADJUSTMENT"
	EventTypeTransfer   = "TRANSFER"
)

// Reference types linking a stock event to the record that caused it
const (
	RefTypeSale            = "SALE"
	RefTypeSaleVoid        = "SALE_VOID"
	RefTypeApprovalRequest = "APPROVAL_REQUEST"
)

// ValidEventType reports whether t names a known stock event type.
func ValidEventType(t string) bool {
	switch t {
	case EventTypeReceive, EventTypeSale, EventTypeAdjustment, EventTypeTransfer:
		return true
	}
	return false
}

// StockEvent is one immutable, signed quantity movement for a (product, store)
// pair. Rows are only ever inserted.
type StockEvent struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EventType     string     `gorm:"type:varchar(20);not null;index" json:"event_type"`
	ProductID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_stock_events_pair" json:"product_id"`
	StoreID       uuid.UUID  `gorm:"type:uuid;not null;index:idx_stock_events_pair" json:"store_id"`
	Quantity      int        `gorm:"type:int;not null" json:"quantity"` // signed: positive adds stock
	ReferenceType *string    `gorm:"type:varchar(30)" json:"reference_type"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid;index" json:"reference_id"`
	Notes         string     `gorm:"type:text" json:"notes"`
	CreatedBy     *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time  `gorm:"not null;index" json:"created_at"` // client time for offline events
	SyncedAt      time.Time  `gorm:"not null;index" json:"synced_at"`  // server time the row became visible
}

func (e *StockEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// InventorySnapshot is the derived on-hand figure for one (product, store) pair.
type InventorySnapshot struct {
	ProductID      uuid.UUID  `json:"product_id"`
	StoreID        uuid.UUID  `json:"store_id"`
	OnHandQty      int        `json:"on_hand_qty"`
	LastMovementAt *time.Time `json:"last_movement_at"`
}
