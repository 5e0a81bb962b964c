package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale types
const (
	SaleTypeCash    = "CASH"
	SaleTypePartial = "PARTIAL"
	SaleTypeCredit  = "CREDIT"
)

// Sale statuses
const (
	SaleStatusActive = "ACTIVE"
	SaleStatusVoid   = "VOID"
)

// RequiresCustomer reports whether a sale of this type leaves a balance that
// must be owed by a known customer.
func RequiresCustomer(saleType string) bool {
	return saleType == SaleTypePartial || saleType == SaleTypeCredit
}

type Sale struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleNumber     string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"sale_number"`
	StoreID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"store_id"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"-"`
	SaleType       string          `gorm:"type:varchar(10);not null" json:"sale_type"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount_paid"`
	AmountDue      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount_due"`
	Status         string          `gorm:"type:varchar(10);not null;index" json:"status"`
	VoidReason     string          `gorm:"type:text" json:"void_reason,omitempty"`
	VoidedBy       *uuid.UUID      `gorm:"type:uuid" json:"voided_by,omitempty"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
	CreatedBy      *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	SyncedAt       time.Time       `gorm:"not null;index" json:"synced_at"`
	LineItems      []SaleLineItem  `gorm:"foreignKey:SaleID" json:"line_items,omitempty"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleLineItem is immutable once written; voiding a sale leaves its items in place.
type SaleLineItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity  int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"line_total"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (i *SaleLineItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
