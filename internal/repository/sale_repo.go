package repository

import (
	"context"
	"time"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	CreateItem(ctx context.Context, item *model.SaleLineItem) error
	InsertIgnore(ctx context.Context, sale *model.Sale) (bool, error)
	InsertItemIgnore(ctx context.Context, item *model.SaleLineItem) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	// MarkVoid flips an ACTIVE sale to VOID and reports whether it did.
	MarkVoid(ctx context.Context, id uuid.UUID, reason string, voidedBy uuid.UUID, at time.Time) (bool, error)
	// ApplyPayment moves amount from amount_due to amount_paid in one statement.
	ApplyPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error)
	// ListByCustomer returns the customer's sales, newest first, limited to
	// storeID when it is set.
	ListByCustomer(ctx context.Context, customerID uuid.UUID, storeID *uuid.UUID) ([]model.Sale, error)
	ListChanged(ctx context.Context, w ChangeWindow, storeID *uuid.UUID) ([]model.Sale, error)
	ListItemsForSales(ctx context.Context, saleIDs []uuid.UUID) ([]model.SaleLineItem, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(sale).Error
}

func (r *saleRepository) CreateItem(ctx context.Context, item *model.SaleLineItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *saleRepository) InsertIgnore(ctx context.Context, sale *model.Sale) (bool, error) {
	res := GetDB(ctx, r.db).Omit(clause.Associations).Clauses(onConflictIDDoNothing).Create(sale)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *saleRepository) InsertItemIgnore(ctx context.Context, item *model.SaleLineItem) (bool, error) {
	res := GetDB(ctx, r.db).Clauses(onConflictIDDoNothing).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := GetDB(ctx, r.db).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Customer").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) MarkVoid(ctx context.Context, id uuid.UUID, reason string, voidedBy uuid.UUID, at time.Time) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Sale{}).
		Where("id = ? AND status = ?", id, model.SaleStatusActive).
		Updates(map[string]interface{}{
			"status":      model.SaleStatusVoid,
			"void_reason": reason,
			"voided_by":   voidedBy,
			"voided_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *saleRepository) ApplyPayment(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"amount_paid": gorm.Expr("amount_paid + ?", amount),
			"amount_due":  gorm.Expr("amount_due - ?", amount),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *saleRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, storeID *uuid.UUID) ([]model.Sale, error) {
	sales := []model.Sale{}
	q := GetDB(ctx, r.db).Where("customer_id = ?", customerID)
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) ListChanged(ctx context.Context, w ChangeWindow, storeID *uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	q := GetDB(ctx, r.db).Model(&model.Sale{})
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	if err := w.apply(q, "synced_at").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) ListItemsForSales(ctx context.Context, saleIDs []uuid.UUID) ([]model.SaleLineItem, error) {
	items := []model.SaleLineItem{}
	if len(saleIDs) == 0 {
		return items, nil
	}
	err := GetDB(ctx, r.db).
		Where("sale_id IN ?", saleIDs).
		Order("sale_id ASC").Order("created_at ASC").Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
