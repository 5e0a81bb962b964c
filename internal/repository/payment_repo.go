package repository

import (
	"context"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *model.Payment) error
	InsertIgnore(ctx context.Context, payment *model.Payment) (bool, error)
	FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListBySale(ctx context.Context, saleID uuid.UUID) ([]model.Payment, error)
	// ListByCustomer returns the customer's payments, newest first, with the
	// settled sale preloaded. storeID narrows it the same way as ListChanged.
	ListByCustomer(ctx context.Context, customerID uuid.UUID, storeID *uuid.UUID) ([]model.Payment, error)
	// ListChanged limited to storeID returns standalone payments plus payments
	// settling sales of that store.
	ListChanged(ctx context.Context, w ChangeWindow, storeID *uuid.UUID) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(payment).Error
}

func (r *paymentRepository) InsertIgnore(ctx context.Context, payment *model.Payment) (bool, error) {
	res := GetDB(ctx, r.db).Omit(clause.Associations).Clauses(onConflictIDDoNothing).Create(payment)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *paymentRepository) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	if err := GetDB(ctx, r.db).Preload("Customer").Preload("Sale").First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListBySale(ctx context.Context, saleID uuid.UUID) ([]model.Payment, error) {
	payments := []model.Payment{}
	err := GetDB(ctx, r.db).Where("sale_id = ?", saleID).Order("created_at ASC").Order("id ASC").Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, storeID *uuid.UUID) ([]model.Payment, error) {
	payments := []model.Payment{}
	q := r.forStore(ctx, GetDB(ctx, r.db).Where("customer_id = ?", customerID), storeID)
	if err := q.Preload("Sale").Order("created_at DESC").Order("id DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// forStore keeps standalone payments and payments settling sales of storeID.
func (r *paymentRepository) forStore(ctx context.Context, q *gorm.DB, storeID *uuid.UUID) *gorm.DB {
	if storeID == nil {
		return q
	}
	return q.Where("(sale_id IS NULL OR sale_id IN (?))",
		GetDB(ctx, r.db).Model(&model.Sale{}).Select("id").Where("store_id = ?", *storeID))
}

func (r *paymentRepository) ListChanged(ctx context.Context, w ChangeWindow, storeID *uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	q := r.forStore(ctx, GetDB(ctx, r.db).Model(&model.Payment{}), storeID)
	if err := w.apply(q, "synced_at").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
