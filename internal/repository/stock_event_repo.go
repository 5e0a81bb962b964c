package repository

import (
	"context"
	"time"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockEventRepository is append-only: there is no update or delete.
type StockEventRepository interface {
	Create(ctx context.Context, event *model.StockEvent) error
	// InsertIgnore inserts the event unless its id already exists and reports
	// whether a row was written.
	InsertIgnore(ctx context.Context, event *model.StockEvent) (bool, error)
	ListForPair(ctx context.Context, productID, storeID uuid.UUID, asOf *time.Time) ([]model.StockEvent, error)
	ListForStore(ctx context.Context, storeID uuid.UUID, asOf *time.Time) ([]model.StockEvent, error)
	RecentForPair(ctx context.Context, productID, storeID uuid.UUID, limit int) ([]model.StockEvent, error)
	ListByReference(ctx context.Context, refType string, refID uuid.UUID) ([]model.StockEvent, error)
	List(ctx context.Context, filter StockEventFilter, page, limit int) ([]model.StockEvent, int64, error)
	ListChanged(ctx context.Context, w ChangeWindow, storeID *uuid.UUID) ([]model.StockEvent, error)
}

// StockEventFilter narrows List. Zero values mean no filter.
type StockEventFilter struct {
	StoreID   *uuid.UUID
	ProductID *uuid.UUID
	EventType string
}

type stockEventRepository struct {
	db *gorm.DB
}

func NewStockEventRepository(db *gorm.DB) StockEventRepository {
	return &stockEventRepository{db: db}
}

func (r *stockEventRepository) Create(ctx context.Context, event *model.StockEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func (r *stockEventRepository) InsertIgnore(ctx context.Context, event *model.StockEvent) (bool, error) {
	res := GetDB(ctx, r.db).Clauses(onConflictIDDoNothing).Create(event)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func ledgerOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func (r *stockEventRepository) ListForPair(ctx context.Context, productID, storeID uuid.UUID, asOf *time.Time) ([]model.StockEvent, error) {
	var events []model.StockEvent
	q := GetDB(ctx, r.db).Where("product_id = ? AND store_id = ?", productID, storeID)
	if asOf != nil {
		q = q.Where("created_at <= ?", *asOf)
	}
	if err := ledgerOrder(q).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *stockEventRepository) ListForStore(ctx context.Context, storeID uuid.UUID, asOf *time.Time) ([]model.StockEvent, error) {
	var events []model.StockEvent
	q := GetDB(ctx, r.db).Where("store_id = ?", storeID)
	if asOf != nil {
		q = q.Where("created_at <= ?", *asOf)
	}
	if err := ledgerOrder(q).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *stockEventRepository) RecentForPair(ctx context.Context, productID, storeID uuid.UUID, limit int) ([]model.StockEvent, error) {
	var events []model.StockEvent
	err := GetDB(ctx, r.db).
		Where("product_id = ? AND store_id = ?", productID, storeID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *stockEventRepository) ListByReference(ctx context.Context, refType string, refID uuid.UUID) ([]model.StockEvent, error) {
	var events []model.StockEvent
	q := GetDB(ctx, r.db).Where("reference_type = ? AND reference_id = ?", refType, refID)
	if err := ledgerOrder(q).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *stockEventRepository) List(ctx context.Context, filter StockEventFilter, page, limit int) ([]model.StockEvent, int64, error) {
	var events []model.StockEvent
	var total int64

	query := GetDB(ctx, r.db).Model(&model.StockEvent{})
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *stockEventRepository) ListChanged(ctx context.Context, w ChangeWindow, storeID *uuid.UUID) ([]model.StockEvent, error) {
	var events []model.StockEvent
	q := GetDB(ctx, r.db).Model(&model.StockEvent{})
	if storeID != nil {
		q = q.Where("store_id = ?", *storeID)
	}
	if err := w.apply(q, "synced_at").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
