package repository

import (
	"context"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// CountExisting returns how many of ids name an existing product.
	CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error)
	ListChanged(ctx context.Context, w ChangeWindow) ([]model.Product, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var count int64
	if len(ids) == 0 {
		return 0, nil
	}
	if err := GetDB(ctx, r.db).Model(&model.Product{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *productRepository) ListChanged(ctx context.Context, w ChangeWindow) ([]model.Product, error) {
	var products []model.Product
	if err := w.apply(GetDB(ctx, r.db).Model(&model.Product{}), "updated_at").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
