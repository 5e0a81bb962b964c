package repository

import (
	"context"
	"strings"

	"retail-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	// Upsert inserts the customer or overwrites name, phone and updated_at of
	// the existing row with the same id.
	Upsert(ctx context.Context, customer *model.Customer) error
	Create(ctx context.Context, customer *model.Customer) error
	// Update writes the given columns and reports whether the customer exists.
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	// List returns active customers whose name or phone contains search,
	// ordered by name.
	List(ctx context.Context, search string) ([]model.Customer, error)
	ListChanged(ctx context.Context, w ChangeWindow) ([]model.Customer, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Upsert(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "updated_at"}),
	}).Create(customer).Error
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Customer{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, search string) ([]model.Customer, error) {
	customers := []model.Customer{}
	q := GetDB(ctx, r.db).Where("is_active = ?", true)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(phone) LIKE ?)", like, like)
	}
	if err := q.Order("name ASC").Order("id ASC").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *customerRepository) ListChanged(ctx context.Context, w ChangeWindow) ([]model.Customer, error) {
	var customers []model.Customer
	if err := w.apply(GetDB(ctx, r.db).Model(&model.Customer{}), "updated_at").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
