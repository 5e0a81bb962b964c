package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateCustomerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"max=50"`
	Whatsapp string `json:"whatsapp" validate:"max=50"`
	Address  string `json:"address"`
	Notes    string `json:"notes"`
}

// UpdateCustomerRequest changes only the fields that are present.
type UpdateCustomerRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Whatsapp *string `json:"whatsapp" validate:"omitempty,max=50"`
	Address  *string `json:"address"`
	Notes    *string `json:"notes"`
	IsActive *bool   `json:"is_active"`
}

type LedgerTotals struct {
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalDue      decimal.Decimal `json:"total_due"`
}

type CustomerLedgerResponse struct {
	Customer model.Customer    `json:"customer"`
	Sales    []model.Sale      `json:"sales"`
	Payments []PaymentResponse `json:"payments"`
	Totals   LedgerTotals      `json:"totals"`
}

// AgingBuckets splits what a customer still owes by the age of the sale.
type AgingBuckets struct {
	Days0To7   decimal.Decimal `json:"days_0_7"`
	Days8To30  decimal.Decimal `json:"days_8_30"`
	Days31To60 decimal.Decimal `json:"days_31_60"`
	Days60Plus decimal.Decimal `json:"days_60_plus"`
	Total      decimal.Decimal `json:"total"`
}

// --- Interface ---

type CustomerService interface {
	ListCustomers(ctx context.Context, search string) ([]model.Customer, error)
	GetCustomer(ctx context.Context, id string) (model.Customer, error)
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (model.Customer, error)
	UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (model.Customer, error)
	GetLedger(ctx context.Context, scope model.Scope, id string) (CustomerLedgerResponse, error)
	GetAging(ctx context.Context, scope model.Scope, id string) (AgingBuckets, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	saleRepo     repository.SaleRepository
	paymentRepo  repository.PaymentRepository
	txManager    repository.TransactionManager
	notifier     Notifier
}

func NewCustomerService(
	customerRepo repository.CustomerRepository,
	saleRepo repository.SaleRepository,
	paymentRepo repository.PaymentRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		saleRepo:     saleRepo,
		paymentRepo:  paymentRepo,
		txManager:    txManager,
		notifier:     notifierOrNoop(notifier),
	}
}

// --- Implementation ---

func (s *customerService) ListCustomers(ctx context.Context, search string) ([]model.Customer, error) {
	customers, err := s.customerRepo.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (model.Customer, error) {
	customerID, err := parseID(id, "id")
	if err != nil {
		return model.Customer{}, err
	}
	return s.find(ctx, customerID)
}

func (s *customerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (model.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return model.Customer{}, err
	}

	customer := model.Customer{
		ID:       uuid.New(),
		Name:     req.Name,
		Phone:    req.Phone,
		Whatsapp: req.Whatsapp,
		Address:  req.Address,
		Notes:    req.Notes,
		IsActive: true,
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := clock()
		customer.CreatedAt, customer.UpdatedAt = now, now
		if err := s.customerRepo.Create(txCtx, &customer); err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Customer{}, err
	}

	s.notifier.Notify(NoticeCustomerSaved, nil)
	return customer, nil
}

// UpdateCustomer applies a partial update. updated_at moves forward so the
// change reaches terminals on their next pull.
func (s *customerService) UpdateCustomer(ctx context.Context, id string, req UpdateCustomerRequest) (model.Customer, error) {
	customerID, err := parseID(id, "id")
	if err != nil {
		return model.Customer{}, err
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validateStruct(req); err != nil {
		return model.Customer{}, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Whatsapp != nil {
		updates["whatsapp"] = *req.Whatsapp
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return model.Customer{}, newValidationError("no fields to update")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		updates["updated_at"] = clock()
		ok, err := s.customerRepo.Update(txCtx, customerID, updates)
		if err != nil {
			return fmt.Errorf("failed to update customer: %w", err)
		}
		if !ok {
			return notFound("customer", customerID)
		}
		return nil
	})
	if err != nil {
		return model.Customer{}, err
	}

	s.notifier.Notify(NoticeCustomerSaved, nil)
	return s.find(ctx, customerID)
}

// GetLedger lists the customer's sales and payments with totals over ACTIVE
// sales. Store-scoped callers see their store's sales only.
func (s *customerService) GetLedger(ctx context.Context, scope model.Scope, id string) (CustomerLedgerResponse, error) {
	customerID, err := parseID(id, "id")
	if err != nil {
		return CustomerLedgerResponse{}, err
	}
	customer, err := s.find(ctx, customerID)
	if err != nil {
		return CustomerLedgerResponse{}, err
	}

	sales, err := s.saleRepo.ListByCustomer(ctx, customerID, scope.StoreFilter())
	if err != nil {
		return CustomerLedgerResponse{}, fmt.Errorf("failed to list customer sales: %w", err)
	}
	payments, err := s.paymentRepo.ListByCustomer(ctx, customerID, scope.StoreFilter())
	if err != nil {
		return CustomerLedgerResponse{}, fmt.Errorf("failed to list customer payments: %w", err)
	}

	res := CustomerLedgerResponse{
		Customer: customer,
		Sales:    sales,
		Payments: make([]PaymentResponse, 0, len(payments)),
		Totals:   SumReceivables(sales),
	}
	for _, p := range payments {
		p.Customer = &customer
		res.Payments = append(res.Payments, toPaymentResponse(p))
	}
	return res, nil
}

func (s *customerService) GetAging(ctx context.Context, scope model.Scope, id string) (AgingBuckets, error) {
	customerID, err := parseID(id, "id")
	if err != nil {
		return AgingBuckets{}, err
	}
	if _, err := s.find(ctx, customerID); err != nil {
		return AgingBuckets{}, err
	}
	sales, err := s.saleRepo.ListByCustomer(ctx, customerID, scope.StoreFilter())
	if err != nil {
		return AgingBuckets{}, fmt.Errorf("failed to list customer sales: %w", err)
	}
	return AgeReceivables(sales, clock()), nil
}

func (s *customerService) find(ctx context.Context, id uuid.UUID) (model.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return model.Customer{}, lookupErr(err, "customer", id)
	}
	return *customer, nil
}

// SumReceivables totals ACTIVE sales. Void sales owe nothing.
func SumReceivables(sales []model.Sale) LedgerTotals {
	totals := LedgerTotals{TotalInvoiced: decimal.Zero, TotalPaid: decimal.Zero, TotalDue: decimal.Zero}
	for _, sale := range sales {
		if sale.Status != model.SaleStatusActive {
			continue
		}
		totals.TotalInvoiced = totals.TotalInvoiced.Add(sale.TotalAmount)
		totals.TotalPaid = totals.TotalPaid.Add(sale.AmountPaid)
		totals.TotalDue = totals.TotalDue.Add(sale.AmountDue)
	}
	return totals
}

// AgeReceivables buckets the open amount_due of ACTIVE sales by how long ago
// each sale was made: up to 7 days, 8 to 30, 31 to 60 and older.
func AgeReceivables(sales []model.Sale, now time.Time) AgingBuckets {
	day := 24 * time.Hour
	within7, within30, within60 := now.Add(-7*day), now.Add(-30*day), now.Add(-60*day)

	b := AgingBuckets{Days0To7: decimal.Zero, Days8To30: decimal.Zero, Days31To60: decimal.Zero, Days60Plus: decimal.Zero}
	for _, sale := range sales {
		if sale.Status != model.SaleStatusActive || !sale.AmountDue.IsPositive() {
			continue
		}
		switch {
		case !sale.CreatedAt.Before(within7):
			b.Days0To7 = b.Days0To7.Add(sale.AmountDue)
		case !sale.CreatedAt.Before(within30):
			b.Days8To30 = b.Days8To30.Add(sale.AmountDue)
		case !sale.CreatedAt.Before(within60):
			b.Days31To60 = b.Days31To60.Add(sale.AmountDue)
		default:
			b.Days60Plus = b.Days60Plus.Add(sale.AmountDue)
		}
	}
	b.Total = b.Days0To7.Add(b.Days8To30).Add(b.Days31To60).Add(b.Days60Plus)
	return b
}
