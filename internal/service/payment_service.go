package service

import (
	"context"
	"fmt"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreatePaymentRequest struct {
	CustomerID    string          `json:"customer_id" validate:"required,uuid"`
	SaleID        string          `json:"sale_id" validate:"omitempty,uuid"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=CASH TRANSFER CARD OTHER"`
	Reference     string          `json:"reference" validate:"max=100"`
	Notes         string          `json:"notes"`
}

type PaymentResponse struct {
	model.Payment
	CustomerName string `json:"customer_name"`
	SaleNumber   string `json:"sale_number,omitempty"`
}

// --- Interface ---

type PaymentService interface {
	CreatePayment(ctx context.Context, scope model.Scope, req CreatePaymentRequest) (PaymentResponse, error)
}

type paymentService struct {
	paymentRepo  repository.PaymentRepository
	saleRepo     repository.SaleRepository
	customerRepo repository.CustomerRepository
	sequences    *SequenceGenerator
	txManager    repository.TransactionManager
	notifier     Notifier
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	saleRepo repository.SaleRepository,
	customerRepo repository.CustomerRepository,
	sequences *SequenceGenerator,
	txManager repository.TransactionManager,
	notifier Notifier,
) PaymentService {
	return &paymentService{
		paymentRepo:  paymentRepo,
		saleRepo:     saleRepo,
		customerRepo: customerRepo,
		sequences:    sequences,
		txManager:    txManager,
		notifier:     notifierOrNoop(notifier),
	}
}

// --- Implementation ---

// CreatePayment records the payment and, when it settles a sale, moves the
// amount from the sale's amount_due to amount_paid in the same transaction.
func (s *paymentService) CreatePayment(ctx context.Context, scope model.Scope, req CreatePaymentRequest) (PaymentResponse, error) {
	if err := validateStruct(req); err != nil {
		return PaymentResponse{}, err
	}
	if !req.Amount.IsPositive() {
		return PaymentResponse{}, newValidationError("amount must be positive", "amount")
	}
	if err := requireCents(map[string]decimal.Decimal{"amount": req.Amount}); err != nil {
		return PaymentResponse{}, err
	}
	customerID, err := parseID(req.CustomerID, "customer_id")
	if err != nil {
		return PaymentResponse{}, err
	}
	saleID, err := parseOptionalID(req.SaleID, "sale_id")
	if err != nil {
		return PaymentResponse{}, err
	}
	method := req.PaymentMethod
	if method == "" {
		method = model.PaymentMethodCash
	}

	payment := model.Payment{
		ID:            uuid.New(),
		CustomerID:    customerID,
		SaleID:        saleID,
		Amount:        req.Amount,
		PaymentMethod: method,
		Reference:     req.Reference,
		Notes:         req.Notes,
		CreatedBy:     uuidPtr(scope.UserID),
	}

	var storeID *uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.customerRepo.FindByID(txCtx, customerID); err != nil {
			return lookupErr(err, "customer", customerID)
		}
		if saleID != nil {
			sale, err := s.saleRepo.FindByID(txCtx, *saleID)
			if err != nil {
				return lookupErr(err, "sale", *saleID)
			}
			if !scope.CanAccessStore(sale.StoreID) {
				return fmt.Errorf("sale %s: %w", sale.SaleNumber, ErrAccessDenied)
			}
			if sale.Status == model.SaleStatusVoid {
				return fmt.Errorf("sale %s is void: %w", sale.SaleNumber, ErrConflict)
			}
			storeID = uuidPtr(sale.StoreID)
		}

		now := clock()
		payment.CreatedAt, payment.SyncedAt = now, now
		err := s.sequences.insertNumbered(txCtx, model.PrefixPayment, now,
			func(number string) { payment.PaymentNumber = number },
			func(spCtx context.Context) error { return s.paymentRepo.Create(spCtx, &payment) })
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		if saleID == nil {
			return nil
		}
		if _, err := s.saleRepo.ApplyPayment(txCtx, *saleID, payment.Amount); err != nil {
			return fmt.Errorf("failed to apply payment to sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return PaymentResponse{}, err
	}

	s.notifier.Notify(NoticePaymentCreated, storeID)

	loaded, err := s.paymentRepo.FindByIDWithRelations(ctx, payment.ID)
	if err != nil {
		return PaymentResponse{}, lookupErr(err, "payment", payment.ID)
	}
	return toPaymentResponse(*loaded), nil
}

func toPaymentResponse(p model.Payment) PaymentResponse {
	res := PaymentResponse{Payment: p}
	if p.Customer != nil {
		res.CustomerName = p.Customer.Name
	}
	if p.Sale != nil {
		res.SaleNumber = p.Sale.SaleNumber
	}
	return res
}
