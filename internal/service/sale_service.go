package service

import (
	"context"
	"fmt"
	"strings"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type SaleLineItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CreateSaleRequest struct {
	StoreID        string                `json:"store_id" validate:"required,uuid"`
	CustomerID     string                `json:"customer_id" validate:"omitempty,uuid"`
	SaleType       string                `json:"sale_type" validate:"required,oneof=CASH PARTIAL CREDIT"`
	LineItems      []SaleLineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal       `json:"discount_amount"`
	AmountPaid     decimal.Decimal       `json:"amount_paid"`
}

type VoidSaleRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type SaleResponse struct {
	model.Sale
	CustomerName string             `json:"customer_name,omitempty"`
	Payments     []model.Payment    `json:"payments"`
	Movements    []model.StockEvent `json:"movements"`
}

// --- Interface ---

type SaleService interface {
	CreateSale(ctx context.Context, scope model.Scope, req CreateSaleRequest) (SaleResponse, error)
	GetSale(ctx context.Context, scope model.Scope, id string) (SaleResponse, error)
	VoidSale(ctx context.Context, scope model.Scope, id string, req VoidSaleRequest) (SaleResponse, error)
}

type saleService struct {
	saleRepo     repository.SaleRepository
	paymentRepo  repository.PaymentRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	ledger       *Ledger
	sequences    *SequenceGenerator
	txManager    repository.TransactionManager
	notifier     Notifier
}

func NewSaleService(
	saleRepo repository.SaleRepository,
	paymentRepo repository.PaymentRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	ledger *Ledger,
	sequences *SequenceGenerator,
	txManager repository.TransactionManager,
	notifier Notifier,
) SaleService {
	return &saleService{
		saleRepo:     saleRepo,
		paymentRepo:  paymentRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		ledger:       ledger,
		sequences:    sequences,
		txManager:    txManager,
		notifier:     notifierOrNoop(notifier),
	}
}

// --- Implementation ---

// CreateSale records the sale, its line items, one SALE stock event per line
// and, when money changed hands with a known customer, the opening payment.
// The opening payment is not applied again: the sale already carries it.
func (s *saleService) CreateSale(ctx context.Context, scope model.Scope, req CreateSaleRequest) (SaleResponse, error) {
	if err := validateStruct(req); err != nil {
		return SaleResponse{}, err
	}
	storeID, err := parseID(req.StoreID, "store_id")
	if err != nil {
		return SaleResponse{}, err
	}
	if !scope.CanAccessStore(storeID) {
		return SaleResponse{}, fmt.Errorf("store %s: %w", storeID, ErrAccessDenied)
	}
	customerID, err := parseOptionalID(req.CustomerID, "customer_id")
	if err != nil {
		return SaleResponse{}, err
	}
	if model.RequiresCustomer(req.SaleType) && customerID == nil {
		return SaleResponse{}, newValidationError("customer required for partial and credit sales", "customer_id")
	}
	amounts := map[string]decimal.Decimal{
		"discount_amount": req.DiscountAmount,
		"amount_paid":     req.AmountPaid,
	}
	for i, li := range req.LineItems {
		amounts[fmt.Sprintf("line_items[%d].unit_price", i)] = li.UnitPrice
	}
	if err := requireNonNegative(amounts); err != nil {
		return SaleResponse{}, err
	}
	if err := requireCents(amounts); err != nil {
		return SaleResponse{}, err
	}

	sale := model.Sale{
		ID:             uuid.New(),
		StoreID:        storeID,
		CustomerID:     customerID,
		SaleType:       req.SaleType,
		DiscountAmount: req.DiscountAmount,
		AmountPaid:     req.AmountPaid,
		Status:         model.SaleStatusActive,
		CreatedBy:      uuidPtr(scope.UserID),
	}

	items := make([]model.SaleLineItem, 0, len(req.LineItems))
	productIDs := make([]uuid.UUID, 0, len(req.LineItems))
	subtotal := decimal.Zero
	for i, li := range req.LineItems {
		productID, err := parseID(li.ProductID, fmt.Sprintf("line_items[%d].product_id", i))
		if err != nil {
			return SaleResponse{}, err
		}
		lineTotal := li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		productIDs = append(productIDs, productID)
		items = append(items, model.SaleLineItem{
			ID:        uuid.New(),
			SaleID:    sale.ID,
			ProductID: productID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			LineTotal: lineTotal,
		})
	}
	sale.Subtotal = subtotal
	sale.TotalAmount = subtotal.Sub(sale.DiscountAmount)
	sale.AmountDue = sale.TotalAmount.Sub(sale.AmountPaid)
	if sale.TotalAmount.IsNegative() {
		return SaleResponse{}, newValidationError("discount exceeds subtotal", "discount_amount")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if customerID != nil {
			if _, err := s.customerRepo.FindByID(txCtx, *customerID); err != nil {
				return lookupErr(err, "customer", *customerID)
			}
		}
		if err := s.ledger.ensureProducts(txCtx, productIDs); err != nil {
			return err
		}

		// Stamped after the transaction has entered the sync barrier.
		now := clock()
		sale.CreatedAt, sale.SyncedAt = now, now
		for i := range items {
			items[i].CreatedAt = now
		}

		err := s.sequences.insertNumbered(txCtx, model.PrefixSale, now,
			func(number string) { sale.SaleNumber = number },
			func(spCtx context.Context) error { return s.saleRepo.Create(spCtx, &sale) })
		if err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		for i := range items {
			if err := s.saleRepo.CreateItem(txCtx, &items[i]); err != nil {
				return fmt.Errorf("failed to create line item: %w", err)
			}
			event := model.StockEvent{
				EventType:     model.EventTypeSale,
				ProductID:     items[i].ProductID,
				StoreID:       storeID,
				Quantity:      -items[i].Quantity,
				ReferenceType: strPtr(model.RefTypeSale),
				ReferenceID:   uuidPtr(sale.ID),
				CreatedBy:     uuidPtr(scope.UserID),
				CreatedAt:     now,
			}
			if err := s.ledger.Append(txCtx, &event); err != nil {
				return err
			}
		}

		if !sale.AmountPaid.IsPositive() || customerID == nil {
			return nil
		}
		payment := model.Payment{
			ID:            uuid.New(),
			CustomerID:    *customerID,
			SaleID:        uuidPtr(sale.ID),
			Amount:        sale.AmountPaid,
			PaymentMethod: model.PaymentMethodCash,
			CreatedBy:     uuidPtr(scope.UserID),
			CreatedAt:     now,
			SyncedAt:      now,
		}
		err = s.sequences.insertNumbered(txCtx, model.PrefixPayment, now,
			func(number string) { payment.PaymentNumber = number },
			func(spCtx context.Context) error { return s.paymentRepo.Create(spCtx, &payment) })
		if err != nil {
			return fmt.Errorf("failed to create opening payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return SaleResponse{}, err
	}

	s.notifier.Notify(NoticeSaleCreated, &storeID)
	return s.load(ctx, sale.ID)
}

func (s *saleService) GetSale(ctx context.Context, scope model.Scope, id string) (SaleResponse, error) {
	saleID, err := parseID(id, "id")
	if err != nil {
		return SaleResponse{}, err
	}
	res, err := s.load(ctx, saleID)
	if err != nil {
		return SaleResponse{}, err
	}
	if !scope.CanAccessStore(res.StoreID) {
		return SaleResponse{}, ErrAccessDenied
	}
	return res, nil
}

// VoidSale marks the sale VOID and returns every line item's quantity to
// stock through compensating ADJUSTMENT events. Nothing else about the sale
// changes.
func (s *saleService) VoidSale(ctx context.Context, scope model.Scope, id string, req VoidSaleRequest) (SaleResponse, error) {
	if !scope.IsOwner() {
		return SaleResponse{}, fmt.Errorf("voiding sales: %w", ErrAccessDenied)
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateStruct(req); err != nil {
		return SaleResponse{}, err
	}
	saleID, err := parseID(id, "id")
	if err != nil {
		return SaleResponse{}, err
	}

	var storeID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		sale, err := s.saleRepo.FindByIDWithItems(txCtx, saleID)
		if err != nil {
			return lookupErr(err, "sale", saleID)
		}
		if sale.Status == model.SaleStatusVoid {
			return fmt.Errorf("sale %s is already void: %w", sale.SaleNumber, ErrConflict)
		}
		storeID = sale.StoreID

		ok, err := s.saleRepo.MarkVoid(txCtx, sale.ID, req.Reason, scope.UserID, clock())
		if err != nil {
			return fmt.Errorf("failed to void sale: %w", err)
		}
		if !ok {
			return fmt.Errorf("sale %s is already void: %w", sale.SaleNumber, ErrConflict)
		}

		for _, item := range sale.LineItems {
			event := model.StockEvent{
				EventType:     model.EventTypeAdjustment,
				ProductID:     item.ProductID,
				StoreID:       sale.StoreID,
				Quantity:      item.Quantity,
				ReferenceType: strPtr(model.RefTypeSaleVoid),
				ReferenceID:   uuidPtr(sale.ID),
				Notes:         fmt.Sprintf("Reversal for voided sale %s", sale.SaleNumber),
				CreatedBy:     uuidPtr(scope.UserID),
			}
			if err := s.ledger.Append(txCtx, &event); err != nil {
				return err
			}
		}

		return writeAudit(txCtx, s.auditRepo, auditEntry{
			actor:      scope.UserID,
			action:     model.ActionSaleVoid,
			entityType: model.EntitySale,
			entityID:   sale.ID,
			reason:     req.Reason,
			details: map[string]interface{}{
				"sale_number": sale.SaleNumber,
				"total":       sale.TotalAmount.String(),
				"line_items":  len(sale.LineItems),
			},
		})
	})
	if err != nil {
		return SaleResponse{}, err
	}

	s.notifier.Notify(NoticeSaleVoided, &storeID)
	return s.load(ctx, saleID)
}

// load returns the sale with its line items, the payments settling it and
// the stock movements it caused or reversed.
func (s *saleService) load(ctx context.Context, id uuid.UUID) (SaleResponse, error) {
	sale, err := s.saleRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return SaleResponse{}, lookupErr(err, "sale", id)
	}
	res := toSaleResponse(*sale)
	if res.Payments, err = s.paymentRepo.ListBySale(ctx, id); err != nil {
		return SaleResponse{}, fmt.Errorf("failed to load payments: %w", err)
	}
	if res.Movements, err = s.ledger.Movements(ctx, id, model.RefTypeSale, model.RefTypeSaleVoid); err != nil {
		return SaleResponse{}, err
	}
	return res, nil
}

func toSaleResponse(sale model.Sale) SaleResponse {
	res := SaleResponse{Sale: sale, Payments: []model.Payment{}, Movements: []model.StockEvent{}}
	if sale.Customer != nil {
		res.CustomerName = sale.Customer.Name
	}
	if res.LineItems == nil {
		res.LineItems = []model.SaleLineItem{}
	}
	return res
}
