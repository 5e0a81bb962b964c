package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"
	"retail-backend/pkg/pagination"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// --- Push DTOs ---

type PushCustomer struct {
	ID        string     `json:"id" validate:"required,uuid"`
	Name      string     `json:"name" validate:"required,max=255"`
	Phone     string     `json:"phone" validate:"max=50"`
	Whatsapp  string     `json:"whatsapp" validate:"max=50"`
	Address   string     `json:"address"`
	Notes     string     `json:"notes"`
	CreatedAt *time.Time `json:"created_at"`
}

type PushLineItem struct {
	ID        string          `json:"id" validate:"required,uuid"`
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	CreatedAt *time.Time      `json:"created_at"`
}

type PushSale struct {
	ID             string          `json:"id" validate:"required,uuid"`
	SaleNumber     string          `json:"sale_number" validate:"max=30"`
	StoreID        string          `json:"store_id" validate:"required,uuid"`
	CustomerID     string          `json:"customer_id" validate:"omitempty,uuid"`
	SaleType       string          `json:"sale_type" validate:"required,oneof=CASH PARTIAL CREDIT"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountDue      decimal.Decimal `json:"amount_due"`
	Status         string          `json:"status" validate:"omitempty,oneof=ACTIVE VOID"`
	CreatedBy      string          `json:"created_by" validate:"omitempty,uuid"`
	CreatedAt      *time.Time      `json:"created_at"`
	LineItems      []PushLineItem  `json:"line_items" validate:"required,min=1,dive"`
}

type PushStockEvent struct {
	ID            string     `json:"id" validate:"required,uuid"`
	EventType     string     `json:"event_type" validate:"required,oneof=RECEIVE SALE ADJUSTMENT TRANSFER"`
	ProductID     string     `json:"product_id" validate:"required,uuid"`
	StoreID       string     `json:"store_id" validate:"required,uuid"`
	Quantity      int        `json:"quantity" validate:"required"`
	ReferenceType string     `json:"reference_type" validate:"max=30"`
	ReferenceID   string     `json:"reference_id" validate:"omitempty,uuid"`
	Notes         string     `json:"notes"`
	CreatedBy     string     `json:"created_by" validate:"omitempty,uuid"`
	CreatedAt     *time.Time `json:"created_at"`
}

type PushPayment struct {
	ID            string          `json:"id" validate:"required,uuid"`
	PaymentNumber string          `json:"payment_number" validate:"max=30"`
	CustomerID    string          `json:"customer_id" validate:"required,uuid"`
	SaleID        string          `json:"sale_id" validate:"omitempty,uuid"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=CASH TRANSFER CARD OTHER"`
	Reference     string          `json:"reference" validate:"max=100"`
	Notes         string          `json:"notes"`
	CreatedBy     string          `json:"created_by" validate:"omitempty,uuid"`
	CreatedAt     *time.Time      `json:"created_at"`
}

type PushRequest struct {
	Customers   []PushCustomer   `json:"customers"`
	Sales       []PushSale       `json:"sales"`
	StockEvents []PushStockEvent `json:"stock_events"`
	Payments    []PushPayment    `json:"payments"`
}

type RecordError struct {
	ID     string `json:"id"`
	Number string `json:"number,omitempty"` // sale or payment number when the record had one
	Error  string `json:"error"`
}

// EntityResult summarises one entity type of a push. Duplicates are records
// that were already present; they also count as successes.
type EntityResult struct {
	Success    int           `json:"success"`
	Failed     int           `json:"failed"`
	Duplicates int           `json:"duplicates"`
	Errors     []RecordError `json:"errors"`
}

type PushResults struct {
	Customers   EntityResult `json:"customers"`
	Sales       EntityResult `json:"sales"`
	StockEvents EntityResult `json:"stock_events"`
	Payments    EntityResult `json:"payments"`
}

type PushResponse struct {
	Message   string      `json:"message"`
	Results   PushResults `json:"results"`
	Timestamp time.Time   `json:"timestamp"`
}

// --- Pull DTOs ---

type PullRequest struct {
	Since  *time.Time
	Cursor string
	Limit  int
}

type PullResponse struct {
	Products      []model.Product      `json:"products"`
	Sales         []model.Sale         `json:"sales"`
	SaleLineItems []model.SaleLineItem `json:"sale_line_items"`
	StockEvents   []model.StockEvent   `json:"stock_events"`
	Customers     []model.Customer     `json:"customers"`
	Payments      []model.Payment      `json:"payments"`
	Timestamp     time.Time            `json:"timestamp"`
	HasMore       bool                 `json:"has_more"`
	NextCursor    string               `json:"next_cursor,omitempty"`
}

// --- Interface ---

type SyncService interface {
	Push(ctx context.Context, scope model.Scope, req PushRequest) (PushResponse, error)
	Pull(ctx context.Context, scope model.Scope, req PullRequest) (PullResponse, error)
}

type syncService struct {
	customerRepo repository.CustomerRepository
	saleRepo     repository.SaleRepository
	paymentRepo  repository.PaymentRepository
	productRepo  repository.ProductRepository
	eventRepo    repository.StockEventRepository
	ledger       *Ledger
	sequences    *SequenceGenerator
	txManager    repository.TransactionManager
	notifier     Notifier
	logger       *zap.Logger
}

func NewSyncService(
	customerRepo repository.CustomerRepository,
	saleRepo repository.SaleRepository,
	paymentRepo repository.PaymentRepository,
	productRepo repository.ProductRepository,
	eventRepo repository.StockEventRepository,
	ledger *Ledger,
	sequences *SequenceGenerator,
	txManager repository.TransactionManager,
	notifier Notifier,
	logger *zap.Logger,
) SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &syncService{
		customerRepo: customerRepo,
		saleRepo:     saleRepo,
		paymentRepo:  paymentRepo,
		productRepo:  productRepo,
		eventRepo:    eventRepo,
		ledger:       ledger,
		sequences:    sequences,
		txManager:    txManager,
		notifier:     notifierOrNoop(notifier),
		logger:       logger,
	}
}

// --- Push ---

// pushStage merges one entity type of a batch. Stages run in slice order.
type pushStage struct {
	entity string
	run    func(ctx context.Context, scope model.Scope, req PushRequest, res *PushResults)
}

// pushStages lists the stages in dependency order: sales reference customers,
// and payments reference customers and sales pushed in the same batch.
func (s *syncService) pushStages() []pushStage {
	return []pushStage{
		{entity: "customers", run: func(ctx context.Context, scope model.Scope, req PushRequest, res *PushResults) {
			for _, rec := range req.Customers {
				s.attempt(ctx, "customers", &res.Customers, rec.ID, "", func(recCtx context.Context) (bool, error) {
					return s.mergeCustomer(recCtx, rec)
				})
			}
		}},
		{entity: "sales", run: func(ctx context.Context, scope model.Scope, req PushRequest, res *PushResults) {
			for _, rec := range req.Sales {
				s.attempt(ctx, "sales", &res.Sales, rec.ID, rec.SaleNumber, func(recCtx context.Context) (bool, error) {
					return s.mergeSale(recCtx, scope, rec)
				})
			}
		}},
		{entity: "stock_events", run: func(ctx context.Context, scope model.Scope, req PushRequest, res *PushResults) {
			for _, rec := range req.StockEvents {
				s.attempt(ctx, "stock_events", &res.StockEvents, rec.ID, "", func(recCtx context.Context) (bool, error) {
					return s.mergeStockEvent(recCtx, scope, rec)
				})
			}
		}},
		{entity: "payments", run: func(ctx context.Context, scope model.Scope, req PushRequest, res *PushResults) {
			for _, rec := range req.Payments {
				s.attempt(ctx, "payments", &res.Payments, rec.ID, rec.PaymentNumber, func(recCtx context.Context) (bool, error) {
					return s.mergePayment(recCtx, scope, rec)
				})
			}
		}},
	}
}

// Push merges an offline batch. Every record runs in its own savepoint inside
// one surrounding transaction, so a failing record is reported and rolled back
// without disturbing the others.
func (s *syncService) Push(ctx context.Context, scope model.Scope, req PushRequest) (PushResponse, error) {
	results := PushResults{
		Customers:   EntityResult{Errors: []RecordError{}},
		Sales:       EntityResult{Errors: []RecordError{}},
		StockEvents: EntityResult{Errors: []RecordError{}},
		Payments:    EntityResult{Errors: []RecordError{}},
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, stage := range s.pushStages() {
			stage.run(txCtx, scope, req, &results)
		}
		return nil
	})
	if err != nil {
		return PushResponse{}, fmt.Errorf("sync push failed: %w", err)
	}

	s.logger.Info("sync push completed",
		zap.String("user_id", scope.UserID.String()),
		zap.Int("sales", results.Sales.Success),
		zap.Int("stock_events", results.StockEvents.Success),
		zap.Int("payments", results.Payments.Success),
		zap.Int("failed", results.Customers.Failed+results.Sales.Failed+results.StockEvents.Failed+results.Payments.Failed))
	s.notifier.Notify(NoticeSyncPushed, scope.StoreFilter())

	return PushResponse{
		Message:   "Sync completed",
		Results:   results,
		Timestamp: clock(),
	}, nil
}

// attempt runs one record merge inside a savepoint and folds the outcome into result.
func (s *syncService) attempt(ctx context.Context, entity string, result *EntityResult, id, number string, merge func(ctx context.Context) (bool, error)) {
	var inserted bool
	err := s.txManager.RunInTx(ctx, func(recCtx context.Context) error {
		var mergeErr error
		inserted, mergeErr = merge(recCtx)
		return mergeErr
	})
	if err != nil {
		result.Failed++
		result.Errors = append(result.Errors, RecordError{ID: id, Number: number, Error: recordMessage(err)})
		s.logger.Warn("sync push record failed",
			zap.String("entity", entity),
			zap.String("id", id),
			zap.Error(err))
		return
	}
	result.Success++
	if !inserted {
		result.Duplicates++
	}
}

// recordMessage keeps classified errors readable and hides storage details.
func recordMessage(err error) string {
	switch {
	case IsValidation(err), errors.Is(err, ErrNotFound), errors.Is(err, ErrAccessDenied), errors.Is(err, ErrConflict):
		return err.Error()
	default:
		return "failed to store record"
	}
}

func (s *syncService) mergeCustomer(ctx context.Context, rec PushCustomer) (bool, error) {
	if err := validateStruct(rec); err != nil {
		return false, err
	}
	id, err := parseID(rec.ID, "id")
	if err != nil {
		return false, err
	}

	_, err = s.customerRepo.FindByID(ctx, id)
	existed := err == nil
	if err != nil && !repository.IsNotFound(err) {
		return false, fmt.Errorf("failed to load customer: %w", err)
	}

	now := clock()
	customer := model.Customer{
		ID:        id,
		Name:      rec.Name,
		Phone:     rec.Phone,
		Whatsapp:  rec.Whatsapp,
		Address:   rec.Address,
		Notes:     rec.Notes,
		IsActive:  true,
		CreatedAt: normalizeTime(rec.CreatedAt, now),
		UpdatedAt: now,
	}
	if err := s.customerRepo.Upsert(ctx, &customer); err != nil {
		return false, fmt.Errorf("failed to upsert customer: %w", err)
	}
	return !existed, nil
}

func (s *syncService) mergeSale(ctx context.Context, scope model.Scope, rec PushSale) (bool, error) {
	sale, items, err := buildPushedSale(scope, rec)
	if err != nil {
		return false, err
	}
	if !scope.CanAccessStore(sale.StoreID) {
		return false, fmt.Errorf("store %s: %w", sale.StoreID, ErrAccessDenied)
	}
	if sale.CustomerID != nil {
		if _, err := s.customerRepo.FindByID(ctx, *sale.CustomerID); err != nil {
			return false, lookupErr(err, "customer", *sale.CustomerID)
		}
	}

	var inserted bool
	insert := func(spCtx context.Context) error {
		var err error
		inserted, err = s.saleRepo.InsertIgnore(spCtx, &sale)
		return err
	}
	if sale.SaleNumber == "" {
		err = s.sequences.insertNumbered(ctx, model.PrefixSale, sale.CreatedAt,
			func(number string) { sale.SaleNumber = number }, insert)
	} else {
		err = insert(ctx)
	}
	if err != nil {
		if repository.IsDuplicate(err) {
			return false, fmt.Errorf("sale number %s already used: %w", sale.SaleNumber, ErrConflict)
		}
		return false, fmt.Errorf("failed to insert sale: %w", err)
	}
	// A known sale already owns its line items.
	if !inserted {
		return false, nil
	}

	for i := range items {
		itemInserted, err := s.saleRepo.InsertItemIgnore(ctx, &items[i])
		if err != nil {
			return false, fmt.Errorf("failed to insert line item %s: %w", items[i].ID, err)
		}
		// A new sale must own every item it carries.
		if !itemInserted {
			return false, fmt.Errorf("line item %s already belongs to another sale: %w", items[i].ID, ErrConflict)
		}
	}
	return true, nil
}

// buildPushedSale validates a pushed sale and checks its arithmetic.
func buildPushedSale(scope model.Scope, rec PushSale) (model.Sale, []model.SaleLineItem, error) {
	if err := validateStruct(rec); err != nil {
		return model.Sale{}, nil, err
	}
	id, err := parseID(rec.ID, "id")
	if err != nil {
		return model.Sale{}, nil, err
	}
	storeID, err := parseID(rec.StoreID, "store_id")
	if err != nil {
		return model.Sale{}, nil, err
	}
	customerID, err := parseOptionalID(rec.CustomerID, "customer_id")
	if err != nil {
		return model.Sale{}, nil, err
	}
	createdBy, err := parseOptionalID(rec.CreatedBy, "created_by")
	if err != nil {
		return model.Sale{}, nil, err
	}
	if createdBy == nil {
		createdBy = uuidPtr(scope.UserID)
	}
	if model.RequiresCustomer(rec.SaleType) && customerID == nil {
		return model.Sale{}, nil, newValidationError("customer required for partial and credit sales", "customer_id")
	}
	if err := requireNonNegative(map[string]decimal.Decimal{
		"subtotal":        rec.Subtotal,
		"discount_amount": rec.DiscountAmount,
		"amount_paid":     rec.AmountPaid,
	}); err != nil {
		return model.Sale{}, nil, err
	}
	amounts := map[string]decimal.Decimal{
		"subtotal":        rec.Subtotal,
		"discount_amount": rec.DiscountAmount,
		"total_amount":    rec.TotalAmount,
		"amount_paid":     rec.AmountPaid,
		"amount_due":      rec.AmountDue,
	}
	for i, li := range rec.LineItems {
		amounts[fmt.Sprintf("line_items[%d].unit_price", i)] = li.UnitPrice
		amounts[fmt.Sprintf("line_items[%d].line_total", i)] = li.LineTotal
	}
	if err := requireCents(amounts); err != nil {
		return model.Sale{}, nil, err
	}

	var bad []string
	if !rec.TotalAmount.Equal(rec.Subtotal.Sub(rec.DiscountAmount)) {
		bad = append(bad, "total_amount")
	}
	if !rec.AmountDue.Equal(rec.TotalAmount.Sub(rec.AmountPaid)) {
		bad = append(bad, "amount_due")
	}

	now := clock()
	createdAt := normalizeTime(rec.CreatedAt, now)
	items := make([]model.SaleLineItem, 0, len(rec.LineItems))
	for i, li := range rec.LineItems {
		itemID, err := parseID(li.ID, fmt.Sprintf("line_items[%d].id", i))
		if err != nil {
			return model.Sale{}, nil, err
		}
		productID, err := parseID(li.ProductID, fmt.Sprintf("line_items[%d].product_id", i))
		if err != nil {
			return model.Sale{}, nil, err
		}
		if li.UnitPrice.IsNegative() || !li.LineTotal.Equal(li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))) {
			bad = append(bad, fmt.Sprintf("line_items[%d].line_total", i))
		}
		items = append(items, model.SaleLineItem{
			ID:        itemID,
			SaleID:    id,
			ProductID: productID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			LineTotal: li.LineTotal,
			CreatedAt: normalizeTime(li.CreatedAt, createdAt),
		})
	}
	if len(bad) > 0 {
		return model.Sale{}, nil, newValidationError("sale amounts do not add up", bad...)
	}

	status := rec.Status
	if status == "" {
		status = model.SaleStatusActive
	}
	sale := model.Sale{
		ID:             id,
		SaleNumber:     rec.SaleNumber,
		StoreID:        storeID,
		CustomerID:     customerID,
		SaleType:       rec.SaleType,
		Subtotal:       rec.Subtotal,
		DiscountAmount: rec.DiscountAmount,
		TotalAmount:    rec.TotalAmount,
		AmountPaid:     rec.AmountPaid,
		AmountDue:      rec.AmountDue,
		Status:         status,
		CreatedBy:      createdBy,
		CreatedAt:      createdAt,
		SyncedAt:       now,
	}
	return sale, items, nil
}

func (s *syncService) mergeStockEvent(ctx context.Context, scope model.Scope, rec PushStockEvent) (bool, error) {
	if err := validateStruct(rec); err != nil {
		return false, err
	}
	id, err := parseID(rec.ID, "id")
	if err != nil {
		return false, err
	}
	productID, err := parseID(rec.ProductID, "product_id")
	if err != nil {
		return false, err
	}
	storeID, err := parseID(rec.StoreID, "store_id")
	if err != nil {
		return false, err
	}
	refID, err := parseOptionalID(rec.ReferenceID, "reference_id")
	if err != nil {
		return false, err
	}
	createdBy, err := parseOptionalID(rec.CreatedBy, "created_by")
	if err != nil {
		return false, err
	}
	if createdBy == nil {
		createdBy = uuidPtr(scope.UserID)
	}
	if !scope.CanAccessStore(storeID) {
		return false, fmt.Errorf("store %s: %w", storeID, ErrAccessDenied)
	}
	if rec.EventType == model.EventTypeAdjustment && !scope.IsOwner() {
		return false, fmt.Errorf("adjustments require owner approval: %w", ErrAccessDenied)
	}

	event := model.StockEvent{
		ID:        id,
		EventType: rec.EventType,
		ProductID: productID,
		StoreID:   storeID,
		Quantity:  rec.Quantity,
		Notes:     rec.Notes,
		CreatedBy: createdBy,
		CreatedAt: normalizeTime(rec.CreatedAt, time.Time{}),
	}
	if rec.ReferenceType != "" {
		event.ReferenceType = strPtr(rec.ReferenceType)
	}
	event.ReferenceID = refID
	return s.ledger.Merge(ctx, &event)
}

func (s *syncService) mergePayment(ctx context.Context, scope model.Scope, rec PushPayment) (bool, error) {
	if err := validateStruct(rec); err != nil {
		return false, err
	}
	if !rec.Amount.IsPositive() {
		return false, newValidationError("amount must be positive", "amount")
	}
	if err := requireCents(map[string]decimal.Decimal{"amount": rec.Amount}); err != nil {
		return false, err
	}
	id, err := parseID(rec.ID, "id")
	if err != nil {
		return false, err
	}
	customerID, err := parseID(rec.CustomerID, "customer_id")
	if err != nil {
		return false, err
	}
	saleID, err := parseOptionalID(rec.SaleID, "sale_id")
	if err != nil {
		return false, err
	}
	createdBy, err := parseOptionalID(rec.CreatedBy, "created_by")
	if err != nil {
		return false, err
	}
	if createdBy == nil {
		createdBy = uuidPtr(scope.UserID)
	}

	if _, err := s.customerRepo.FindByID(ctx, customerID); err != nil {
		return false, lookupErr(err, "customer", customerID)
	}
	if saleID != nil {
		sale, err := s.saleRepo.FindByID(ctx, *saleID)
		if err != nil {
			return false, lookupErr(err, "sale", *saleID)
		}
		if !scope.CanAccessStore(sale.StoreID) {
			return false, fmt.Errorf("sale %s: %w", sale.SaleNumber, ErrAccessDenied)
		}
	}

	method := rec.PaymentMethod
	if method == "" {
		method = model.PaymentMethodCash
	}
	now := clock()
	payment := model.Payment{
		ID:            id,
		PaymentNumber: rec.PaymentNumber,
		CustomerID:    customerID,
		SaleID:        saleID,
		Amount:        rec.Amount,
		PaymentMethod: method,
		Reference:     rec.Reference,
		Notes:         rec.Notes,
		CreatedBy:     createdBy,
		CreatedAt:     normalizeTime(rec.CreatedAt, now),
		SyncedAt:      now,
	}

	var inserted bool
	insert := func(spCtx context.Context) error {
		var err error
		inserted, err = s.paymentRepo.InsertIgnore(spCtx, &payment)
		return err
	}
	if payment.PaymentNumber == "" {
		err = s.sequences.insertNumbered(ctx, model.PrefixPayment, payment.CreatedAt,
			func(number string) { payment.PaymentNumber = number }, insert)
	} else {
		err = insert(ctx)
	}
	if err != nil {
		if repository.IsDuplicate(err) {
			return false, fmt.Errorf("payment number %s already used: %w", payment.PaymentNumber, ErrConflict)
		}
		return false, fmt.Errorf("failed to insert payment: %w", err)
	}

	// The delta belongs to the row: a payment seen before was applied then.
	if inserted && saleID != nil {
		if _, err := s.saleRepo.ApplyPayment(ctx, *saleID, payment.Amount); err != nil {
			return false, fmt.Errorf("failed to apply payment to sale: %w", err)
		}
	}
	return inserted, nil
}

// --- Pull ---

const (
	entityProducts    = "products"
	entitySales       = "sales"
	entityStockEvents = "stock_events"
	entityCustomers   = "customers"
	entityPayments    = "payments"
)

var pullEntities = []string{entityProducts, entitySales, entityStockEvents, entityCustomers, entityPayments}

// Pull returns every change in (since, until] where until is fixed when the
// first page is requested. Each entity is paged on (watermark, id); while
// has_more is true the caller repeats the pull with next_cursor and finally
// stores timestamp as its next since.
func (s *syncService) Pull(ctx context.Context, scope model.Scope, req PullRequest) (PullResponse, error) {
	limit := pagination.ClampSyncLimit(req.Limit)

	var cur pullCursor
	if req.Cursor != "" {
		decoded, err := decodeCursor(req.Cursor)
		if err != nil {
			return PullResponse{}, newValidationError("invalid cursor", "cursor")
		}
		cur = decoded
	} else {
		since := time.Unix(0, 0).UTC()
		if req.Since != nil {
			since = req.Since.UTC()
		}
		until, err := s.txManager.CaptureWatermark(ctx, clock)
		if err != nil {
			return PullResponse{}, fmt.Errorf("failed to capture sync watermark: %w", err)
		}
		cur = newPullCursor(since, until)
	}

	resp := PullResponse{
		Products:      []model.Product{},
		Sales:         []model.Sale{},
		SaleLineItems: []model.SaleLineItem{},
		StockEvents:   []model.StockEvent{},
		Customers:     []model.Customer{},
		Payments:      []model.Payment{},
		Timestamp:     cur.Until,
	}
	next := pullCursor{Until: cur.Until, Positions: make(map[string]cursorPosition, len(pullEntities))}
	storeFilter := scope.StoreFilter()

	var err error
	if next.Positions[entityProducts], err = pullPage(cur, entityProducts, limit, &resp.Products,
		func(w repository.ChangeWindow) ([]model.Product, error) { return s.productRepo.ListChanged(ctx, w) },
		func(p model.Product) (time.Time, uuid.UUID) { return p.UpdatedAt, p.ID }); err != nil {
		return PullResponse{}, fmt.Errorf("failed to pull products: %w", err)
	}
	if next.Positions[entitySales], err = pullPage(cur, entitySales, limit, &resp.Sales,
		func(w repository.ChangeWindow) ([]model.Sale, error) { return s.saleRepo.ListChanged(ctx, w, storeFilter) },
		func(sale model.Sale) (time.Time, uuid.UUID) { return sale.SyncedAt, sale.ID }); err != nil {
		return PullResponse{}, fmt.Errorf("failed to pull sales: %w", err)
	}
	if next.Positions[entityStockEvents], err = pullPage(cur, entityStockEvents, limit, &resp.StockEvents,
		func(w repository.ChangeWindow) ([]model.StockEvent, error) { return s.eventRepo.ListChanged(ctx, w, storeFilter) },
		func(e model.StockEvent) (time.Time, uuid.UUID) { return e.SyncedAt, e.ID }); err != nil {
		return PullResponse{}, fmt.Errorf("failed to pull stock events: %w", err)
	}
	if next.Positions[entityCustomers], err = pullPage(cur, entityCustomers, limit, &resp.Customers,
		func(w repository.ChangeWindow) ([]model.Customer, error) { return s.customerRepo.ListChanged(ctx, w) },
		func(c model.Customer) (time.Time, uuid.UUID) { return c.UpdatedAt, c.ID }); err != nil {
		return PullResponse{}, fmt.Errorf("failed to pull customers: %w", err)
	}
	if next.Positions[entityPayments], err = pullPage(cur, entityPayments, limit, &resp.Payments,
		func(w repository.ChangeWindow) ([]model.Payment, error) { return s.paymentRepo.ListChanged(ctx, w, storeFilter) },
		func(p model.Payment) (time.Time, uuid.UUID) { return p.SyncedAt, p.ID }); err != nil {
		return PullResponse{}, fmt.Errorf("failed to pull payments: %w", err)
	}

	saleIDs := make([]uuid.UUID, 0, len(resp.Sales))
	for _, sale := range resp.Sales {
		saleIDs = append(saleIDs, sale.ID)
	}
	if resp.SaleLineItems, err = s.saleRepo.ListItemsForSales(ctx, saleIDs); err != nil {
		return PullResponse{}, fmt.Errorf("failed to pull line items: %w", err)
	}

	for _, pos := range next.Positions {
		if !pos.Done {
			resp.HasMore = true
			break
		}
	}
	if resp.HasMore {
		if resp.NextCursor, err = encodeCursor(next); err != nil {
			return PullResponse{}, fmt.Errorf("failed to encode cursor: %w", err)
		}
	}
	return resp, nil
}

// pullPage reads one page of an entity starting at its cursor position and
// returns the position the next page starts from.
func pullPage[T any](
	cur pullCursor,
	entity string,
	limit int,
	out *[]T,
	list func(repository.ChangeWindow) ([]T, error),
	key func(T) (time.Time, uuid.UUID),
) (cursorPosition, error) {
	pos := cur.Positions[entity]
	if pos.Done {
		return pos, nil
	}

	rows, err := list(repository.ChangeWindow{
		After:   pos.After,
		AfterID: pos.AfterID,
		Until:   cur.Until,
		Limit:   limit + 1,
	})
	if err != nil {
		return pos, err
	}
	if len(rows) <= limit {
		*out = append(*out, rows...)
		return cursorPosition{After: pos.After, AfterID: pos.AfterID, Done: true}, nil
	}

	rows = rows[:limit]
	*out = append(*out, rows...)
	at, id := key(rows[len(rows)-1])
	return cursorPosition{After: at, AfterID: id}, nil
}
