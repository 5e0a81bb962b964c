package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"retail-backend/internal/database/dbtest"
	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDay = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// stepClock replaces clock with one that advances a millisecond per call.
func stepClock(t *testing.T, start time.Time) {
	t.Helper()
	prev := clock
	var mu sync.Mutex
	cur := start
	clock = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Millisecond)
		return cur
	}
	t.Cleanup(func() { clock = prev })
}

// frozenClock pins clock to at.
func frozenClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := clock
	clock = func() time.Time { return at }
	t.Cleanup(func() { clock = prev })
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(event string, _ *uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) seen() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type fixtureRepos struct {
	tx       repository.TransactionManager
	customer repository.CustomerRepository
	product  repository.ProductRepository
	sale     repository.SaleRepository
	payment  repository.PaymentRepository
	event    repository.StockEventRepository
	audit    repository.AuditRepository
}

type fixture struct {
	db       *gorm.DB
	ctx      context.Context
	notifier *recordingNotifier

	ledger    *Ledger
	sequences *SequenceGenerator
	sales     SaleService
	payments  PaymentService
	inventory InventoryService
	approvals ApprovalService
	audit     AuditService
	sync      SyncService
	customers CustomerService
	repos     fixtureRepos

	storeA uuid.UUID
	storeB uuid.UUID
	owner  model.Scope
	mgrA   model.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stepClock(t, testDay)

	db := dbtest.New(t)
	txManager := repository.NewTransactionManager(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	eventRepo := repository.NewStockEventRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)

	notifier := &recordingNotifier{}
	ledger := NewLedger(eventRepo, productRepo)
	sequences := NewSequenceGenerator(sequenceRepo, txManager)

	storeA, storeB := uuid.New(), uuid.New()
	return &fixture{
		db:        db,
		ctx:       context.Background(),
		notifier:  notifier,
		ledger:    ledger,
		sequences: sequences,
		sales:     NewSaleService(saleRepo, paymentRepo, customerRepo, auditRepo, ledger, sequences, txManager, notifier),
		payments:  NewPaymentService(paymentRepo, saleRepo, customerRepo, sequences, txManager, notifier),
		inventory: NewInventoryService(ledger, eventRepo, auditRepo, txManager, notifier),
		approvals: NewApprovalService(approvalRepo, auditRepo, ledger, txManager, notifier),
		audit:     NewAuditService(auditRepo),
		sync:      NewSyncService(customerRepo, saleRepo, paymentRepo, productRepo, eventRepo, ledger, sequences, txManager, notifier, nil),
		customers: NewCustomerService(customerRepo, saleRepo, paymentRepo, txManager, notifier),
		repos: fixtureRepos{
			tx:       txManager,
			customer: customerRepo,
			product:  productRepo,
			sale:     saleRepo,
			payment:  paymentRepo,
			event:    eventRepo,
			audit:    auditRepo,
		},
		storeA:    storeA,
		storeB:    storeB,
		owner:     model.Scope{UserID: uuid.New(), Role: model.RoleOwner},
		mgrA:      model.Scope{UserID: uuid.New(), Role: model.RoleStoreManager, StoreID: &storeA},
	}
}

func (f *fixture) product(t *testing.T, sku string) model.Product {
	t.Helper()
	p := model.Product{
		ID:          uuid.New(),
		SKU:         sku,
		Name:        "Product " + sku,
		Unit:        "pcs",
		RetailPrice: decimal.NewFromInt(10),
		IsActive:    true,
		CreatedAt:   testDay,
		UpdatedAt:   testDay,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) customer(t *testing.T, name string) model.Customer {
	t.Helper()
	c := model.Customer{ID: uuid.New(), Name: name, IsActive: true, CreatedAt: testDay, UpdatedAt: testDay}
	require.NoError(t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) receive(t *testing.T, productID, storeID uuid.UUID, qty int) {
	t.Helper()
	_, err := f.inventory.RecordStockEvent(f.ctx, f.owner, CreateStockEventRequest{
		EventType: model.EventTypeReceive,
		ProductID: productID.String(),
		StoreID:   storeID.String(),
		Quantity:  qty,
	})
	require.NoError(t, err)
}

func (f *fixture) onHand(t *testing.T, productID, storeID uuid.UUID) int {
	t.Helper()
	snap, err := f.ledger.OnHand(f.ctx, productID, storeID, nil)
	require.NoError(t, err)
	return snap.OnHandQty
}

func (f *fixture) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
