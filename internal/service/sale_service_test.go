package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSaleComputesTotalsAndOpeningPayment(t *testing.T) {
	f := newFixture(t)
	p1, p2 := f.product(t, "A-1"), f.product(t, "A-2")
	cust := f.customer(t, "Dewi")
	f.receive(t, p1.ID, f.storeA, 10)
	f.receive(t, p2.ID, f.storeA, 10)

	sale, err := f.sales.CreateSale(f.ctx, f.mgrA, CreateSaleRequest{
		StoreID:    f.storeA.String(),
		CustomerID: cust.ID.String(),
		SaleType:   model.SaleTypePartial,
		LineItems: []SaleLineItemRequest{
			{ProductID: p1.ID.String(), Quantity: 3, UnitPrice: dec("10")},
			{ProductID: p2.ID.String(), Quantity: 2, UnitPrice: dec("5")},
		},
		DiscountAmount: dec("1"),
		AmountPaid:     dec("20"),
	})
	require.NoError(t, err)

	assert.Equal(t, "40", sale.Subtotal.String())
	assert.Equal(t, "39", sale.TotalAmount.String())
	assert.Equal(t, "20", sale.AmountPaid.String())
	assert.Equal(t, "19", sale.AmountDue.String())
	assert.Equal(t, "INV-20260301-001", sale.SaleNumber)
	assert.Equal(t, model.SaleStatusActive, sale.Status)
	assert.Equal(t, "Dewi", sale.CustomerName)
	require.Len(t, sale.LineItems, 2)

	var payments []model.Payment
	require.NoError(t, f.db.Where("sale_id = ?", sale.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, "20", payments[0].Amount.String())
	assert.Equal(t, "PAY-20260301-001", payments[0].PaymentNumber)

	assert.Equal(t, 7, f.onHand(t, p1.ID, f.storeA))
	assert.Equal(t, 8, f.onHand(t, p2.ID, f.storeA))
	assert.Contains(t, f.notifier.seen(), NoticeSaleCreated)
}

func TestCreateSaleWithoutPaymentSkipsOpeningPayment(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "B-1")

	sale, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
		StoreID:   f.storeA.String(),
		SaleType:  model.SaleTypeCash,
		LineItems: []SaleLineItemRequest{{ProductID: p.ID.String(), Quantity: 1, UnitPrice: dec("12.50")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "12.5", sale.AmountDue.String())
	assert.Zero(t, f.count(t, &model.Payment{}, ""))
	// Stock may go negative; the ledger records what happened.
	assert.Equal(t, -1, f.onHand(t, p.ID, f.storeA))
}

func TestCreateSaleRejections(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "C-1")
	item := []SaleLineItemRequest{{ProductID: p.ID.String(), Quantity: 1, UnitPrice: dec("10")}}

	t.Run("credit sale needs a customer", func(t *testing.T) {
		_, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
			StoreID: f.storeA.String(), SaleType: model.SaleTypeCredit, LineItems: item,
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"customer_id"}, ve.Fields)
	})

	t.Run("missing fields are named", func(t *testing.T) {
		_, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{SaleType: "BARTER"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.ElementsMatch(t, []string{"store_id", "sale_type", "line_items"}, ve.Fields)
	})

	t.Run("negative amounts", func(t *testing.T) {
		_, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
			StoreID: f.storeA.String(), SaleType: model.SaleTypeCash, LineItems: item,
			DiscountAmount: dec("-1"), AmountPaid: dec("-2"),
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"amount_paid", "discount_amount"}, ve.Fields)
	})

	t.Run("fractions of a cent", func(t *testing.T) {
		_, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
			StoreID: f.storeA.String(), SaleType: model.SaleTypeCash,
			LineItems:  []SaleLineItemRequest{{ProductID: p.ID.String(), Quantity: 4, UnitPrice: dec("0.251")}},
			AmountPaid: dec("0.005"),
		})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, []string{"amount_paid", "line_items[0].unit_price"}, ve.Fields)
	})

	t.Run("discount larger than subtotal", func(t *testing.T) {
		_, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
			StoreID: f.storeA.String(), SaleType: model.SaleTypeCash, LineItems: item,
			DiscountAmount: dec("11"),
		})
		assert.True(t, IsValidation(err))
	})

	t.Run("other store", func(t *testing.T) {
		_, err := f.sales.CreateSale(f.ctx, f.mgrA, CreateSaleRequest{
			StoreID: f.storeB.String(), SaleType: model.SaleTypeCash, LineItems: item,
		})
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
			StoreID: f.storeA.String(), SaleType: model.SaleTypeCash,
			LineItems: []SaleLineItemRequest{{ProductID: uuid.NewString(), Quantity: 1, UnitPrice: dec("1")}},
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
			StoreID: f.storeA.String(), CustomerID: uuid.NewString(), SaleType: model.SaleTypeCredit, LineItems: item,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.Zero(t, f.count(t, &model.Sale{}, ""))
	assert.Zero(t, f.count(t, &model.StockEvent{}, ""))
}

func TestVoidSaleRestoresStock(t *testing.T) {
	f := newFixture(t)
	p1, p2 := f.product(t, "D-1"), f.product(t, "D-2")
	f.receive(t, p1.ID, f.storeA, 10)
	f.receive(t, p2.ID, f.storeA, 4)

	sale, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
		StoreID:  f.storeA.String(),
		SaleType: model.SaleTypeCash,
		LineItems: []SaleLineItemRequest{
			{ProductID: p1.ID.String(), Quantity: 3, UnitPrice: dec("10")},
			{ProductID: p2.ID.String(), Quantity: 4, UnitPrice: dec("2")},
		},
		AmountPaid: dec("38"),
	})
	require.NoError(t, err)
	require.Equal(t, 7, f.onHand(t, p1.ID, f.storeA))
	require.Equal(t, 0, f.onHand(t, p2.ID, f.storeA))

	_, err = f.sales.VoidSale(f.ctx, f.mgrA, sale.ID.String(), VoidSaleRequest{Reason: "wrong"})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.sales.VoidSale(f.ctx, f.owner, sale.ID.String(), VoidSaleRequest{Reason: "  "})
	assert.True(t, IsValidation(err))

	voided, err := f.sales.VoidSale(f.ctx, f.owner, sale.ID.String(), VoidSaleRequest{Reason: "customer returned goods"})
	require.NoError(t, err)
	assert.Equal(t, model.SaleStatusVoid, voided.Status)
	assert.Equal(t, "customer returned goods", voided.VoidReason)
	require.NotNil(t, voided.VoidedBy)
	assert.Equal(t, f.owner.UserID, *voided.VoidedBy)
	assert.Equal(t, sale.TotalAmount.String(), voided.TotalAmount.String())

	assert.Equal(t, 10, f.onHand(t, p1.ID, f.storeA))
	assert.Equal(t, 4, f.onHand(t, p2.ID, f.storeA))

	var reversals []model.StockEvent
	require.NoError(t, f.db.Where("reference_type = ? AND reference_id = ?", model.RefTypeSaleVoid, sale.ID).Find(&reversals).Error)
	require.Len(t, reversals, 2)
	for _, ev := range reversals {
		assert.Equal(t, model.EventTypeAdjustment, ev.EventType)
		assert.Equal(t, "Reversal for voided sale "+sale.SaleNumber, ev.Notes)
	}

	// The sale's own movements net to zero once it is void.
	require.Len(t, voided.Movements, 4)
	net := map[uuid.UUID]int{}
	for _, ev := range voided.Movements {
		net[ev.ProductID] += ev.Quantity
	}
	assert.Equal(t, map[uuid.UUID]int{p1.ID: 0, p2.ID: 0}, net)
	assert.Equal(t, model.RefTypeSale, *voided.Movements[0].ReferenceType)
	assert.Equal(t, model.RefTypeSaleVoid, *voided.Movements[3].ReferenceType)

	_, err = f.sales.VoidSale(f.ctx, f.owner, sale.ID.String(), VoidSaleRequest{Reason: "again"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(2), f.count(t, &model.StockEvent{}, "reference_type = ?", model.RefTypeSaleVoid))

	logs, total, err := f.audit.GetAuditLogs(f.ctx, f.owner, AuditLogQuery{}, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, model.ActionSaleVoid, logs[0].Action)
	assert.Equal(t, sale.ID.String(), logs[0].EntityID)
	assert.Equal(t, "customer returned goods", logs[0].Reason)
}

func TestGetSaleScope(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "E-1")
	sale, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
		StoreID:   f.storeB.String(),
		SaleType:  model.SaleTypeCash,
		LineItems: []SaleLineItemRequest{{ProductID: p.ID.String(), Quantity: 1, UnitPrice: dec("3")}},
	})
	require.NoError(t, err)

	_, err = f.sales.GetSale(f.ctx, f.mgrA, sale.ID.String())
	assert.True(t, errors.Is(err, ErrAccessDenied))

	got, err := f.sales.GetSale(f.ctx, f.owner, sale.ID.String())
	require.NoError(t, err)
	assert.Equal(t, sale.SaleNumber, got.SaleNumber)

	_, err = f.sales.GetSale(f.ctx, f.owner, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePaymentSettlesSale(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "F-1")
	cust := f.customer(t, "Budi")

	sale, err := f.sales.CreateSale(f.ctx, f.mgrA, CreateSaleRequest{
		StoreID:    f.storeA.String(),
		CustomerID: cust.ID.String(),
		SaleType:   model.SaleTypeCredit,
		LineItems:  []SaleLineItemRequest{{ProductID: p.ID.String(), Quantity: 2, UnitPrice: dec("15")}},
	})
	require.NoError(t, err)
	require.Equal(t, "30", sale.AmountDue.String())

	pay, err := f.payments.CreatePayment(f.ctx, f.mgrA, CreatePaymentRequest{
		CustomerID:    cust.ID.String(),
		SaleID:        sale.ID.String(),
		Amount:        dec("12.25"),
		PaymentMethod: model.PaymentMethodTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, "PAY-20260301-001", pay.PaymentNumber)
	assert.Equal(t, "Budi", pay.CustomerName)
	assert.Equal(t, sale.SaleNumber, pay.SaleNumber)

	got, err := f.sales.GetSale(f.ctx, f.owner, sale.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "12.25", got.AmountPaid.String())
	assert.Equal(t, "17.75", got.AmountDue.String())
	assert.True(t, got.AmountDue.Equal(got.TotalAmount.Sub(got.AmountPaid)))
	require.Len(t, got.Payments, 1)
	assert.Equal(t, pay.ID, got.Payments[0].ID)

	standalone, err := f.payments.CreatePayment(f.ctx, f.mgrA, CreatePaymentRequest{
		CustomerID: cust.ID.String(),
		Amount:     dec("5"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentMethodCash, standalone.PaymentMethod)
	assert.Nil(t, standalone.SaleID)
}

func TestCreatePaymentRejections(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "G-1")
	cust := f.customer(t, "Sari")
	sale, err := f.sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
		StoreID:    f.storeB.String(),
		CustomerID: cust.ID.String(),
		SaleType:   model.SaleTypeCredit,
		LineItems:  []SaleLineItemRequest{{ProductID: p.ID.String(), Quantity: 1, UnitPrice: dec("9")}},
	})
	require.NoError(t, err)

	_, err = f.payments.CreatePayment(f.ctx, f.owner, CreatePaymentRequest{CustomerID: cust.ID.String(), Amount: decimal.Zero})
	assert.True(t, IsValidation(err))

	_, err = f.payments.CreatePayment(f.ctx, f.owner, CreatePaymentRequest{CustomerID: cust.ID.String(), Amount: dec("0.005")})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"amount"}, ve.Fields)

	_, err = f.payments.CreatePayment(f.ctx, f.owner, CreatePaymentRequest{CustomerID: uuid.NewString(), Amount: dec("1")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.payments.CreatePayment(f.ctx, f.mgrA, CreatePaymentRequest{CustomerID: cust.ID.String(), SaleID: sale.ID.String(), Amount: dec("1")})
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = f.sales.VoidSale(f.ctx, f.owner, sale.ID.String(), VoidSaleRequest{Reason: "test"})
	require.NoError(t, err)
	_, err = f.payments.CreatePayment(f.ctx, f.owner, CreatePaymentRequest{CustomerID: cust.ID.String(), SaleID: sale.ID.String(), Amount: dec("1")})
	assert.ErrorIs(t, err, ErrConflict)

	assert.Zero(t, f.count(t, &model.Payment{}, ""))
}

// openedAt records the clock when the first transaction begins.
type openedAt struct {
	repository.TransactionManager
	at time.Time
}

func (o *openedAt) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if o.at.IsZero() {
		o.at = clock()
	}
	return o.TransactionManager.RunInTx(ctx, fn)
}

func TestWorkflowsStampRowsInsideTransaction(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "S-1")
	cust := f.customer(t, "Tuti")

	tx := &openedAt{TransactionManager: f.repos.tx}
	sales := NewSaleService(f.repos.sale, f.repos.payment, f.repos.customer, f.repos.audit, f.ledger, f.sequences, tx, nil)
	sale, err := sales.CreateSale(f.ctx, f.owner, CreateSaleRequest{
		StoreID:    f.storeA.String(),
		CustomerID: cust.ID.String(),
		SaleType:   model.SaleTypePartial,
		LineItems:  []SaleLineItemRequest{{ProductID: p.ID.String(), Quantity: 1, UnitPrice: dec("8")}},
		AmountPaid: dec("5"),
	})
	require.NoError(t, err)
	assert.True(t, sale.SyncedAt.After(tx.at))
	require.Len(t, sale.Movements, 1)
	assert.True(t, sale.Movements[0].SyncedAt.After(tx.at))
	require.Len(t, sale.Payments, 1)
	assert.True(t, sale.Payments[0].SyncedAt.After(tx.at))

	tx = &openedAt{TransactionManager: f.repos.tx}
	payments := NewPaymentService(f.repos.payment, f.repos.sale, f.repos.customer, f.sequences, tx, nil)
	pay, err := payments.CreatePayment(f.ctx, f.owner, CreatePaymentRequest{CustomerID: cust.ID.String(), SaleID: sale.ID.String(), Amount: dec("3")})
	require.NoError(t, err)
	assert.True(t, pay.SyncedAt.After(tx.at))
}
