package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retail-backend/internal/database/dbtest"
	"retail-backend/internal/middleware"
	"retail-backend/internal/model"
	"retail-backend/internal/repository"
	"retail-backend/internal/service"
	"retail-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	db      *gorm.DB
	store   uuid.UUID
	product model.Product
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := dbtest.New(t)
	p := model.Product{ID: uuid.New(), SKU: "H-1", Name: "Kopi", RetailPrice: decimal.NewFromInt(10), IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	return &testAPI{db: db, store: uuid.New(), product: p}
}

// router mounts every handler behind a fixed caller scope.
func (a *testAPI) router(scope model.Scope) *gin.Engine {
	txManager := repository.NewTransactionManager(a.db)
	customerRepo := repository.NewCustomerRepository(a.db)
	productRepo := repository.NewProductRepository(a.db)
	saleRepo := repository.NewSaleRepository(a.db)
	paymentRepo := repository.NewPaymentRepository(a.db)
	eventRepo := repository.NewStockEventRepository(a.db)
	approvalRepo := repository.NewApprovalRepository(a.db)
	auditRepo := repository.NewAuditRepository(a.db)
	ledger := service.NewLedger(eventRepo, productRepo)
	sequences := service.NewSequenceGenerator(repository.NewSequenceRepository(a.db), txManager)

	r := gin.New()
	api := r.Group("")
	api.Use(middleware.WithScope(scope))
	NewSyncHandler(service.NewSyncService(customerRepo, saleRepo, paymentRepo, productRepo, eventRepo, ledger, sequences, txManager, nil, nil)).RegisterRoutes(api)
	NewSaleHandler(service.NewSaleService(saleRepo, paymentRepo, customerRepo, auditRepo, ledger, sequences, txManager, nil)).RegisterRoutes(api)
	NewPaymentHandler(service.NewPaymentService(paymentRepo, saleRepo, customerRepo, sequences, txManager, nil)).RegisterRoutes(api)
	NewInventoryHandler(service.NewInventoryService(ledger, eventRepo, auditRepo, txManager, nil)).RegisterRoutes(api)
	NewApprovalHandler(service.NewApprovalService(approvalRepo, auditRepo, ledger, txManager, nil)).RegisterRoutes(api)
	NewAuditHandler(service.NewAuditService(auditRepo)).RegisterRoutes(api)
	NewCustomerHandler(service.NewCustomerService(customerRepo, saleRepo, paymentRepo, txManager, nil)).RegisterRoutes(api)
	return r
}

func (a *testAPI) owner() model.Scope {
	return model.Scope{UserID: uuid.New(), Role: model.RoleOwner}
}

func (a *testAPI) manager() model.Scope {
	store := a.store
	return model.Scope{UserID: uuid.New(), Role: model.RoleStoreManager, StoreID: &store}
}

func send(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	w := send(t, r, method, path, body)
	var res response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return w, res
}

// decodeData re-decodes the data member of an envelope into dst.
func decodeData(t *testing.T, res response.Response, dst interface{}) {
	t.Helper()
	raw, err := json.Marshal(res.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func TestWriteErrorStatusCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&service.ValidationError{Message: "bad", Fields: []string{"x"}}, http.StatusBadRequest},
		{fmt.Errorf("store: %w", service.ErrAccessDenied), http.StatusForbidden},
		{fmt.Errorf("sale: %w", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("void: %w", service.ErrConflict), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, errors.New("connection reset"))
	assert.NotContains(t, w.Body.String(), "connection reset")
	assert.Len(t, c.Errors, 1)
}

func TestSaleEndpoints(t *testing.T) {
	a := newTestAPI(t)
	mgr := a.router(a.manager())

	w, res := do(t, mgr, http.MethodPost, "/api/sales", gin.H{
		"store_id":   a.store.String(),
		"sale_type":  "CASH",
		"line_items": []gin.H{{"product_id": a.product.ID.String(), "quantity": 2, "unit_price": "10"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sale service.SaleResponse
	decodeData(t, res, &sale)
	assert.Equal(t, "20", sale.TotalAmount.String())

	w, _ = do(t, mgr, http.MethodGet, "/api/sales/"+sale.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, mgr, http.MethodPost, "/api/sales/"+sale.ID.String()+"/void", gin.H{"reason": "oops"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	owner := a.router(a.owner())
	w, _ = do(t, owner, http.MethodPost, "/api/sales/"+sale.ID.String()+"/void", gin.H{"reason": "oops"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, owner, http.MethodPost, "/api/sales/"+sale.ID.String()+"/void", gin.H{"reason": "oops"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, res = do(t, mgr, http.MethodPost, "/api/sales", gin.H{"store_id": a.store.String(), "sale_type": "CREDIT",
		"line_items": []gin.H{{"product_id": a.product.ID.String(), "quantity": 1, "unit_price": "1"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"customer_id"}, res.Fields)

	w, _ = do(t, mgr, http.MethodPost, "/api/sales", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncEndpoints(t *testing.T) {
	a := newTestAPI(t)
	mgr := a.router(a.manager())

	batch := gin.H{
		"stock_events": []gin.H{
			{"id": uuid.NewString(), "event_type": "RECEIVE", "product_id": a.product.ID.String(), "store_id": a.store.String(), "quantity": 5},
			{"id": uuid.NewString(), "event_type": "RECEIVE", "product_id": a.product.ID.String(), "store_id": a.store.String(), "quantity": 0},
		},
	}
	w := send(t, mgr, http.MethodPost, "/api/sync/push", batch)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pushed service.PushResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pushed))
	assert.Equal(t, "Sync completed", pushed.Message)
	assert.Equal(t, 1, pushed.Results.StockEvents.Success)
	assert.Equal(t, 1, pushed.Results.StockEvents.Failed)

	// Terminals read results and timestamp at the top level.
	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &top))
	assert.Contains(t, top, "results")
	assert.Contains(t, top, "timestamp")
	assert.NotContains(t, top, "data")

	w = send(t, mgr, http.MethodGet, "/api/sync/pull?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var pulled service.PullResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pulled))
	assert.Len(t, pulled.StockEvents, 1)
	assert.Len(t, pulled.Products, 1)
	assert.False(t, pulled.HasMore)

	since := pulled.Timestamp.Format(time.RFC3339Nano)
	w = send(t, mgr, http.MethodGet, "/api/sync/pull?since="+since, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pulled = service.PullResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pulled))
	assert.Empty(t, pulled.StockEvents)

	w, res := do(t, mgr, http.MethodGet, "/api/sync/pull?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"since"}, res.Fields)

	w, _ = do(t, mgr, http.MethodGet, "/api/sync/pull?cursor=garbage!", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInventoryAndApprovalEndpoints(t *testing.T) {
	a := newTestAPI(t)
	mgr := a.router(a.manager())
	owner := a.router(a.owner())

	w, _ := do(t, mgr, http.MethodPost, "/api/inventory/events", gin.H{
		"event_type": "RECEIVE", "product_id": a.product.ID.String(), "store_id": a.store.String(), "quantity": 8,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = do(t, mgr, http.MethodPost, "/api/inventory/events", gin.H{
		"event_type": "ADJUSTMENT", "product_id": a.product.ID.String(), "store_id": a.store.String(), "quantity": -1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, res := do(t, mgr, http.MethodPost, "/api/approvals", gin.H{
		"store_id": a.store.String(), "product_id": a.product.ID.String(), "requested_quantity": -3, "reason": "broken",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var approval service.ApprovalRequestResponse
	decodeData(t, res, &approval)

	w, _ = do(t, mgr, http.MethodPost, "/api/approvals/"+approval.ID+"/approve", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = do(t, owner, http.MethodPost, "/api/approvals/"+approval.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = do(t, owner, http.MethodPost, "/api/approvals/"+approval.ID+"/approve", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, res = do(t, mgr, http.MethodGet, "/api/approvals?status=APPROVED", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page response.Paged
	decodeData(t, res, &page)
	assert.Equal(t, int64(1), page.Total)

	w, res = do(t, mgr, http.MethodGet, fmt.Sprintf("/api/inventory/stores/%s/products/%s", a.store, a.product.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var inv service.ProductInventoryResponse
	decodeData(t, res, &inv)
	assert.Equal(t, 5, inv.OnHandQty)
	assert.Len(t, inv.RecentMovements, 2)

	w, _ = do(t, mgr, http.MethodGet, "/api/inventory/stores/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = do(t, mgr, http.MethodGet, "/api/inventory/stores/"+a.store.String()+"?as_of=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, res = do(t, mgr, http.MethodGet, "/api/inventory/events?event_type=ADJUSTMENT", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, res, &page)
	assert.Equal(t, int64(1), page.Total)

	w, _ = do(t, mgr, http.MethodGet, "/api/audit-logs", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, res = do(t, owner, http.MethodGet, "/api/audit-logs?page=1&limit=5&action=APPROVAL_APPROVED&entity_type=approval_request", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, res, &page)
	assert.Equal(t, int64(1), page.Total)
	w, res = do(t, owner, http.MethodGet, "/api/audit-logs?action=SALE_VOID", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, res, &page)
	assert.Equal(t, int64(0), page.Total)
	w, _ = do(t, owner, http.MethodGet, "/api/audit-logs?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentEndpoint(t *testing.T) {
	a := newTestAPI(t)
	cust := model.Customer{ID: uuid.New(), Name: "Wati", IsActive: true}
	require.NoError(t, a.db.Create(&cust).Error)
	mgr := a.router(a.manager())

	w, res := do(t, mgr, http.MethodPost, "/api/payments", gin.H{"customer_id": cust.ID.String(), "amount": "7.5"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pay service.PaymentResponse
	decodeData(t, res, &pay)
	assert.Equal(t, "Wati", pay.CustomerName)
	assert.Equal(t, "7.5", pay.Amount.String())

	w, _ = do(t, mgr, http.MethodPost, "/api/payments", gin.H{"customer_id": uuid.NewString(), "amount": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCustomerEndpoints(t *testing.T) {
	a := newTestAPI(t)
	mgr := a.router(a.manager())

	w, res := do(t, mgr, http.MethodPost, "/api/customers", gin.H{"name": "Yanti", "phone": "0813"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cust model.Customer
	decodeData(t, res, &cust)
	assert.True(t, cust.IsActive)

	w, res = do(t, mgr, http.MethodPost, "/api/customers", gin.H{"phone": "0813"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"name"}, res.Fields)

	w, res = do(t, mgr, http.MethodPatch, "/api/customers/"+cust.ID.String(), gin.H{"address": "Jl. Melati 4"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.Customer
	decodeData(t, res, &updated)
	assert.Equal(t, "Jl. Melati 4", updated.Address)
	assert.Equal(t, "Yanti", updated.Name)

	w, _ = do(t, mgr, http.MethodPatch, "/api/customers/"+cust.ID.String(), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = do(t, mgr, http.MethodPatch, "/api/customers/"+uuid.NewString(), gin.H{"notes": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, mgr, http.MethodPost, "/api/sales", gin.H{
		"store_id": a.store.String(), "customer_id": cust.ID.String(), "sale_type": "CREDIT",
		"line_items": []gin.H{{"product_id": a.product.ID.String(), "quantity": 3, "unit_price": "4"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, res = do(t, mgr, http.MethodGet, "/api/customers/"+cust.ID.String()+"/ledger", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ledger service.CustomerLedgerResponse
	decodeData(t, res, &ledger)
	assert.Len(t, ledger.Sales, 1)
	assert.Equal(t, "12", ledger.Totals.TotalDue.String())

	w, res = do(t, mgr, http.MethodGet, "/api/customers/"+cust.ID.String()+"/aging", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var aging service.AgingBuckets
	decodeData(t, res, &aging)
	assert.Equal(t, "12", aging.Days0To7.String())

	w, res = do(t, mgr, http.MethodGet, "/api/customers?search=yan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Customer
	decodeData(t, res, &list)
	require.Len(t, list, 1)
	assert.Equal(t, cust.ID, list[0].ID)
}
