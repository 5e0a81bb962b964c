package handler

import (
	"net/http"
	"time"

	"retail-backend/internal/middleware"
	"retail-backend/internal/service"
	"retail-backend/pkg/pagination"
	"retail-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory")
	{
		inventory.GET("/events", h.ListStockEvents)
		inventory.POST("/events", h.RecordStockEvent)
		inventory.GET("/stores/:storeId", h.GetStoreInventory)
		inventory.GET("/stores/:storeId/products/:productId", h.GetProductInventory)
	}
}

// parseTimeQuery reads an optional RFC 3339 query parameter. It writes a 400
// and reports false when the value is present but malformed.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Invalid(http.StatusBadRequest, "Invalid "+key+" timestamp", []string{key}))
		return nil, false
	}
	return &t, true
}

// RecordStockEvent godoc
// @Summary      Append stock event
// @Description  Appends a RECEIVE, TRANSFER or ADJUSTMENT movement to the ledger. ADJUSTMENT is owner only.
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateStockEventRequest  true  "Stock event"
// @Success      201      {object}  response.Response{data=model.StockEvent}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/inventory/events [post]
func (h *InventoryHandler) RecordStockEvent(c *gin.Context) {
	var req service.CreateStockEventRequest
	if !bindJSON(c, &req) {
		return
	}

	event, err := h.inventoryService.RecordStockEvent(c.Request.Context(), middleware.ScopeFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, event))
}

// ListStockEvents godoc
// @Summary      List stock events
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        store_id    query     string  false  "Store filter"
// @Param        product_id  query     string  false  "Product filter"
// @Param        event_type  query     string  false  "RECEIVE, SALE, ADJUSTMENT or TRANSFER"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.Paged}
// @Failure      400         {object}  response.Response
// @Router       /api/inventory/events [get]
func (h *InventoryHandler) ListStockEvents(c *gin.Context) {
	p := pagination.Parse(c)
	q := service.StockEventQuery{
		StoreID:   c.Query("store_id"),
		ProductID: c.Query("product_id"),
		EventType: c.Query("event_type"),
	}

	events, total, err := h.inventoryService.ListStockEvents(c.Request.Context(), middleware.ScopeFrom(c), q, p.Page, p.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.Paged{
		Items: events,
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
	}))
}

// GetStoreInventory godoc
// @Summary      Store stock snapshot
// @Description  Folds the ledger into on-hand quantities per product, optionally as of a point in time
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        storeId  path      string  true   "Store ID"
// @Param        as_of    query     string  false  "RFC 3339 timestamp"
// @Success      200      {object}  response.Response{data=[]model.InventorySnapshot}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/inventory/stores/{storeId} [get]
func (h *InventoryHandler) GetStoreInventory(c *gin.Context) {
	asOf, ok := parseTimeQuery(c, "as_of")
	if !ok {
		return
	}

	snapshot, err := h.inventoryService.GetStoreInventory(c.Request.Context(), middleware.ScopeFrom(c), c.Param("storeId"), asOf)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, snapshot))
}

// GetProductInventory godoc
// @Summary      Product stock in a store
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        storeId    path      string  true   "Store ID"
// @Param        productId  path      string  true   "Product ID"
// @Param        as_of      query     string  false  "RFC 3339 timestamp"
// @Success      200        {object}  response.Response{data=service.ProductInventoryResponse}
// @Failure      400        {object}  response.Response
// @Failure      403        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /api/inventory/stores/{storeId}/products/{productId} [get]
func (h *InventoryHandler) GetProductInventory(c *gin.Context) {
	asOf, ok := parseTimeQuery(c, "as_of")
	if !ok {
		return
	}

	result, err := h.inventoryService.GetProductInventory(c.Request.Context(), middleware.ScopeFrom(c), c.Param("storeId"), c.Param("productId"), asOf)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
