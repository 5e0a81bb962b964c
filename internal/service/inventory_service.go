package service

import (
	"context"
	"fmt"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

const recentMovementsLimit = 50

// --- DTOs ---

type CreateStockEventRequest struct {
	EventType string `json:"event_type" validate:"required,oneof=RECEIVE ADJUSTMENT TRANSFER"`
	ProductID string `json:"product_id" validate:"required,uuid"`
	StoreID   string `json:"store_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required"`
	Notes     string `json:"notes" validate:"max=2000"`
}

type StockEventQuery struct {
	StoreID   string
	ProductID string
	EventType string
}

type ProductInventoryResponse struct {
	model.InventorySnapshot
	RecentMovements []model.StockEvent `json:"recent_movements"`
}

// --- Interface ---

type InventoryService interface {
	RecordStockEvent(ctx context.Context, scope model.Scope, req CreateStockEventRequest) (model.StockEvent, error)
	ListStockEvents(ctx context.Context, scope model.Scope, q StockEventQuery, page, limit int) ([]model.StockEvent, int64, error)
	GetStoreInventory(ctx context.Context, scope model.Scope, storeID string, asOf *time.Time) ([]model.InventorySnapshot, error)
	GetProductInventory(ctx context.Context, scope model.Scope, storeID, productID string, asOf *time.Time) (ProductInventoryResponse, error)
}

type inventoryService struct {
	ledger    *Ledger
	eventRepo repository.StockEventRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	notifier  Notifier
}

func NewInventoryService(
	ledger *Ledger,
	eventRepo repository.StockEventRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notifier Notifier,
) InventoryService {
	return &inventoryService{
		ledger:    ledger,
		eventRepo: eventRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		notifier:  notifierOrNoop(notifier),
	}
}

// --- Implementation ---

// RecordStockEvent appends a direct movement. ADJUSTMENT is reserved for
// owners; store managers request adjustments through approvals.
func (s *inventoryService) RecordStockEvent(ctx context.Context, scope model.Scope, req CreateStockEventRequest) (model.StockEvent, error) {
	if err := validateStruct(req); err != nil {
		return model.StockEvent{}, err
	}
	storeID, err := parseID(req.StoreID, "store_id")
	if err != nil {
		return model.StockEvent{}, err
	}
	productID, err := parseID(req.ProductID, "product_id")
	if err != nil {
		return model.StockEvent{}, err
	}
	if !scope.CanAccessStore(storeID) {
		return model.StockEvent{}, ErrAccessDenied
	}
	if req.EventType == model.EventTypeAdjustment && !scope.IsOwner() {
		return model.StockEvent{}, fmt.Errorf("adjustments require owner approval: %w", ErrAccessDenied)
	}

	event := model.StockEvent{
		EventType: req.EventType,
		ProductID: productID,
		StoreID:   storeID,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
		CreatedBy: uuidPtr(scope.UserID),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ledger.ensureProducts(txCtx, []uuid.UUID{productID}); err != nil {
			return err
		}
		if err := s.ledger.Append(txCtx, &event); err != nil {
			return err
		}
		if event.EventType != model.EventTypeAdjustment {
			return nil
		}
		return writeAudit(txCtx, s.auditRepo, auditEntry{
			actor:      scope.UserID,
			action:     model.ActionStockAdjustment,
			entityType: model.EntityStockEvent,
			entityID:   event.ID,
			reason:     req.Notes,
			details: map[string]interface{}{
				"product_id": productID,
				"store_id":   storeID,
				"quantity":   req.Quantity,
			},
		})
	})
	if err != nil {
		return model.StockEvent{}, err
	}

	s.notifier.Notify(NoticeStockAppended, &storeID)
	return event, nil
}

func (s *inventoryService) ListStockEvents(ctx context.Context, scope model.Scope, q StockEventQuery, page, limit int) ([]model.StockEvent, int64, error) {
	var filter repository.StockEventFilter
	storeID, err := parseOptionalID(q.StoreID, "store_id")
	if err != nil {
		return nil, 0, err
	}
	productID, err := parseOptionalID(q.ProductID, "product_id")
	if err != nil {
		return nil, 0, err
	}
	if q.EventType != "" && !model.ValidEventType(q.EventType) {
		return nil, 0, newValidationError("unknown event type", "event_type")
	}

	switch {
	case storeID != nil && !scope.CanAccessStore(*storeID):
		return nil, 0, ErrAccessDenied
	case storeID != nil:
		filter.StoreID = storeID
	default:
		filter.StoreID = scope.StoreFilter()
	}
	filter.ProductID = productID
	filter.EventType = q.EventType

	events, total, err := s.eventRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock events: %w", err)
	}
	return events, total, nil
}

func (s *inventoryService) GetStoreInventory(ctx context.Context, scope model.Scope, storeID string, asOf *time.Time) ([]model.InventorySnapshot, error) {
	id, err := parseID(storeID, "store_id")
	if err != nil {
		return nil, err
	}
	if !scope.CanAccessStore(id) {
		return nil, ErrAccessDenied
	}
	return s.ledger.StoreSnapshot(ctx, id, asOf)
}

func (s *inventoryService) GetProductInventory(ctx context.Context, scope model.Scope, storeID, productID string, asOf *time.Time) (ProductInventoryResponse, error) {
	sid, err := parseID(storeID, "store_id")
	if err != nil {
		return ProductInventoryResponse{}, err
	}
	pid, err := parseID(productID, "product_id")
	if err != nil {
		return ProductInventoryResponse{}, err
	}
	if !scope.CanAccessStore(sid) {
		return ProductInventoryResponse{}, ErrAccessDenied
	}

	snap, err := s.ledger.OnHand(ctx, pid, sid, asOf)
	if err != nil {
		return ProductInventoryResponse{}, err
	}
	recent, err := s.eventRepo.RecentForPair(ctx, pid, sid, recentMovementsLimit)
	if err != nil {
		return ProductInventoryResponse{}, fmt.Errorf("failed to read movements: %w", err)
	}
	return ProductInventoryResponse{InventorySnapshot: snap, RecentMovements: recent}, nil
}
