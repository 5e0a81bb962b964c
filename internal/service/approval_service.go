package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateApprovalRequestDTO struct {
	RequestType       string `json:"request_type" validate:"omitempty,oneof=INVENTORY_ADJUSTMENT"`
	StoreID           string `json:"store_id" validate:"required,uuid"`
	ProductID         string `json:"product_id" validate:"required,uuid"`
	RequestedQuantity int    `json:"requested_quantity" validate:"required"`
	Reason            string `json:"reason" validate:"required"`
}

type ApprovalFilter struct {
	Status  string // PENDING, APPROVED, REJECTED or empty for all
	StoreID string
	Page    int
	Limit   int
}

type ReviewRequestDTO struct {
	Notes string `json:"notes"`
}

type ApprovalRequestResponse struct {
	ID                string  `json:"id"`
	RequestType       string  `json:"request_type"`
	StoreID           string  `json:"store_id"`
	ProductID         string  `json:"product_id"`
	RequestedQuantity int     `json:"requested_quantity"`
	Reason            string  `json:"reason"`
	Status            string  `json:"status"`
	RequestedBy       string  `json:"requested_by"`
	ReviewedBy        *string `json:"reviewed_by"`
	ReviewedAt        *string `json:"reviewed_at"`
	ReviewNotes       string  `json:"review_notes"`
	CreatedAt         string  `json:"created_at"`
}

// --- Interface ---

type ApprovalService interface {
	CreateApprovalRequest(ctx context.Context, scope model.Scope, req CreateApprovalRequestDTO) (ApprovalRequestResponse, error)
	ListApprovalRequests(ctx context.Context, scope model.Scope, filter ApprovalFilter) ([]ApprovalRequestResponse, int64, error)
	ApproveRequest(ctx context.Context, scope model.Scope, id string, req ReviewRequestDTO) (ApprovalRequestResponse, error)
	RejectRequest(ctx context.Context, scope model.Scope, id string, req ReviewRequestDTO) (ApprovalRequestResponse, error)
}

type approvalService struct {
	approvalRepo repository.ApprovalRepository
	auditRepo    repository.AuditRepository
	ledger       *Ledger
	txManager    repository.TransactionManager
	notifier     Notifier
}

func NewApprovalService(
	approvalRepo repository.ApprovalRepository,
	auditRepo repository.AuditRepository,
	ledger *Ledger,
	txManager repository.TransactionManager,
	notifier Notifier,
) ApprovalService {
	return &approvalService{
		approvalRepo: approvalRepo,
		auditRepo:    auditRepo,
		ledger:       ledger,
		txManager:    txManager,
		notifier:     notifierOrNoop(notifier),
	}
}

// --- Implementation ---

func (s *approvalService) CreateApprovalRequest(ctx context.Context, scope model.Scope, req CreateApprovalRequestDTO) (ApprovalRequestResponse, error) {
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateStruct(req); err != nil {
		return ApprovalRequestResponse{}, err
	}
	storeID, err := parseID(req.StoreID, "store_id")
	if err != nil {
		return ApprovalRequestResponse{}, err
	}
	productID, err := parseID(req.ProductID, "product_id")
	if err != nil {
		return ApprovalRequestResponse{}, err
	}
	if !scope.CanAccessStore(storeID) {
		return ApprovalRequestResponse{}, fmt.Errorf("store %s: %w", storeID, ErrAccessDenied)
	}

	now := clock()
	approval := model.ApprovalRequest{
		ID:                uuid.New(),
		RequestType:       model.ApprovalTypeInventoryAdjustment,
		StoreID:           storeID,
		ProductID:         productID,
		RequestedQuantity: req.RequestedQuantity,
		Reason:            req.Reason,
		Status:            model.ApprovalStatusPending,
		RequestedBy:       scope.UserID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.RequestType != "" {
		approval.RequestType = req.RequestType
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ledger.ensureProducts(txCtx, []uuid.UUID{productID}); err != nil {
			return err
		}
		if err := s.approvalRepo.Create(txCtx, &approval); err != nil {
			return fmt.Errorf("failed to create approval request: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, auditEntry{
			actor:      scope.UserID,
			action:     model.ActionApprovalCreated,
			entityType: model.EntityApprovalRequest,
			entityID:   approval.ID,
			reason:     approval.Reason,
			details: map[string]interface{}{
				"store_id":           storeID,
				"product_id":         productID,
				"requested_quantity": approval.RequestedQuantity,
			},
		})
	})
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	s.notifier.Notify(NoticeApprovalCreated, &storeID)
	return s.load(ctx, approval.ID)
}

func (s *approvalService) ListApprovalRequests(ctx context.Context, scope model.Scope, filter ApprovalFilter) ([]ApprovalRequestResponse, int64, error) {
	switch filter.Status {
	case "", model.ApprovalStatusPending, model.ApprovalStatusApproved, model.ApprovalStatusRejected:
	default:
		return nil, 0, newValidationError("unknown approval status", "status")
	}

	repoFilter := repository.ApprovalFilter{Status: filter.Status, StoreID: scope.StoreFilter()}
	if scope.IsOwner() && filter.StoreID != "" {
		storeID, err := parseID(filter.StoreID, "store_id")
		if err != nil {
			return nil, 0, err
		}
		repoFilter.StoreID = &storeID
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	approvals, total, err := s.approvalRepo.List(ctx, repoFilter, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch approval requests: %w", err)
	}

	result := make([]ApprovalRequestResponse, 0, len(approvals))
	for _, a := range approvals {
		result = append(result, toApprovalResponse(a))
	}
	return result, total, nil
}

// ApproveRequest moves a PENDING request to APPROVED and appends the
// adjustment it asked for. Only one review of a request can ever succeed.
func (s *approvalService) ApproveRequest(ctx context.Context, scope model.Scope, id string, req ReviewRequestDTO) (ApprovalRequestResponse, error) {
	approvalID, err := s.checkReviewer(scope, id)
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	var storeID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		approval, err := s.transition(txCtx, approvalID, model.ApprovalStatusApproved, scope.UserID, req.Notes)
		if err != nil {
			return err
		}
		storeID = approval.StoreID

		event := model.StockEvent{
			EventType:     model.EventTypeAdjustment,
			ProductID:     approval.ProductID,
			StoreID:       approval.StoreID,
			Quantity:      approval.RequestedQuantity,
			ReferenceType: strPtr(model.RefTypeApprovalRequest),
			ReferenceID:   uuidPtr(approval.ID),
			Notes:         approval.Reason,
			CreatedBy:     uuidPtr(scope.UserID),
		}
		if err := s.ledger.Append(txCtx, &event); err != nil {
			return err
		}

		return writeAudit(txCtx, s.auditRepo, auditEntry{
			actor:      scope.UserID,
			action:     model.ActionApprovalApproved,
			entityType: model.EntityApprovalRequest,
			entityID:   approval.ID,
			reason:     req.Notes,
			details: map[string]interface{}{
				"stock_event_id":     event.ID,
				"requested_quantity": approval.RequestedQuantity,
			},
		})
	})
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	s.notifier.Notify(NoticeApprovalReviewed, &storeID)
	s.notifier.Notify(NoticeStockAppended, &storeID)
	return s.load(ctx, approvalID)
}

// RejectRequest closes a PENDING request without touching stock.
func (s *approvalService) RejectRequest(ctx context.Context, scope model.Scope, id string, req ReviewRequestDTO) (ApprovalRequestResponse, error) {
	approvalID, err := s.checkReviewer(scope, id)
	if err != nil {
		return ApprovalRequestResponse{}, err
	}
	req.Notes = strings.TrimSpace(req.Notes)
	if req.Notes == "" {
		return ApprovalRequestResponse{}, newValidationError("notes required when rejecting", "notes")
	}

	var storeID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		approval, err := s.transition(txCtx, approvalID, model.ApprovalStatusRejected, scope.UserID, req.Notes)
		if err != nil {
			return err
		}
		storeID = approval.StoreID

		return writeAudit(txCtx, s.auditRepo, auditEntry{
			actor:      scope.UserID,
			action:     model.ActionApprovalRejected,
			entityType: model.EntityApprovalRequest,
			entityID:   approval.ID,
			reason:     req.Notes,
		})
	})
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	s.notifier.Notify(NoticeApprovalReviewed, &storeID)
	return s.load(ctx, approvalID)
}

func (s *approvalService) checkReviewer(scope model.Scope, id string) (uuid.UUID, error) {
	if !scope.IsOwner() {
		return uuid.Nil, fmt.Errorf("reviewing approvals: %w", ErrAccessDenied)
	}
	return parseID(id, "id")
}

// transition applies a conditional PENDING -> status update. Losing a race
// with another reviewer surfaces as ErrConflict, like reviewing a closed request.
func (s *approvalService) transition(ctx context.Context, id uuid.UUID, status string, reviewer uuid.UUID, notes string) (*model.ApprovalRequest, error) {
	approval, err := s.approvalRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "approval request", id)
	}
	if approval.Status != model.ApprovalStatusPending {
		return nil, fmt.Errorf("approval request is already %s: %w", approval.Status, ErrConflict)
	}

	ok, err := s.approvalRepo.Review(ctx, id, status, reviewer, notes, clock())
	if err != nil {
		return nil, fmt.Errorf("failed to update approval request: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("approval request was reviewed concurrently: %w", ErrConflict)
	}
	return approval, nil
}

func (s *approvalService) load(ctx context.Context, id uuid.UUID) (ApprovalRequestResponse, error) {
	approval, err := s.approvalRepo.FindByID(ctx, id)
	if err != nil {
		return ApprovalRequestResponse{}, lookupErr(err, "approval request", id)
	}
	return toApprovalResponse(*approval), nil
}

func toApprovalResponse(a model.ApprovalRequest) ApprovalRequestResponse {
	res := ApprovalRequestResponse{
		ID:                a.ID.String(),
		RequestType:       a.RequestType,
		StoreID:           a.StoreID.String(),
		ProductID:         a.ProductID.String(),
		RequestedQuantity: a.RequestedQuantity,
		Reason:            a.Reason,
		Status:            a.Status,
		RequestedBy:       a.RequestedBy.String(),
		ReviewNotes:       a.ReviewNotes,
		CreatedAt:         a.CreatedAt.Format(time.RFC3339),
	}
	if a.ReviewedBy != nil {
		s := a.ReviewedBy.String()
		res.ReviewedBy = &s
	}
	if a.ReviewedAt != nil {
		s := a.ReviewedAt.Format(time.RFC3339)
		res.ReviewedAt = &s
	}
	return res
}
