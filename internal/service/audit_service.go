package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"retail-backend/internal/model"
	"retail-backend/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Reason     string `json:"reason"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

// AuditLogQuery filters the audit log. Empty fields match everything.
type AuditLogQuery struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     string
	Since      *time.Time
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, scope model.Scope, q AuditLogQuery, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns a page of matching audit records, newest first. Owners only.
func (s *auditService) GetAuditLogs(ctx context.Context, scope model.Scope, q AuditLogQuery, page, limit int) ([]AuditLogResponse, int64, error) {
	if !scope.IsOwner() {
		return nil, 0, ErrAccessDenied
	}
	userID, err := parseOptionalID(q.UserID, "user_id")
	if err != nil {
		return nil, 0, err
	}

	logs, total, err := s.auditRepo.List(ctx, repository.AuditFilter{
		Action:     q.Action,
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		UserID:     userID,
		Since:      q.Since,
	}, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			Reason:     l.Reason,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}

// auditEntry describes one audit record written inside a workflow transaction.
type auditEntry struct {
	actor      uuid.UUID
	action     string
	entityType string
	entityID   uuid.UUID
	reason     string
	details    map[string]interface{}
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, entry auditEntry) error {
	details, err := json.Marshal(entry.details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	log := model.AuditLog{
		UserID:     uuidPtr(entry.actor),
		Action:     entry.action,
		EntityType: entry.entityType,
		EntityID:   entry.entityID.String(),
		Reason:     entry.reason,
		Details:    string(details),
		CreatedAt:  clock(),
	}
	if err := repo.Log(ctx, &log); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
