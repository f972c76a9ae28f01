package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/policy"
	"backoffice/internal/repository"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	UserName   string          `json:"user_name"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  string          `json:"created_at"`
}

type AuditListRequest struct {
	Search string
	Action string
	Page   int
	Limit  int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, req AuditListRequest) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

// GetAuditLogs returns one page of entries, newest first, with the acting user loaded
func (s *auditService) GetAuditLogs(ctx context.Context, req AuditListRequest) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, repository.AuditListFilter{
		ListOptions: repository.ListOptions{
			Search: req.Search,
			Offset: (req.Page - 1) * req.Limit,
			Limit:  req.Limit,
		},
		Action: req.Action,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userName := "System"
		userID := ""
		if l.User != nil {
			userName = l.User.Name
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		details := json.RawMessage(l.Details)
		if len(details) == 0 {
			details = json.RawMessage("{}")
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			UserName:   userName,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    details,
			CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}

// logAudit records an action inside the caller's transaction. A nil actor
// marks a system action.
func logAudit(ctx context.Context, repo repository.AuditRepository, actor *policy.Actor, action, entityID, entityName string, details interface{}) error {
	if repo == nil {
		return nil
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if actor != nil && actor.UserID != uuid.Nil {
		uid := actor.UserID
		entry.UserID = &uid
	}
	if err := repo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}
