package service

import (
	"context"
	"encoding/json"
	"fmt"

	"legaldocs/internal/model"
	"legaldocs/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditEntry is what callers describe; Record turns it into an AuditLog row.
type AuditEntry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	VersionID  *uuid.UUID
	Details    map[string]interface{}
}

type AuditLogResponse struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	VersionID  string         `json:"version_id,omitempty"`
	Details    datatypes.JSON `json:"details,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

type AuditLogFilter struct {
	VersionID  string
	EntityType string
	ActorID    string
	Page       int
	Limit      int
}

type AuditService interface {
	// Record writes through the transaction carried by ctx, if any.
	Record(ctx context.Context, entry AuditEntry) error
	GetAuditLogs(ctx context.Context, filter AuditLogFilter) ([]AuditLogResponse, int64, error)
	Trail(ctx context.Context, versionID uuid.UUID) ([]model.AuditLog, error)
	CountForVersion(ctx context.Context, versionID uuid.UUID) (int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) error {
	var details datatypes.JSON
	if len(entry.Details) > 0 {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = datatypes.JSON(b)
	}
	row := &model.AuditLog{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		VersionID:  entry.VersionID,
		Details:    details,
	}
	if err := s.repo.Log(ctx, row); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *auditService) GetAuditLogs(ctx context.Context, filter AuditLogFilter) ([]AuditLogResponse, int64, error) {
	repoFilter := repository.AuditFilter{
		EntityType: filter.EntityType,
		ActorID:    filter.ActorID,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.VersionID != "" {
		id, err := uuid.Parse(filter.VersionID)
		if err != nil {
			return nil, 0, validationf("invalid version_id")
		}
		repoFilter.VersionID = &id
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}

	logs, total, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditResponse(l))
	}
	return res, total, nil
}

func (s *auditService) Trail(ctx context.Context, versionID uuid.UUID) ([]model.AuditLog, error) {
	return s.repo.ListByVersion(ctx, versionID)
}

func (s *auditService) CountForVersion(ctx context.Context, versionID uuid.UUID) (int64, error) {
	return s.repo.CountByVersion(ctx, versionID)
}

func toAuditResponse(l model.AuditLog) AuditLogResponse {
	versionID := ""
	if l.VersionID != nil {
		versionID = l.VersionID.String()
	}
	return AuditLogResponse{
		ID:         l.ID.String(),
		ActorID:    l.ActorID,
		Action:     l.Action,
		EntityType: l.EntityType,
		EntityID:   l.EntityID,
		VersionID:  versionID,
		Details:    l.Details,
		CreatedAt:  l.CreatedAt.Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
