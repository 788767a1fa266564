package repository

import (
	"context"

	"legaldocs/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRepository has no update or delete: decisions are appended.
type ApprovalRepository interface {
	Create(ctx context.Context, a *model.Approval) error
	// ListByVersion returns decisions oldest first, ties in insertion order.
	// An empty scope returns every scope.
	ListByVersion(ctx context.Context, versionID uuid.UUID, scope string) ([]model.Approval, error)
}

type approvalRepository struct {
	db *gorm.DB
}

func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

func (r *approvalRepository) Create(ctx context.Context, a *model.Approval) error {
	return GetDB(ctx, r.db).Create(a).Error
}

func (r *approvalRepository) ListByVersion(ctx context.Context, versionID uuid.UUID, scope string) ([]model.Approval, error) {
	var approvals []model.Approval
	q := GetDB(ctx, r.db).Where("version_id = ?", versionID)
	if scope != "" {
		q = q.Where("scope = ?", scope)
	}
	err := q.Order("created_at ASC").Order("id ASC").Find(&approvals).Error
	return approvals, err
}
