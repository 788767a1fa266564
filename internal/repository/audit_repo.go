package repository

import (
	"context"

	"legaldocs/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditFilter struct {
	VersionID  *uuid.UUID
	EntityType string
	ActorID    string
	Page       int
	Limit      int
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error)
	// ListByVersion returns a version's trail oldest first.
	ListByVersion(ctx context.Context, versionID uuid.UUID) ([]model.AuditLog, error)
	CountByVersion(ctx context.Context, versionID uuid.UUID) (int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	db := GetDB(ctx, r.db)
	scoped := func(q *gorm.DB) *gorm.DB {
		if filter.VersionID != nil {
			q = q.Where("version_id = ?", *filter.VersionID)
		}
		if filter.EntityType != "" {
			q = q.Where("entity_type = ?", filter.EntityType)
		}
		if filter.ActorID != "" {
			q = q.Where("actor_id = ?", filter.ActorID)
		}
		return q
	}

	if err := scoped(db.Model(&model.AuditLog{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := scoped(db).
		Order("created_at desc").
		Offset(pageOffset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

func (r *auditRepository) ListByVersion(ctx context.Context, versionID uuid.UUID) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	err := GetDB(ctx, r.db).
		Where("version_id = ?", versionID).
		Order("created_at asc").
		Find(&logs).Error
	return logs, err
}

func (r *auditRepository) CountByVersion(ctx context.Context, versionID uuid.UUID) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.AuditLog{}).Where("version_id = ?", versionID).Count(&n).Error
	return n, err
}
