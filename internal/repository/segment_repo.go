package repository

import (
	"context"

	"legaldocs/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SegmentRepository interface {
	CreateBatch(ctx context.Context, segments []model.Segment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Segment, error)
	ListByVersion(ctx context.Context, versionID uuid.UUID) ([]model.Segment, error)
	CountByVersion(ctx context.Context, versionID uuid.UUID) (int64, error)
}

type segmentRepository struct {
	db *gorm.DB
}

func NewSegmentRepository(db *gorm.DB) SegmentRepository {
	return &segmentRepository{db: db}
}

const segmentBatchSize = 200

func (r *segmentRepository) CreateBatch(ctx context.Context, segments []model.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).CreateInBatches(segments, segmentBatchSize).Error
}

func (r *segmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Segment, error) {
	var s model.Segment
	if err := GetDB(ctx, r.db).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *segmentRepository) ListByVersion(ctx context.Context, versionID uuid.UUID) ([]model.Segment, error) {
	var segments []model.Segment
	err := GetDB(ctx, r.db).
		Where("version_id = ?", versionID).
		Order("seq ASC").
		Find(&segments).Error
	return segments, err
}

func (r *segmentRepository) CountByVersion(ctx context.Context, versionID uuid.UUID) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Segment{}).Where("version_id = ?", versionID).Count(&n).Error
	return n, err
}
