package repository

import (
	"context"

	"legaldocs/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VersionRepository is append-only: there is no update beyond the status column and no delete.
type VersionRepository interface {
	Create(ctx context.Context, v *model.Version) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Version, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Version, error)
	MaxVersionNo(ctx context.Context, documentID uuid.UUID) (int, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]model.Version, error)
	// UpdateStatus moves a version from one status to another and reports
	// whether the row was still in the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.VersionStatus) (bool, error)
}

type versionRepository struct {
	db *gorm.DB
}

func NewVersionRepository(db *gorm.DB) VersionRepository {
	return &versionRepository{db: db}
}

func (r *versionRepository) Create(ctx context.Context, v *model.Version) error {
	return GetDB(ctx, r.db).Create(v).Error
}

func (r *versionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Version, error) {
	var v model.Version
	if err := GetDB(ctx, r.db).First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *versionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Version, error) {
	var v model.Version
	if err := forUpdate(GetDB(ctx, r.db)).First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *versionRepository) MaxVersionNo(ctx context.Context, documentID uuid.UUID) (int, error) {
	var max int
	err := GetDB(ctx, r.db).Model(&model.Version{}).
		Where("document_id = ?", documentID).
		Select("COALESCE(MAX(version_no), 0)").
		Scan(&max).Error
	return max, err
}

func (r *versionRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]model.Version, error) {
	var versions []model.Version
	err := GetDB(ctx, r.db).
		Where("document_id = ?", documentID).
		Order("version_no DESC").
		Find(&versions).Error
	return versions, err
}

func (r *versionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.VersionStatus) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Version{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
