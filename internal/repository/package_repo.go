package repository

import (
	"context"

	"legaldocs/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PackageRepository interface {
	Create(ctx context.Context, p *model.ExportPackage) error
	FindByVersion(ctx context.Context, versionID uuid.UUID) (*model.ExportPackage, error)
	ExistsForVersion(ctx context.Context, versionID uuid.UUID) (bool, error)
}

type packageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) Create(ctx context.Context, p *model.ExportPackage) error {
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *packageRepository) FindByVersion(ctx context.Context, versionID uuid.UUID) (*model.ExportPackage, error) {
	var p model.ExportPackage
	if err := GetDB(ctx, r.db).First(&p, "version_id = ?", versionID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *packageRepository) ExistsForVersion(ctx context.Context, versionID uuid.UUID) (bool, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.ExportPackage{}).Where("version_id = ?", versionID).Count(&n).Error
	return n > 0, err
}
