package repository

import (
	"context"

	"legaldocs/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentFilter struct {
	Type    string
	CaseRef string
	Search  string
	Page    int
	Limit   int
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	// FindByIDForUpdate row-locks the document for the rest of the transaction in ctx.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Document, error)
	List(ctx context.Context, filter DocumentFilter) ([]model.Document, int64, error)
	UpdateMeta(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	SetCurrentVersion(ctx context.Context, id, versionID uuid.UUID) error
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	return GetDB(ctx, r.db).Create(doc).Error
}

func (r *documentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := GetDB(ctx, r.db).Preload("CurrentVersion").First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var doc model.Document
	if err := forUpdate(GetDB(ctx, r.db)).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, filter DocumentFilter) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	db := GetDB(ctx, r.db)
	scoped := func(q *gorm.DB) *gorm.DB {
		if filter.Type != "" {
			q = q.Where("type = ?", filter.Type)
		}
		if filter.CaseRef != "" {
			q = q.Where("case_ref = ?", filter.CaseRef)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		return q
	}

	if err := scoped(db.Model(&model.Document{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := scoped(db.Preload("CurrentVersion")).
		Order("created_at DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *documentRepository) UpdateMeta(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := GetDB(ctx, r.db).Model(&model.Document{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *documentRepository) SetCurrentVersion(ctx context.Context, id, versionID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Document{}).
		Where("id = ?", id).
		Update("current_version_id", versionID).Error
}
