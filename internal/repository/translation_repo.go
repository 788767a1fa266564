package repository

import (
	"context"
	"time"

	"legaldocs/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TranslationRepository interface {
	// Upsert inserts or overwrites the (segment_id, target_lang) row in one statement
	// and returns the stored row.
	Upsert(ctx context.Context, t *model.SegmentTranslation) (*model.SegmentTranslation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.SegmentTranslation, error)
	FindBySegmentLang(ctx context.Context, segmentID uuid.UUID, lang string) (*model.SegmentTranslation, error)
	ListByVersion(ctx context.Context, versionID uuid.UUID, lang string) ([]model.SegmentTranslation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.TranslationStatus, reviewer string) (bool, error)
	// LastUpdatedAt returns the newest updated_at among a version's translations
	// into lang, or nil when there are none. Only text writes move updated_at.
	LastUpdatedAt(ctx context.Context, versionID uuid.UUID, lang string) (*time.Time, error)
	CountUsable(ctx context.Context, versionID uuid.UUID, lang string) (int64, error)
}

type translationRepository struct {
	db *gorm.DB
}

func NewTranslationRepository(db *gorm.DB) TranslationRepository {
	return &translationRepository{db: db}
}

func (r *translationRepository) Upsert(ctx context.Context, t *model.SegmentTranslation) (*model.SegmentTranslation, error) {
	db := GetDB(ctx, r.db)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "segment_id"}, {Name: "target_lang"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"translated_text", "engine", "status", "placeholder", "reviewed_by", "updated_at",
		}),
	}).Create(t).Error
	if err != nil {
		return nil, err
	}
	return r.FindBySegmentLang(ctx, t.SegmentID, t.TargetLang)
}

func (r *translationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SegmentTranslation, error) {
	var t model.SegmentTranslation
	if err := GetDB(ctx, r.db).Preload("Segment").First(&t, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *translationRepository) FindBySegmentLang(ctx context.Context, segmentID uuid.UUID, lang string) (*model.SegmentTranslation, error) {
	var t model.SegmentTranslation
	err := GetDB(ctx, r.db).
		Where("segment_id = ? AND target_lang = ?", segmentID, lang).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *translationRepository) byVersion(db *gorm.DB, versionID uuid.UUID, lang string) *gorm.DB {
	q := db.Joins("JOIN segments ON segments.id = segment_translations.segment_id").
		Where("segments.version_id = ?", versionID)
	if lang != "" {
		q = q.Where("segment_translations.target_lang = ?", lang)
	}
	return q
}

func (r *translationRepository) ListByVersion(ctx context.Context, versionID uuid.UUID, lang string) ([]model.SegmentTranslation, error) {
	var out []model.SegmentTranslation
	err := r.byVersion(GetDB(ctx, r.db), versionID, lang).
		Preload("Segment").
		Order("segments.seq ASC").
		Order("segment_translations.target_lang ASC").
		Find(&out).Error
	return out, err
}

func (r *translationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.TranslationStatus, reviewer string) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.SegmentTranslation{}).
		Where("id = ? AND status = ?", id, from).
		UpdateColumns(map[string]interface{}{"status": to, "reviewed_by": reviewer})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *translationRepository) LastUpdatedAt(ctx context.Context, versionID uuid.UUID, lang string) (*time.Time, error) {
	var latest model.SegmentTranslation
	err := r.byVersion(GetDB(ctx, r.db), versionID, lang).
		Order("segment_translations.updated_at DESC").
		Limit(1).
		Find(&latest).Error
	if err != nil {
		return nil, err
	}
	if latest.ID == uuid.Nil {
		return nil, nil
	}
	return &latest.UpdatedAt, nil
}

func (r *translationRepository) CountUsable(ctx context.Context, versionID uuid.UUID, lang string) (int64, error) {
	var n int64
	err := r.byVersion(GetDB(ctx, r.db).Model(&model.SegmentTranslation{}), versionID, lang).
		Where("segment_translations.placeholder = ?", false).
		Count(&n).Error
	return n, err
}
