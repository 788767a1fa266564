package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TranslationEngine string

const (
	EngineAI     TranslationEngine = "ai"
	EngineHuman  TranslationEngine = "human"
	EngineHybrid TranslationEngine = "hybrid"
)

func (e TranslationEngine) Valid() bool {
	return e == EngineAI || e == EngineHuman || e == EngineHybrid
}

type TranslationStatus string

const (
	TranslationDraft    TranslationStatus = "draft"
	TranslationReviewed TranslationStatus = "reviewed"
	TranslationApproved TranslationStatus = "approved"
)

var translationRank = map[TranslationStatus]int{
	TranslationDraft:    0,
	TranslationReviewed: 1,
	TranslationApproved: 2,
}

func (s TranslationStatus) Rank() int {
	if r, ok := translationRank[s]; ok {
		return r
	}
	return -1
}

// PlaceholderPrefix marks text that stands in for a translation that could not be produced.
const PlaceholderPrefix = "[translation pending] "

// SegmentTranslation is the current translation of one segment into one language.
// (segment_id, target_lang) is unique: resubmissions update the row in place.
type SegmentTranslation struct {
	ID             uuid.UUID         `gorm:"type:char(36);primaryKey" json:"id"`
	SegmentID      uuid.UUID         `gorm:"type:char(36);not null;uniqueIndex:ux_translations_segment_lang,priority:1" json:"segment_id"`
	Segment        *Segment          `gorm:"foreignKey:SegmentID" json:"segment,omitempty"`
	TargetLang     string            `gorm:"type:varchar(10);not null;uniqueIndex:ux_translations_segment_lang,priority:2" json:"target_lang"`
	TranslatedText string            `gorm:"type:text;not null" json:"translated_text"`
	Engine         TranslationEngine `gorm:"type:varchar(10);not null" json:"engine"`
	Status         TranslationStatus `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Placeholder    bool              `gorm:"not null;default:false" json:"placeholder"`
	CreatedBy      string            `gorm:"type:varchar(100)" json:"created_by"`
	ReviewedBy     string            `gorm:"type:varchar(100)" json:"reviewed_by,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (SegmentTranslation) TableName() string { return "segment_translations" }

func (t *SegmentTranslation) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}
