package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Segment is a numbered unit of a version's source text. Written once, with its version.
type Segment struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	VersionID  uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:ux_segments_version_seq,priority:1" json:"version_id"`
	Seq        int       `gorm:"not null;uniqueIndex:ux_segments_version_seq,priority:2" json:"seq"`
	Key        string    `gorm:"type:varchar(64);not null;index" json:"key"`
	SourceText string    `gorm:"type:text;not null" json:"source_text"`
}

func (s *Segment) BeforeCreate(tx *gorm.DB) error {
	assignID(&s.ID)
	return nil
}
