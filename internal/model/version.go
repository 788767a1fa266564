package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VersionStatus string

const (
	VersionDraft              VersionStatus = "draft"
	VersionPendingTranslation VersionStatus = "pending_translation"
	VersionPendingApproval    VersionStatus = "pending_approval"
	VersionApproved           VersionStatus = "approved"
	VersionExported           VersionStatus = "exported"
)

var versionRank = map[VersionStatus]int{
	VersionDraft:              0,
	VersionPendingTranslation: 1,
	VersionPendingApproval:    2,
	VersionApproved:           3,
	VersionExported:           4,
}

// Rank orders statuses along the forward-only pipeline. Unknown statuses rank -1.
func (s VersionStatus) Rank() int {
	if r, ok := versionRank[s]; ok {
		return r
	}
	return -1
}

func (s VersionStatus) Valid() bool { return s.Rank() >= 0 }

// Frozen reports whether a version in this status may no longer change.
func (s VersionStatus) Frozen() bool {
	return s == VersionApproved || s == VersionExported
}

// Version is an immutable, content-hashed snapshot of a Document.
// Only Status moves, and only forward.
type Version struct {
	ID          uuid.UUID     `gorm:"type:char(36);primaryKey" json:"id"`
	DocumentID  uuid.UUID     `gorm:"type:char(36);not null;uniqueIndex:ux_versions_document_no,priority:1" json:"document_id"`
	VersionNo   int           `gorm:"not null;uniqueIndex:ux_versions_document_no,priority:2" json:"version_no"`
	StoragePath string        `gorm:"type:varchar(512);not null" json:"storage_path"`
	SHA256      string        `gorm:"column:sha256;type:char(64);not null;index" json:"sha256"`
	Status      VersionStatus `gorm:"type:varchar(30);not null;default:'draft';index" json:"status"`
	CreatedBy   string        `gorm:"type:varchar(100)" json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (v *Version) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}
