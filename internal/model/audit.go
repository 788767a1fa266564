package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionCreateDocument    = "CREATE_DOCUMENT"
	ActionUpdateDocument    = "UPDATE_DOCUMENT"
	ActionCreateVersion     = "CREATE_VERSION"
	ActionAdvanceVersion    = "ADVANCE_VERSION"
	ActionLockVersion       = "LOCK_VERSION"
	ActionSaveTranslation   = "SAVE_TRANSLATION"
	ActionReviewTranslation = "REVIEW_TRANSLATION"
	ActionTranslateVersion  = "TRANSLATE_VERSION"
	ActionSubmitApproval    = "SUBMIT_APPROVAL"
	ActionExportPackage     = "EXPORT_PACKAGE"
	ActionIntegrityMismatch = "INTEGRITY_MISMATCH"
)

const (
	EntityDocument    = "document"
	EntityVersion     = "version"
	EntityTranslation = "translation"
	EntityApproval    = "approval"
	EntityPackage     = "package"
)

// AuditLog tracks who did what to which entity, and when.
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	ActorID    string         `gorm:"type:varchar(100);index" json:"actor_id"` // empty for system actions
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string         `gorm:"type:varchar(30);not null" json:"entity_type"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`
	VersionID  *uuid.UUID     `gorm:"type:char(36);index" json:"version_id,omitempty"` // set when the event belongs to a version's audit trail
	Details    datatypes.JSON `json:"details,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
