package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExportPackage records the one exported bundle of a version.
type ExportPackage struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	VersionID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex" json:"version_id"`
	PackageHash string    `gorm:"type:char(64);not null;index" json:"package_hash"`
	QRCodeURL   string    `gorm:"column:qr_code_url;type:varchar(512);not null" json:"qr_code_url"` // verification URL encoded in the QR code
	StoragePath string    `gorm:"type:varchar(512);not null" json:"storage_path"`
	ExportedBy  string    `gorm:"type:varchar(100)" json:"exported_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p *ExportPackage) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
