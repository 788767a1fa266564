package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is a logical legal artifact (one agreement, one power of attorney...).
// Content lives in its Versions; only display metadata here is mutable.
type Document struct {
	ID            uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	Type          string         `gorm:"type:varchar(50);not null;index" json:"type"` // agreement, power_of_attorney, ...
	CaseRef       string         `gorm:"type:varchar(100);index" json:"case_ref,omitempty"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	DocDate       *time.Time     `json:"doc_date,omitempty"`
	SourceLang    string         `gorm:"type:varchar(10);not null" json:"source_lang"`
	RequiredLangs string         `gorm:"type:varchar(255)" json:"required_langs"` // comma separated target languages
	Payload       datatypes.JSON `json:"payload,omitempty"`                       // structured fields, see payload.go

	// CurrentVersionID only changes inside the version-creation transaction.
	CurrentVersionID *uuid.UUID `gorm:"type:char(36)" json:"current_version_id"`
	CurrentVersion   *Version   `gorm:"foreignKey:CurrentVersionID" json:"current_version,omitempty"`

	CreatedBy string    `gorm:"type:varchar(100)" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	assignID(&d.ID)
	return nil
}

// RequiredLangList returns the normalized required target languages.
func (d *Document) RequiredLangList() []string {
	return SplitLangs(d.RequiredLangs)
}

// SplitLangs parses a comma separated language list, dropping blanks and duplicates.
func SplitLangs(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(s, ",") {
		lang := NormalizeLang(part)
		if lang == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}

// JoinLangs is the inverse of SplitLangs.
func JoinLangs(langs []string) string {
	return strings.Join(SplitLangs(strings.Join(langs, ",")), ",")
}

// NormalizeLang lower-cases and trims a language code ("EN " -> "en").
func NormalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
