package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"legaldocs/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VerificationSummary is the public answer to "is this the document you issued?".
type VerificationSummary struct {
	Valid        bool   `json:"valid"`
	MatchedOn    string `json:"matched_on,omitempty"` // version or package
	VersionID    string `json:"version_id"`
	VersionNo    int    `json:"version_no"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	DocumentType string `json:"document_type"`
	Status       string `json:"status"`
	SHA256       string `json:"sha256"`

	PackageHash *string `json:"package_hash,omitempty"`
	ExportedAt  *string `json:"exported_at,omitempty"`
	ExportedBy  string  `json:"exported_by,omitempty"`

	Approvals   []ScopeStatus              `json:"approvals"`
	Coverage    map[string]decimal.Decimal `json:"translation_coverage"`
	AuditEvents int64                      `json:"audit_events"`
}

type VerifyService interface {
	Verify(ctx context.Context, versionID, hash string) (*VerificationSummary, error)
}

type verifyService struct {
	versions     repository.VersionRepository
	docs         repository.DocumentRepository
	segments     repository.SegmentRepository
	translations repository.TranslationRepository
	packages     repository.PackageRepository
	approvals    ApprovalService
	audit        AuditService
}

type VerifyServiceDeps struct {
	Versions     repository.VersionRepository
	Documents    repository.DocumentRepository
	Segments     repository.SegmentRepository
	Translations repository.TranslationRepository
	Packages     repository.PackageRepository
	Approvals    ApprovalService
	Audit        AuditService
}

func NewVerifyService(d VerifyServiceDeps) VerifyService {
	return &verifyService{
		versions:     d.Versions,
		docs:         d.Documents,
		segments:     d.Segments,
		translations: d.Translations,
		packages:     d.Packages,
		approvals:    d.Approvals,
		audit:        d.Audit,
	}
}

func (s *verifyService) Verify(ctx context.Context, versionID, hash string) (*VerificationSummary, error) {
	id, err := uuid.Parse(strings.TrimSpace(versionID))
	if err != nil {
		return nil, validationf("invalid versionId")
	}
	hash = strings.ToLower(strings.TrimSpace(hash))

	v, err := s.versions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	doc, err := s.docs.FindByID(ctx, v.DocumentID)
	if err != nil {
		return nil, lookupErr("document", err)
	}

	sum := &VerificationSummary{
		VersionID:    v.ID.String(),
		VersionNo:    v.VersionNo,
		DocumentID:   doc.ID.String(),
		DocumentName: doc.Name,
		DocumentType: doc.Type,
		Status:       string(v.Status),
		SHA256:       v.SHA256,
		Coverage:     map[string]decimal.Decimal{},
	}
	if hash != "" && hash == v.SHA256 {
		sum.Valid, sum.MatchedOn = true, "version"
	}

	pkg, err := s.packages.FindByVersion(ctx, id)
	switch {
	case err == nil:
		sum.PackageHash = &pkg.PackageHash
		exportedAt := pkg.CreatedAt.Format(timeLayout)
		sum.ExportedAt = &exportedAt
		sum.ExportedBy = pkg.ExportedBy
		if !sum.Valid && hash != "" && hash == pkg.PackageHash {
			sum.Valid, sum.MatchedOn = true, "package"
		}
	case !repository.IsNotFound(err):
		return nil, fmt.Errorf("failed to load package: %w", err)
	}

	gate, err := s.approvals.CheckGate(ctx, id)
	var blocked *BlockedError
	if err != nil && !errors.As(err, &blocked) {
		return nil, err
	}
	sum.Approvals = gate.Scopes

	total, err := s.segments.CountByVersion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count segments: %w", err)
	}
	for _, lang := range doc.RequiredLangList() {
		n, err := s.translations.CountUsable(ctx, id, lang)
		if err != nil {
			return nil, fmt.Errorf("failed to count translations: %w", err)
		}
		sum.Coverage[lang] = coverage(n, total)
	}

	if sum.AuditEvents, err = s.audit.CountForVersion(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to count audit events: %w", err)
	}
	return sum, nil
}

func coverage(usable, total int64) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(usable).Div(decimal.NewFromInt(total)).Round(4)
}
