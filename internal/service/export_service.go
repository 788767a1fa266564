package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legaldocs/internal/blobstore"
	"legaldocs/internal/model"
	"legaldocs/internal/repository"
	"legaldocs/pkg/contenthash"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ExportDTO struct {
	TargetLangs []string `json:"target_langs"`
}

type PackageResult struct {
	PackageID       string   `json:"package_id,omitempty"`
	VersionID       string   `json:"version_id"`
	Hash            string   `json:"package_hash"`
	VerificationURL string   `json:"verification_url"`
	StoragePath     string   `json:"storage_path"`
	Languages       []string `json:"languages"`
	Missing         []string `json:"missing_languages,omitempty"`
	Buffer          []byte   `json:"-"`
}

type ExportService interface {
	// GeneratePackage assembles, stores and records the one export of a version.
	// When the bundle is stored but the metadata write fails, the result is
	// returned together with an ErrPersistenceFailure error.
	GeneratePackage(ctx context.Context, versionID uuid.UUID, targetLangs []string, exportedBy string) (*PackageResult, error)
	GetPackage(ctx context.Context, versionID uuid.UUID) (*model.ExportPackage, []byte, error)
}

type exportService struct {
	versions      repository.VersionRepository
	docs          repository.DocumentRepository
	segments      repository.SegmentRepository
	translations  repository.TranslationRepository
	packages      repository.PackageRepository
	tx            repository.TransactionManager
	versionSvc    VersionService
	approvals     ApprovalService
	audit         AuditService
	blobs         blobstore.Store
	notifier      *Notifier
	publicBaseURL string
	now           func() time.Time
	logger        *zap.Logger
}

type ExportServiceDeps struct {
	Versions      repository.VersionRepository
	Documents     repository.DocumentRepository
	Segments      repository.SegmentRepository
	Translations  repository.TranslationRepository
	Packages      repository.PackageRepository
	Tx            repository.TransactionManager
	VersionSvc    VersionService
	Approvals     ApprovalService
	Audit         AuditService
	Blobs         blobstore.Store
	Notifier      *Notifier
	PublicBaseURL string
	Logger        *zap.Logger
}

func NewExportService(d ExportServiceDeps) ExportService {
	return &exportService{
		versions:      d.Versions,
		docs:          d.Documents,
		segments:      d.Segments,
		translations:  d.Translations,
		packages:      d.Packages,
		tx:            d.Tx,
		versionSvc:    d.VersionSvc,
		approvals:     d.Approvals,
		audit:         d.Audit,
		blobs:         d.Blobs,
		notifier:      d.Notifier,
		publicBaseURL: d.PublicBaseURL,
		now:           time.Now,
		logger:        d.Logger.With(zap.String("service", "export")),
	}
}

func (s *exportService) GeneratePackage(ctx context.Context, versionID uuid.UUID, targetLangs []string, exportedBy string) (*PackageResult, error) {
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	if v.Status == model.VersionExported {
		return nil, ErrAlreadyExported
	}
	exists, err := s.packages.ExistsForVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing package: %w", err)
	}
	if exists {
		return nil, ErrAlreadyExported
	}

	if _, err := s.approvals.CheckGate(ctx, versionID); err != nil {
		return nil, err
	}

	content, err := readVerified(ctx, s.blobs, v)
	if err != nil {
		return nil, err
	}

	doc, err := s.docs.FindByID(ctx, v.DocumentID)
	if err != nil {
		return nil, lookupErr("document", err)
	}
	langs, unapproved, err := s.packageLangs(ctx, doc, versionID, targetLangs)
	if err != nil {
		return nil, err
	}

	in, err := s.collect(ctx, doc, v, content, langs)
	if err != nil {
		return nil, err
	}
	built, err := BuildPackage(*in)
	if err != nil {
		return nil, fmt.Errorf("failed to build package: %w", err)
	}
	if len(langs) > 0 && len(built.Usable) == 0 {
		return nil, fmt.Errorf("%w: no usable translation for %v", ErrTranslationUnavailable, langs)
	}

	hash := contenthash.Sum(built.Bundle)
	path := blobstore.PackagePath(versionID.String(), hash)
	if err := s.blobs.Put(ctx, path, built.Bundle); err != nil {
		return nil, fmt.Errorf("%w: store package: %v", ErrPersistenceFailure, err)
	}

	result := &PackageResult{
		VersionID:       versionID.String(),
		Hash:            hash,
		VerificationURL: in.VerificationURL,
		StoragePath:     path,
		Languages:       nonNil(built.Usable),
		Missing:         append(built.Missing, unapproved...),
		Buffer:          built.Bundle,
	}

	pkg := model.ExportPackage{
		VersionID:   versionID,
		PackageHash: hash,
		QRCodeURL:   in.VerificationURL,
		StoragePath: path,
		ExportedBy:  exportedBy,
	}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.packages.Create(txCtx, &pkg); err != nil {
			return fmt.Errorf("failed to record package: %w", err)
		}
		if _, err := s.versionSvc.LockVersion(txCtx, versionID, model.VersionApproved, exportedBy); err != nil {
			return err
		}
		if _, err := s.versionSvc.LockVersion(txCtx, versionID, model.VersionExported, exportedBy); err != nil {
			return err
		}
		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    exportedBy,
			Action:     model.ActionExportPackage,
			EntityType: model.EntityPackage,
			EntityID:   pkg.ID.String(),
			VersionID:  &versionID,
			Details: map[string]interface{}{
				"package_hash": hash,
				"storage_path": path,
				"languages":    result.Languages,
			},
		})
	})
	if err != nil {
		if repository.IsDuplicate(err) || errors.Is(err, ErrAlreadyExported) {
			return result, ErrAlreadyExported
		}
		var blocked *BlockedError
		if errors.As(err, &blocked) {
			s.logger.Warn("approvals changed during export",
				zap.String("version_id", versionID.String()),
				zap.String("storage_path", path))
			return nil, err
		}
		s.logger.Error("package stored but not recorded",
			zap.String("version_id", versionID.String()),
			zap.String("storage_path", path),
			zap.Error(err))
		return result, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	result.PackageID = pkg.ID.String()

	s.logger.Info("package exported",
		zap.String("version_id", versionID.String()),
		zap.String("package_hash", hash))
	s.notifier.Notify(Event{
		Type:       EventVersionLocked,
		DocumentID: v.DocumentID.String(),
		VersionID:  versionID.String(),
		Data:       map[string]interface{}{"status": model.VersionExported},
	})
	s.notifier.Notify(Event{
		Type:       EventPackageExported,
		DocumentID: v.DocumentID.String(),
		VersionID:  versionID.String(),
		Data:       map[string]interface{}{"package_hash": hash, "verification_url": in.VerificationURL},
	})
	return result, nil
}

// packageLangs returns the languages that get a section: every required
// language plus each requested language whose scope is approved. Requested
// languages without an approval are returned separately.
func (s *exportService) packageLangs(ctx context.Context, doc *model.Document, versionID uuid.UUID, requested []string) ([]string, []string, error) {
	langs := doc.RequiredLangList()
	var unapproved []string
	for _, l := range model.SplitLangs(strings.Join(requested, ",")) {
		if l == doc.SourceLang || l == model.ScopeSource || containsLang(langs, l) {
			continue
		}
		st, err := s.approvals.GetApprovalStatus(ctx, versionID, l)
		if err != nil {
			return nil, nil, err
		}
		if st.State != model.ScopeApproved {
			unapproved = append(unapproved, l)
			continue
		}
		langs = append(langs, l)
	}
	return langs, unapproved, nil
}

func (s *exportService) collect(ctx context.Context, doc *model.Document, v *model.Version, content []byte, langs []string) (*PackageInput, error) {
	segs, err := s.segments.ListByVersion(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	sections := make([]LanguageSection, 0, len(langs))
	for _, lang := range langs {
		ts, err := s.translations.ListByVersion(ctx, v.ID, lang)
		if err != nil {
			// a language we cannot read is reported as missing, not fatal
			s.logger.Warn("failed to load translations", zap.String("lang", lang), zap.Error(err))
			ts = nil
		}
		sections = append(sections, LanguageSection{Lang: lang, Translations: ts})
	}

	approvals, err := s.approvals.ListApprovals(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	trail, err := s.audit.Trail(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}

	return &PackageInput{
		Document:        *doc,
		Version:         *v,
		Content:         content,
		Segments:        segs,
		Languages:       sections,
		Approvals:       approvals,
		AuditTrail:      trail,
		VerificationURL: VerificationURL(s.publicBaseURL, v.ID, v.SHA256),
		GeneratedAt:     s.now(),
	}, nil
}

func (s *exportService) GetPackage(ctx context.Context, versionID uuid.UUID) (*model.ExportPackage, []byte, error) {
	pkg, err := s.packages.FindByVersion(ctx, versionID)
	if err != nil {
		return nil, nil, lookupErr("package", err)
	}
	data, err := s.blobs.Get(ctx, pkg.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read package: %w", err)
	}
	if !contenthash.Equal(data, pkg.PackageHash) {
		return nil, nil, fmt.Errorf("%w: stored package does not match its hash", ErrIntegrityMismatch)
	}
	return pkg, data, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
