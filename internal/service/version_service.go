package service

import (
	"context"
	"errors"
	"fmt"

	"legaldocs/internal/blobstore"
	"legaldocs/internal/model"
	"legaldocs/internal/repository"
	"legaldocs/pkg/contenthash"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const createVersionAttempts = 3

// Gate decides whether a version may be locked as approved.
type Gate interface {
	CheckGate(ctx context.Context, versionID uuid.UUID) (*GateResult, error)
}

type VersionService interface {
	CreateVersion(ctx context.Context, documentID uuid.UUID, content, createdBy string) (*model.Version, error)
	GetVersion(ctx context.Context, id uuid.UUID) (*model.Version, error)
	ListVersions(ctx context.Context, documentID uuid.UUID) ([]model.Version, error)
	// LockVersion freezes a version as approved or exported.
	LockVersion(ctx context.Context, id uuid.UUID, target model.VersionStatus, actorID string) (*model.Version, error)
	// AdvanceVersion moves a version forward along draft, pending_translation,
	// pending_approval. It is a no-op when the version is already at or past target.
	AdvanceVersion(ctx context.Context, id uuid.UUID, target model.VersionStatus, actorID string) error
	VerifyIntegrity(ctx context.Context, id uuid.UUID, candidate []byte) (bool, error)
}

type versionService struct {
	docs     repository.DocumentRepository
	versions repository.VersionRepository
	packages repository.PackageRepository
	segments SegmentService
	tx       repository.TransactionManager
	blobs    blobstore.Store
	audit    AuditService
	gate     Gate
	notifier *Notifier
	logger   *zap.Logger
}

type VersionServiceDeps struct {
	Documents repository.DocumentRepository
	Versions  repository.VersionRepository
	Packages  repository.PackageRepository
	Segments  SegmentService
	Tx        repository.TransactionManager
	Blobs     blobstore.Store
	Audit     AuditService
	Gate      Gate
	Notifier  *Notifier
	Logger    *zap.Logger
}

func NewVersionService(d VersionServiceDeps) VersionService {
	return &versionService{
		docs:     d.Documents,
		versions: d.Versions,
		packages: d.Packages,
		segments: d.Segments,
		tx:       d.Tx,
		blobs:    d.Blobs,
		audit:    d.Audit,
		gate:     d.Gate,
		notifier: d.Notifier,
		logger:   d.Logger.With(zap.String("service", "version")),
	}
}

func (s *versionService) CreateVersion(ctx context.Context, documentID uuid.UUID, content, createdBy string) (*model.Version, error) {
	if _, err := s.docs.FindByID(ctx, documentID); err != nil {
		return nil, lookupErr("document", err)
	}

	sum := contenthash.SumString(content)
	path := blobstore.VersionPath(documentID.String(), sum)
	if err := s.blobs.Put(ctx, path, []byte(content)); err != nil {
		return nil, fmt.Errorf("%w: store version content: %v", ErrPersistenceFailure, err)
	}

	var created *model.Version
	var err error
	for attempt := 1; attempt <= createVersionAttempts; attempt++ {
		created, err = s.insertVersion(ctx, documentID, path, sum, content, createdBy)
		if err == nil || !repository.IsDuplicate(err) {
			break
		}
		s.logger.Warn("version number conflict, retrying",
			zap.String("document_id", documentID.String()), zap.Int("attempt", attempt))
	}
	if err != nil {
		if repository.IsDuplicate(err) {
			return nil, fmt.Errorf("%w: could not allocate version number: %v", ErrPersistenceFailure, err)
		}
		return nil, err
	}

	s.logger.Info("version created",
		zap.String("document_id", documentID.String()),
		zap.String("version_id", created.ID.String()),
		zap.Int("version_no", created.VersionNo),
		zap.String("sha256", created.SHA256))
	s.notifier.Notify(Event{
		Type:       EventVersionCreated,
		DocumentID: documentID.String(),
		VersionID:  created.ID.String(),
		Data:       map[string]interface{}{"version_no": created.VersionNo, "sha256": created.SHA256},
	})
	return created, nil
}

// insertVersion allocates the next version number under the document row lock.
// Duplicate-key errors stay matchable with errors.Is so the caller can retry.
func (s *versionService) insertVersion(ctx context.Context, documentID uuid.UUID, path, sum, content, createdBy string) (*model.Version, error) {
	var v *model.Version
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.docs.FindByIDForUpdate(txCtx, documentID); err != nil {
			return lookupErr("document", err)
		}
		max, err := s.versions.MaxVersionNo(txCtx, documentID)
		if err != nil {
			return fmt.Errorf("failed to read version number: %w", err)
		}

		v = &model.Version{
			DocumentID:  documentID,
			VersionNo:   max + 1,
			StoragePath: path,
			SHA256:      sum,
			Status:      model.VersionDraft,
			CreatedBy:   createdBy,
		}
		if err := s.versions.Create(txCtx, v); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
		segs, err := s.segments.CreateVersionSegments(txCtx, v.ID, content)
		if err != nil {
			return err
		}
		if err := s.docs.SetCurrentVersion(txCtx, documentID, v.ID); err != nil {
			return fmt.Errorf("failed to update current version: %w", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    createdBy,
			Action:     model.ActionCreateVersion,
			EntityType: model.EntityVersion,
			EntityID:   v.ID.String(),
			VersionID:  &v.ID,
			Details: map[string]interface{}{
				"document_id": documentID.String(),
				"version_no":  v.VersionNo,
				"sha256":      sum,
				"segments":    len(segs),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *versionService) GetVersion(ctx context.Context, id uuid.UUID) (*model.Version, error) {
	v, err := s.versions.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	return v, nil
}

func (s *versionService) ListVersions(ctx context.Context, documentID uuid.UUID) ([]model.Version, error) {
	if _, err := s.docs.FindByID(ctx, documentID); err != nil {
		return nil, lookupErr("document", err)
	}
	versions, err := s.versions.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	return versions, nil
}

func (s *versionService) LockVersion(ctx context.Context, id uuid.UUID, target model.VersionStatus, actorID string) (*model.Version, error) {
	if target != model.VersionApproved && target != model.VersionExported {
		return nil, fmt.Errorf("%w: cannot lock to %q", ErrInvalidTransition, target)
	}

	joined := repository.InTx(ctx)
	var v *model.Version
	var from model.VersionStatus
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		v, err = s.versions.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupErr("version", err)
		}
		from = v.Status
		if from == model.VersionExported {
			return ErrAlreadyExported
		}
		if from == target {
			return nil
		}
		if target.Rank() < from.Rank() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
		}

		switch target {
		case model.VersionApproved:
			if _, err := s.gate.CheckGate(txCtx, id); err != nil {
				return err
			}
		case model.VersionExported:
			ok, err := s.packages.ExistsForVersion(txCtx, id)
			if err != nil {
				return fmt.Errorf("failed to check export package: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: no export package for version", ErrInvalidTransition)
			}
		}

		applied, err := s.versions.UpdateStatus(txCtx, id, from, target)
		if err != nil {
			return fmt.Errorf("failed to update version status: %w", err)
		}
		if !applied {
			return fmt.Errorf("%w: version status changed concurrently", ErrInvalidTransition)
		}
		v.Status = target

		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    actorID,
			Action:     model.ActionLockVersion,
			EntityType: model.EntityVersion,
			EntityID:   id.String(),
			VersionID:  &id,
			Details:    map[string]interface{}{"from": from, "to": target},
		})
	})
	if err != nil {
		return nil, err
	}

	if from != target && !joined {
		s.notifier.Notify(Event{
			Type:       EventVersionLocked,
			DocumentID: v.DocumentID.String(),
			VersionID:  id.String(),
			Data:       map[string]interface{}{"status": target},
		})
	}
	return v, nil
}

func (s *versionService) AdvanceVersion(ctx context.Context, id uuid.UUID, target model.VersionStatus, actorID string) error {
	if target != model.VersionPendingTranslation && target != model.VersionPendingApproval {
		return fmt.Errorf("%w: %q is not a pipeline status", ErrInvalidTransition, target)
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		v, err := s.versions.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return lookupErr("version", err)
		}
		if v.Status.Rank() >= target.Rank() {
			return nil
		}
		applied, err := s.versions.UpdateStatus(txCtx, id, v.Status, target)
		if err != nil {
			return fmt.Errorf("failed to advance version: %w", err)
		}
		if !applied {
			return nil
		}
		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    actorID,
			Action:     model.ActionAdvanceVersion,
			EntityType: model.EntityVersion,
			EntityID:   id.String(),
			VersionID:  &id,
			Details:    map[string]interface{}{"from": v.Status, "to": target},
		})
	})
}

func (s *versionService) VerifyIntegrity(ctx context.Context, id uuid.UUID, candidate []byte) (bool, error) {
	v, err := s.versions.FindByID(ctx, id)
	if err != nil {
		return false, lookupErr("version", err)
	}
	if contenthash.Equal(candidate, v.SHA256) {
		return true, nil
	}

	got := contenthash.Sum(candidate)
	if auditErr := s.audit.Record(ctx, AuditEntry{
		Action:     model.ActionIntegrityMismatch,
		EntityType: model.EntityVersion,
		EntityID:   id.String(),
		VersionID:  &id,
		Details:    map[string]interface{}{"expected": v.SHA256, "actual": got},
	}); auditErr != nil {
		s.logger.Error("failed to record integrity mismatch", zap.Error(auditErr))
	}
	return false, fmt.Errorf("%w: expected %s, got %s", ErrIntegrityMismatch, v.SHA256, got)
}

// readVerified loads a version's canonical content and checks it against the stored hash.
func readVerified(ctx context.Context, blobs blobstore.Store, v *model.Version) ([]byte, error) {
	content, err := blobs.Get(ctx, v.StoragePath)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: content for version %s is missing", ErrIntegrityMismatch, v.ID)
		}
		return nil, fmt.Errorf("failed to read version content: %w", err)
	}
	if !contenthash.Equal(content, v.SHA256) {
		return nil, fmt.Errorf("%w: stored content of version %s does not match its hash", ErrIntegrityMismatch, v.ID)
	}
	return content, nil
}
