package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"legaldocs/internal/model"
	"legaldocs/internal/repository"
	"legaldocs/internal/translator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// --- DTOs ---

type SaveTranslationDTO struct {
	Text   string `json:"text"`
	Engine string `json:"engine"` // defaults to human
}

type ReviewTranslationDTO struct {
	Status string `json:"status" binding:"required,oneof=reviewed approved"`
}

type TranslateVersionDTO struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang" binding:"required"`
}

type SegmentFailure struct {
	SegmentID string `json:"segment_id"`
	Seq       int    `json:"seq"`
	Reason    string `json:"reason"`
}

// BatchReport summarizes one TranslateVersion run.
type BatchReport struct {
	VersionID   string           `json:"version_id"`
	SourceLang  string           `json:"source_lang"`
	TargetLang  string           `json:"target_lang"`
	Attempted   int              `json:"attempted"`
	Skipped     int              `json:"skipped"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	SuccessRate decimal.Decimal  `json:"success_rate"`
	Failures    []SegmentFailure `json:"failures"`
}

// --- Interface ---

type TranslationService interface {
	SaveSegmentTranslation(ctx context.Context, segmentID uuid.UUID, lang string, req SaveTranslationDTO, actorID string) (*model.SegmentTranslation, error)
	ReviewTranslation(ctx context.Context, translationID uuid.UUID, status model.TranslationStatus, reviewerID string) (*model.SegmentTranslation, error)
	ListTranslations(ctx context.Context, versionID uuid.UUID, lang string) ([]model.SegmentTranslation, error)
	// TranslateVersion translates every segment not yet approved in lang.
	// Per-segment failures land in the report and never fail the batch.
	TranslateVersion(ctx context.Context, versionID uuid.UUID, req TranslateVersionDTO, actorID string) (*BatchReport, error)
}

type translationService struct {
	translations repository.TranslationRepository
	segments     repository.SegmentRepository
	versions     repository.VersionRepository
	docs         repository.DocumentRepository
	tx           repository.TransactionManager
	versionSvc   VersionService
	engine       *translator.Engine
	audit        AuditService
	notifier     *Notifier
	concurrency  int
	logger       *zap.Logger
}

type TranslationServiceDeps struct {
	Translations repository.TranslationRepository
	Segments     repository.SegmentRepository
	Versions     repository.VersionRepository
	Documents    repository.DocumentRepository
	Tx           repository.TransactionManager
	VersionSvc   VersionService
	Engine       *translator.Engine
	Audit        AuditService
	Notifier     *Notifier
	Concurrency  int
	Logger       *zap.Logger
}

func NewTranslationService(d TranslationServiceDeps) TranslationService {
	if d.Concurrency < 1 {
		d.Concurrency = 1
	}
	return &translationService{
		translations: d.Translations,
		segments:     d.Segments,
		versions:     d.Versions,
		docs:         d.Documents,
		tx:           d.Tx,
		versionSvc:   d.VersionSvc,
		engine:       d.Engine,
		audit:        d.Audit,
		notifier:     d.Notifier,
		concurrency:  d.Concurrency,
		logger:       d.Logger.With(zap.String("service", "translation")),
	}
}

// --- Implementation ---

func (s *translationService) SaveSegmentTranslation(ctx context.Context, segmentID uuid.UUID, lang string, req SaveTranslationDTO, actorID string) (*model.SegmentTranslation, error) {
	lang = model.NormalizeLang(lang)
	if lang == "" || lang == model.ScopeSource {
		return nil, validationf("invalid target language")
	}
	engine := model.TranslationEngine(strings.ToLower(strings.TrimSpace(req.Engine)))
	if engine == "" {
		engine = model.EngineHuman
	}
	if !engine.Valid() {
		return nil, validationf("engine must be ai, human or hybrid")
	}

	seg, err := s.segments.FindByID(ctx, segmentID)
	if err != nil {
		return nil, lookupErr("segment", err)
	}
	v, err := s.versions.FindByID(ctx, seg.VersionID)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	if v.Status == model.VersionExported {
		return nil, ErrAlreadyExported
	}

	var saved *model.SegmentTranslation
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.translations.Upsert(txCtx, &model.SegmentTranslation{
			SegmentID:      segmentID,
			TargetLang:     lang,
			TranslatedText: req.Text,
			Engine:         engine,
			Status:         model.TranslationDraft,
			Placeholder:    strings.HasPrefix(req.Text, model.PlaceholderPrefix),
			CreatedBy:      actorID,
		})
		if err != nil {
			return fmt.Errorf("failed to save translation: %w", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    actorID,
			Action:     model.ActionSaveTranslation,
			EntityType: model.EntityTranslation,
			EntityID:   saved.ID.String(),
			VersionID:  &v.ID,
			Details:    map[string]interface{}{"segment_id": segmentID.String(), "seq": seg.Seq, "lang": lang, "engine": engine},
		})
	})
	if err != nil {
		return nil, err
	}

	s.advanceIfCovered(ctx, v.ID, actorID)
	return saved, nil
}

func (s *translationService) ReviewTranslation(ctx context.Context, translationID uuid.UUID, status model.TranslationStatus, reviewerID string) (*model.SegmentTranslation, error) {
	if status != model.TranslationReviewed && status != model.TranslationApproved {
		return nil, validationf("status must be reviewed or approved")
	}

	t, err := s.translations.FindByID(ctx, translationID)
	if err != nil {
		return nil, lookupErr("translation", err)
	}
	if t.Placeholder {
		return nil, validationf("a placeholder cannot be reviewed; save a real translation first")
	}
	if status.Rank() != t.Status.Rank()+1 {
		return nil, fmt.Errorf("%w: translation %s -> %s", ErrInvalidTransition, t.Status, status)
	}

	if t.Segment == nil {
		return nil, fmt.Errorf("segment of translation %s: %w", translationID, ErrNotFound)
	}
	versionID := t.Segment.VersionID
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	if v.Status == model.VersionExported {
		return nil, ErrAlreadyExported
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		applied, err := s.translations.UpdateStatus(txCtx, translationID, t.Status, status, reviewerID)
		if err != nil {
			return fmt.Errorf("failed to review translation: %w", err)
		}
		if !applied {
			return fmt.Errorf("%w: translation changed concurrently", ErrInvalidTransition)
		}
		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    reviewerID,
			Action:     model.ActionReviewTranslation,
			EntityType: model.EntityTranslation,
			EntityID:   translationID.String(),
			VersionID:  &versionID,
			Details:    map[string]interface{}{"from": t.Status, "to": status},
		})
	})
	if err != nil {
		return nil, err
	}
	return s.translations.FindByID(ctx, translationID)
}

func (s *translationService) ListTranslations(ctx context.Context, versionID uuid.UUID, lang string) ([]model.SegmentTranslation, error) {
	if _, err := s.versions.FindByID(ctx, versionID); err != nil {
		return nil, lookupErr("version", err)
	}
	list, err := s.translations.ListByVersion(ctx, versionID, model.NormalizeLang(lang))
	if err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}
	return list, nil
}

func (s *translationService) TranslateVersion(ctx context.Context, versionID uuid.UUID, req TranslateVersionDTO, actorID string) (*BatchReport, error) {
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	if v.Status == model.VersionExported {
		return nil, ErrAlreadyExported
	}
	doc, err := s.docs.FindByID(ctx, v.DocumentID)
	if err != nil {
		return nil, lookupErr("document", err)
	}

	src := model.NormalizeLang(req.SourceLang)
	if src == "" {
		src = doc.SourceLang
	}
	dst := model.NormalizeLang(req.TargetLang)
	if dst == "" || dst == src || dst == model.ScopeSource {
		return nil, validationf("target_lang must be set and differ from the source language")
	}

	if err := s.versionSvc.AdvanceVersion(ctx, versionID, model.VersionPendingTranslation, actorID); err != nil {
		return nil, err
	}

	segs, err := s.segments.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	existing, err := s.translations.ListByVersion(ctx, versionID, dst)
	if err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}
	bySegment := make(map[uuid.UUID]model.SegmentTranslation, len(existing))
	for _, t := range existing {
		bySegment[t.SegmentID] = t
	}

	report := &BatchReport{
		VersionID:  versionID.String(),
		SourceLang: src,
		TargetLang: dst,
		Failures:   []SegmentFailure{},
	}
	var mu sync.Mutex
	fail := func(seg model.Segment, reason string) {
		mu.Lock()
		defer mu.Unlock()
		report.Failed++
		report.Failures = append(report.Failures, SegmentFailure{SegmentID: seg.ID.String(), Seq: seg.Seq, Reason: reason})
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, seg := range segs {
		prev, has := bySegment[seg.ID]
		if has && prev.Status == model.TranslationApproved {
			report.Skipped++
			continue
		}
		report.Attempted++

		seg := seg
		g.Go(func() error {
			res, trErr := s.engine.Translate(ctx, seg.ID.String(), seg.SourceText, src, dst)
			if trErr != nil && has && !prev.Placeholder {
				// keep the usable translation we already have
				fail(seg, trErr.Error())
				return nil
			}
			_, err := s.translations.Upsert(ctx, &model.SegmentTranslation{
				SegmentID:      seg.ID,
				TargetLang:     dst,
				TranslatedText: res.Text,
				Engine:         res.Engine,
				Status:         model.TranslationDraft,
				Placeholder:    res.Placeholder,
				CreatedBy:      actorID,
			})
			switch {
			case err != nil:
				fail(seg, fmt.Sprintf("save failed: %v", err))
			case trErr != nil:
				fail(seg, trErr.Error())
			default:
				mu.Lock()
				report.Succeeded++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	report.SuccessRate = successRate(report.Succeeded, report.Attempted)

	if err := s.audit.Record(ctx, AuditEntry{
		ActorID:    actorID,
		Action:     model.ActionTranslateVersion,
		EntityType: model.EntityVersion,
		EntityID:   versionID.String(),
		VersionID:  &versionID,
		Details: map[string]interface{}{
			"source_lang":  src,
			"target_lang":  dst,
			"attempted":    report.Attempted,
			"skipped":      report.Skipped,
			"succeeded":    report.Succeeded,
			"failed":       report.Failed,
			"success_rate": report.SuccessRate.String(),
		},
	}); err != nil {
		s.logger.Error("failed to audit translation batch", zap.Error(err))
	}

	s.logger.Info("translation batch finished",
		zap.String("version_id", versionID.String()),
		zap.String("pair", src+">"+dst),
		zap.Int("attempted", report.Attempted),
		zap.Int("failed", report.Failed))

	s.advanceIfCovered(ctx, versionID, actorID)
	s.notifier.Notify(Event{
		Type:       EventTranslationBatchDone,
		DocumentID: v.DocumentID.String(),
		VersionID:  versionID.String(),
		Data: map[string]interface{}{
			"target_lang":  dst,
			"succeeded":    report.Succeeded,
			"failed":       report.Failed,
			"success_rate": report.SuccessRate.String(),
		},
	})
	return report, nil
}

// advanceIfCovered moves the version to pending_approval once every required
// language has a usable translation for every segment. Errors are logged only.
func (s *translationService) advanceIfCovered(ctx context.Context, versionID uuid.UUID, actorID string) {
	covered, err := s.covered(ctx, versionID)
	if err != nil {
		s.logger.Warn("coverage check failed", zap.String("version_id", versionID.String()), zap.Error(err))
		return
	}
	if !covered {
		return
	}
	if err := s.versionSvc.AdvanceVersion(ctx, versionID, model.VersionPendingApproval, actorID); err != nil && !errors.Is(err, ErrInvalidTransition) {
		s.logger.Warn("failed to advance version", zap.String("version_id", versionID.String()), zap.Error(err))
	}
}

func (s *translationService) covered(ctx context.Context, versionID uuid.UUID) (bool, error) {
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return false, err
	}
	doc, err := s.docs.FindByID(ctx, v.DocumentID)
	if err != nil {
		return false, err
	}
	total, err := s.segments.CountByVersion(ctx, versionID)
	if err != nil {
		return false, err
	}
	for _, lang := range doc.RequiredLangList() {
		n, err := s.translations.CountUsable(ctx, versionID, lang)
		if err != nil {
			return false, err
		}
		if n < total {
			return false, nil
		}
	}
	return true, nil
}

func successRate(succeeded, attempted int) decimal.Decimal {
	if attempted == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(int64(succeeded)).
		Div(decimal.NewFromInt(int64(attempted))).
		Round(4)
}
