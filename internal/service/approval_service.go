package service

import (
	"context"
	"fmt"
	"strings"

	"legaldocs/internal/model"
	"legaldocs/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

type SubmitApprovalDTO struct {
	Scope    string `json:"scope" binding:"required"`
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
	Comment  string `json:"comment"`
}

// ScopeStatus is the derived state of one (version, scope) pair.
type ScopeStatus struct {
	Scope    string           `json:"scope"`
	State    model.ScopeState `json:"state"`
	Stale    bool             `json:"stale,omitempty"`
	Latest   *model.Approval  `json:"latest,omitempty"`
	History  []model.Approval `json:"history"`
	Required bool             `json:"required"`
}

type GateResult struct {
	VersionID string        `json:"version_id"`
	Passed    bool          `json:"passed"`
	Scopes    []ScopeStatus `json:"scopes"`
	Blocked   []ScopeBlock  `json:"blocked,omitempty"`
}

// --- Interface ---

type ApprovalService interface {
	SubmitApproval(ctx context.Context, versionID uuid.UUID, req SubmitApprovalDTO, role, actorID string) (*model.Approval, error)
	GetApprovalStatus(ctx context.Context, versionID uuid.UUID, scope string) (*ScopeStatus, error)
	ListApprovals(ctx context.Context, versionID uuid.UUID) ([]model.Approval, error)
	// CheckGate returns the evaluation even when it fails; the error is then a *BlockedError.
	CheckGate(ctx context.Context, versionID uuid.UUID) (*GateResult, error)
}

type approvalService struct {
	approvals    repository.ApprovalRepository
	versions     repository.VersionRepository
	docs         repository.DocumentRepository
	translations repository.TranslationRepository
	tx           repository.TransactionManager
	audit        AuditService
	notifier     *Notifier
	logger       *zap.Logger
}

type ApprovalServiceDeps struct {
	Approvals    repository.ApprovalRepository
	Versions     repository.VersionRepository
	Documents    repository.DocumentRepository
	Translations repository.TranslationRepository
	Tx           repository.TransactionManager
	Audit        AuditService
	Notifier     *Notifier
	Logger       *zap.Logger
}

func NewApprovalService(d ApprovalServiceDeps) ApprovalService {
	return &approvalService{
		approvals:    d.Approvals,
		versions:     d.Versions,
		docs:         d.Documents,
		translations: d.Translations,
		tx:           d.Tx,
		audit:        d.Audit,
		notifier:     d.Notifier,
		logger:       d.Logger.With(zap.String("service", "approval")),
	}
}

// --- Implementation ---

func (s *approvalService) SubmitApproval(ctx context.Context, versionID uuid.UUID, req SubmitApprovalDTO, role, actorID string) (*model.Approval, error) {
	decision := model.Decision(strings.ToLower(strings.TrimSpace(req.Decision)))
	if !decision.Valid() {
		return nil, validationf("decision must be approved or rejected")
	}
	if strings.TrimSpace(role) == "" {
		return nil, validationf("role is required")
	}

	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	if v.Status == model.VersionExported {
		return nil, ErrAlreadyExported
	}

	scope, err := s.resolveScope(ctx, v, req.Scope)
	if err != nil {
		return nil, err
	}

	approval := model.Approval{
		VersionID: versionID,
		Scope:     scope,
		Role:      role,
		ActorID:   actorID,
		Decision:  decision,
		Comment:   strings.TrimSpace(req.Comment),
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.approvals.Create(txCtx, &approval); err != nil {
			return fmt.Errorf("failed to create approval: %w", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    actorID,
			Action:     model.ActionSubmitApproval,
			EntityType: model.EntityApproval,
			EntityID:   approval.ID.String(),
			VersionID:  &versionID,
			Details: map[string]interface{}{
				"scope":    scope,
				"decision": decision,
				"role":     role,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(Event{
		Type:       EventApprovalSubmitted,
		DocumentID: v.DocumentID.String(),
		VersionID:  versionID.String(),
		Data:       map[string]interface{}{"scope": scope, "decision": decision},
	})
	return &approval, nil
}

// resolveScope accepts "source", a required language of the document, or a
// language the version already has translations in.
func (s *approvalService) resolveScope(ctx context.Context, v *model.Version, raw string) (string, error) {
	scope := model.NormalizeLang(raw)
	if scope == "" {
		return "", fmt.Errorf("%w: scope is required", ErrInvalidScope)
	}
	if scope == model.ScopeSource {
		return scope, nil
	}

	doc, err := s.docs.FindByID(ctx, v.DocumentID)
	if err != nil {
		return "", lookupErr("document", err)
	}
	for _, lang := range doc.RequiredLangList() {
		if lang == scope {
			return scope, nil
		}
	}
	if scope != doc.SourceLang {
		last, err := s.translations.LastUpdatedAt(ctx, v.ID, scope)
		if err != nil {
			return "", fmt.Errorf("failed to check translations: %w", err)
		}
		if last != nil {
			return scope, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a language of this document", ErrInvalidScope, scope)
}

func (s *approvalService) GetApprovalStatus(ctx context.Context, versionID uuid.UUID, scope string) (*ScopeStatus, error) {
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	scope = model.NormalizeLang(scope)
	if scope == "" {
		scope = model.ScopeSource
	}
	doc, err := s.docs.FindByID(ctx, v.DocumentID)
	if err != nil {
		return nil, lookupErr("document", err)
	}
	st, err := s.scopeStatus(ctx, v.ID, scope)
	if err != nil {
		return nil, err
	}
	st.Required = scope == model.ScopeSource || containsLang(doc.RequiredLangList(), scope)
	return st, nil
}

func (s *approvalService) ListApprovals(ctx context.Context, versionID uuid.UUID) ([]model.Approval, error) {
	approvals, err := s.approvals.ListByVersion(ctx, versionID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	return approvals, nil
}

// scopeStatus derives a scope's state: pending without decisions, else the
// latest decision. An approval of a language goes stale once any of that
// language's translations is written after it.
func (s *approvalService) scopeStatus(ctx context.Context, versionID uuid.UUID, scope string) (*ScopeStatus, error) {
	history, err := s.approvals.ListByVersion(ctx, versionID, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to load approvals: %w", err)
	}

	st := &ScopeStatus{Scope: scope, State: model.ScopePending, History: history}
	if st.History == nil {
		st.History = []model.Approval{}
	}
	if len(history) == 0 {
		return st, nil
	}

	latest := history[len(history)-1]
	st.Latest = &latest
	if latest.Decision == model.DecisionRejected {
		st.State = model.ScopeRejected
		return st, nil
	}
	st.State = model.ScopeApproved

	if scope != model.ScopeSource {
		last, err := s.translations.LastUpdatedAt(ctx, versionID, scope)
		if err != nil {
			return nil, fmt.Errorf("failed to check translation updates: %w", err)
		}
		if last != nil && last.After(latest.CreatedAt) {
			st.State = model.ScopePending
			st.Stale = true
		}
	}
	return st, nil
}

func (s *approvalService) CheckGate(ctx context.Context, versionID uuid.UUID) (*GateResult, error) {
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, lookupErr("version", err)
	}
	doc, err := s.docs.FindByID(ctx, v.DocumentID)
	if err != nil {
		return nil, lookupErr("document", err)
	}

	required := append([]string{model.ScopeSource}, doc.RequiredLangList()...)
	result := &GateResult{VersionID: versionID.String(), Scopes: make([]ScopeStatus, 0, len(required))}
	for _, scope := range required {
		st, err := s.scopeStatus(ctx, versionID, scope)
		if err != nil {
			return nil, err
		}
		st.Required = true
		result.Scopes = append(result.Scopes, *st)
		if st.State == model.ScopeApproved {
			continue
		}

		reason := "no decision yet"
		switch {
		case st.State == model.ScopeRejected:
			reason = "latest decision is rejected"
		case st.Stale:
			reason = "translations changed after approval"
		}
		result.Blocked = append(result.Blocked, ScopeBlock{Scope: scope, State: st.State, Reason: reason})
	}

	result.Passed = len(result.Blocked) == 0
	if !result.Passed {
		return result, &BlockedError{Scopes: result.Blocked}
	}
	return result, nil
}

func containsLang(langs []string, lang string) bool {
	for _, l := range langs {
		if l == lang {
			return true
		}
	}
	return false
}
