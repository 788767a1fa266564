package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"legaldocs/internal/model"
	"legaldocs/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

type CreateDocumentDTO struct {
	Type          string          `json:"type" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	CaseRef       string          `json:"case_ref"`
	DocDate       *time.Time      `json:"doc_date"`
	SourceLang    string          `json:"source_lang"`
	RequiredLangs []string        `json:"required_langs"`
	Payload       json.RawMessage `json:"payload" swaggertype:"object"`
}

// UpdateDocumentMetaDTO carries display metadata only; nil fields are left unchanged.
type UpdateDocumentMetaDTO struct {
	Name    *string    `json:"name"`
	CaseRef *string    `json:"case_ref"`
	DocDate *time.Time `json:"doc_date"`
}

type DocumentFilter struct {
	Type    string
	CaseRef string
	Search  string
	Page    int
	Limit   int
}

type DocumentResponse struct {
	ID               string        `json:"id"`
	Type             string        `json:"type"`
	CaseRef          string        `json:"case_ref,omitempty"`
	Name             string        `json:"name"`
	DocDate          *string       `json:"doc_date,omitempty"`
	SourceLang       string        `json:"source_lang"`
	RequiredLangs    []string      `json:"required_langs"`
	Payload          model.Payload `json:"payload,omitempty" swaggertype:"object"`
	CurrentVersionID *string       `json:"current_version_id"`
	CurrentVersionNo int           `json:"current_version_no,omitempty"`
	CurrentStatus    string        `json:"current_status,omitempty"`
	CreatedBy        string        `json:"created_by"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
}

// DocumentDefaults fill languages the caller leaves out.
type DocumentDefaults struct {
	SourceLang    string
	RequiredLangs []string
}

// --- Interface ---

type DocumentService interface {
	CreateDocument(ctx context.Context, req CreateDocumentDTO, actorID string) (DocumentResponse, error)
	GetDocument(ctx context.Context, id string) (DocumentResponse, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]DocumentResponse, int64, error)
	UpdateDocumentMeta(ctx context.Context, id string, req UpdateDocumentMetaDTO, actorID string) (DocumentResponse, error)
}

type documentService struct {
	docs     repository.DocumentRepository
	tx       repository.TransactionManager
	audit    AuditService
	defaults DocumentDefaults
	logger   *zap.Logger
}

func NewDocumentService(docs repository.DocumentRepository, tx repository.TransactionManager, audit AuditService, defaults DocumentDefaults, logger *zap.Logger) DocumentService {
	return &documentService{
		docs:     docs,
		tx:       tx,
		audit:    audit,
		defaults: defaults,
		logger:   logger.With(zap.String("service", "document")),
	}
}

// --- Implementation ---

func (s *documentService) CreateDocument(ctx context.Context, req CreateDocumentDTO, actorID string) (DocumentResponse, error) {
	docType := strings.TrimSpace(req.Type)
	name := strings.TrimSpace(req.Name)
	if docType == "" || name == "" {
		return DocumentResponse{}, validationf("type and name are required")
	}

	sourceLang := model.NormalizeLang(req.SourceLang)
	if sourceLang == "" {
		sourceLang = model.NormalizeLang(s.defaults.SourceLang)
	}
	if sourceLang == "" {
		return DocumentResponse{}, validationf("source_lang is required")
	}

	langs := req.RequiredLangs
	if langs == nil {
		langs = s.defaults.RequiredLangs
	}
	required := model.SplitLangs(strings.Join(langs, ","))
	for _, l := range required {
		if l == sourceLang || l == model.ScopeSource {
			return DocumentResponse{}, validationf("required_langs cannot contain %q", l)
		}
	}

	payload, err := model.DecodePayload(docType, []byte(req.Payload))
	if err != nil {
		return DocumentResponse{}, validationf("%v", err)
	}
	raw, err := model.EncodePayload(payload)
	if err != nil {
		return DocumentResponse{}, err
	}

	doc := model.Document{
		Type:          docType,
		CaseRef:       strings.TrimSpace(req.CaseRef),
		Name:          name,
		DocDate:       req.DocDate,
		SourceLang:    sourceLang,
		RequiredLangs: model.JoinLangs(required),
		Payload:       raw,
		CreatedBy:     actorID,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.docs.Create(txCtx, &doc); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    actorID,
			Action:     model.ActionCreateDocument,
			EntityType: model.EntityDocument,
			EntityID:   doc.ID.String(),
			Details:    map[string]interface{}{"type": doc.Type, "name": doc.Name},
		})
	})
	if err != nil {
		return DocumentResponse{}, err
	}

	s.logger.Info("document created", zap.String("document_id", doc.ID.String()), zap.String("type", doc.Type))
	return toDocumentResponse(doc)
}

func (s *documentService) GetDocument(ctx context.Context, id string) (DocumentResponse, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return DocumentResponse{}, validationf("invalid document id")
	}
	doc, err := s.docs.FindByID(ctx, docID)
	if err != nil {
		return DocumentResponse{}, lookupErr("document", err)
	}
	return toDocumentResponse(*doc)
}

func (s *documentService) ListDocuments(ctx context.Context, filter DocumentFilter) ([]DocumentResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	docs, total, err := s.docs.List(ctx, repository.DocumentFilter{
		Type:    filter.Type,
		CaseRef: filter.CaseRef,
		Search:  filter.Search,
		Page:    filter.Page,
		Limit:   filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}

	result := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		r, err := toDocumentResponse(d)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, r)
	}
	return result, total, nil
}

func (s *documentService) UpdateDocumentMeta(ctx context.Context, id string, req UpdateDocumentMetaDTO, actorID string) (DocumentResponse, error) {
	docID, err := uuid.Parse(id)
	if err != nil {
		return DocumentResponse{}, validationf("invalid document id")
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return DocumentResponse{}, validationf("name cannot be empty")
		}
		updates["name"] = name
	}
	if req.CaseRef != nil {
		updates["case_ref"] = strings.TrimSpace(*req.CaseRef)
	}
	if req.DocDate != nil {
		updates["doc_date"] = *req.DocDate
	}
	if len(updates) == 0 {
		return DocumentResponse{}, validationf("nothing to update")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.docs.UpdateMeta(txCtx, docID, updates); err != nil {
			if repository.IsNotFound(err) {
				return lookupErr("document", err)
			}
			return fmt.Errorf("failed to update document: %w", err)
		}
		return s.audit.Record(txCtx, AuditEntry{
			ActorID:    actorID,
			Action:     model.ActionUpdateDocument,
			EntityType: model.EntityDocument,
			EntityID:   docID.String(),
			Details:    updates,
		})
	})
	if err != nil {
		return DocumentResponse{}, err
	}
	return s.GetDocument(ctx, id)
}

func toDocumentResponse(d model.Document) (DocumentResponse, error) {
	payload, err := model.DecodePayload(d.Type, d.Payload)
	if err != nil {
		return DocumentResponse{}, fmt.Errorf("document %s: %w", d.ID, err)
	}

	res := DocumentResponse{
		ID:            d.ID.String(),
		Type:          d.Type,
		CaseRef:       d.CaseRef,
		Name:          d.Name,
		SourceLang:    d.SourceLang,
		RequiredLangs: d.RequiredLangList(),
		Payload:       payload,
		CreatedBy:     d.CreatedBy,
		CreatedAt:     d.CreatedAt.Format(timeLayout),
		UpdatedAt:     d.UpdatedAt.Format(timeLayout),
	}
	if res.RequiredLangs == nil {
		res.RequiredLangs = []string{}
	}
	if d.DocDate != nil {
		s := d.DocDate.Format("2006-01-02")
		res.DocDate = &s
	}
	if d.CurrentVersionID != nil {
		s := d.CurrentVersionID.String()
		res.CurrentVersionID = &s
	}
	if d.CurrentVersion != nil {
		res.CurrentVersionNo = d.CurrentVersion.VersionNo
		res.CurrentStatus = string(d.CurrentVersion.Status)
	}
	return res, nil
}
