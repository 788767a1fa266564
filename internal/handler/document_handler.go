package handler

import (
	"net/http"

	"legaldocs/internal/middleware"
	"legaldocs/internal/service"
	"legaldocs/pkg/pagination"
	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
)

type CreateVersionRequest struct {
	Content string `json:"content"`
}

type DocumentHandler struct {
	documentService service.DocumentService
	versionService  service.VersionService
	auth            *middleware.Auth
}

func NewDocumentHandler(documentService service.DocumentService, versionService service.VersionService, auth *middleware.Auth) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		versionService:  versionService,
		auth:            auth,
	}
}

func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	editors := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleLawyer)

	documents := router.Group("/api/documents")
	{
		documents.POST("", editors, h.CreateDocument)
		documents.GET("", h.auth.Authenticate(), h.ListDocuments)
		documents.GET("/:id", h.auth.Authenticate(), h.GetDocument)
		documents.PATCH("/:id", editors, h.UpdateDocument)
		documents.POST("/:id/versions", editors, h.CreateVersion)
		documents.GET("/:id/versions", h.auth.Authenticate(), h.ListVersions)
	}
}

// CreateDocument registers a new legal document
// @Summary      Create document
// @Description  Creates a document with its source language, required target languages and typed payload
// @Tags         documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateDocumentDTO  true  "Create Document Payload"
// @Success      201      {object}  response.Response{data=service.DocumentResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/documents [post]
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req service.CreateDocumentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	doc, err := h.documentService.CreateDocument(c.Request.Context(), req, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, doc))
}

// ListDocuments returns a page of documents
// @Summary      List documents
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        type      query     string  false  "Document type"
// @Param        case_ref  query     string  false  "Case reference"
// @Param        search    query     string  false  "Name contains"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=[]service.DocumentResponse,meta=pagination.Meta}
// @Router       /api/documents [get]
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	p := pagination.Parse(c)
	docs, total, err := h.documentService.ListDocuments(c.Request.Context(), service.DocumentFilter{
		Type:    c.Query("type"),
		CaseRef: c.Query("case_ref"),
		Search:  c.Query("search"),
		Page:    p.Page,
		Limit:   p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, docs, p.Meta(total)))
}

// GetDocument
// @Summary      Get document
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response{data=service.DocumentResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.documentService.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
}

// UpdateDocument changes display metadata only; content changes need a new version.
// @Summary      Update document metadata
// @Tags         documents
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Document ID"
// @Param        payload  body      service.UpdateDocumentMetaDTO  true  "Metadata"
// @Success      200      {object}  response.Response{data=service.DocumentResponse}
// @Router       /api/documents/{id} [patch]
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	var req service.UpdateDocumentMetaDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	doc, err := h.documentService.UpdateDocumentMeta(c.Request.Context(), c.Param("id"), req, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, doc))
}

// CreateVersion stores new canonical content as the next version of a document
// @Summary      Create version
// @Description  Hashes and stores the content, assigns the next version number and segments it
// @Tags         versions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Document ID"
// @Param        payload  body      CreateVersionRequest  true  "Canonical content"
// @Success      201      {object}  response.Response{data=model.Version}
// @Failure      404      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/documents/{id}/versions [post]
func (h *DocumentHandler) CreateVersion(c *gin.Context) {
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	v, err := h.versionService.CreateVersion(c.Request.Context(), docID, req.Content, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, v))
}

// @Summary      List versions
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response{data=[]model.Version}
// @Router       /api/documents/{id}/versions [get]
func (h *DocumentHandler) ListVersions(c *gin.Context) {
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}
	versions, err := h.versionService.ListVersions(c.Request.Context(), docID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, versions))
}
