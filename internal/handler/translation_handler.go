package handler

import (
	"net/http"

	"legaldocs/internal/middleware"
	"legaldocs/internal/model"
	"legaldocs/internal/service"
	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
)

type TranslationHandler struct {
	translationService service.TranslationService
	auth               *middleware.Auth
	idempotent         gin.HandlerFunc
}

// NewTranslationHandler wires the batch endpoint behind idempotent, which may be nil.
func NewTranslationHandler(translationService service.TranslationService, auth *middleware.Auth, idempotent gin.HandlerFunc) *TranslationHandler {
	if idempotent == nil {
		idempotent = func(c *gin.Context) { c.Next() }
	}
	return &TranslationHandler{translationService: translationService, auth: auth, idempotent: idempotent}
}

func (h *TranslationHandler) RegisterRoutes(router *gin.RouterGroup) {
	translators := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleLawyer, middleware.RoleTranslator)
	reviewers := h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleLawyer, middleware.RoleReviewer)

	router.POST("/api/versions/:id/translations", translators, h.idempotent, h.TranslateVersion)
	router.GET("/api/versions/:id/translations", h.auth.Authenticate(), h.ListTranslations)
	router.PUT("/api/segments/:id/translations/:lang", translators, h.SaveTranslation)
	router.PUT("/api/translations/:id/review", reviewers, h.ReviewTranslation)
}

// TranslateVersion runs the translation engine over every segment of a version
// @Summary      Translate version
// @Description  Translates each segment not yet approved. Segment failures are reported, never fatal.
// @Tags         translations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id               path      string                       true   "Version ID"
// @Param        Idempotency-Key  header    string                       false  "Replay key"
// @Param        payload          body      service.TranslateVersionDTO  true   "Language pair"
// @Success      200              {object}  response.Response{data=service.BatchReport}
// @Router       /api/versions/{id}/translations [post]
func (h *TranslationHandler) TranslateVersion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.TranslateVersionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	report, err := h.translationService.TranslateVersion(c.Request.Context(), id, req, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// @Summary      List translations
// @Tags         translations
// @Security     BearerAuth
// @Produce      json
// @Param        id    path      string  true   "Version ID"
// @Param        lang  query     string  false  "Target language"
// @Success      200   {object}  response.Response{data=[]model.SegmentTranslation}
// @Router       /api/versions/{id}/translations [get]
func (h *TranslationHandler) ListTranslations(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.translationService.ListTranslations(c.Request.Context(), id, c.Query("lang"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, list))
}

// SaveTranslation stores a manual translation of one segment.
// @Summary      Save segment translation
// @Tags         translations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Segment ID"
// @Param        lang     path      string                      true  "Target language"
// @Param        payload  body      service.SaveTranslationDTO  true  "Translation"
// @Success      200      {object}  response.Response{data=model.SegmentTranslation}
// @Router       /api/segments/{id}/translations/{lang} [put]
func (h *TranslationHandler) SaveTranslation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SaveTranslationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	t, err := h.translationService.SaveSegmentTranslation(c.Request.Context(), id, c.Param("lang"), req, middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}

// @Summary      Review translation
// @Tags         translations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Translation ID"
// @Param        payload  body      service.ReviewTranslationDTO  true  "New status"
// @Success      200      {object}  response.Response{data=model.SegmentTranslation}
// @Router       /api/translations/{id}/review [put]
func (h *TranslationHandler) ReviewTranslation(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ReviewTranslationDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	t, err := h.translationService.ReviewTranslation(c.Request.Context(), id, model.TranslationStatus(req.Status), middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, t))
}
