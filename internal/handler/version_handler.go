package handler

import (
	"net/http"

	"legaldocs/internal/middleware"
	"legaldocs/internal/model"
	"legaldocs/internal/service"
	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
)

type LockVersionRequest struct {
	Status string `json:"status" binding:"required,oneof=approved exported"`
}

type IntegrityResponse struct {
	VersionID string `json:"version_id"`
	Valid     bool   `json:"valid"`
}

type VersionHandler struct {
	versionService service.VersionService
	segmentService service.SegmentService
	auth           *middleware.Auth
}

func NewVersionHandler(versionService service.VersionService, segmentService service.SegmentService, auth *middleware.Auth) *VersionHandler {
	return &VersionHandler{versionService: versionService, segmentService: segmentService, auth: auth}
}

func (h *VersionHandler) RegisterRoutes(router *gin.RouterGroup) {
	versions := router.Group("/api/versions")
	{
		versions.GET("/:id", h.auth.Authenticate(), h.GetVersion)
		versions.GET("/:id/segments", h.auth.Authenticate(), h.ListSegments)
		versions.POST("/:id/lock", h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleLawyer), h.LockVersion)
		versions.POST("/:id/verify-integrity", h.auth.Authenticate(), h.VerifyIntegrity)
	}
}

// @Summary      Get version
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Version ID"
// @Success      200  {object}  response.Response{data=model.Version}
// @Failure      404  {object}  response.Response
// @Router       /api/versions/{id} [get]
func (h *VersionHandler) GetVersion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	v, err := h.versionService.GetVersion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, v))
}

// @Summary      List segments
// @Tags         versions
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Version ID"
// @Success      200  {object}  response.Response{data=[]model.Segment}
// @Router       /api/versions/{id}/segments [get]
func (h *VersionHandler) ListSegments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	segs, err := h.segmentService.ListSegments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, segs))
}

// LockVersion freezes a version as approved (gate must pass) or exported.
// @Summary      Lock version
// @Tags         versions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Version ID"
// @Param        payload  body      LockVersionRequest  true  "Target status"
// @Success      200      {object}  response.Response{data=model.Version}
// @Failure      409      {object}  response.Response
// @Router       /api/versions/{id}/lock [post]
func (h *VersionHandler) LockVersion(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req LockVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	v, err := h.versionService.LockVersion(c.Request.Context(), id, model.VersionStatus(req.Status), middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, v))
}

// VerifyIntegrity compares the raw request body against the version's stored hash.
// @Summary      Verify content integrity
// @Tags         versions
// @Security     BearerAuth
// @Accept       plain
// @Produce      json
// @Param        id    path      string  true  "Version ID"
// @Param        body  body      string  true  "Candidate content"
// @Success      200   {object}  response.Response{data=IntegrityResponse}
// @Failure      422   {object}  response.Response
// @Router       /api/versions/{id}/verify-integrity [post]
func (h *VersionHandler) VerifyIntegrity(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		badRequest(c, "could not read body")
		return
	}
	valid, err := h.versionService.VerifyIntegrity(c.Request.Context(), id, body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, IntegrityResponse{VersionID: id.String(), Valid: valid}))
}
