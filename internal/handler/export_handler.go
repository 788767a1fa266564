package handler

import (
	"errors"
	"net/http"

	"legaldocs/internal/middleware"
	"legaldocs/internal/service"
	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
)

type ExportHandler struct {
	exportService service.ExportService
	verifyService service.VerifyService
	auth          *middleware.Auth
	idempotent    gin.HandlerFunc
}

func NewExportHandler(exportService service.ExportService, verifyService service.VerifyService, auth *middleware.Auth, idempotent gin.HandlerFunc) *ExportHandler {
	if idempotent == nil {
		idempotent = func(c *gin.Context) { c.Next() }
	}
	return &ExportHandler{exportService: exportService, verifyService: verifyService, auth: auth, idempotent: idempotent}
}

func (h *ExportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/versions/:id/export", h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleLawyer), h.idempotent, h.Export)
	router.GET("/api/versions/:id/package", h.auth.Authenticate(), h.DownloadPackage)
	// public: printed in the QR code of every package
	router.GET("/api/verify", h.Verify)
}

// Export assembles the one export package of a version
// @Summary      Export version
// @Description  Checks the approval gate, builds the bundle, stores it and locks the version as exported
// @Tags         export
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id               path      string             true   "Version ID"
// @Param        Idempotency-Key  header    string             false  "Replay key"
// @Param        payload          body      service.ExportDTO  false  "Target languages (default: required languages)"
// @Success      201              {object}  response.Response{data=service.PackageResult}
// @Failure      409              {object}  response.Response
// @Failure      503              {object}  response.Response
// @Router       /api/versions/{id}/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ExportDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request payload: "+err.Error())
			return
		}
	}

	res, err := h.exportService.GeneratePackage(c.Request.Context(), id, req.TargetLangs, middleware.ActorID(c))
	if err != nil {
		if res != nil && errors.Is(err, service.ErrPersistenceFailure) {
			// the bundle is stored; tell the caller where
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(http.StatusInternalServerError, err.Error(), gin.H{
				"package_hash": res.Hash,
				"storage_path": res.StoragePath,
			}))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// DownloadPackage streams the stored bundle after checking its hash
// @Summary      Download package
// @Tags         export
// @Security     BearerAuth
// @Produce      text/markdown
// @Param        id   path      string  true  "Version ID"
// @Success      200  {string}  string
// @Failure      404  {object}  response.Response
// @Router       /api/versions/{id}/package [get]
func (h *ExportHandler) DownloadPackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pkg, data, err := h.exportService.GetPackage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Package-Hash", pkg.PackageHash)
	c.Header("Content-Disposition", `attachment; filename="`+id.String()+`.md"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", data)
}

// Verify answers whether a hash belongs to a version or its exported package
// @Summary      Verify document
// @Tags         verify
// @Produce      json
// @Param        versionId  query     string  true   "Version ID"
// @Param        hash       query     string  false  "Content or package SHA-256"
// @Success      200        {object}  response.Response{data=service.VerificationSummary}
// @Failure      404        {object}  response.Response
// @Router       /api/verify [get]
func (h *ExportHandler) Verify(c *gin.Context) {
	sum, err := h.verifyService.Verify(c.Request.Context(), c.Query("versionId"), c.Query("hash"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, sum))
}
