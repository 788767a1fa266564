package handler

import (
	"net/http"

	"legaldocs/internal/middleware"
	"legaldocs/internal/service"
	"legaldocs/pkg/pagination"
	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
	auth         *middleware.Auth
}

func NewAuditHandler(auditService service.AuditService, auth *middleware.Auth) *AuditHandler {
	return &AuditHandler{auditService: auditService, auth: auth}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleLawyer))
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records, newest first
// @Summary      Get audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        version_id   query     string  false  "Version ID"
// @Param        entity_type  query     string  false  "document, version, translation, approval or package"
// @Param        actor_id     query     string  false  "Actor"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200          {object}  response.Response{data=[]service.AuditLogResponse,meta=pagination.Meta}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	p := pagination.Parse(c)
	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), service.AuditLogFilter{
		VersionID:  c.Query("version_id"),
		EntityType: c.Query("entity_type"),
		ActorID:    c.Query("actor_id"),
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, logs, p.Meta(total)))
}
