package handler

import (
	"errors"
	"net/http"

	"legaldocs/internal/middleware"
	"legaldocs/internal/service"
	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
	auth            *middleware.Auth
}

func NewApprovalHandler(approvalService service.ApprovalService, auth *middleware.Auth) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService, auth: auth}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/versions/:id")
	{
		approvals.POST("/approvals", h.auth.RequireRole(middleware.RoleAdmin, middleware.RoleLawyer, middleware.RoleReviewer), h.SubmitApproval)
		approvals.GET("/approvals", h.auth.Authenticate(), h.GetApprovalStatus)
		approvals.GET("/gate", h.auth.Authenticate(), h.CheckGate)
	}
}

// SubmitApproval records one reviewer decision for a scope of a version
// @Summary      Submit approval
// @Description  Scope is "source" or a target language. The caller's role comes from the token.
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Version ID"
// @Param        payload  body      service.SubmitApprovalDTO  true  "Decision"
// @Success      201      {object}  response.Response{data=model.Approval}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/versions/{id}/approvals [post]
func (h *ApprovalHandler) SubmitApproval(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.SubmitApprovalDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	approval, err := h.approvalService.SubmitApproval(c.Request.Context(), id, req, middleware.UserRole(c), middleware.ActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, approval))
}

// GetApprovalStatus returns the derived state and decision history of one scope
// @Summary      Approval status
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true   "Version ID"
// @Param        scope  query     string  false  "Scope (default source)"
// @Success      200    {object}  response.Response{data=service.ScopeStatus}
// @Router       /api/versions/{id}/approvals [get]
func (h *ApprovalHandler) GetApprovalStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	st, err := h.approvalService.GetApprovalStatus(c.Request.Context(), id, c.Query("scope"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, st))
}

// CheckGate reports whether every required scope is approved. A closed gate is
// still a successful answer.
// @Summary      Approval gate
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Version ID"
// @Success      200  {object}  response.Response{data=service.GateResult}
// @Router       /api/versions/{id}/gate [get]
func (h *ApprovalHandler) CheckGate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	gate, err := h.approvalService.CheckGate(c.Request.Context(), id)
	var blocked *service.BlockedError
	if err != nil && !errors.As(err, &blocked) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gate))
}
