package handler

import (
	"errors"
	"net/http"

	"legaldocs/internal/service"
	"legaldocs/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyExported), errors.Is(err, service.ErrApprovalBlocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrIntegrityMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, service.ErrSegmentsExist):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrTranslationUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)

	var blocked *service.BlockedError
	if errors.As(err, &blocked) {
		c.JSON(status, response.ErrorWithDetails(status, err.Error(), gin.H{"blocked_scopes": blocked.Scopes}))
		return
	}

	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		if !errors.Is(err, service.ErrPersistenceFailure) && !errors.Is(err, service.ErrTranslationUnavailable) {
			c.JSON(status, response.Error(status, "internal server error"))
			return
		}
	}
	c.JSON(status, response.Error(status, err.Error()))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// pathID parses a uuid path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
