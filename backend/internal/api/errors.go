package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "scholargraph/backend/pkg/errors"
)

// statusFor maps an error category to an HTTP status
func statusFor(err error) int {
	t, ok := apperrors.TypeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch t {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeInvalidParent:
		return http.StatusBadRequest
	case apperrors.ErrorTypeForbidden:
		return http.StatusForbidden
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ..., "type": ...}. Storage failures
// are logged and reported without their cause.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	t, _ := apperrors.TypeOf(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.String("type", string(t)),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": http.StatusText(status), "type": t})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "type": t})
}

// respondBindError reports a body that could not be decoded or failed validation
func (s *Server) respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		s.respondError(c, apperrors.NewValidation(fe.Field(), fe.Tag()))
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
