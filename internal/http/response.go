package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"todo-service/internal/service"
)

// ok writes the success envelope {code: 200, message, ...extra}.
func ok(c *gin.Context, message string, extra gin.H) {
	body := gin.H{"code": http.StatusOK, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// fail writes {code, message} with the same HTTP status and stops the chain.
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message})
}

// writeError maps a service error kind onto the response envelope. Errors of
// no known kind are logged and reported as 500 without detail.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrConflict):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		fail(c, http.StatusUnauthorized, err.Error())
	default:
		h.logger.WithFields(logFields(c)).Errorf("request failed: %v", err)
		fail(c, http.StatusInternalServerError, "internal server error")
	}
}
