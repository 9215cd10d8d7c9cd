package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	callerKey       = "caller"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger tags the request with an id and logs it once it completes.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)

		c.Next()

		entry := logger.WithFields(logFields(c)).WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"duration": time.Since(start).Round(time.Microsecond),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("http request")
			return
		}
		entry.Info("http request")
	}
}

// Recovery turns a handler panic into a logged 500 envelope.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithFields(logFields(c)).Errorf("panic recovered: %v", recovered)
		fail(c, http.StatusInternalServerError, "internal server error")
	})
}

// requireAuth resolves the bearer token into the caller's username.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, err := h.users.Authenticate(bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			h.logger.WithFields(logFields(c)).Debugf("rejected token: %v", err)
			fail(c, http.StatusUnauthorized, err.Error())
			return
		}
		c.Set(callerKey, username)
		c.Next()
	}
}

// bearerToken extracts the credential from "Bearer <token>"; any other
// header shape yields "".
func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// caller is the authenticated username, or "" when auth is disabled.
func caller(c *gin.Context) string {
	return c.GetString(callerKey)
}

func logFields(c *gin.Context) logrus.Fields {
	fields := logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"request_id": c.GetString(requestIDKey),
	}
	if username := caller(c); username != "" {
		fields["username"] = username
	}
	return fields
}
