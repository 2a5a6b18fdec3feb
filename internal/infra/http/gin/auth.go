package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"lendit/internal/infra/security"
)

const callerKey = "lendit.caller"

// TokenParser resolves an Authorization header into the calling user.
type TokenParser interface {
	ParseAuthorization(header string) (security.Principal, error)
}

// AuthMiddleware resolves bearer tokens. Requests without one continue
// anonymously; routes that need a user call requireUser.
type AuthMiddleware struct {
	Verifier TokenParser
	Logger   *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || m.Verifier == nil {
		c.Next()
		return
	}
	caller, err := m.Verifier.ParseAuthorization(header)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Debug("bearer token rejected", "path", c.FullPath(), "error", err)
		}
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "unauthenticated"})
		return
	}
	c.Set(callerKey, caller)
	c.Next()
}

// requireUser returns the caller's user id or answers 401.
func requireUser(c *gin.Context) (string, bool) {
	if caller, ok := c.Value(callerKey).(security.Principal); ok && caller.UserID != "" {
		return caller.UserID, true
	}
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required", "code": "unauthenticated"})
	return "", false
}
