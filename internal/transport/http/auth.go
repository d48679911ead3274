package httptransport

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"voiceprint-server-go/internal/platform/logging"
)

// ContextUserID is the gin context key holding the authenticated user.
const ContextUserID = "auth_user_id"

// TokenVerifier validates a bearer token and returns its user.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// BearerAuth rejects requests without a valid "Authorization: Bearer" token.
func BearerAuth(verifier TokenVerifier, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			RespondError(c, http.StatusUnauthorized, "missing bearer token", nil)
			c.Abort()
			return
		}

		userID, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.WarnTag("Auth", "rejected token for %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			RespondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// AuthenticatedUser returns the user set by BearerAuth, if any.
func AuthenticatedUser(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
