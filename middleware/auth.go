package middleware

import (
	"net/http"
	"strings"

	"blogapi/auth"

	"github.com/gin-gonic/gin"
)

// UserIDKey is where RequireAuth stores the caller id in the gin context.
const UserIDKey = "userId"

const (
	errAuthRequired = "authentication required"
	errInvalidToken = "invalid or expired token"
)

// RequireAuth rejects requests without a valid Bearer token. On success the
// token's user id is the only identity handlers see.
func RequireAuth(tm *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip middleware for OPTIONS requests (CORS preflight)
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   errAuthRequired,
			})
			return
		}

		userID, err := tm.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   errInvalidToken,
			})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CallerID returns the id set by RequireAuth, or "" on public routes.
func CallerID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
