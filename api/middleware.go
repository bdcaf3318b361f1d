package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"homeflow/auth"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// TokenVerifier validates a bearer token and yields the caller's identity.
type TokenVerifier interface {
	VerifyToken(tokenString string) (string, auth.Role, error)
}

// RequireAuth validates the Authorization header and attaches the caller's
// identity to the request context.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "detail": "Authorization header required."})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "detail": "Bearer token required."})
			return
		}
		userID, role, err := verifier.VerifyToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "detail": "Invalid access token."})
			return
		}
		c.Set(userIDKey, userID)
		c.Set(userRoleKey, role)
		c.Next()
	}
}

// CallerID returns the authenticated user id set by RequireAuth.
func CallerID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
