package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/auth"
)

const IdentityKey = "identity"

// RequireAuth authenticates the caller from a bearer token and stages the
// ledger identity for handlers. Authorization itself happens inside the
// ledger core at every operation entry.
func RequireAuth(jwt *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := jwt.Parse(strings.TrimSpace(token))
		if err != nil || claims.Type != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(IdentityKey, claims.Identity)
		c.Next()
	}
}

// CallerIdentity reads the authenticated identity staged by RequireAuth.
func CallerIdentity(c *gin.Context) string {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return ""
	}
	identity, _ := v.(string)
	return identity
}
