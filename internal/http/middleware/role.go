package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AritraDas07/Credit-Chain-Pro/internal/ledger"
)

// RoleChecker reports whether an identity holds a role. The access registry
// implements it.
type RoleChecker interface {
	Has(identity ledger.Identity, role string) bool
}

// RequireRole gates routes that have no core-side role check of their own
// (operational read surfaces). Core operations re-check roles themselves.
func RequireRole(roles RoleChecker, allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := ledger.Identity(CallerIdentity(c))
		if identity.IsZero() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		for _, role := range allowed {
			if roles.Has(identity, role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
