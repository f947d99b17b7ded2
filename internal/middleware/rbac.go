package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lab-ops-api/internal/authz"
	"github.com/noah-isme/lab-ops-api/internal/models"
	appErrors "github.com/noah-isme/lab-ops-api/pkg/errors"
	"github.com/noah-isme/lab-ops-api/pkg/response"
)

// RoleChecker reports whether a role appears in an action's rule. *authz.Gate satisfies it.
type RoleChecker interface {
	RoleMayAttempt(role models.UserRole, action authz.Action) bool
}

// RequireAction rejects callers whose role can never perform action. Checks
// that depend on the concrete target run later in the service.
func RequireAction(gate RoleChecker, action authz.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if !gate.RoleMayAttempt(claims.Role, action) {
			response.Error(c, authz.Decision{Reason: authz.ReasonRoleNotPermitted}.Err())
			c.Abort()
			return
		}
		c.Next()
	}
}
