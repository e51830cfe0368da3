package routes

import (
	"log/slog"
	"net/http"

	"outpass-control/internal/access"

	"github.com/gin-gonic/gin"
)

// RequirePermission creates middleware that checks for specific permission.
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := CurrentActor(c)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		rbac := c.MustGet("RBAC").(*access.RBAC)
		if !rbac.Can(string(actor.Role), resource, action) {
			slog.Warn("Permission denied",
				"user_id", actor.ID,
				"role", actor.Role,
				"resource", resource,
				"action", action)

			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "permission denied",
				"details": map[string]string{
					"resource": resource,
					"action":   action,
				},
			})
			return
		}

		slog.Debug("Permission granted",
			"user_id", actor.ID,
			"resource", resource,
			"action", action)

		c.Next()
	}
}
