package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/utils"
)

// RequireRole lets the request through only if AdminAuth put one of roles on
// the context.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ContextRole)
		if !exists {
			utils.AbortWithError(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		for _, role := range roles {
			if userRole == role {
				c.Next()
				return
			}
		}
		utils.AbortWithError(c, http.StatusForbidden, "insufficient role")
	}
}
