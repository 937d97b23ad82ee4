package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/utils"
)

const (
	ContextUsername = "username"
	ContextRole     = "role"
	ContextToken    = "token"
)

// tokenFromRequest reads a Bearer header, falling back to the token query
// parameter because browsers cannot set headers on websocket upgrades.
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		return ""
	}
	return c.Query("token")
}

// AdminAuth guards admin routes with a JWT from /api/admin/login. When enabled
// is false every caller is treated as admin.
func AdminAuth(enabled bool, secret []byte, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Set(ContextRole, "admin")
			c.Next()
			return
		}

		token := tokenFromRequest(c)
		if token == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, "Authorization token missing")
			return
		}
		if blacklist != nil && blacklist.Contains(token) {
			utils.AbortWithError(c, http.StatusUnauthorized, "Token has been revoked")
			return
		}

		claims, err := utils.ParseToken(token, secret)
		if err != nil {
			utils.AbortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextToken, token)
		c.Next()
	}
}
