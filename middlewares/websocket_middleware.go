package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/utils"
)

// RequireWebSocket rejects plain HTTP requests to websocket endpoints.
func RequireWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			utils.AbortWithError(c, http.StatusBadRequest, "websocket upgrade required")
			return
		}
		c.Next()
	}
}
