package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/fnb-kiosk/utils"
)

// AuditLogger records who ran an admin action and whether it succeeded.
func AuditLogger(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		fields := logrus.Fields{
			"action": action,
			"id":     c.Param("id"),
			"status": c.Writer.Status(),
		}
		if user, ok := c.Get(ContextUsername); ok {
			fields["admin"] = user
		}

		if c.Writer.Status() < 400 {
			utils.InfoLogger.WithFields(fields).Info("admin action")
		} else {
			utils.ErrorLogger.WithFields(fields).Warn("admin action failed")
		}
	}
}
