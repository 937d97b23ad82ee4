package utils

import (
	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Success: code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError writes {success:false, error:message}. Callers pass a message that
// is safe to show to the client; internal causes are logged, not returned.
func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{
		Success: false,
		Error:   message,
	})
}

// AbortWithError is RespondError for middlewares.
func AbortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{
		Success: false,
		Error:   message,
	})
}
