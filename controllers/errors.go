package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/fnb-kiosk/services"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

// respondServiceError maps a service error onto a status code. Only validation
// and not-found messages reach the client; anything else is logged.
func respondServiceError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	var sErr *services.StorageError

	switch {
	case errors.As(err, &vErr):
		utils.RespondError(c, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, services.ErrOrderNotFound):
		utils.RespondError(c, http.StatusNotFound, "Order not found")
	case errors.Is(err, services.ErrProofNotFound):
		utils.RespondError(c, http.StatusNotFound, "Payment proof not found")
	case errors.As(err, &sErr):
		utils.RespondError(c, http.StatusServiceUnavailable, "Order storage is temporarily unavailable, please retry")
	default:
		utils.ErrorLogger.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Error("Unhandled error")
		utils.RespondError(c, http.StatusInternalServerError, "Internal server error")
	}
}
