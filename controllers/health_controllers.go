package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fnb-kiosk/storage"
)

// StatusReporter is implemented by storage.Chain.
type StatusReporter interface {
	Status(ctx context.Context) storage.ChainStatus
}

type HealthController struct {
	Storage StatusReporter
	Started time.Time
}

func NewHealthController(st StatusReporter) *HealthController {
	return &HealthController{Storage: st, Started: time.Now()}
}

// Health reports liveness and the backend currently serving orders. It answers
// 200 even when only the volatile in-memory store is left; "volatile" tells the
// operator that orders will not survive a restart.
func (hc *HealthController) Health(c *gin.Context) {
	st := hc.Storage.Status(c.Request.Context())

	status := "ok"
	switch {
	case st.Active == "none":
		status = "unavailable"
	case st.Volatile:
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"db":        st.Active,
		"uptime":    time.Since(hc.Started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"volatile":  st.Volatile,
		"backends":  st.Backends,
	})
}
