package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/fnb-kiosk/utils"
)

const DefaultHeartbeatInterval = time.Minute

// BackendReporter names the storage backend currently serving requests.
type BackendReporter interface {
	ActiveName(ctx context.Context) string
}

// Heartbeat logs uptime and the active backend on a fixed interval and runs
// small housekeeping jobs on the same tick.
type Heartbeat struct {
	Interval time.Duration
	Backend  BackendReporter
	Jobs     []func(ctx context.Context)

	started time.Time
}

func NewHeartbeat(interval time.Duration, backend BackendReporter) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Heartbeat{Interval: interval, Backend: backend, started: time.Now()}
}

func (h *Heartbeat) Uptime() time.Duration {
	return time.Since(h.started)
}

// Run blocks until ctx is cancelled.
func (h *Heartbeat) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.beat(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *Heartbeat) beat(ctx context.Context) {
	fields := logrus.Fields{"uptime": h.Uptime().Round(time.Second).String()}
	if h.Backend != nil {
		fields["backend"] = h.Backend.ActiveName(ctx)
	}
	utils.InfoLogger.WithFields(fields).Info("Heartbeat")

	for _, job := range h.Jobs {
		job(ctx)
	}
}
