package worker

import (
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/yejune/do-worker/internal/store"
)

// DefaultMaintenanceSchedule runs maintenance nightly at 03:00 local.
const DefaultMaintenanceSchedule = "0 3 * * *"

// StartMaintenance schedules periodic store maintenance (FTS segment
// merge and WAL truncation) on the given cron expression. The returned
// cron must be stopped on shutdown.
func StartMaintenance(st *store.Store, schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := st.Maintain(); err != nil {
			slog.Warn("store maintenance failed", "error", err)
			return
		}
		slog.Info("store maintenance completed")
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
