package service

import (
	"context"
	"fmt"
	"math"

	"ride-coordinator/internal/ports"
)

// GetSystemOverview collects the stored aggregates and adds the number of
// signed-in sessions.
func (service *adminService) GetSystemOverview(ctx context.Context) (ports.SystemOverview, error) {
	now := service.now().UTC()

	overview, err := service.backend.Overview(ctx, now)
	if err != nil {
		service.log.Error(ctx, "overview_failed", "Failed to collect overview", err, nil)
		return ports.SystemOverview{}, fmt.Errorf("overview: %w", err)
	}

	res := ports.SystemOverview{
		Overview:     overview,
		LiveSessions: service.sessions.Len(),
	}
	if completed := overview.OrdersByStatus["completed"]; completed > 0 && overview.RevenueToday > 0 {
		res.AverageFareToday = int(math.Round(float64(overview.RevenueToday) / float64(completed)))
	}

	service.log.Info(ctx, "overview_collected", "System overview collected", map[string]any{
		"live_sessions": res.LiveSessions,
		"active_orders": overview.ActiveOrders,
	})
	return res, nil
}
