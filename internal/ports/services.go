package ports

import (
	"context"
	"time"
)

// ----- DTOs for the admin board -----

// Overview is the aggregate returned by GET /admin/overview.
type Overview struct {
	Timestamp       time.Time      `json:"timestamp"`
	OrdersByStatus  map[string]int `json:"orders_by_status"`
	DriversByStatus map[string]int `json:"drivers_by_status"`
	ActiveOrders    int            `json:"active_orders"`
	OrdersToday     int            `json:"orders_today"`
	RevenueToday    int            `json:"revenue_today"`
}

// SystemOverview is the overview plus the coordinator's live view.
type SystemOverview struct {
	Overview
	LiveSessions     int `json:"live_sessions"`
	AverageFareToday int `json:"average_fare_today"`
}

// LiveSession is one signed-in account as the admin board lists it.
type LiveSession struct {
	AccountID      string `json:"account_id"`
	Name           string `json:"name"`
	Role           string `json:"role"`
	DriverStatus   string `json:"driver_status,omitempty"`
	CurrentOrderID string `json:"current_order_id,omitempty"`
	OrderStatus    string `json:"order_status,omitempty"`
	Demo           bool   `json:"demo"`
	Version        uint64 `json:"version"`
}

// LiveSessionsResult is one page of live sessions.
type LiveSessionsResult struct {
	Sessions   []LiveSession `json:"sessions"`
	TotalCount int           `json:"total_count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
}

// AdminService backs the admin board endpoints.
type AdminService interface {
	GetSystemOverview(ctx context.Context) (SystemOverview, error)
	GetLiveSessions(ctx context.Context, page, pageSize string) (LiveSessionsResult, error)
}
