package earnings

import (
	"math"
	"time"
)

// Snapshot is the aggregate a driver sees for one period. It is replaced
// wholesale on every fetch.
type Snapshot struct {
	Period    Period    `json:"period"`
	Total     int       `json:"total"`
	Orders    int       `json:"orders"`
	Hours     float64   `json:"hours"`
	Average   float64   `json:"average"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewSnapshot builds a snapshot and derives the per-order average, which is
// 0 when there are no orders.
func NewSnapshot(period Period, total, orders int, hours float64) Snapshot {
	snapshot := Snapshot{
		Period:    period,
		Total:     total,
		Orders:    orders,
		Hours:     math.Round(hours*10) / 10,
		FetchedAt: time.Now().UTC(),
	}
	if orders > 0 {
		snapshot.Average = math.Round(float64(total)/float64(orders)*10) / 10
	}
	return snapshot
}
