package order

import "math"

// Rates in NT$.
const (
	BaseFare        = 70
	RatePerKM       = 15
	RatePerMinute   = 3
	avgCitySpeedKMH = 24.0
)

// Fare holds the fare components in whole NT$.
type Fare struct {
	Base     int `json:"base"`
	Distance int `json:"distance"`
	Time     int `json:"time"`
	Total    int `json:"total"`
}

// ComputeFare returns base + distance_km*per_km + duration_min*per_min, each
// component rounded to whole NT$.
func ComputeFare(distanceKM float64, durationMin int) (Fare, error) {
	if distanceKM < 0 || durationMin < 0 || math.IsNaN(distanceKM) {
		return Fare{}, ErrNegativeFareInputs
	}
	fare := Fare{
		Base:     BaseFare,
		Distance: int(math.Round(distanceKM * RatePerKM)),
		Time:     durationMin * RatePerMinute,
	}
	fare.Total = fare.Base + fare.Distance + fare.Time
	return fare, nil
}

// EstimateDurationMinutes estimates trip time from distance using an average
// city speed, rounded up, at least one minute.
func EstimateDurationMinutes(distanceKM float64) int {
	minutes := (distanceKM / avgCitySpeedKMH) * 60.0

	m := int(math.Ceil(minutes))
	if m < 1 {
		return 1
	}
	return m
}

func roundKM(km float64) float64 {
	return math.Round(km*100) / 100
}
