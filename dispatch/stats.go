package dispatch

import (
	"math"
	"time"

	"food-delivery/platform/models"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// Placeholder until a rating system exists.
const defaultRating = 4.8

// ParsePeriod maps a period token onto a known window; anything
// unrecognized falls back to the all-time window.
func ParsePeriod(s string) Period {
	switch Period(s) {
	case PeriodToday, PeriodWeek, PeriodMonth:
		return Period(s)
	default:
		return PeriodTotal
	}
}

// PeriodStart returns the inclusive lower bound of the window ending at now.
func PeriodStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	default:
		return time.Unix(0, 0)
	}
}

// PeriodStats is the aggregate a driver sees for one named time window.
type PeriodStats struct {
	TotalOrders     int       `json:"totalOrders"`
	CompletedOrders int       `json:"completedOrders"`
	CancelledOrders int       `json:"cancelledOrders"`
	TotalEarnings   float64   `json:"totalEarnings"`
	AvgOrderValue   float64   `json:"avgOrderValue"`
	AverageRating   float64   `json:"averageRating"`
	SuccessRate     int       `json:"successRate"`
	Period          Period    `json:"period"`
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
}

// AggregatePeriod computes stats over the driver's orders created inside
// [PeriodStart(p, now), now]. Pure and deterministic given its inputs.
func AggregatePeriod(orders []models.Order, p Period, now time.Time) PeriodStats {
	start := PeriodStart(p, now)

	stats := PeriodStats{
		AverageRating: defaultRating,
		Period:        p,
		StartDate:     start,
		EndDate:       now,
	}
	for _, o := range orders {
		if o.CreatedAt.Before(start) || o.CreatedAt.After(now) {
			continue
		}
		stats.TotalOrders++
		switch o.Status {
		case models.OrderStatusDelivered:
			stats.CompletedOrders++
			stats.TotalEarnings += parseAmount(o.DriverEarnings)
		case models.OrderStatusCancelled:
			stats.CancelledOrders++
		}
	}
	if stats.CompletedOrders > 0 {
		stats.AvgOrderValue = stats.TotalEarnings / float64(stats.CompletedOrders)
	}
	stats.SuccessRate = successRate(stats.CompletedOrders, stats.TotalOrders)
	return stats
}

// DashboardStats is the rolled-up view on the driver dashboard.
type DashboardStats struct {
	TodayOrders         int     `json:"todayOrders"`
	TodayEarnings       float64 `json:"todayEarnings"`
	WeeklyOrders        int     `json:"weeklyOrders"`
	WeeklyEarnings      float64 `json:"weeklyEarnings"`
	MonthlyOrders       int     `json:"monthlyOrders"`
	MonthlyEarnings     float64 `json:"monthlyEarnings"`
	CompletedToday      int     `json:"completedToday"`
	TotalOrders         int     `json:"totalOrders"`
	TotalEarnings       float64 `json:"totalEarnings"`
	CompletedOrders     int     `json:"completedOrders"`
	CancelledOrders     int     `json:"cancelledOrders"`
	AverageRating       float64 `json:"averageRating"`
	AverageDeliveryTime int     `json:"averageDeliveryTime"`
	SuccessRate         int     `json:"successRate"`
}

// AggregateDashboard folds a driver's full order history into the
// dashboard counters. Average delivery time only considers delivered
// orders carrying both an accepted and a delivered timestamp.
func AggregateDashboard(orders []models.Order, now time.Time) DashboardStats {
	todayStart := PeriodStart(PeriodToday, now)
	weekStart := PeriodStart(PeriodWeek, now)
	monthStart := PeriodStart(PeriodMonth, now)

	stats := DashboardStats{AverageRating: defaultRating}

	var deliveryTime time.Duration
	var timedDeliveries int
	for _, o := range orders {
		stats.TotalOrders++

		delivered := o.Status == models.OrderStatusDelivered
		earnings := 0.0
		if delivered {
			stats.CompletedOrders++
			earnings = parseAmount(o.DriverEarnings)
			stats.TotalEarnings += earnings
			if o.AcceptedAt != nil && o.DeliveredAt != nil {
				deliveryTime += o.DeliveredAt.Sub(*o.AcceptedAt)
				timedDeliveries++
			}
		} else if o.Status == models.OrderStatusCancelled {
			stats.CancelledOrders++
		}

		if !o.CreatedAt.Before(todayStart) {
			stats.TodayOrders++
			stats.TodayEarnings += earnings
			if delivered {
				stats.CompletedToday++
			}
		}
		if !o.CreatedAt.Before(weekStart) {
			stats.WeeklyOrders++
			stats.WeeklyEarnings += earnings
		}
		if !o.CreatedAt.Before(monthStart) {
			stats.MonthlyOrders++
			stats.MonthlyEarnings += earnings
		}
	}

	if timedDeliveries > 0 {
		stats.AverageDeliveryTime = int(math.Round(deliveryTime.Minutes() / float64(timedDeliveries)))
	}
	stats.SuccessRate = successRate(stats.CompletedOrders, stats.TotalOrders)
	return stats
}

func successRate(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
