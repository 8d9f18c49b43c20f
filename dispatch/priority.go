package dispatch

import (
	"math"
	"sort"
	"strconv"
	"time"

	"food-delivery/platform/models"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   3,
	PriorityMedium: 2,
	PriorityLow:    1,
}

// Drivers earn a 15% commission on the order total.
const commissionRate = 0.15

// AvailableOrder is an unassigned order annotated for the driver feed.
// Priority is derived at read time and never stored.
type AvailableOrder struct {
	models.Order
	EstimatedEarnings int      `json:"estimatedEarnings"`
	Priority          Priority `json:"priority"`
	AgeInMinutes      int      `json:"ageInMinutes"`
}

// Classify tags an order by urgency: big or stale orders are high,
// small fresh orders are low, everything else is medium.
func Classify(totalAmount float64, age time.Duration) Priority {
	minutes := age.Minutes()
	if totalAmount > 100 || minutes > 15 {
		return PriorityHigh
	}
	if totalAmount < 50 && minutes < 5 {
		return PriorityLow
	}
	return PriorityMedium
}

// EstimateEarnings rounds the driver commission to whole currency units.
func EstimateEarnings(totalAmount float64) int {
	return int(math.Round(totalAmount * commissionRate))
}

// Prioritize annotates every confirmed unassigned order and sorts the
// result by priority rank descending, oldest first within a rank. The
// sort is stable; callers may truncate the result freely.
func Prioritize(orders []models.Order, now time.Time) []AvailableOrder {
	out := make([]AvailableOrder, 0, len(orders))
	for _, o := range orders {
		if o.Status != models.OrderStatusConfirmed || o.DriverID != "" {
			continue
		}
		total := parseAmount(o.TotalAmount)
		age := now.Sub(o.CreatedAt)
		out = append(out, AvailableOrder{
			Order:             o,
			EstimatedEarnings: EstimateEarnings(total),
			Priority:          Classify(total, age),
			AgeInMinutes:      int(math.Round(age.Minutes())),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if priorityRank[out[i].Priority] != priorityRank[out[j].Priority] {
			return priorityRank[out[i].Priority] > priorityRank[out[j].Priority]
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// parseAmount reads a decimal money string; empty or malformed counts as zero.
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
