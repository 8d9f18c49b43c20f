package handlers

import (
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_delivery_orders_created_total",
		Help: "The total number of orders created",
	})

	ordersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_delivery_orders_accepted_total",
		Help: "The total number of orders accepted by drivers",
	})

	ordersDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "food_delivery_orders_delivered_total",
		Help: "The total number of orders delivered",
	})

	connectedDrivers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "food_delivery_connected_drivers",
		Help: "The number of drivers connected over WebSocket",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "food_delivery_request_duration_seconds",
		Help:    "Time spent handling a request",
		Buckets: prometheus.DefBuckets,
	})
)

func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		requestDuration.Observe(time.Since(start).Seconds())
		return err
	}
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
