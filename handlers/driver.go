package handlers

import (
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"food-delivery/platform/dispatch"
	"food-delivery/platform/models"
	"food-delivery/platform/storage"
)

// The dashboard feed shows at most this many available orders.
const maxAvailableOrders = 10

// Flat placeholder until per-order pricing lands.
const acceptEarnings = "10.00"

// Statuses a driver is currently working, in dashboard terms.
var currentOrderStatuses = map[models.OrderStatus]bool{
	models.OrderStatusPreparing: true,
	models.OrderStatusReady:     true,
	models.OrderStatusPickedUp:  true,
	models.OrderStatusOnWay:     true,
}

// Statuses a driver may set on an assigned order. This is a flat
// allow-list, not a transition graph: the driver can move among these
// three in any order.
var driverSettableStatuses = map[models.OrderStatus]bool{
	models.OrderStatusReady:     true,
	models.OrderStatusPickedUp:  true,
	models.OrderStatusDelivered: true,
}

func (s *Server) registerDriver(c *fiber.Ctx) error {
	var req struct {
		Name            string `json:"name"`
		Phone           string `json:"phone"`
		Email           string `json:"email"`
		CurrentLocation string `json:"currentLocation"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name and phone are required")
	}

	driver := &models.Driver{
		ID:              uuid.New().String(),
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		CurrentLocation: req.CurrentLocation,
		IsAvailable:     true,
		CreatedAt:       time.Now(),
	}
	if err := s.store.CreateDriver(c.Context(), driver); err != nil {
		return storeError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "driver": driver})
}

// @Summary Driver dashboard
// @Tags Driver
// @Produce json
// @Param driverId query string true "Driver ID"
// @Success 200 {object} map[string]interface{}
// @Router /driver/dashboard [get]
func (s *Server) driverDashboard(c *fiber.Ctx) error {
	driverID := c.Query("driverId")
	if driverID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "driver id is required")
	}

	ctx := c.Context()
	driver, err := s.store.GetDriver(ctx, driverID)
	if err != nil {
		return storeError(err)
	}

	allOrders, err := s.store.GetOrders(ctx)
	if err != nil {
		return storeError(err)
	}

	now := time.Now()
	driverOrders := make([]models.Order, 0)
	currentOrders := make([]models.Order, 0)
	for _, order := range allOrders {
		if order.DriverID != driverID {
			continue
		}
		driverOrders = append(driverOrders, order)
		if currentOrderStatuses[order.Status] {
			currentOrders = append(currentOrders, order)
		}
	}

	availableOrders := dispatch.Prioritize(allOrders, now)
	if len(availableOrders) > maxAvailableOrders {
		availableOrders = availableOrders[:maxAvailableOrders]
	}

	driverLocation := driver.CurrentLocation
	lastActiveAt := now
	if presence := s.driverPresence(ctx, driverID); len(presence) > 0 {
		if lat, lon := presence["latitude"], presence["longitude"]; lat != "" && lon != "" {
			driverLocation = lat + "," + lon
		}
		if unix, err := strconv.ParseInt(presence["last_update"], 10, 64); err == nil {
			lastActiveAt = time.Unix(unix, 0)
		}
	}

	return c.JSON(fiber.Map{
		"stats":           dispatch.AggregateDashboard(driverOrders, now),
		"availableOrders": availableOrders,
		"currentOrders":   currentOrders,
		"driverLocation":  driverLocation,
		"lastActiveAt":    lastActiveAt,
	})
}

// @Summary Accept an order
// @Tags Driver
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Router /driver/orders/{id}/accept [post]
func (s *Server) acceptOrder(c *fiber.Ctx) error {
	var req struct {
		DriverID string `json:"driverId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.DriverID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "driver id is required")
	}

	ctx := c.Context()
	if _, err := s.store.GetDriver(ctx, req.DriverID); err != nil {
		return storeError(err)
	}

	order, err := s.store.AssignOrder(ctx, c.Params("id"), req.DriverID, acceptEarnings, time.Now())
	if err != nil {
		return storeError(err)
	}

	ordersAccepted.Inc()
	if err := s.logEvent(fiber.Map{
		"event":     "order_assigned",
		"order_id":  order.ID,
		"driver_id": req.DriverID,
	}); err != nil {
		log.Printf("Failed to log assignment event: %v", err)
	}

	return c.JSON(fiber.Map{"success": true, "order": order})
}

// @Summary Update delivery status
// @Tags Driver
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Router /driver/orders/{id}/status [put]
func (s *Server) updateDeliveryStatus(c *fiber.Ctx) error {
	var req struct {
		DriverID string             `json:"driverId"`
		Status   models.OrderStatus `json:"status"`
		Location string             `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.DriverID == "" || req.Status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "driver id and status are required")
	}

	ctx := c.Context()
	order, err := s.store.GetOrder(ctx, c.Params("id"))
	if err != nil {
		return storeError(err)
	}
	if order.DriverID != req.DriverID {
		return fiber.NewError(fiber.StatusForbidden, "not allowed to update this order")
	}
	if !driverSettableStatuses[req.Status] {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status")
	}

	patch := storage.OrderPatch{Status: &req.Status}
	delivered := req.Status == models.OrderStatusDelivered
	if delivered {
		now := time.Now()
		patch.DeliveredAt = &now
	}

	updated, err := s.store.UpdateOrder(ctx, order.ID, patch)
	if err != nil {
		return storeError(err)
	}

	if req.Location != "" && s.rdb != nil {
		s.rdb.HSet(ctx, "driver:"+req.DriverID,
			"location", req.Location,
			"last_update", time.Now().Unix(),
		)
	}

	event := "order_status_updated"
	if delivered {
		event = "order_delivered"
		ordersDelivered.Inc()
	}
	if err := s.logEvent(fiber.Map{
		"event":     event,
		"order_id":  updated.ID,
		"driver_id": req.DriverID,
		"status":    updated.Status,
	}); err != nil {
		log.Printf("Failed to log status event: %v", err)
	}

	return c.JSON(fiber.Map{"success": true, "order": updated})
}

func (s *Server) driverOrder(c *fiber.Ctx) error {
	driverID := c.Query("driverId")
	if driverID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "driver id is required")
	}

	order, err := s.store.GetOrder(c.Context(), c.Params("id"))
	if err != nil {
		return storeError(err)
	}
	if order.DriverID != driverID {
		return fiber.NewError(fiber.StatusForbidden, "not allowed to view this order")
	}
	return c.JSON(order)
}

func (s *Server) driverOrders(c *fiber.Ctx) error {
	driverID := c.Query("driverId")
	if driverID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "driver id is required")
	}

	orders, err := s.store.GetOrdersByDriver(c.Context(), driverID)
	if err != nil {
		return storeError(err)
	}

	if status := c.Query("status"); status != "" {
		filtered := orders[:0]
		for _, order := range orders {
			if order.Status == models.OrderStatus(status) {
				filtered = append(filtered, order)
			}
		}
		orders = filtered
	}

	// Newest first
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	if orders == nil {
		orders = []models.Order{}
	}
	return c.JSON(orders)
}

// @Summary Driver statistics for a period
// @Tags Driver
// @Produce json
// @Param driverId query string true "Driver ID"
// @Param period query string false "today|week|month|total" default(today)
// @Success 200 {object} dispatch.PeriodStats
// @Router /driver/stats [get]
func (s *Server) driverStats(c *fiber.Ctx) error {
	driverID := c.Query("driverId")
	if driverID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "driver id is required")
	}

	ctx := c.Context()
	if _, err := s.store.GetDriver(ctx, driverID); err != nil {
		return storeError(err)
	}

	orders, err := s.store.GetOrdersByDriver(ctx, driverID)
	if err != nil {
		return storeError(err)
	}

	period := dispatch.ParsePeriod(c.Query("period", "today"))
	return c.JSON(dispatch.AggregatePeriod(orders, period, time.Now()))
}

func (s *Server) updateProfile(c *fiber.Ctx) error {
	// Only the allow-listed fields below reach the store; anything else
	// in the body is silently dropped.
	var req struct {
		DriverID        string  `json:"driverId"`
		Name            *string `json:"name"`
		Phone           *string `json:"phone"`
		Email           *string `json:"email"`
		CurrentLocation *string `json:"currentLocation"`
		IsAvailable     *bool   `json:"isAvailable"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.DriverID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "driver id is required")
	}

	driver, err := s.store.UpdateDriver(c.Context(), req.DriverID, storage.DriverPatch{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		CurrentLocation: req.CurrentLocation,
		IsAvailable:     req.IsAvailable,
	})
	if err != nil {
		return storeError(err)
	}

	if err := s.logEvent(fiber.Map{
		"event":     "driver_profile_updated",
		"driver_id": driver.ID,
	}); err != nil {
		log.Printf("Failed to log profile event: %v", err)
	}

	return c.JSON(fiber.Map{"success": true, "driver": driver})
}
