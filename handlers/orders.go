package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"food-delivery/platform/dispatch"
	"food-delivery/platform/models"
	"food-delivery/platform/storage"
)

// Statuses the ordering side (restaurant/admin) may set before a driver
// is involved.
var intakeStatuses = map[models.OrderStatus]bool{
	models.OrderStatusConfirmed: true,
	models.OrderStatusPreparing: true,
	models.OrderStatusCancelled: true,
}

// @Summary Create an order
// @Tags Orders
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Router /orders [post]
func (s *Server) createOrder(c *fiber.Ctx) error {
	var req struct {
		CustomerName    string `json:"customerName"`
		CustomerPhone   string `json:"customerPhone"`
		DeliveryAddress string `json:"deliveryAddress"`
		Items           string `json:"items"`
		TotalAmount     string `json:"totalAmount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.CustomerName == "" || req.CustomerPhone == "" || req.DeliveryAddress == "" {
		return fiber.NewError(fiber.StatusBadRequest, "customer name, phone and delivery address are required")
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DeliveryAddress: req.DeliveryAddress,
		Items:           req.Items,
		TotalAmount:     req.TotalAmount,
		Status:          models.OrderStatusPending,
		CreatedAt:       time.Now(),
	}
	if err := s.store.CreateOrder(c.Context(), order); err != nil {
		return storeError(err)
	}

	ordersCreated.Inc()
	if err := s.logEvent(fiber.Map{
		"event":    "order_created",
		"order_id": order.ID,
	}); err != nil {
		log.Printf("Failed to log order event: %v", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "order": order})
}

func (s *Server) getOrder(c *fiber.Ctx) error {
	order, err := s.store.GetOrder(c.Context(), c.Params("id"))
	if err != nil {
		return storeError(err)
	}
	return c.JSON(order)
}

// updateOrder is the restaurant-side status transition. Confirming an
// order puts it on the dispatch queue for drivers.
func (s *Server) updateOrder(c *fiber.Ctx) error {
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if !intakeStatuses[req.Status] {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status")
	}

	order, err := s.store.UpdateOrder(c.Context(), c.Params("id"), storage.OrderPatch{
		Status: &req.Status,
	})
	if err != nil {
		return storeError(err)
	}

	if order.Status == models.OrderStatusConfirmed {
		if err := s.publishOrder(order.ID); err != nil {
			log.Printf("Failed to queue order %s for dispatch: %v", order.ID, err)
		}
	}

	return c.JSON(fiber.Map{"success": true, "order": order})
}

func (s *Server) publishOrder(orderID string) error {
	if s.rabbitmq == nil {
		return nil
	}
	ch, err := s.rabbitmq.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.Publish(
		"",                         // exchange
		s.config.RabbitMQ.QueueName, // routing key
		false,                      // mandatory
		false,                      // immediate
		amqp.Publishing{
			ContentType: "text/plain",
			Body:        []byte(orderID),
		},
	)
}

// ConsumeOrders reads confirmed order ids off the dispatch queue and
// pushes them to connected drivers. Runs as a goroutine for the life of
// the process.
func (s *Server) ConsumeOrders() {
	ch, err := s.rabbitmq.Channel()
	if err != nil {
		log.Fatal(err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(s.config.RabbitMQ.QueueName, true, false, false, false, nil)
	if err != nil {
		log.Fatal(err)
	}

	msgs, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		log.Fatal(err)
	}

	for msg := range msgs {
		orderID := string(msg.Body)
		go s.dispatchOrder(orderID)
	}
}

func (s *Server) dispatchOrder(orderID string) {
	order, err := s.store.GetOrder(context.Background(), orderID)
	if err != nil {
		log.Printf("Error getting order %s: %v", orderID, err)
		return
	}

	annotated := dispatch.Prioritize([]models.Order{*order}, time.Now())
	if len(annotated) == 0 {
		// Already assigned or no longer confirmed, nothing to announce.
		return
	}
	s.notifyDrivers(annotated[0])
}

func (s *Server) notifyDrivers(order dispatch.AvailableOrder) {
	s.wsMux.Lock()
	defer s.wsMux.Unlock()

	for driverID, conn := range s.wsDrivers {
		err := conn.WriteJSON(fiber.Map{
			"event": "order_available",
			"order": order,
		})
		if err != nil {
			log.Printf("Failed to notify driver %s: %v", driverID, err)
		}
	}
}
