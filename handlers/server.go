package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/streadway/amqp"

	"food-delivery/platform/config"
	"food-delivery/platform/storage"
)

// Server wires the HTTP handlers to the store and the side channels
// (Redis presence, RabbitMQ dispatch queue, Kafka event log, driver
// WebSockets). The side channels are optional: a Server built without
// InitConnections serves the REST surface against the store alone.
type Server struct {
	config *config.Config
	store  storage.Store

	rdb      *redis.Client
	rabbitmq *amqp.Connection
	kafka    sarama.SyncProducer

	wsMux     sync.Mutex
	wsDrivers map[string]*websocket.Conn
}

func NewServer(cfg *config.Config, store storage.Store) *Server {
	return &Server{
		config:    cfg,
		store:     store,
		wsDrivers: make(map[string]*websocket.Conn),
	}
}

func (s *Server) InitConnections() error {
	s.rdb = redis.NewClient(&redis.Options{
		Addr:     s.config.Redis.Addr,
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})

	// RabbitMQ connection with retry
	var rabbitmqConn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		log.Printf("Attempting to connect to RabbitMQ (attempt %d/5)...", i+1)
		rabbitmqConn, err = amqp.Dial(s.config.RabbitMQ.URL)
		if err == nil {
			break
		}
		if i < 4 {
			log.Printf("Failed to connect to RabbitMQ: %v. Retrying in 5 seconds...", err)
			time.Sleep(5 * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after 5 attempts: %v", err)
	}
	s.rabbitmq = rabbitmqConn

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(s.config.Kafka.Brokers, kafkaConfig)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %v", err)
	}
	s.kafka = producer

	return nil
}

func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", healthCheck)

	v1 := app.Group("/api/v1")

	orders := v1.Group("/orders")
	orders.Post("/", s.createOrder)
	orders.Get("/:id", s.getOrder)
	orders.Put("/:id", s.updateOrder)

	driver := v1.Group("/driver")
	driver.Post("/register", s.registerDriver)
	driver.Get("/dashboard", s.driverDashboard)
	driver.Post("/orders/:id/accept", s.acceptOrder)
	driver.Put("/orders/:id/status", s.updateDeliveryStatus)
	driver.Get("/orders/:id", s.driverOrder)
	driver.Get("/orders", s.driverOrders)
	driver.Get("/stats", s.driverStats)
	driver.Put("/profile", s.updateProfile)
}

func (s *Server) logEvent(event map[string]interface{}) error {
	if s.kafka == nil {
		return nil
	}
	event["timestamp"] = time.Now().Unix()
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = s.kafka.SendMessage(&sarama.ProducerMessage{
		Topic: s.config.Kafka.Topic,
		Value: sarama.StringEncoder(data),
	})
	return err
}

// storeError maps storage failures onto the HTTP error taxonomy.
// Anything unrecognized is a generic 500 so store internals never leak.
func storeError(err error) error {
	switch {
	case errors.Is(err, storage.ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, "order not found")
	case errors.Is(err, storage.ErrDriverNotFound):
		return fiber.NewError(fiber.StatusNotFound, "driver not found")
	case errors.Is(err, storage.ErrOrderTaken):
		return fiber.NewError(fiber.StatusBadRequest, "order cannot be accepted")
	default:
		log.Printf("store error: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
}

func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now(),
	})
}

// driverPresence reads the live Redis hash for a driver; empty when
// Redis is not wired or the driver has never connected.
func (s *Server) driverPresence(ctx context.Context, driverID string) map[string]string {
	if s.rdb == nil {
		return nil
	}
	presence, err := s.rdb.HGetAll(ctx, "driver:"+driverID).Result()
	if err != nil {
		return nil
	}
	return presence
}
