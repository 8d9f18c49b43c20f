package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/gofiber/websocket/v2"

	"food-delivery/platform/config"
	_ "food-delivery/platform/docs"
	"food-delivery/platform/handlers"
	"food-delivery/platform/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	store, err := storage.NewPostgresStore(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres:", err)
	}
	defer store.Close()

	server := handlers.NewServer(cfg, store)
	if err := server.InitConnections(); err != nil {
		log.Fatal("Failed to initialize connections:", err)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middlewares
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(handlers.MetricsMiddleware())

	// Routes
	server.SetupRoutes(app)

	// Swagger
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Metrics endpoint
	app.Get("/metrics", handlers.MetricsHandler())

	// WebSocket routes
	app.Use("/ws", server.ValidateToken)
	app.Get("/ws", websocket.New(server.HandleDriverWebSocket))
	app.Get("/track", websocket.New(server.HandleTrackingWebSocket))

	// Start order consumer
	go server.ConsumeOrders()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	log.Printf("Server starting on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
