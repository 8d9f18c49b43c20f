package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt"
)

// ValidateToken guards the driver WebSocket. The REST surface carries
// driverId as an explicit parameter instead; only the long-lived socket
// needs a token.
func (s *Server) ValidateToken(c *fiber.Ctx) error {
	token := c.Query("token")
	driverID := c.Query("driverId")

	if token == "" || driverID == "" {
		return fiber.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWT.SecretKey), nil
	})

	if err != nil || claims["driver_id"] != driverID {
		return fiber.ErrUnauthorized
	}

	return c.Next()
}

type locationUpdate struct {
	DriverID  string  `json:"driverId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// HandleDriverWebSocket keeps a driver connected for order
// notifications and consumes their location pings into Redis.
func (s *Server) HandleDriverWebSocket(c *websocket.Conn) {
	driverID := c.Query("driverId")
	ctx := context.Background()

	s.wsMux.Lock()
	s.wsDrivers[driverID] = c
	s.wsMux.Unlock()
	connectedDrivers.Inc()

	if s.rdb != nil {
		err := s.rdb.HSet(ctx, "driver:"+driverID,
			"is_active", "true",
			"last_update", time.Now().Unix(),
		).Err()
		if err != nil {
			log.Printf("Error setting driver active: %v", err)
		}
	}

	defer func() {
		s.wsMux.Lock()
		delete(s.wsDrivers, driverID)
		s.wsMux.Unlock()
		connectedDrivers.Dec()

		if s.rdb != nil {
			if err := s.rdb.HSet(ctx, "driver:"+driverID, "is_active", "false").Err(); err != nil {
				log.Printf("Error setting driver inactive: %v", err)
			}
		}
		c.Close()
	}()

	for {
		var update locationUpdate
		if err := c.ReadJSON(&update); err != nil {
			break
		}
		if update.DriverID != driverID {
			continue
		}
		if s.rdb == nil {
			continue
		}

		err := s.rdb.HSet(ctx, "driver:"+driverID,
			"latitude", update.Latitude,
			"longitude", update.Longitude,
			"last_update", time.Now().Unix(),
		).Err()
		if err != nil {
			log.Printf("Error updating driver location: %v", err)
		}
	}
}

// HandleTrackingWebSocket pushes order status and the assigned driver's
// live location to a customer every 10 seconds.
func (s *Server) HandleTrackingWebSocket(c *websocket.Conn) {
	orderID := c.Query("orderId")
	if orderID == "" {
		return
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		order, err := s.store.GetOrder(context.Background(), orderID)
		if err != nil {
			continue
		}

		update := fiber.Map{
			"orderId": order.ID,
			"status":  order.Status,
		}
		if order.DriverID != "" {
			if presence := s.driverPresence(context.Background(), order.DriverID); len(presence) > 0 {
				update["latitude"] = presence["latitude"]
				update["longitude"] = presence["longitude"]
			}
		}

		if err := c.WriteJSON(update); err != nil {
			break
		}
	}
}
