// driversim walks one order through the full delivery flow against a
// running server: registers a driver, places and confirms an order,
// listens for the dispatch notification over WebSocket, then accepts
// and delivers the order through the driver API.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
)

var (
	baseURL   = flag.String("base-url", "http://localhost:8080", "server base URL")
	wsURL     = flag.String("ws-url", "ws://localhost:8080", "server WebSocket URL")
	jwtSecret = flag.String("jwt-secret", "my-secret-key", "secret for the driver socket token")
)

func main() {
	flag.Parse()

	driverID, err := registerDriver()
	if err != nil {
		log.Fatalf("Failed to register driver: %v", err)
	}
	log.Printf("Registered driver %s", driverID)

	orderID, err := placeOrder()
	if err != nil {
		log.Fatalf("Failed to place order: %v", err)
	}
	log.Printf("Placed order %s", orderID)

	go listenForOrders(driverID)

	if err := confirmOrder(orderID); err != nil {
		log.Fatalf("Failed to confirm order: %v", err)
	}

	// Give the dispatch notification time to arrive before accepting.
	time.Sleep(2 * time.Second)

	if err := driverPost(fmt.Sprintf("/api/v1/driver/orders/%s/accept", orderID), driverID, nil); err != nil {
		log.Fatalf("Failed to accept order: %v", err)
	}
	log.Printf("Accepted order %s", orderID)

	for _, status := range []string{"picked_up", "delivered"} {
		time.Sleep(2 * time.Second)
		body := map[string]interface{}{"status": status}
		if err := driverPut(fmt.Sprintf("/api/v1/driver/orders/%s/status", orderID), driverID, body); err != nil {
			log.Fatalf("Failed to set status %s: %v", status, err)
		}
		log.Printf("Order %s -> %s", orderID, status)
	}

	printStats(driverID)
}

func registerDriver() (string, error) {
	var resp struct {
		Driver struct {
			ID string `json:"id"`
		} `json:"driver"`
	}
	err := postJSON("/api/v1/driver/register", map[string]interface{}{
		"name":  "Sim Driver",
		"phone": "+10000000000",
	}, &resp)
	return resp.Driver.ID, err
}

func placeOrder() (string, error) {
	var resp struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	err := postJSON("/api/v1/orders", map[string]interface{}{
		"customerName":    "Sim Customer",
		"customerPhone":   "+10000000001",
		"deliveryAddress": "12 Test Street",
		"items":           `[{"name":"pizza","qty":1}]`,
		"totalAmount":     "42.00",
	}, &resp)
	return resp.Order.ID, err
}

func confirmOrder(orderID string) error {
	body := map[string]interface{}{"status": "confirmed"}
	return putJSON("/api/v1/orders/"+orderID, body, nil)
}

// listenForOrders connects the driver socket, prints dispatch
// notifications and sends a location ping every 10 seconds.
func listenForOrders(driverID string) {
	token, err := signToken(driverID)
	if err != nil {
		log.Printf("Failed to sign token: %v", err)
		return
	}

	url := fmt.Sprintf("%s/ws?driverId=%s&token=%s", *wsURL, driverID, token)
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Printf("Failed to connect driver socket: %v", err)
		return
	}
	defer c.Close()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		lat, lon := 40.7128, -74.0060
		for range ticker.C {
			lat += 0.001
			lon += 0.001
			err := c.WriteJSON(map[string]interface{}{
				"driverId":  driverID,
				"latitude":  lat,
				"longitude": lon,
			})
			if err != nil {
				return
			}
		}
	}()

	for {
		var msg map[string]interface{}
		if err := c.ReadJSON(&msg); err != nil {
			return
		}
		log.Printf("Driver socket: %v", msg)
	}
}

func signToken(driverID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"driver_id": driverID,
	})
	return token.SignedString([]byte(*jwtSecret))
}

func printStats(driverID string) {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/driver/stats?driverId=%s&period=today", *baseURL, driverID))
	if err != nil {
		log.Printf("Failed to fetch stats: %v", err)
		return
	}
	defer resp.Body.Close()

	var stats map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		log.Printf("Failed to decode stats: %v", err)
		return
	}
	log.Printf("Today's stats: %v", stats)
}

func driverPost(path, driverID string, extra map[string]interface{}) error {
	body := map[string]interface{}{"driverId": driverID}
	for k, v := range extra {
		body[k] = v
	}
	return postJSON(path, body, nil)
}

func driverPut(path, driverID string, extra map[string]interface{}) error {
	body := map[string]interface{}{"driverId": driverID}
	for k, v := range extra {
		body[k] = v
	}
	return putJSON(path, body, nil)
}

func postJSON(path string, body, out interface{}) error {
	data, _ := json.Marshal(body)
	resp, err := http.Post(*baseURL+path, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	return readResponse(resp, out)
}

func putJSON(path string, body, out interface{}) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequest(http.MethodPut, *baseURL+path, bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	return readResponse(resp, out)
}

func readResponse(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
