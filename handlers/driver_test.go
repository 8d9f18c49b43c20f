package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"food-delivery/platform/config"
	"food-delivery/platform/models"
	"food-delivery/platform/storage"
)

func newTestApp(t *testing.T) (*fiber.App, *storage.MemoryStore) {
	t.Helper()
	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	store := storage.NewMemoryStore()
	server := NewServer(cfg, store)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	server.SetupRoutes(app)
	return app, store
}

func seedDriver(t *testing.T, store *storage.MemoryStore) *models.Driver {
	t.Helper()
	driver := &models.Driver{Name: "Test Driver", Phone: "+100", IsAvailable: true}
	if err := store.CreateDriver(context.Background(), driver); err != nil {
		t.Fatal(err)
	}
	return driver
}

func seedOrder(t *testing.T, store *storage.MemoryStore, order models.Order) *models.Order {
	t.Helper()
	if order.CustomerName == "" {
		order.CustomerName = "Test Customer"
	}
	if err := store.CreateOrder(context.Background(), &order); err != nil {
		t.Fatal(err)
	}
	return &order
}

func doJSON(t *testing.T, app *fiber.App, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("invalid JSON response %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func TestDashboardRequiresDriverID(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/driver/dashboard", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if body["error"] == nil {
		t.Error("expected an error message")
	}
}

func TestDashboardUnknownDriver(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/driver/dashboard?driverId=ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDashboard(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)

	now := time.Now()
	// Available: confirmed and unassigned, big enough for high priority
	seedOrder(t, store, models.Order{
		ID: "avail", Status: models.OrderStatusConfirmed,
		TotalAmount: "120.00", CreatedAt: now,
	})
	// Current: assigned to the driver, mid-delivery
	seedOrder(t, store, models.Order{
		ID: "current", Status: models.OrderStatusPickedUp,
		DriverID: driver.ID, TotalAmount: "40.00", CreatedAt: now,
	})
	// Done: counted in stats only
	seedOrder(t, store, models.Order{
		ID: "done", Status: models.OrderStatusDelivered,
		DriverID: driver.ID, DriverEarnings: "12.00", CreatedAt: now,
	})

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/driver/dashboard?driverId="+driver.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	available := body["availableOrders"].([]interface{})
	if len(available) != 1 {
		t.Fatalf("availableOrders = %d, want 1", len(available))
	}
	first := available[0].(map[string]interface{})
	if first["priority"] != "high" {
		t.Errorf("priority = %v, want high", first["priority"])
	}
	if first["estimatedEarnings"].(float64) != 18 {
		t.Errorf("estimatedEarnings = %v, want 18", first["estimatedEarnings"])
	}

	current := body["currentOrders"].([]interface{})
	if len(current) != 1 || current[0].(map[string]interface{})["id"] != "current" {
		t.Errorf("currentOrders = %v, want the picked_up order", current)
	}

	stats := body["stats"].(map[string]interface{})
	if stats["totalOrders"].(float64) != 2 {
		t.Errorf("stats.totalOrders = %v, want 2", stats["totalOrders"])
	}
	if stats["totalEarnings"].(float64) != 12 {
		t.Errorf("stats.totalEarnings = %v, want 12", stats["totalEarnings"])
	}
	if body["lastActiveAt"] == nil {
		t.Error("expected lastActiveAt")
	}
}

func TestDashboardTruncatesAvailableOrders(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)

	now := time.Now()
	for i := 0; i < 15; i++ {
		seedOrder(t, store, models.Order{
			Status:      models.OrderStatusConfirmed,
			TotalAmount: "75.00",
			CreatedAt:   now.Add(-time.Duration(i) * time.Minute),
		})
	}

	_, body := doJSON(t, app, http.MethodGet, "/api/v1/driver/dashboard?driverId="+driver.ID, nil)
	if got := len(body["availableOrders"].([]interface{})); got != 10 {
		t.Errorf("availableOrders = %d, want capped at 10", got)
	}
}

func TestAcceptOrder(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)
	order := seedOrder(t, store, models.Order{Status: models.OrderStatusConfirmed, TotalAmount: "60.00"})

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/driver/orders/"+order.ID+"/accept",
		fiber.Map{"driverId": driver.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Error("expected success")
	}

	got := body["order"].(map[string]interface{})
	if got["status"] != "ready" || got["driverId"] != driver.ID {
		t.Errorf("order = %v, want ready and assigned", got)
	}
	if got["driverEarnings"] != "10.00" {
		t.Errorf("driverEarnings = %v, want 10.00", got["driverEarnings"])
	}
	if got["acceptedAt"] == nil {
		t.Error("expected acceptedAt stamp")
	}
}

func TestAcceptOrderMissingDriverID(t *testing.T) {
	app, store := newTestApp(t)
	order := seedOrder(t, store, models.Order{Status: models.OrderStatusConfirmed})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/driver/orders/"+order.ID+"/accept", fiber.Map{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAcceptOrderAlreadyAssigned(t *testing.T) {
	app, store := newTestApp(t)
	first := seedDriver(t, store)
	second := seedDriver(t, store)
	order := seedOrder(t, store, models.Order{
		Status: models.OrderStatusReady, DriverID: first.ID,
	})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/driver/orders/"+order.ID+"/accept",
		fiber.Map{"driverId": second.ID})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}

	unchanged, err := store.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unchanged.DriverID != first.ID || unchanged.Status != models.OrderStatusReady {
		t.Errorf("order mutated on rejected accept: %+v", unchanged)
	}
}

func TestAcceptOrderUnknownOrder(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/driver/orders/ghost/accept",
		fiber.Map{"driverId": driver.ID})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUpdateDeliveryStatusDelivered(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)
	order := seedOrder(t, store, models.Order{
		Status: models.OrderStatusPickedUp, DriverID: driver.ID,
	})

	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/driver/orders/"+order.ID+"/status",
		fiber.Map{"driverId": driver.ID, "status": "delivered"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, body)
	}

	got := body["order"].(map[string]interface{})
	if got["status"] != "delivered" {
		t.Errorf("status = %v, want delivered", got["status"])
	}
	if got["deliveredAt"] == nil {
		t.Error("delivered order must carry a delivery timestamp")
	}
}

func TestUpdateDeliveryStatusForbidden(t *testing.T) {
	app, store := newTestApp(t)
	owner := seedDriver(t, store)
	intruder := seedDriver(t, store)
	order := seedOrder(t, store, models.Order{
		Status: models.OrderStatusReady, DriverID: owner.ID,
	})

	resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/driver/orders/"+order.ID+"/status",
		fiber.Map{"driverId": intruder.ID, "status": "picked_up"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}

	unchanged, err := store.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unchanged.Status != models.OrderStatusReady {
		t.Errorf("order status changed to %v by non-owner", unchanged.Status)
	}
}

func TestUpdateDeliveryStatusRejectsUnknownStatus(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)
	order := seedOrder(t, store, models.Order{
		Status: models.OrderStatusReady, DriverID: driver.ID,
	})

	for _, status := range []string{"on_way", "cancelled", "confirmed", "bogus"} {
		resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/driver/orders/"+order.ID+"/status",
			fiber.Map{"driverId": driver.ID, "status": status})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status %q: code = %d, want 400", status, resp.StatusCode)
		}
	}
}

func TestUpdateDeliveryStatusAllowListIsFlat(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)
	order := seedOrder(t, store, models.Order{
		Status: models.OrderStatusReady, DriverID: driver.ID,
	})

	// Jumping straight from ready to delivered is allowed: the
	// allow-list is flat, not an ordered state machine.
	resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/driver/orders/"+order.ID+"/status",
		fiber.Map{"driverId": driver.ID, "status": "delivered"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready -> delivered: code = %d, want 200", resp.StatusCode)
	}

	// And back again.
	resp, _ = doJSON(t, app, http.MethodPut, "/api/v1/driver/orders/"+order.ID+"/status",
		fiber.Map{"driverId": driver.ID, "status": "picked_up"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delivered -> picked_up: code = %d, want 200", resp.StatusCode)
	}
}

func TestDriverOrderAuthorization(t *testing.T) {
	app, store := newTestApp(t)
	owner := seedDriver(t, store)
	order := seedOrder(t, store, models.Order{
		Status: models.OrderStatusReady, DriverID: owner.ID,
	})

	resp, _ := doJSON(t, app, http.MethodGet,
		"/api/v1/driver/orders/"+order.ID+"?driverId="+owner.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("owner fetch: code = %d, want 200", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodGet,
		"/api/v1/driver/orders/"+order.ID+"?driverId=intruder", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-owner fetch: code = %d, want 403", resp.StatusCode)
	}
}

func TestDriverOrdersListNewestFirstAndFiltered(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)

	now := time.Now()
	seedOrder(t, store, models.Order{
		ID: "older", Status: models.OrderStatusDelivered,
		DriverID: driver.ID, CreatedAt: now.Add(-2 * time.Hour),
	})
	seedOrder(t, store, models.Order{
		ID: "newer", Status: models.OrderStatusReady,
		DriverID: driver.ID, CreatedAt: now.Add(-time.Hour),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/driver/orders?driverId="+driver.ID, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	var orders []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 || orders[0]["id"] != "newer" || orders[1]["id"] != "older" {
		t.Errorf("orders = %v, want newest first", orders)
	}

	req = httptest.NewRequest(http.MethodGet,
		"/api/v1/driver/orders?driverId="+driver.ID+"&status=delivered", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || orders[0]["id"] != "older" {
		t.Errorf("filtered orders = %v, want only the delivered one", orders)
	}
}

func TestDriverStatsTotalPeriod(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)

	now := time.Now()
	seedOrder(t, store, models.Order{
		Status: models.OrderStatusDelivered, DriverID: driver.ID,
		DriverEarnings: "10.00", CreatedAt: now.AddDate(-1, 0, 0),
	})
	seedOrder(t, store, models.Order{
		Status: models.OrderStatusDelivered, DriverID: driver.ID,
		DriverEarnings: "25.50", CreatedAt: now,
	})

	resp, body := doJSON(t, app, http.MethodGet,
		"/api/v1/driver/stats?driverId="+driver.ID+"&period=total", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["totalEarnings"].(float64) != 35.5 {
		t.Errorf("totalEarnings = %v, want 35.5", body["totalEarnings"])
	}
	if body["period"] != "total" {
		t.Errorf("period = %v, want total", body["period"])
	}
}

func TestDriverStatsEmptyWeek(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)

	_, body := doJSON(t, app, http.MethodGet,
		"/api/v1/driver/stats?driverId="+driver.ID+"&period=week", nil)
	if body["totalEarnings"].(float64) != 0 {
		t.Errorf("totalEarnings = %v, want 0", body["totalEarnings"])
	}
	if body["successRate"].(float64) != 0 {
		t.Errorf("successRate = %v, want 0 with no orders", body["successRate"])
	}
}

func TestUpdateProfileAllowList(t *testing.T) {
	app, store := newTestApp(t)
	driver := seedDriver(t, store)

	resp, body := doJSON(t, app, http.MethodPut, "/api/v1/driver/profile", fiber.Map{
		"driverId": driver.ID,
		"name":     "Renamed",
		"phone":    "+200",
		// Not on the allow-list; must be dropped silently.
		"id":        "hijacked",
		"createdAt": "2001-01-01T00:00:00Z",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%v)", resp.StatusCode, body)
	}

	updated, err := store.GetDriver(context.Background(), driver.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Renamed" || updated.Phone != "+200" {
		t.Errorf("driver = %+v, want renamed", updated)
	}
	if updated.ID != driver.ID || !updated.CreatedAt.Equal(driver.CreatedAt) {
		t.Errorf("disallowed fields leaked into the record: %+v", updated)
	}
}

func TestUpdateProfileUnknownDriver(t *testing.T) {
	app, _ := newTestApp(t)
	resp, _ := doJSON(t, app, http.MethodPut, "/api/v1/driver/profile",
		fiber.Map{"driverId": "ghost", "name": "X"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
