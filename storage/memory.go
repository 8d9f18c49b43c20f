package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"food-delivery/platform/models"
)

// MemoryStore keeps all records in process memory behind one mutex.
// Used by tests and local runs without Postgres.
type MemoryStore struct {
	mu      sync.Mutex
	orders  map[string]models.Order
	drivers map[string]models.Driver
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:  make(map[string]models.Order),
		drivers: make(map[string]models.Driver),
	}
}

func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &order, nil
}

func (m *MemoryStore) GetOrders(ctx context.Context) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders := make([]models.Order, 0, len(m.orders))
	for _, order := range m.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (m *MemoryStore) GetOrdersByDriver(ctx context.Context, driverID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []models.Order
	for _, order := range m.orders {
		if order.DriverID == driverID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.DriverID != nil {
		order.DriverID = *patch.DriverID
	}
	if patch.DriverEarnings != nil {
		order.DriverEarnings = *patch.DriverEarnings
	}
	if patch.AcceptedAt != nil {
		order.AcceptedAt = patch.AcceptedAt
	}
	if patch.DeliveredAt != nil {
		order.DeliveredAt = patch.DeliveredAt
	}
	m.orders[id] = order
	return &order, nil
}

func (m *MemoryStore) AssignOrder(ctx context.Context, orderID, driverID, earnings string, acceptedAt time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.Status != models.OrderStatusConfirmed || order.DriverID != "" {
		return nil, ErrOrderTaken
	}
	order.DriverID = driverID
	order.Status = models.OrderStatusReady
	order.DriverEarnings = earnings
	order.AcceptedAt = &acceptedAt
	m.orders[orderID] = order
	return &order, nil
}

func (m *MemoryStore) CreateDriver(ctx context.Context, driver *models.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if driver.ID == "" {
		driver.ID = uuid.New().String()
	}
	if driver.CreatedAt.IsZero() {
		driver.CreatedAt = time.Now()
	}
	m.drivers[driver.ID] = *driver
	return nil
}

func (m *MemoryStore) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	driver, ok := m.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	return &driver, nil
}

func (m *MemoryStore) UpdateDriver(ctx context.Context, id string, patch DriverPatch) (*models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	driver, ok := m.drivers[id]
	if !ok {
		return nil, ErrDriverNotFound
	}
	if patch.Name != nil {
		driver.Name = *patch.Name
	}
	if patch.Phone != nil {
		driver.Phone = *patch.Phone
	}
	if patch.Email != nil {
		driver.Email = *patch.Email
	}
	if patch.CurrentLocation != nil {
		driver.CurrentLocation = *patch.CurrentLocation
	}
	if patch.IsAvailable != nil {
		driver.IsAvailable = *patch.IsAvailable
	}
	m.drivers[id] = driver
	return &driver, nil
}
