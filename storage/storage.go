package storage

import (
	"context"
	"errors"
	"time"

	"food-delivery/platform/models"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDriverNotFound = errors.New("driver not found")
	// ErrOrderTaken means the order is not open for pickup anymore:
	// either a driver already holds it or it left the confirmed state.
	ErrOrderTaken = errors.New("order cannot be accepted")
)

// OrderPatch is a sparse order update; nil fields are left untouched.
type OrderPatch struct {
	Status         *models.OrderStatus
	DriverID       *string
	DriverEarnings *string
	AcceptedAt     *time.Time
	DeliveredAt    *time.Time
}

// DriverPatch is a sparse driver update; nil fields are left untouched.
type DriverPatch struct {
	Name            *string
	Phone           *string
	Email           *string
	CurrentLocation *string
	IsAvailable     *bool
}

// Store is the durable record collection behind the API. AssignOrder is
// a conditional update: it only succeeds while the order is confirmed
// and unassigned, so two drivers racing for one order cannot both win.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetOrders(ctx context.Context) ([]models.Order, error)
	GetOrdersByDriver(ctx context.Context, driverID string) ([]models.Order, error)
	UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*models.Order, error)
	AssignOrder(ctx context.Context, orderID, driverID, earnings string, acceptedAt time.Time) (*models.Order, error)

	CreateDriver(ctx context.Context, driver *models.Driver) error
	GetDriver(ctx context.Context, id string) (*models.Driver, error)
	UpdateDriver(ctx context.Context, id string, patch DriverPatch) (*models.Driver, error)
}
