package models

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusPickedUp  OrderStatus = "picked_up"
	OrderStatusOnWay     OrderStatus = "on_way"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a customer purchase request tracked through the delivery
// lifecycle. Monetary fields are decimal strings as stored; an empty
// DriverID means the order is unassigned.
type Order struct {
	ID              string      `json:"id"`
	CustomerName    string      `json:"customerName"`
	CustomerPhone   string      `json:"customerPhone"`
	DeliveryAddress string      `json:"deliveryAddress"`
	Items           string      `json:"items"` // serialized item list
	TotalAmount     string      `json:"totalAmount"`
	DriverID        string      `json:"driverId,omitempty"`
	Status          OrderStatus `json:"status"`
	DriverEarnings  string      `json:"driverEarnings,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
	AcceptedAt      *time.Time  `json:"acceptedAt,omitempty"`
	DeliveredAt     *time.Time  `json:"deliveredAt,omitempty"`
}
