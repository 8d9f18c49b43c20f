package models

import "time"

type Driver struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email,omitempty"`
	IsAvailable     bool      `json:"isAvailable"`
	CurrentLocation string    `json:"currentLocation,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
