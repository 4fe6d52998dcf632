package models

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationBooked    ReservationStatus = "booked"
	ReservationReady     ReservationStatus = "ready"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a pre-booked ride at a given time.
type Reservation struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	ScheduledAt     time.Time         `json:"scheduledAt"`
	Terminal        string            `json:"terminal"`
	Destination     string            `json:"destination"`
	SpecialRequests string            `json:"specialRequests,omitempty"`
	Status          ReservationStatus `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// ReservationRequest is the booking form as submitted by the client.
type ReservationRequest struct {
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM, 30 minute slots
	Terminal        string `json:"terminal"`
	Destination     string `json:"destination"`
	SpecialRequests string `json:"specialRequests"`
}
