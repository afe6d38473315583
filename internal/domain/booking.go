package domain

import "time"

// StatusConfirmed is the only status this service ever writes. The column
// stays a string so an operator can park other values there by hand.
const StatusConfirmed = "confirmed"

type Booking struct {
	ID         string
	SpotID     string
	RenterID   string
	StartDate  time.Time
	EndDate    time.Time
	TotalPrice float64
	Status     string
	CreatedAt  time.Time
}

// BookingView is a Booking joined with its spot's listing details for the
// renter's "my bookings" page.
type BookingView struct {
	Booking
	SpotAddress      string
	SpotNeighborhood string
	SpotDescription  string
	SpotPricePerDay  float64
}
