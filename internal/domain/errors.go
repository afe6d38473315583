package domain

import "errors"

var (
	ErrSpotNotFound    = errors.New("spot not found")
	ErrBookingNotFound = errors.New("booking not found")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrOwnBooking rejects an owner booking their own spot.
	ErrOwnBooking = errors.New("cannot book your own spot")

	// ErrSpotUnavailable is what the loser of a booking race sees, as well
	// as anyone booking an already-booked spot.
	ErrSpotUnavailable = errors.New("spot is no longer available")

	ErrValidation = errors.New("validation error")
)
