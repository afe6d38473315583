package domain

import "context"

type SpotRepository interface {
	// Write paths
	UpsertUser(ctx context.Context, u User) error
	CreateSpot(ctx context.Context, s Spot) error
	// DeleteSpotCascade removes every booking referencing the spot and then
	// the spot itself, all in one transaction. The spot delete is filtered
	// by ownerID a second time so a policy bypass cannot remove somebody
	// else's listing. Reports whether any bookings were cascade-deleted.
	DeleteSpotCascade(ctx context.Context, spotID, ownerID string) (hadBookings bool, err error)

	// Read paths
	GetSpot(ctx context.Context, id string) (SpotView, error)
	ListAvailableSpots(ctx context.Context) ([]SpotView, error)
	ListSpotsByOwner(ctx context.Context, ownerID string) ([]Spot, error)
}

type BookingRepository interface {
	// CreateBooking locks the spot row, re-checks existence, ownership and
	// availability under the lock, inserts the booking and flips the spot
	// to unavailable; both writes commit together or not at all. The total
	// price is copied from the locked spot row, not from b.
	CreateBooking(ctx context.Context, b Booking) error
	// CancelBooking deletes the booking and flips its spot back to
	// available in one transaction. Only the renter may cancel. Returns
	// the id of the freed spot.
	CancelBooking(ctx context.Context, bookingID, renterID string) (spotID string, err error)
	ListBookingsByRenter(ctx context.Context, renterID string) ([]BookingView, error)
}

// AuditRepository serves the offline availability audit.
type AuditRepository interface {
	ListSpotIDs(ctx context.Context) ([]string, error)
	SpotAvailability(ctx context.Context, spotID string) (available bool, activeBookings int, err error)
	// FixAvailability conditionally sets the flag; returns false when the
	// row was already in the wanted state (or gone).
	FixAvailability(ctx context.Context, spotID string, available bool) (bool, error)
}

// IdentityResolver turns an opaque session credential into an Identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
