package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parkspot/internal/domain"
)

// bookingWindow is the fixed rental window. The booking API takes no dates
// (the caller books "now"), so a one-day window is the whole contract; real
// date ranges would need an API change first.
const bookingWindow = 24 * time.Hour

type BookingService struct {
	bookings domain.BookingRepository
	spots    domain.SpotRepository
	cache    domain.Cache
	now      func() time.Time
}

func NewBookingService(b domain.BookingRepository, s domain.SpotRepository, c domain.Cache) *BookingService {
	return &BookingService{bookings: b, spots: s, cache: c, now: time.Now}
}

// Create books spotID for ident and returns the booking id. Existence,
// self-booking and availability are all checked under the spot row lock, so
// the loser of a concurrent booking race gets ErrSpotUnavailable.
func (s *BookingService) Create(ctx context.Context, ident domain.Identity, spotID string) (string, error) {
	if spotID == "" {
		return "", fmt.Errorf("%w: spot ID is required", domain.ErrValidation)
	}

	if err := s.spots.UpsertUser(ctx, domain.User{ID: ident.UserID, Name: ident.Name, Email: ident.Email}); err != nil {
		return "", fmt.Errorf("upsert renter: %w", err)
	}

	start := s.now()
	b := domain.Booking{
		ID:        uuid.NewString(),
		SpotID:    spotID,
		RenterID:  ident.UserID,
		StartDate: start,
		EndDate:   start.Add(bookingWindow),
		Status:    domain.StatusConfirmed,
	}
	if err := s.bookings.CreateBooking(ctx, b); err != nil {
		return "", err
	}

	_ = s.cache.Del(ctx, availableSpotsKey)
	_ = s.cache.Del(ctx, spotKey(spotID))
	return b.ID, nil
}

// Cancel hard-deletes the booking and frees its spot.
func (s *BookingService) Cancel(ctx context.Context, ident domain.Identity, bookingID string) error {
	spotID, err := s.bookings.CancelBooking(ctx, bookingID, ident.UserID)
	if err != nil {
		return err
	}
	_ = s.cache.Del(ctx, availableSpotsKey)
	_ = s.cache.Del(ctx, spotKey(spotID))
	return nil
}

func (s *BookingService) ListMine(ctx context.Context, ident domain.Identity) ([]domain.BookingView, error) {
	return s.bookings.ListBookingsByRenter(ctx, ident.UserID)
}
