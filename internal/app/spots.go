package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parkspot/internal/domain"
)

const (
	availableSpotsKey = "spots:available"

	// MinPricePerDay is the listing price floor, in dollars.
	MinPricePerDay = 5
)

func spotKey(id string) string { return fmt.Sprintf("spot:%s", id) }

type CreateSpotInput struct {
	Neighborhood string
	Address      string
	Description  string
	PricePerDay  float64
}

type SpotService struct {
	repo     domain.SpotRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewSpotService(r domain.SpotRepository, c domain.Cache, ttl time.Duration) *SpotService {
	return &SpotService{repo: r, cache: c, cacheTTL: ttl}
}

// Create lists a new spot for ident and returns its id.
func (s *SpotService) Create(ctx context.Context, ident domain.Identity, in CreateSpotInput) (string, error) {
	if in.Neighborhood == "" || in.Address == "" {
		return "", fmt.Errorf("%w: neighborhood and address are required", domain.ErrValidation)
	}
	if in.PricePerDay < MinPricePerDay {
		return "", fmt.Errorf("%w: price per day must be at least $%d", domain.ErrValidation, MinPricePerDay)
	}

	// Keep the local user copy fresh so directory joins can show a name.
	if err := s.repo.UpsertUser(ctx, domain.User{ID: ident.UserID, Name: ident.Name, Email: ident.Email}); err != nil {
		return "", fmt.Errorf("upsert owner: %w", err)
	}

	sp := domain.Spot{
		ID:           uuid.NewString(),
		OwnerID:      ident.UserID,
		Address:      in.Address,
		Neighborhood: in.Neighborhood,
		Description:  in.Description,
		PricePerDay:  in.PricePerDay,
		IsAvailable:  true,
	}
	if err := s.repo.CreateSpot(ctx, sp); err != nil {
		return "", fmt.Errorf("create spot: %w", err)
	}
	s.invalidateDirectory(ctx)
	return sp.ID, nil
}

// Delete cascade-deletes the spot's bookings and then the spot. Reports
// whether any bookings existed.
func (s *SpotService) Delete(ctx context.Context, ident domain.Identity, spotID string) (bool, error) {
	hadBookings, err := s.repo.DeleteSpotCascade(ctx, spotID, ident.UserID)
	if err != nil {
		return false, err
	}
	s.invalidateDirectory(ctx)
	_ = s.cache.Del(ctx, spotKey(spotID))
	return hadBookings, nil
}

// List returns the public directory: available spots, newest first.
func (s *SpotService) List(ctx context.Context) ([]domain.SpotView, error) {
	var out []domain.SpotView
	if ok, _ := s.cache.Get(ctx, availableSpotsKey, &out); ok {
		return out, nil
	}
	out, err := s.repo.ListAvailableSpots(ctx)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, availableSpotsKey, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// Get returns one spot with its owner name, regardless of availability.
func (s *SpotService) Get(ctx context.Context, id string) (domain.SpotView, error) {
	key := spotKey(id)
	var sv domain.SpotView
	if ok, _ := s.cache.Get(ctx, key, &sv); ok {
		return sv, nil
	}
	sv, err := s.repo.GetSpot(ctx, id)
	if err != nil {
		return domain.SpotView{}, err
	}
	_ = s.cache.Set(ctx, key, sv, int(s.cacheTTL.Seconds()))
	return sv, nil
}

func (s *SpotService) ListMine(ctx context.Context, ident domain.Identity) ([]domain.Spot, error) {
	return s.repo.ListSpotsByOwner(ctx, ident.UserID)
}

func (s *SpotService) invalidateDirectory(ctx context.Context) {
	_ = s.cache.Del(ctx, availableSpotsKey)
}
