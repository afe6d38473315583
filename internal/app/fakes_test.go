package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"parkspot/internal/domain"
)

// memRepo implements the repository ports with the same semantics the MySQL
// repo promises: booking and cascade effects are all-or-nothing and the
// checks happen against current state.
type memRepo struct {
	mu       sync.Mutex
	users    map[string]domain.User
	spots    map[string]domain.Spot
	bookings map[string]domain.Booking
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    map[string]domain.User{},
		spots:    map[string]domain.Spot{},
		bookings: map[string]domain.Booking{},
	}
}

func (m *memRepo) UpsertUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memRepo) CreateSpot(_ context.Context, s domain.Spot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	m.spots[s.ID] = s
	return nil
}

func (m *memRepo) DeleteSpotCascade(_ context.Context, spotID, ownerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spots[spotID]
	if !ok {
		return false, domain.ErrSpotNotFound
	}
	if s.OwnerID != ownerID {
		return false, domain.ErrForbidden
	}
	had := false
	for id, b := range m.bookings {
		if b.SpotID == spotID {
			delete(m.bookings, id)
			had = true
		}
	}
	delete(m.spots, spotID)
	return had, nil
}

func (m *memRepo) GetSpot(_ context.Context, id string) (domain.SpotView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spots[id]
	if !ok {
		return domain.SpotView{}, domain.ErrSpotNotFound
	}
	return m.view(s), nil
}

func (m *memRepo) ListAvailableSpots(_ context.Context) ([]domain.SpotView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SpotView
	for _, s := range m.spots {
		if s.IsAvailable {
			out = append(out, m.view(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) ListSpotsByOwner(_ context.Context, ownerID string) ([]domain.Spot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Spot
	for _, s := range m.spots {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) CreateBooking(_ context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spots[b.SpotID]
	if !ok {
		return domain.ErrSpotNotFound
	}
	if s.OwnerID == b.RenterID {
		return domain.ErrOwnBooking
	}
	if !s.IsAvailable {
		return domain.ErrSpotUnavailable
	}
	b.TotalPrice = s.PricePerDay
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	m.bookings[b.ID] = b
	s.IsAvailable = false
	m.spots[b.SpotID] = s
	return nil
}

func (m *memRepo) CancelBooking(_ context.Context, bookingID, renterID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[bookingID]
	if !ok {
		return "", domain.ErrBookingNotFound
	}
	if b.RenterID != renterID {
		return "", domain.ErrForbidden
	}
	delete(m.bookings, bookingID)
	if s, ok := m.spots[b.SpotID]; ok {
		s.IsAvailable = true
		m.spots[b.SpotID] = s
	}
	return b.SpotID, nil
}

func (m *memRepo) ListBookingsByRenter(_ context.Context, renterID string) ([]domain.BookingView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BookingView
	for _, b := range m.bookings {
		if b.RenterID != renterID {
			continue
		}
		bv := domain.BookingView{Booking: b}
		if s, ok := m.spots[b.SpotID]; ok {
			bv.SpotAddress = s.Address
			bv.SpotNeighborhood = s.Neighborhood
			bv.SpotDescription = s.Description
			bv.SpotPricePerDay = s.PricePerDay
		}
		out = append(out, bv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) ListSpotIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.spots {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *memRepo) SpotAvailability(_ context.Context, spotID string) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spots[spotID]
	if !ok {
		return false, 0, domain.ErrSpotNotFound
	}
	n := 0
	for _, b := range m.bookings {
		if b.SpotID == spotID {
			n++
		}
	}
	return s.IsAvailable, n, nil
}

func (m *memRepo) FixAvailability(_ context.Context, spotID string, available bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.spots[spotID]
	if !ok || s.IsAvailable == available {
		return false, nil
	}
	s.IsAvailable = available
	m.spots[spotID] = s
	return true, nil
}

func (m *memRepo) view(s domain.Spot) domain.SpotView {
	sv := domain.SpotView{Spot: s}
	if u, ok := m.users[s.OwnerID]; ok {
		name := u.Name
		sv.OwnerName = &name
	}
	return sv
}

// memCache round-trips values through JSON, like the redis adapter does, so
// cached copies never alias repo state.
type memCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newMemCache() *memCache { return &memCache{store: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, key string, v any, _ int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = b
	return nil
}

func (c *memCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}
