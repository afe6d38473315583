package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"parkspot/internal/app"
	"parkspot/internal/domain"
)

type Handlers struct {
	Spots    *app.SpotService
	Bookings *app.BookingService
	Resolver domain.IdentityResolver
}

var validate = validator.New()

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("ok"))
	})

	s.mux.Route("/spots", func(r chi.Router) {
		r.Get("/", h.listSpots)
		r.Get("/{id}", h.getSpot)

		r.Group(func(r chi.Router) {
			r.Use(Auth(h.Resolver, "Unauthorized"))
			r.Post("/", h.createSpot)
			r.Get("/mine", h.mySpots)
			r.Delete("/{id}", h.deleteSpot)
		})
	})

	s.mux.Route("/bookings", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(Auth(h.Resolver, "Unauthorized - please log in to book a spot"))
			r.Post("/", h.createBooking)
		})
		r.Group(func(r chi.Router) {
			r.Use(Auth(h.Resolver, "Unauthorized - please log in to cancel a booking"))
			r.Delete("/{id}", h.cancelBooking)
		})
		r.Group(func(r chi.Router) {
			r.Use(Auth(h.Resolver, "Unauthorized"))
			r.Get("/mine", h.myBookings)
		})
	})
}

// ---- wire shapes ----

type ownerJSON struct {
	Name *string `json:"name"`
}

type spotJSON struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Address      string     `json:"address"`
	Neighborhood string     `json:"neighborhood"`
	Description  string     `json:"description"`
	PricePerDay  float64    `json:"price_per_day"`
	IsAvailable  bool       `json:"is_available"`
	CreatedAt    time.Time  `json:"created_at"`
	Owner        *ownerJSON `json:"owner,omitempty"`
}

type bookingJSON struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Status     string    `json:"status"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	TotalPrice float64   `json:"total_price"`
	Spot       struct {
		ID           string  `json:"id"`
		Address      string  `json:"address"`
		Neighborhood string  `json:"neighborhood"`
		Description  string  `json:"description"`
		PricePerDay  float64 `json:"price_per_day"`
	} `json:"spot"`
}

func toSpotJSON(s domain.Spot) spotJSON {
	return spotJSON{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		Address:      s.Address,
		Neighborhood: s.Neighborhood,
		Description:  s.Description,
		PricePerDay:  s.PricePerDay,
		IsAvailable:  s.IsAvailable,
		CreatedAt:    s.CreatedAt,
	}
}

func toSpotViewJSON(sv domain.SpotView) spotJSON {
	out := toSpotJSON(sv.Spot)
	out.Owner = &ownerJSON{Name: sv.OwnerName}
	return out
}

func toBookingJSON(bv domain.BookingView) bookingJSON {
	var out bookingJSON
	out.ID = bv.ID
	out.CreatedAt = bv.CreatedAt
	out.Status = bv.Status
	out.StartDate = bv.StartDate
	out.EndDate = bv.EndDate
	out.TotalPrice = bv.TotalPrice
	out.Spot.ID = bv.SpotID
	out.Spot.Address = bv.SpotAddress
	out.Spot.Neighborhood = bv.SpotNeighborhood
	out.Spot.Description = bv.SpotDescription
	out.Spot.PricePerDay = bv.SpotPricePerDay
	return out
}

// ---- response helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps sentinel errors to the API taxonomy. Anything
// unrecognized becomes an opaque 500; the real cause goes to the log only.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOwnBooking):
		writeError(w, http.StatusBadRequest, "You cannot book your own spot")
	case errors.Is(err, domain.ErrSpotUnavailable):
		writeError(w, http.StatusBadRequest, "This spot is no longer available")
	case errors.Is(err, domain.ErrSpotNotFound):
		writeError(w, http.StatusNotFound, "Spot not found")
	case errors.Is(err, domain.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

// ---- spot handlers ----

type createSpotRequest struct {
	Neighborhood string  `json:"neighborhood" validate:"required"`
	Address      string  `json:"address" validate:"required"`
	Description  string  `json:"description"`
	PricePerDay  float64 `json:"pricePerDay" validate:"required,gte=5"`
}

func (h *Handlers) createSpot(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req createSpotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest,
			"Missing or invalid fields: neighborhood and address are required, pricePerDay must be a number of at least 5")
		return
	}

	id, err := h.Spots.Create(r.Context(), ident, app.CreateSpotInput{
		Neighborhood: req.Neighborhood,
		Address:      req.Address,
		Description:  req.Description,
		PricePerDay:  req.PricePerDay,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "spotId": id})
}

func (h *Handlers) listSpots(w http.ResponseWriter, r *http.Request) {
	spots, err := h.Spots.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]spotJSON, 0, len(spots))
	for _, sv := range spots {
		out = append(out, toSpotViewJSON(sv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"spots": out})
}

func (h *Handlers) getSpot(w http.ResponseWriter, r *http.Request) {
	sv, err := h.Spots.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"spot": toSpotViewJSON(sv)})
}

func (h *Handlers) mySpots(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	spots, err := h.Spots.ListMine(r.Context(), ident)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]spotJSON, 0, len(spots))
	for _, s := range spots {
		out = append(out, toSpotJSON(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"spots": out})
}

func (h *Handlers) deleteSpot(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	hadBookings, err := h.Spots.Delete(r.Context(), ident, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			writeError(w, http.StatusForbidden, "You can only delete your own spots")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Spot deleted successfully",
		"hadBookings": hadBookings,
	})
}

// ---- booking handlers ----

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized - please log in to book a spot")
		return
	}

	var req struct {
		SpotID string `json:"spotId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SpotID == "" {
		writeError(w, http.StatusBadRequest, "Spot ID is required")
		return
	}

	id, err := h.Bookings.Create(r.Context(), ident, req.SpotID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "bookingId": id})
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized - please log in to cancel a booking")
		return
	}
	if err := h.Bookings.Cancel(r.Context(), ident, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			writeError(w, http.StatusForbidden, "You can only cancel your own bookings")
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Booking cancelled successfully",
	})
}

func (h *Handlers) myBookings(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	bookings, err := h.Bookings.ListMine(r.Context(), ident)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]bookingJSON, 0, len(bookings))
	for _, bv := range bookings {
		out = append(out, toBookingJSON(bv))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": out})
}
