package domain

import "time"

type Spot struct {
	ID           string
	OwnerID      string
	Address      string
	Neighborhood string
	Description  string
	PricePerDay  float64
	IsAvailable  bool
	CreatedAt    time.Time
}

// SpotView is a Spot joined with the owner's denormalized display name,
// as served by the public directory.
type SpotView struct {
	Spot
	OwnerName *string
}
