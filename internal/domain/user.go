package domain

// Identity is the opaque authenticated user the identity provider resolves a
// session credential to. It is passed explicitly, never stored globally.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// User is the locally denormalized copy of an identity, kept so listings can
// join an owner display name without a provider round trip.
type User struct {
	ID    string
	Name  string
	Email string
}
