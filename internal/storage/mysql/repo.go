package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"parkspot/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// withTx runs fn inside a transaction, rolling back on error or panic.
func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ---- users ----

func (r *Repo) UpsertUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, upsertUserSQL, u.ID, u.Name, u.Email)
	return err
}

// ---- spots ----

func (r *Repo) CreateSpot(ctx context.Context, s domain.Spot) error {
	_, err := r.db.ExecContext(ctx, insertSpotSQL,
		s.ID,
		s.OwnerID,
		s.Address,
		s.Neighborhood,
		s.Description,
		s.PricePerDay,
		s.IsAvailable,
	)
	return err
}

func (r *Repo) GetSpot(ctx context.Context, id string) (domain.SpotView, error) {
	row := r.db.QueryRowContext(ctx, getSpotSQL, id)
	sv, err := scanSpotView(row)
	if err == sql.ErrNoRows {
		return domain.SpotView{}, domain.ErrSpotNotFound
	}
	return sv, err
}

func (r *Repo) ListAvailableSpots(ctx context.Context) ([]domain.SpotView, error) {
	rows, err := r.db.QueryContext(ctx, listAvailableSpotsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SpotView
	for rows.Next() {
		sv, err := scanSpotView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

func (r *Repo) ListSpotsByOwner(ctx context.Context, ownerID string) ([]domain.Spot, error) {
	rows, err := r.db.QueryContext(ctx, listSpotsByOwnerSQL, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Spot
	for rows.Next() {
		var s domain.Spot
		if err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Address, &s.Neighborhood,
			&s.Description, &s.PricePerDay, &s.IsAvailable, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteSpotCascade(ctx context.Context, spotID, ownerID string) (bool, error) {
	var hadBookings bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		var price float64
		var avail bool
		if err := tx.QueryRowContext(ctx, lockSpotSQL, spotID).Scan(&owner, &price, &avail); err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrSpotNotFound
			}
			return fmt.Errorf("lock spot: %w", err)
		}
		if owner != ownerID {
			return domain.ErrForbidden
		}

		res, err := tx.ExecContext(ctx, deleteSpotBookingsSQL, spotID)
		if err != nil {
			return fmt.Errorf("cascade bookings: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			hadBookings = true
		}

		res, err = tx.ExecContext(ctx, deleteSpotByOwnerSQL, spotID, ownerID)
		if err != nil {
			return fmt.Errorf("delete spot: %w", err)
		}
		// Row exists and the owner matched above, so zero rows here means
		// the store's own policy layer silently blocked the delete.
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrForbidden
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return hadBookings, nil
}

// ---- bookings ----

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		var price float64
		var avail bool
		if err := tx.QueryRowContext(ctx, lockSpotSQL, b.SpotID).Scan(&owner, &price, &avail); err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrSpotNotFound
			}
			return fmt.Errorf("lock spot: %w", err)
		}
		if owner == b.RenterID {
			return domain.ErrOwnBooking
		}
		if !avail {
			return domain.ErrSpotUnavailable
		}

		// total_price is a copy of the price at booking time, taken under
		// the same lock so a concurrent repricing cannot slip in between.
		if _, err := tx.ExecContext(ctx, insertBookingSQL,
			b.ID, b.SpotID, b.RenterID,
			b.StartDate, b.EndDate, price, b.Status,
		); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		if _, err := tx.ExecContext(ctx, setSpotAvailabilitySQL, false, b.SpotID); err != nil {
			return fmt.Errorf("flip availability: %w", err)
		}
		return nil
	})
}

func (r *Repo) CancelBooking(ctx context.Context, bookingID, renterID string) (string, error) {
	var spotID string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var renter string
		if err := tx.QueryRowContext(ctx, lockBookingSQL, bookingID).Scan(&renter, &spotID); err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrBookingNotFound
			}
			return fmt.Errorf("lock booking: %w", err)
		}
		if renter != renterID {
			return domain.ErrForbidden
		}

		if _, err := tx.ExecContext(ctx, deleteBookingSQL, bookingID); err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		if _, err := tx.ExecContext(ctx, setSpotAvailabilitySQL, true, spotID); err != nil {
			return fmt.Errorf("flip availability: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return spotID, nil
}

func (r *Repo) ListBookingsByRenter(ctx context.Context, renterID string) ([]domain.BookingView, error) {
	rows, err := r.db.QueryContext(ctx, listBookingsByRenterSQL, renterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BookingView
	for rows.Next() {
		var bv domain.BookingView
		if err := rows.Scan(
			&bv.ID, &bv.SpotID, &bv.RenterID,
			&bv.StartDate, &bv.EndDate, &bv.TotalPrice, &bv.Status, &bv.CreatedAt,
			&bv.SpotAddress, &bv.SpotNeighborhood, &bv.SpotDescription, &bv.SpotPricePerDay,
		); err != nil {
			return nil, err
		}
		out = append(out, bv)
	}
	return out, rows.Err()
}

// ---- audit ----

func (r *Repo) ListSpotIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listSpotIDsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *Repo) SpotAvailability(ctx context.Context, spotID string) (bool, int, error) {
	var avail bool
	var n int
	err := r.db.QueryRowContext(ctx, spotAvailabilitySQL, spotID).Scan(&avail, &n)
	if err == sql.ErrNoRows {
		return false, 0, domain.ErrSpotNotFound
	}
	return avail, n, err
}

func (r *Repo) FixAvailability(ctx context.Context, spotID string, available bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, fixAvailabilitySQL, available, spotID, available)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ---- scanning ----

type rowScanner interface{ Scan(dst ...any) error }

func scanSpotView(row rowScanner) (domain.SpotView, error) {
	var sv domain.SpotView
	var ownerName sql.NullString
	if err := row.Scan(
		&sv.ID, &sv.OwnerID, &sv.Address, &sv.Neighborhood,
		&sv.Description, &sv.PricePerDay, &sv.IsAvailable, &sv.CreatedAt,
		&ownerName,
	); err != nil {
		return domain.SpotView{}, err
	}
	if ownerName.Valid {
		n := ownerName.String
		sv.OwnerName = &n
	}
	return sv, nil
}
