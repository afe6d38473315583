package mysql

const upsertUserSQL = `
INSERT INTO users (id, name, email)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  name       = VALUES(name),
  email      = VALUES(email),
  updated_at = CURRENT_TIMESTAMP
`

const insertSpotSQL = `
INSERT INTO spots
  (id, owner_id, address, neighborhood, description, price_per_day, is_available)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

// Locks the spot row for the duration of the booking transaction so two
// near-simultaneous bookings serialize instead of both succeeding.
const lockSpotSQL = `
SELECT owner_id, price_per_day, is_available
FROM spots
WHERE id = ?
FOR UPDATE
`

const insertBookingSQL = `
INSERT INTO bookings
  (id, spot_id, renter_id, start_date, end_date, total_price, status)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
`

const setSpotAvailabilitySQL = `
UPDATE spots SET is_available = ? WHERE id = ?
`

const lockBookingSQL = `
SELECT renter_id, spot_id
FROM bookings
WHERE id = ?
FOR UPDATE
`

const deleteBookingSQL = `DELETE FROM bookings WHERE id = ?`

const deleteSpotBookingsSQL = `DELETE FROM bookings WHERE spot_id = ?`

// The owner_id filter repeats the authorization check inside the write
// itself; zero rows affected means the policy blocked it, not that the row
// was already gone (existence is verified under the same transaction).
const deleteSpotByOwnerSQL = `DELETE FROM spots WHERE id = ? AND owner_id = ?`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getSpotSQL = `
SELECT
  s.id,
  s.owner_id,
  s.address,
  s.neighborhood,
  s.description,
  s.price_per_day,
  s.is_available,
  s.created_at,
  u.name
FROM spots s
LEFT JOIN users u ON u.id = s.owner_id
WHERE s.id = ?
`

const listAvailableSpotsSQL = `
SELECT
  s.id,
  s.owner_id,
  s.address,
  s.neighborhood,
  s.description,
  s.price_per_day,
  s.is_available,
  s.created_at,
  u.name
FROM spots s
LEFT JOIN users u ON u.id = s.owner_id
WHERE s.is_available = TRUE
ORDER BY s.created_at DESC, s.id DESC
`

const listSpotsByOwnerSQL = `
SELECT id, owner_id, address, neighborhood, description, price_per_day, is_available, created_at
FROM spots
WHERE owner_id = ?
ORDER BY created_at DESC, id DESC
`

const listBookingsByRenterSQL = `
SELECT
  b.id,
  b.spot_id,
  b.renter_id,
  b.start_date,
  b.end_date,
  b.total_price,
  b.status,
  b.created_at,
  s.address,
  s.neighborhood,
  s.description,
  s.price_per_day
FROM bookings b
JOIN spots s ON s.id = b.spot_id
WHERE b.renter_id = ?
ORDER BY b.created_at DESC, b.id DESC
`

// -----------------------------------------------------------------------------
// AUDIT QUERIES
// -----------------------------------------------------------------------------

const listSpotIDsSQL = `SELECT id FROM spots ORDER BY id`

const spotAvailabilitySQL = `
SELECT
  s.is_available,
  (SELECT COUNT(*) FROM bookings b WHERE b.spot_id = s.id) AS active_bookings
FROM spots s
WHERE s.id = ?
`

// Conditional form: only flips rows that actually disagree, so the audit can
// tell "repaired" from "already fine".
const fixAvailabilitySQL = `
UPDATE spots SET is_available = ? WHERE id = ? AND is_available <> ?
`
