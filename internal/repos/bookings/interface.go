// Package bookings defines the persistence contract for booking records.
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fairwaygames/stakebook/internal/domain/booking"
)

var (
	ErrNotFound = errors.New("booking not found")

	// ErrDuplicateKey means a booking with the same idempotency key already
	// exists; the caller should fetch and return that booking instead of
	// treating the insert as a failure.
	ErrDuplicateKey = errors.New("duplicate idempotency key")

	// ErrStaleStatus means a guarded update matched no row because the
	// booking is no longer in the expected status.
	ErrStaleStatus = errors.New("booking not in expected status")
)

// Bookings persists booking records. Writes run inside the caller's
// transaction so they can be made atomic with the wallet mutation.
type Bookings interface {
	Create(tx *sql.Tx, b *booking.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)

	// GetForUpdate reads a booking inside tx with a row lock, serializing
	// concurrent Edit/Cancel attempts on the same booking.
	GetForUpdate(tx *sql.Tx, id uuid.UUID) (*booking.Booking, error)

	GetByIdempotencyKeyTx(tx *sql.Tx, key uuid.UUID) (*booking.Booking, error)

	// UpdateTerms rewrites stake, competition date, potential return and the
	// idempotency key of an Upcoming booking. Returns ErrStaleStatus if the
	// booking has left Upcoming.
	UpdateTerms(tx *sql.Tx, id uuid.UUID, stakeMinor, potentialReturnMinor int64, compDate time.Time, key uuid.UUID) error

	// SetStatus transitions status from one state to another, guarded on the
	// current value. Returns ErrStaleStatus when the guard fails.
	SetStatus(tx *sql.Tx, id uuid.UUID, from, to booking.Status) error

	ListByUser(ctx context.Context, userID uint64) ([]booking.Booking, error)
}
