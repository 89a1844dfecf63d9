package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairwaygames/stakebook/internal/domain/booking"
	"github.com/fairwaygames/stakebook/internal/infra/pgutils"
	"github.com/fairwaygames/stakebook/internal/repos/bookings"
)

var _ bookings.Bookings = (*bookingsRepo)(nil)

type bookingsRepo struct{ db *sql.DB }

func New(db *sql.DB) *bookingsRepo {
	return &bookingsRepo{db: db}
}

const bookingColumns = `
	id, user_id, club_id, game_type, target_score,
	stake_minor, potential_return_minor, comp_date,
	status, result, idempotency_key, created_at, updated_at
`

func (r *bookingsRepo) Create(tx *sql.Tx, b *booking.Booking) error {
	err := tx.QueryRow(`
		INSERT INTO bookings (
			id, user_id, club_id, game_type, target_score,
			stake_minor, potential_return_minor, comp_date,
			status, result, idempotency_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		b.ID, b.UserID, b.ClubID, b.GameType, b.TargetScore,
		b.StakeMinor, b.PotentialReturnMinor, b.CompDate,
		b.Status, b.Result, b.IdempotencyKey,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return bookings.ErrDuplicateKey
		}

		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

func (r *bookingsRepo) GetByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return scanBooking(r.db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id))
}

func (r *bookingsRepo) GetForUpdate(tx *sql.Tx, id uuid.UUID) (*booking.Booking, error) {
	return scanBooking(tx.QueryRow(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (r *bookingsRepo) GetByIdempotencyKeyTx(tx *sql.Tx, key uuid.UUID) (*booking.Booking, error) {
	return scanBooking(tx.QueryRow(`
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE idempotency_key = $1
	`, key))
}

func scanBooking(row *sql.Row) (*booking.Booking, error) {
	b := &booking.Booking{}

	err := row.Scan(
		&b.ID, &b.UserID, &b.ClubID, &b.GameType, &b.TargetScore,
		&b.StakeMinor, &b.PotentialReturnMinor, &b.CompDate,
		&b.Status, &b.Result, &b.IdempotencyKey, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bookings.ErrNotFound
		}

		return nil, fmt.Errorf("scan booking: %w", err)
	}

	b.CompDate = booking.DateOnly(b.CompDate)

	return b, nil
}

func (r *bookingsRepo) UpdateTerms(tx *sql.Tx, id uuid.UUID, stakeMinor, potentialReturnMinor int64, compDate time.Time, key uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE bookings
		SET stake_minor = $2,
		    potential_return_minor = $3,
		    comp_date = $4,
		    idempotency_key = $5,
		    updated_at = now()
		WHERE id = $1
		  AND status = $6
	`, id, stakeMinor, potentialReturnMinor, compDate, key, booking.StatusUpcoming)
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return bookings.ErrDuplicateKey
		}

		return fmt.Errorf("update booking terms: %w", err)
	}

	return requireOneRow(res, "update booking terms")
}

func (r *bookingsRepo) SetStatus(tx *sql.Tx, id uuid.UUID, from, to booking.Status) error {
	res, err := tx.Exec(`
		UPDATE bookings
		SET status = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("set booking status: %w", err)
	}

	return requireOneRow(res, "set booking status")
}

func requireOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}

	if affected == 0 {
		return bookings.ErrStaleStatus
	}

	return nil
}

func (r *bookingsRepo) ListByUser(ctx context.Context, userID uint64) ([]booking.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var list []booking.Booking

	for rows.Next() {
		var b booking.Booking

		err := rows.Scan(
			&b.ID, &b.UserID, &b.ClubID, &b.GameType, &b.TargetScore,
			&b.StakeMinor, &b.PotentialReturnMinor, &b.CompDate,
			&b.Status, &b.Result, &b.IdempotencyKey, &b.CreatedAt, &b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}

		b.CompDate = booking.DateOnly(b.CompDate)
		list = append(list, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return list, nil
}
