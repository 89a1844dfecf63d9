// Package commit is the single place that turns a reviewed draft, an edit
// or a cancellation into durable, ledger-consistent state. Every operation
// runs as one database transaction: the booking write and the wallet
// mutation land together or not at all.
package commit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairwaygames/stakebook/internal/domain/booking"
	"github.com/fairwaygames/stakebook/internal/events"
	"github.com/fairwaygames/stakebook/internal/infra/pgutils"
	"github.com/fairwaygames/stakebook/internal/repos/bookings"
	pgbookings "github.com/fairwaygames/stakebook/internal/repos/bookings/postgres"
	"github.com/fairwaygames/stakebook/internal/repos/wallets"
	pgwallets "github.com/fairwaygames/stakebook/internal/repos/wallets/postgres"
)

var (
	ErrDeadlinePassed = errors.New("cancellation deadline passed")
	ErrNotUpcoming    = errors.New("booking is no longer upcoming")
	ErrForbidden      = errors.New("booking belongs to another user")

	// ErrUnavailable is returned after the bounded retry budget is spent on
	// concurrent-modification losses or the store times out. Safe to retry
	// with the same idempotency key.
	ErrUnavailable = errors.New("booking service temporarily unavailable")
)

const (
	maxAttempts = 3
	retryDelay  = 50 * time.Millisecond
)

// Publisher receives booking lifecycle events after a transaction commits.
type Publisher interface {
	Publish(ctx context.Context, evt events.BookingEvent) error
}

type Service struct {
	db       *sql.DB
	wallets  wallets.Wallets
	bookings bookings.Bookings
	pub      Publisher

	now   func() time.Time
	delay time.Duration
}

// New wires the service against Postgres-backed repositories. pub may be
// nil when no broker is configured.
func New(db *sql.DB, pub Publisher) *Service {
	return &Service{
		db:       db,
		wallets:  pgwallets.New(db),
		bookings: pgbookings.New(db),
		pub:      pub,
		now:      time.Now,
		delay:    retryDelay,
	}
}

type CommitRequest struct {
	UserID         uint64
	Draft          booking.Draft
	IdempotencyKey uuid.UUID
}

type EditRequest struct {
	UserID         uint64
	BookingID      uuid.UUID
	StakeMinor     int64
	CompDate       time.Time
	IdempotencyKey uuid.UUID
}

// Commit persists the draft as an Upcoming booking and debits the stake
// from the user's wallet, atomically. A retry carrying an idempotency key
// that already produced a booking returns that booking unchanged.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (*booking.Booking, error) {
	if err := req.Draft.Validate(s.now()); err != nil {
		return nil, err
	}

	var (
		result *booking.Booking
		fresh  bool
	)

	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		result, fresh = nil, false

		existing, err := s.bookings.GetByIdempotencyKeyTx(tx, req.IdempotencyKey)
		if err == nil {
			// A replay only counts as such for the user who committed it;
			// anyone else colliding on the key gets nothing back.
			if existing.UserID != req.UserID {
				return ErrForbidden
			}

			result = existing
			return nil
		}
		if !errors.Is(err, bookings.ErrNotFound) {
			return fmt.Errorf("lookup idempotency key: %w", err)
		}

		acct, err := s.wallets.GetAccountTx(tx, req.UserID)
		if err != nil {
			return fmt.Errorf("get wallet account: %w", err)
		}

		b := &booking.Booking{
			ID:                   uuid.New(),
			UserID:               req.UserID,
			ClubID:               req.Draft.ClubID,
			GameType:             req.Draft.GameType,
			TargetScore:          req.Draft.TargetScore,
			StakeMinor:           req.Draft.StakeMinor,
			PotentialReturnMinor: req.Draft.PotentialReturn(),
			CompDate:             booking.DateOnly(req.Draft.CompDate),
			Status:               booking.StatusUpcoming,
			Result:               booking.ResultPending,
			IdempotencyKey:       req.IdempotencyKey,
		}

		_, err = s.wallets.Debit(tx, req.UserID, b.StakeMinor, acct.Version, b.ID)
		if err != nil {
			return fmt.Errorf("debit stake: %w", err)
		}

		err = s.bookings.Create(tx, b)
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		result, fresh = b, true

		return nil
	})
	if err != nil {
		return nil, err
	}

	if fresh {
		slog.Info("booking committed",
			"booking_id", result.ID,
			"user_id", result.UserID,
			"stake_minor", result.StakeMinor,
			"idempotency_key", req.IdempotencyKey,
		)
		s.publish(ctx, events.KindBookingEntered, result)
	}

	return result, nil
}

// Edit rewrites the stake and competition date of an Upcoming booking and
// settles the stake difference against the wallet in the same transaction:
// a raised stake debits the delta, a lowered one credits it back.
func (s *Service) Edit(ctx context.Context, req EditRequest) (*booking.Booking, error) {
	if err := booking.ValidateStake(req.StakeMinor); err != nil {
		return nil, err
	}
	if err := booking.ValidateCompDate(req.CompDate, s.now()); err != nil {
		return nil, err
	}

	var (
		result *booking.Booking
		fresh  bool
	)

	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		result, fresh = nil, false

		b, err := s.bookings.GetForUpdate(tx, req.BookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}

		if b.UserID != req.UserID {
			return ErrForbidden
		}

		// A retried edit carries the key of the version it already created.
		if b.IdempotencyKey == req.IdempotencyKey {
			result = b
			return nil
		}

		if b.Status != booking.StatusUpcoming {
			return ErrNotUpcoming
		}

		delta := req.StakeMinor - b.StakeMinor
		if delta != 0 {
			acct, err := s.wallets.GetAccountTx(tx, req.UserID)
			if err != nil {
				return fmt.Errorf("get wallet account: %w", err)
			}

			if delta > 0 {
				_, err = s.wallets.Debit(tx, req.UserID, delta, acct.Version, b.ID)
			} else {
				_, err = s.wallets.Credit(tx, req.UserID, -delta, acct.Version, b.ID)
			}
			if err != nil {
				return fmt.Errorf("settle stake delta: %w", err)
			}
		}

		newReturn := booking.PotentialReturn(req.StakeMinor, b.TargetScore)
		compDate := booking.DateOnly(req.CompDate)

		err = s.bookings.UpdateTerms(tx, b.ID, req.StakeMinor, newReturn, compDate, req.IdempotencyKey)
		if err != nil {
			return fmt.Errorf("update booking terms: %w", err)
		}

		b.StakeMinor = req.StakeMinor
		b.PotentialReturnMinor = newReturn
		b.CompDate = compDate
		b.IdempotencyKey = req.IdempotencyKey
		result, fresh = b, true

		return nil
	})
	if err != nil {
		return nil, err
	}

	if fresh {
		slog.Info("booking updated",
			"booking_id", result.ID,
			"user_id", result.UserID,
			"stake_minor", result.StakeMinor,
		)
		s.publish(ctx, events.KindBookingUpdated, result)
	}

	return result, nil
}

// Cancel refunds the full stake and marks the booking Cancelled, atomically.
// Allowed only while the booking is Upcoming and strictly before 23:59 on
// the day before the competition.
func (s *Service) Cancel(ctx context.Context, userID uint64, bookingID uuid.UUID) error {
	var cancelled *booking.Booking

	err := s.withRetry(ctx, func(tx *sql.Tx) error {
		cancelled = nil

		b, err := s.bookings.GetForUpdate(tx, bookingID)
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}

		if b.UserID != userID {
			return ErrForbidden
		}
		if b.Status != booking.StatusUpcoming {
			return ErrNotUpcoming
		}
		if !s.now().Before(booking.CancelCutoff(b.CompDate)) {
			return ErrDeadlinePassed
		}

		acct, err := s.wallets.GetAccountTx(tx, userID)
		if err != nil {
			return fmt.Errorf("get wallet account: %w", err)
		}

		_, err = s.wallets.Credit(tx, userID, b.StakeMinor, acct.Version, b.ID)
		if err != nil {
			return fmt.Errorf("refund stake: %w", err)
		}

		err = s.bookings.SetStatus(tx, b.ID, booking.StatusUpcoming, booking.StatusCancelled)
		if err != nil {
			return fmt.Errorf("mark cancelled: %w", err)
		}

		b.Status = booking.StatusCancelled
		cancelled = b

		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("booking cancelled", "booking_id", bookingID, "user_id", userID)
	s.publish(ctx, events.KindBookingCancelled, cancelled)

	return nil
}

// withRetry runs fn in a transaction, retrying a bounded number of times
// when it loses an optimistic-concurrency race. Anything else fails fast.
func (s *Service) withRetry(ctx context.Context, fn func(*sql.Tx) error) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := pgutils.WithTx(ctx, s.db, fn)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			if errors.Is(err, context.DeadlineExceeded) {
				return errors.Join(ErrUnavailable, err)
			}

			return err
		}

		lastErr = err

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return errors.Join(ErrUnavailable, ctx.Err())
			case <-time.After(s.delay):
			}
		}
	}

	return errors.Join(ErrUnavailable, lastErr)
}

// isRetryable covers the two races a fresh read resolves: a stale wallet
// version, and an idempotency-key insert that lost to a concurrent commit
// (the retry finds the winner's booking and returns it).
func isRetryable(err error) bool {
	return errors.Is(err, wallets.ErrConcurrentModification) ||
		errors.Is(err, bookings.ErrDuplicateKey)
}

func (s *Service) publish(ctx context.Context, kind events.Kind, b *booking.Booking) {
	if s.pub == nil || b == nil {
		return
	}

	evt := events.BookingEvent{
		Kind:                 kind,
		BookingID:            b.ID,
		UserID:               b.UserID,
		StakeMinor:           b.StakeMinor,
		PotentialReturnMinor: b.PotentialReturnMinor,
		CompDate:             b.CompDate.Format("2006-01-02"),
		OccurredAt:           s.now().UTC(),
	}

	err := s.pub.Publish(ctx, evt)
	if err != nil {
		slog.Warn("publish booking event failed", "kind", kind, "booking_id", b.ID, "error", err)
	}
}
