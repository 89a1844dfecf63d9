package commit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fairwaygames/stakebook/internal/domain/booking"
	"github.com/fairwaygames/stakebook/internal/repos/wallets"
)

// GetBooking returns one booking, checking ownership.
func (s *Service) GetBooking(ctx context.Context, userID uint64, bookingID uuid.UUID) (*booking.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	if b.UserID != userID {
		return nil, ErrForbidden
	}

	return b, nil
}

func (s *Service) ListBookings(ctx context.Context, userID uint64) ([]booking.Booking, error) {
	list, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return list, nil
}

// WalletBalance returns the current account snapshot (no locks; read path).
func (s *Service) WalletBalance(ctx context.Context, userID uint64) (*wallets.Account, error) {
	acct, err := s.wallets.GetAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallet account: %w", err)
	}

	return acct, nil
}

// WalletHistory returns the most recent ledger entries for a user.
func (s *Service) WalletHistory(ctx context.Context, userID uint64, limit int) ([]wallets.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	entries, err := s.wallets.ListEntries(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list wallet entries: %w", err)
	}

	return entries, nil
}
