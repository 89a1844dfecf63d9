package commit

// In-memory stand-ins for the Postgres repositories. They ignore the
// *sql.Tx handle (the transaction lifecycle itself is driven by sqlmock)
// and enforce the same version/status guards as the real SQL, which is
// what the service logic depends on.

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fairwaygames/stakebook/internal/domain/booking"
	"github.com/fairwaygames/stakebook/internal/events"
	"github.com/fairwaygames/stakebook/internal/repos/bookings"
	"github.com/fairwaygames/stakebook/internal/repos/wallets"
)

// Guard against the fakes drifting away from the repo contracts.
var (
	_ wallets.Wallets   = (*fakeWallets)(nil)
	_ bookings.Bookings = (*fakeBookings)(nil)
	_ Publisher         = (*fakePublisher)(nil)
)

type fakeWallets struct {
	accounts map[uint64]*wallets.Account
	entries  []wallets.Entry

	// conflicts makes the next N mutations lose the optimistic race.
	conflicts int
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{accounts: make(map[uint64]*wallets.Account)}
}

func (f *fakeWallets) seed(userID uint64, balanceMinor int64) {
	f.accounts[userID] = &wallets.Account{UserID: userID, BalanceMinor: balanceMinor, Version: 1}
}

func (f *fakeWallets) CreateAccount(_ context.Context, userID uint64) (*wallets.Account, error) {
	f.seed(userID, 0)
	return f.accounts[userID], nil
}

func (f *fakeWallets) GetAccount(_ context.Context, userID uint64) (*wallets.Account, error) {
	return f.get(userID)
}

func (f *fakeWallets) GetAccountTx(_ *sql.Tx, userID uint64) (*wallets.Account, error) {
	return f.get(userID)
}

func (f *fakeWallets) get(userID uint64) (*wallets.Account, error) {
	acct, ok := f.accounts[userID]
	if !ok {
		return nil, wallets.ErrAccountNotFound
	}
	cp := *acct
	return &cp, nil
}

func (f *fakeWallets) Debit(_ *sql.Tx, userID uint64, amountMinor, version int64, refID uuid.UUID) (int64, error) {
	return f.mutate(userID, -amountMinor, version, refID, wallets.DirectionDebit)
}

func (f *fakeWallets) Credit(_ *sql.Tx, userID uint64, amountMinor, version int64, refID uuid.UUID) (int64, error) {
	return f.mutate(userID, amountMinor, version, refID, wallets.DirectionCredit)
}

func (f *fakeWallets) mutate(userID uint64, signedAmount, version int64, refID uuid.UUID, dir wallets.Direction) (int64, error) {
	if signedAmount == 0 {
		return 0, wallets.ErrNonPositiveAmount
	}

	if f.conflicts > 0 {
		f.conflicts--
		return 0, wallets.ErrConcurrentModification
	}

	acct, ok := f.accounts[userID]
	if !ok {
		return 0, wallets.ErrAccountNotFound
	}
	if acct.Version != version {
		return 0, wallets.ErrConcurrentModification
	}
	if acct.BalanceMinor+signedAmount < 0 {
		return 0, wallets.ErrInsufficientFunds
	}

	acct.BalanceMinor += signedAmount
	acct.Version++

	amount := signedAmount
	if amount < 0 {
		amount = -amount
	}

	f.entries = append(f.entries, wallets.Entry{
		ID:                uuid.New(),
		UserID:            userID,
		BookingID:         refID,
		Direction:         dir,
		AmountMinor:       amount,
		BalanceAfterMinor: acct.BalanceMinor,
		CreatedAt:         time.Now(),
	})

	return acct.BalanceMinor, nil
}

func (f *fakeWallets) ListEntries(_ context.Context, userID uint64, limit int) ([]wallets.Entry, error) {
	var out []wallets.Entry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeWallets) balance(userID uint64) int64 {
	return f.accounts[userID].BalanceMinor
}

type fakeBookings struct {
	byID map[uuid.UUID]*booking.Booking
}

func newFakeBookings() *fakeBookings {
	return &fakeBookings{byID: make(map[uuid.UUID]*booking.Booking)}
}

func (f *fakeBookings) Create(_ *sql.Tx, b *booking.Booking) error {
	for _, existing := range f.byID {
		if existing.IdempotencyKey == b.IdempotencyKey {
			return bookings.ErrDuplicateKey
		}
	}

	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	f.byID[b.ID] = &cp

	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	return f.get(id)
}

func (f *fakeBookings) GetForUpdate(_ *sql.Tx, id uuid.UUID) (*booking.Booking, error) {
	return f.get(id)
}

func (f *fakeBookings) get(id uuid.UUID) (*booking.Booking, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, bookings.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) GetByIdempotencyKeyTx(_ *sql.Tx, key uuid.UUID) (*booking.Booking, error) {
	for _, b := range f.byID {
		if b.IdempotencyKey == key {
			cp := *b
			return &cp, nil
		}
	}
	return nil, bookings.ErrNotFound
}

func (f *fakeBookings) UpdateTerms(_ *sql.Tx, id uuid.UUID, stakeMinor, potentialReturnMinor int64, compDate time.Time, key uuid.UUID) error {
	b, ok := f.byID[id]
	if !ok || b.Status != booking.StatusUpcoming {
		return bookings.ErrStaleStatus
	}

	b.StakeMinor = stakeMinor
	b.PotentialReturnMinor = potentialReturnMinor
	b.CompDate = compDate
	b.IdempotencyKey = key
	b.UpdatedAt = time.Now()

	return nil
}

func (f *fakeBookings) SetStatus(_ *sql.Tx, id uuid.UUID, from, to booking.Status) error {
	b, ok := f.byID[id]
	if !ok || b.Status != from {
		return bookings.ErrStaleStatus
	}

	b.Status = to
	b.UpdatedAt = time.Now()

	return nil
}

func (f *fakeBookings) ListByUser(_ context.Context, userID uint64) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range f.byID {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakePublisher struct {
	published []events.BookingEvent
}

func (f *fakePublisher) Publish(_ context.Context, evt events.BookingEvent) error {
	f.published = append(f.published, evt)
	return nil
}
