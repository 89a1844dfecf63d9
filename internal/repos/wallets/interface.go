// Package wallets defines the wallet ledger contract: the sole mutator of
// per-user balances. Debits and credits carry the causing booking id so
// every balance change is auditable.
package wallets

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound        = errors.New("wallet account not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrConcurrentModification = errors.New("concurrent wallet modification")
	ErrNonPositiveAmount      = errors.New("amount must be positive")
)

// Account is a user's wallet. Balance never goes below zero; Version
// increments on every mutation and backs the optimistic concurrency check.
type Account struct {
	UserID       uint64
	BalanceMinor int64
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Entry is one audit row in the ledger, linking a balance change to the
// booking that caused it.
type Entry struct {
	ID                uuid.UUID
	UserID            uint64
	BookingID         uuid.UUID
	Direction         Direction
	AmountMinor       int64
	BalanceAfterMinor int64
	CreatedAt         time.Time
}

type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Wallets mutates balances with an optimistic version check: Debit and
// Credit succeed only if the account still carries the version the caller
// read, otherwise they return ErrConcurrentModification and the caller must
// re-read and retry.
type Wallets interface {
	CreateAccount(ctx context.Context, userID uint64) (*Account, error)
	GetAccount(ctx context.Context, userID uint64) (*Account, error)
	GetAccountTx(tx *sql.Tx, userID uint64) (*Account, error)

	// Debit subtracts amount from the balance if version matches and funds
	// suffice, records an audit entry referencing refID, and returns the new
	// balance. amount must be > 0.
	Debit(tx *sql.Tx, userID uint64, amountMinor int64, version int64, refID uuid.UUID) (int64, error)

	// Credit adds amount to the balance if version matches, records an audit
	// entry referencing refID, and returns the new balance. amount must be > 0.
	Credit(tx *sql.Tx, userID uint64, amountMinor int64, version int64, refID uuid.UUID) (int64, error)

	ListEntries(ctx context.Context, userID uint64, limit int) ([]Entry, error)
}
