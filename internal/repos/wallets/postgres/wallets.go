package wallets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fairwaygames/stakebook/internal/repos/wallets"
)

var _ wallets.Wallets = (*walletsRepo)(nil)

type walletsRepo struct{ db *sql.DB }

func New(db *sql.DB) *walletsRepo {
	return &walletsRepo{db: db}
}

func (r *walletsRepo) CreateAccount(ctx context.Context, userID uint64) (*wallets.Account, error) {
	acct := &wallets.Account{UserID: userID}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO wallet_accounts (user_id)
		VALUES ($1)
		RETURNING balance_minor, version, created_at, updated_at
	`, userID).Scan(&acct.BalanceMinor, &acct.Version, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	return acct, nil
}

func (r *walletsRepo) GetAccount(ctx context.Context, userID uint64) (*wallets.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `
		SELECT user_id, balance_minor, version, created_at, updated_at
		FROM wallet_accounts
		WHERE user_id = $1
	`, userID))
}

func (r *walletsRepo) GetAccountTx(tx *sql.Tx, userID uint64) (*wallets.Account, error) {
	return scanAccount(tx.QueryRow(`
		SELECT user_id, balance_minor, version, created_at, updated_at
		FROM wallet_accounts
		WHERE user_id = $1
	`, userID))
}

func scanAccount(row *sql.Row) (*wallets.Account, error) {
	acct := &wallets.Account{}

	err := row.Scan(&acct.UserID, &acct.BalanceMinor, &acct.Version, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, wallets.ErrAccountNotFound
		}

		return nil, fmt.Errorf("scan account: %w", err)
	}

	return acct, nil
}

func (r *walletsRepo) Debit(tx *sql.Tx, userID uint64, amountMinor int64, version int64, refID uuid.UUID) (int64, error) {
	if amountMinor <= 0 {
		return 0, wallets.ErrNonPositiveAmount
	}

	var newBalance int64

	err := tx.QueryRow(`
		UPDATE wallet_accounts
		SET balance_minor = balance_minor - $2,
		    version = version + 1,
		    updated_at = now()
		WHERE user_id = $1
		  AND version = $3
		  AND balance_minor >= $2
		RETURNING balance_minor
	`, userID, amountMinor, version).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.diagnoseFailedUpdate(tx, userID, amountMinor, version)
		}

		return 0, fmt.Errorf("debit balance: %w", err)
	}

	err = r.insertEntry(tx, userID, refID, wallets.DirectionDebit, amountMinor, newBalance)
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

func (r *walletsRepo) Credit(tx *sql.Tx, userID uint64, amountMinor int64, version int64, refID uuid.UUID) (int64, error) {
	if amountMinor <= 0 {
		return 0, wallets.ErrNonPositiveAmount
	}

	var newBalance int64

	err := tx.QueryRow(`
		UPDATE wallet_accounts
		SET balance_minor = balance_minor + $2,
		    version = version + 1,
		    updated_at = now()
		WHERE user_id = $1
		  AND version = $3
		RETURNING balance_minor
	`, userID, amountMinor, version).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.diagnoseFailedUpdate(tx, userID, 0, version)
		}

		return 0, fmt.Errorf("credit balance: %w", err)
	}

	err = r.insertEntry(tx, userID, refID, wallets.DirectionCredit, amountMinor, newBalance)
	if err != nil {
		return 0, err
	}

	return newBalance, nil
}

// diagnoseFailedUpdate distinguishes why a guarded UPDATE matched no rows:
// missing account, stale version, or (for debits) not enough balance.
func (r *walletsRepo) diagnoseFailedUpdate(tx *sql.Tx, userID uint64, amountMinor, version int64) error {
	var balance, current int64

	err := tx.QueryRow(`
		SELECT balance_minor, version
		FROM wallet_accounts
		WHERE user_id = $1
	`, userID).Scan(&balance, &current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wallets.ErrAccountNotFound
		}

		return fmt.Errorf("diagnose failed update: %w", err)
	}

	if current != version {
		return wallets.ErrConcurrentModification
	}

	if amountMinor > 0 && balance < amountMinor {
		return wallets.ErrInsufficientFunds
	}

	return wallets.ErrConcurrentModification
}

func (r *walletsRepo) insertEntry(tx *sql.Tx, userID uint64, refID uuid.UUID, dir wallets.Direction, amountMinor, balanceAfter int64) error {
	_, err := tx.Exec(`
		INSERT INTO wallet_entries (id, user_id, booking_id, direction, amount_minor, balance_after_minor)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), userID, refID, dir, amountMinor, balanceAfter)
	if err != nil {
		return fmt.Errorf("insert wallet entry: %w", err)
	}

	return nil
}

func (r *walletsRepo) ListEntries(ctx context.Context, userID uint64, limit int) ([]wallets.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, booking_id, direction, amount_minor, balance_after_minor, created_at
		FROM wallet_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []wallets.Entry

	for rows.Next() {
		var e wallets.Entry

		err := rows.Scan(&e.ID, &e.UserID, &e.BookingID, &e.Direction, &e.AmountMinor, &e.BalanceAfterMinor, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan wallet entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet entries: %w", err)
	}

	return entries, nil
}
