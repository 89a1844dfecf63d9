// Package verification issues short-lived email verification codes: a
// 5-digit numeric code stored with a 10-minute expiry and consumed by
// exactly one validation attempt.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"time"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPermissionDenied covers a wrong, expired or already-consumed code.
	ErrPermissionDenied = errors.New("permission denied")

	ErrInternal = errors.New("internal error")
)

const DefaultTTL = 10 * time.Minute

// CodeStore persists pending codes with a TTL. Consume removes the code
// regardless of whether it later matches: each issued code survives at
// most one validation attempt.
type CodeStore interface {
	Save(ctx context.Context, email, code string, ttl time.Duration) error
	Consume(ctx context.Context, email string) (string, error) // "" when absent
}

// Sender delivers the code out of band.
type Sender interface {
	Send(ctx context.Context, email, code string) error
}

type Service struct {
	store  CodeStore
	sender Sender
	ttl    time.Duration
}

func New(store CodeStore, sender Sender, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Service{store: store, sender: sender, ttl: ttl}
}

// Issue generates a fresh code for the address, stores it pending with the
// configured TTL and emails it. Re-issuing replaces any previous pending
// code.
func (s *Service) Issue(ctx context.Context, email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("%w: generate code: %v", ErrInternal, err)
	}

	err = s.store.Save(ctx, email, code, s.ttl)
	if err != nil {
		return fmt.Errorf("%w: save code: %v", ErrInternal, err)
	}

	err = s.sender.Send(ctx, email, code)
	if err != nil {
		return fmt.Errorf("%w: send code: %v", ErrInternal, err)
	}

	slog.Info("verification code issued", "email", email)

	return nil
}

// Confirm consumes the pending code for the address and compares it. Any
// mismatch, expiry or repeat attempt fails with ErrPermissionDenied.
func (s *Service) Confirm(ctx context.Context, email, code string) error {
	if email == "" || len(code) != codeDigits {
		return ErrInvalidArgument
	}

	stored, err := s.store.Consume(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: consume code: %v", ErrInternal, err)
	}

	if stored == "" || stored != code {
		return ErrPermissionDenied
	}

	slog.Info("verification code confirmed", "email", email)

	return nil
}

const codeDigits = 5

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%05d", n.Int64()), nil
}
