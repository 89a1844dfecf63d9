package booking

import (
	"time"

	"github.com/google/uuid"
)

// Draft is the ephemeral selection a wizard collects before commit.
// It carries no identity; identity (booking id, idempotency key) is
// assigned by the caller at commit time.
type Draft struct {
	ClubID      uuid.UUID
	GameType    GameType
	TargetScore TargetScore
	StakeMinor  int64
	CompDate    time.Time
}

// Validate checks the complete draft against the product rules.
// Field-level errors are the same sentinels the per-step wizard
// validation uses, so callers can branch identically in both places.
func (d Draft) Validate(now time.Time) error {
	if _, err := TargetFor(d.GameType); err != nil {
		return err
	}
	if err := ValidateStake(d.StakeMinor); err != nil {
		return err
	}
	return ValidateCompDate(d.CompDate, now)
}

// PotentialReturn is the payout shown on the review step; the same
// figure is persisted on commit.
func (d Draft) PotentialReturn() int64 {
	return PotentialReturn(d.StakeMinor, d.TargetScore)
}
