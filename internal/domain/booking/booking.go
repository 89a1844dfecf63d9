// Package booking holds the shared domain types for side-stake bookings:
// game formats, the fixed stake denominations, the payout multiplier table
// and the booking lifecycle states.
package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type GameType string

const (
	GameSteadyEddie GameType = "steady_eddie"
	GameSweetSpot   GameType = "sweet_spot"
	GameOnFire      GameType = "on_fire"
)

// TargetScore is the stableford score the player commits to hitting.
type TargetScore int

const (
	Target34 TargetScore = 34
	Target37 TargetScore = 37
	Target40 TargetScore = 40
)

type Status string

const (
	StatusUpcoming  Status = "UPCOMING"
	StatusInReview  Status = "IN_REVIEW"
	StatusComplete  Status = "COMPLETE"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

type Result string

const (
	ResultPending Result = "PENDING"
	ResultWon     Result = "WON"
	ResultLost    Result = "LOST"
)

var (
	ErrInvalidStake    = errors.New("stake is not a valid denomination")
	ErrInvalidDate     = errors.New("competition date must be tomorrow or later")
	ErrInvalidGameType = errors.New("unknown game type")
)

// Stake denominations in minor units (cents). Stakes are entered in whole
// currency units on the client; everything downstream works in cents.
const (
	Stake10 int64 = 10_00
	Stake20 int64 = 20_00
	Stake50 int64 = 50_00
)

// Booking is the durable record created by a successful commit.
type Booking struct {
	ID                   uuid.UUID
	UserID               uint64
	ClubID               uuid.UUID
	GameType             GameType
	TargetScore          TargetScore
	StakeMinor           int64
	PotentialReturnMinor int64
	CompDate             time.Time // date only, UTC midnight
	Status               Status
	Result               Result
	IdempotencyKey       uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TargetFor maps a game format to the score it commits the player to.
func TargetFor(gt GameType) (TargetScore, error) {
	switch gt {
	case GameSteadyEddie:
		return Target34, nil
	case GameSweetSpot:
		return Target37, nil
	case GameOnFire:
		return Target40, nil
	default:
		return 0, ErrInvalidGameType
	}
}

// Multiplier returns the fixed payout multiplier for a target score.
// The table is part of the product contract: 34 pays 2x, 37 pays 5x,
// 40 pays 7x.
func Multiplier(score TargetScore) int64 {
	switch score {
	case Target34:
		return 2
	case Target37:
		return 5
	case Target40:
		return 7
	default:
		return 0
	}
}

// PotentialReturn computes stake x multiplier in minor units.
func PotentialReturn(stakeMinor int64, score TargetScore) int64 {
	return stakeMinor * Multiplier(score)
}

// StakeFromUnits converts a whole-unit stake (as entered on the client)
// to minor units, rejecting anything outside the fixed denominations.
func StakeFromUnits(units int64) (int64, error) {
	minor := units * 100
	if err := ValidateStake(minor); err != nil {
		return 0, err
	}
	return minor, nil
}

func ValidateStake(stakeMinor int64) error {
	switch stakeMinor {
	case Stake10, Stake20, Stake50:
		return nil
	default:
		return ErrInvalidStake
	}
}

// DateOnly maps t to UTC midnight of its calendar date, read in t's own
// location. Competition dates are calendar dates; time-of-day and zone
// never participate in comparisons.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateCompDate requires the competition date to be tomorrow or later
// relative to now.
func ValidateCompDate(compDate, now time.Time) error {
	if compDate.IsZero() {
		return ErrInvalidDate
	}
	tomorrow := DateOnly(now).AddDate(0, 0, 1)
	if DateOnly(compDate).Before(tomorrow) {
		return ErrInvalidDate
	}
	return nil
}

// CancelCutoff is the last instant at which a booking for compDate may
// still be cancelled: 23:59 on the day before the competition.
func CancelCutoff(compDate time.Time) time.Time {
	return DateOnly(compDate).Add(-time.Minute)
}
