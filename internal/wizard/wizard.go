// Package wizard drives the client-side stake-booking flow: an ordered
// sequence of selection steps collecting a draft, ending in a single call
// to the commit service. Every transition before Review is a pure
// in-memory state change; only Confirm touches the network.
package wizard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fairwaygames/stakebook/internal/domain/booking"
	"github.com/fairwaygames/stakebook/internal/services/commit"
)

type Step int

const (
	StepGameSelect Step = iota
	StepStakeSelect
	StepDateSelect
	StepReview
	StepCommitting
	StepSuccess
)

func (s Step) String() string {
	switch s {
	case StepGameSelect:
		return "game_select"
	case StepStakeSelect:
		return "stake_select"
	case StepDateSelect:
		return "date_select"
	case StepReview:
		return "review"
	case StepCommitting:
		return "committing"
	case StepSuccess:
		return "success"
	default:
		return "unknown"
	}
}

var (
	ErrBadStep        = errors.New("action not valid in current step")
	ErrCommitInFlight = errors.New("commit in flight")
)

// Committer is the outbound boundary of the wizard; commit.Service
// satisfies it.
type Committer interface {
	Commit(ctx context.Context, req commit.CommitRequest) (*booking.Booking, error)
	Edit(ctx context.Context, req commit.EditRequest) (*booking.Booking, error)
}

// Wizard is single-threaded: it is owned by one screen and never shared
// across goroutines.
type Wizard struct {
	userID    uint64
	committer Committer

	step    Step
	draft   booking.Draft
	editing *booking.Booking // non-nil in edit mode

	// key is generated once per wizard session so a confirm retried after
	// a transient failure cannot double-book.
	key uuid.UUID

	result  *booking.Booking
	lastErr error
	closed  bool

	now func() time.Time
}

// New opens the wizard for a fresh stake entry at the given club.
func New(userID uint64, clubID uuid.UUID, c Committer) *Wizard {
	return &Wizard{
		userID:    userID,
		committer: c,
		step:      StepGameSelect,
		draft:     booking.Draft{ClubID: clubID},
		key:       uuid.New(),
		now:       time.Now,
	}
}

// NewEdit opens the wizard over an existing Upcoming booking. It enters
// directly at the stake step, pre-populated from the booking; the game
// format is fixed for the life of a booking.
func NewEdit(b *booking.Booking, c Committer) *Wizard {
	return &Wizard{
		userID:    b.UserID,
		committer: c,
		step:      StepStakeSelect,
		editing:   b,
		draft: booking.Draft{
			ClubID:      b.ClubID,
			GameType:    b.GameType,
			TargetScore: b.TargetScore,
			StakeMinor:  b.StakeMinor,
			CompDate:    b.CompDate,
		},
		key: uuid.New(),
		now: time.Now,
	}
}

func (w *Wizard) Step() Step                { return w.step }
func (w *Wizard) Draft() booking.Draft      { return w.draft }
func (w *Wizard) Err() error                { return w.lastErr }
func (w *Wizard) Booking() *booking.Booking { return w.result }
func (w *Wizard) IsEdit() bool              { return w.editing != nil }

// PotentialReturn is the figure shown on the review step.
func (w *Wizard) PotentialReturn() int64 { return w.draft.PotentialReturn() }

// Message is the terminal copy for the success screen.
func (w *Wizard) Message() string {
	if w.IsEdit() {
		return "Stake updated"
	}
	return "Stake entered"
}

// SelectGame records the game format. Valid only on the game step of a
// fresh entry.
func (w *Wizard) SelectGame(gt booking.GameType) error {
	if w.closed || w.step != StepGameSelect {
		return ErrBadStep
	}

	target, err := booking.TargetFor(gt)
	if err != nil {
		return err
	}

	w.draft.GameType = gt
	w.draft.TargetScore = target

	return nil
}

// SelectStake records the stake, given in whole currency units.
func (w *Wizard) SelectStake(units int64) error {
	if w.closed || w.step != StepStakeSelect {
		return ErrBadStep
	}

	minor, err := booking.StakeFromUnits(units)
	if err != nil {
		return err
	}

	w.draft.StakeMinor = minor

	return nil
}

// SelectDate records the competition date, from the quick-pick row or the
// calendar; past dates and today are rejected either way.
func (w *Wizard) SelectDate(d time.Time) error {
	if w.closed || w.step != StepDateSelect {
		return ErrBadStep
	}

	if err := booking.ValidateCompDate(d, w.now()); err != nil {
		return err
	}

	w.draft.CompDate = booking.DateOnly(d)

	return nil
}

// Next advances to the following step, but only when the current step's
// field passes validation.
func (w *Wizard) Next() error {
	if w.closed {
		return ErrBadStep
	}

	switch w.step {
	case StepGameSelect:
		if _, err := booking.TargetFor(w.draft.GameType); err != nil {
			return err
		}
		w.step = StepStakeSelect
	case StepStakeSelect:
		if err := booking.ValidateStake(w.draft.StakeMinor); err != nil {
			return err
		}
		w.step = StepDateSelect
	case StepDateSelect:
		if err := booking.ValidateCompDate(w.draft.CompDate, w.now()); err != nil {
			return err
		}
		w.step = StepReview
	default:
		return ErrBadStep
	}

	return nil
}

// Back moves to the previous step. Not allowed while committing or after
// success; an edit session bottoms out at the stake step.
func (w *Wizard) Back() error {
	if w.closed {
		return ErrBadStep
	}

	switch w.step {
	case StepStakeSelect:
		if w.IsEdit() {
			return ErrBadStep
		}
		w.step = StepGameSelect
	case StepDateSelect:
		w.step = StepStakeSelect
	case StepReview:
		w.step = StepDateSelect
	default:
		return ErrBadStep
	}

	return nil
}

// Confirm performs the commit. On success the wizard lands on the terminal
// success step; on failure it returns to Review with the error surfaced
// via Err, leaving no partial state behind. Cancelling ctx abandons only
// the wait: the commit itself is all-or-nothing on the server.
func (w *Wizard) Confirm(ctx context.Context) (*booking.Booking, error) {
	if w.closed || w.step != StepReview {
		return nil, ErrBadStep
	}

	w.step = StepCommitting
	w.lastErr = nil

	var (
		b   *booking.Booking
		err error
	)

	if w.IsEdit() {
		b, err = w.committer.Edit(ctx, commit.EditRequest{
			UserID:         w.userID,
			BookingID:      w.editing.ID,
			StakeMinor:     w.draft.StakeMinor,
			CompDate:       w.draft.CompDate,
			IdempotencyKey: w.key,
		})
	} else {
		b, err = w.committer.Commit(ctx, commit.CommitRequest{
			UserID:         w.userID,
			Draft:          w.draft,
			IdempotencyKey: w.key,
		})
	}

	if err != nil {
		w.step = StepReview
		w.lastErr = err

		return nil, err
	}

	w.step = StepSuccess
	w.result = b

	return b, nil
}

// Close discards the draft. Closing before Review has no side effects
// anywhere; closing is refused mid-commit.
func (w *Wizard) Close() error {
	if w.step == StepCommitting {
		return ErrCommitInFlight
	}

	w.closed = true
	w.draft = booking.Draft{}

	return nil
}

// QuickPickDates returns the seven dates offered by the quick-pick row:
// tomorrow through a week from tomorrow, exclusive.
func QuickPickDates(now time.Time) []time.Time {
	dates := make([]time.Time, 0, 7)
	start := booking.DateOnly(now).AddDate(0, 0, 1)

	for i := 0; i < 7; i++ {
		dates = append(dates, start.AddDate(0, 0, i))
	}

	return dates
}
