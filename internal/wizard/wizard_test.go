package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwaygames/stakebook/internal/domain/booking"
	"github.com/fairwaygames/stakebook/internal/services/commit"
)

var (
	testNow    = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	testClubID = uuid.MustParse("3d6c3b1e-9a64-4b0f-ae0a-52f70c2a0c11")
)

// fakeCommitter records requests and plays back a scripted response.
type fakeCommitter struct {
	commits []commit.CommitRequest
	edits   []commit.EditRequest

	booking *booking.Booking
	err     error
}

func (f *fakeCommitter) Commit(_ context.Context, req commit.CommitRequest) (*booking.Booking, error) {
	f.commits = append(f.commits, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.booking != nil {
		return f.booking, nil
	}
	return &booking.Booking{
		ID:             uuid.New(),
		UserID:         req.UserID,
		StakeMinor:     req.Draft.StakeMinor,
		IdempotencyKey: req.IdempotencyKey,
		Status:         booking.StatusUpcoming,
	}, nil
}

func (f *fakeCommitter) Edit(_ context.Context, req commit.EditRequest) (*booking.Booking, error) {
	f.edits = append(f.edits, req)
	if f.err != nil {
		return nil, f.err
	}
	return &booking.Booking{
		ID:             req.BookingID,
		UserID:         req.UserID,
		StakeMinor:     req.StakeMinor,
		IdempotencyKey: req.IdempotencyKey,
		Status:         booking.StatusUpcoming,
	}, nil
}

func newTestWizard(c Committer) *Wizard {
	w := New(7, testClubID, c)
	w.now = func() time.Time { return testNow }
	return w
}

func fillToReview(t *testing.T, w *Wizard) {
	t.Helper()

	require.NoError(t, w.SelectGame(booking.GameSweetSpot))
	require.NoError(t, w.Next())
	require.NoError(t, w.SelectStake(20))
	require.NoError(t, w.Next())
	require.NoError(t, w.SelectDate(testNow.AddDate(0, 0, 3)))
	require.NoError(t, w.Next())
	require.Equal(t, StepReview, w.Step())
}

func TestWizard_HappyPath(t *testing.T) {
	fc := &fakeCommitter{}
	w := newTestWizard(fc)

	assert.Equal(t, StepGameSelect, w.Step())
	fillToReview(t, w)

	assert.Equal(t, int64(100_00), w.PotentialReturn(), "20 x 5 on the review screen")

	b, err := w.Confirm(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, StepSuccess, w.Step())
	assert.Equal(t, "Stake entered", w.Message())
	assert.Same(t, b, w.Booking())

	require.Len(t, fc.commits, 1)
	assert.Equal(t, booking.Stake20, fc.commits[0].Draft.StakeMinor)
	assert.Equal(t, testClubID, fc.commits[0].Draft.ClubID)
}

func TestWizard_ForwardGatedByValidation(t *testing.T) {
	w := newTestWizard(&fakeCommitter{})

	// Cannot advance without a game selected.
	assert.ErrorIs(t, w.Next(), booking.ErrInvalidGameType)

	require.NoError(t, w.SelectGame(booking.GameOnFire))
	require.NoError(t, w.Next())

	// Invalid stake neither sticks nor advances.
	assert.ErrorIs(t, w.SelectStake(15), booking.ErrInvalidStake)
	assert.ErrorIs(t, w.Next(), booking.ErrInvalidStake)

	require.NoError(t, w.SelectStake(50))
	require.NoError(t, w.Next())

	// Today and the past are rejected by both pickers.
	assert.ErrorIs(t, w.SelectDate(testNow), booking.ErrInvalidDate)
	assert.ErrorIs(t, w.SelectDate(testNow.AddDate(0, 0, -1)), booking.ErrInvalidDate)
	assert.ErrorIs(t, w.Next(), booking.ErrInvalidDate)

	require.NoError(t, w.SelectDate(testNow.AddDate(0, 0, 1)))
	require.NoError(t, w.Next())
	assert.Equal(t, StepReview, w.Step())
}

func TestWizard_StepGuards(t *testing.T) {
	w := newTestWizard(&fakeCommitter{})

	// Selections outside their step are refused.
	assert.ErrorIs(t, w.SelectStake(20), ErrBadStep)
	assert.ErrorIs(t, w.SelectDate(testNow.AddDate(0, 0, 1)), ErrBadStep)

	_, err := w.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrBadStep)

	// No back from the first step.
	assert.ErrorIs(t, w.Back(), ErrBadStep)
}

func TestWizard_BackNavigation(t *testing.T) {
	w := newTestWizard(&fakeCommitter{})
	fillToReview(t, w)

	require.NoError(t, w.Back())
	assert.Equal(t, StepDateSelect, w.Step())
	require.NoError(t, w.Back())
	assert.Equal(t, StepStakeSelect, w.Step())
	require.NoError(t, w.Back())
	assert.Equal(t, StepGameSelect, w.Step())

	// Draft survives navigation; forward hops reuse it.
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	assert.Equal(t, StepReview, w.Step())
}

func TestWizard_FailedCommitReturnsToReview(t *testing.T) {
	fc := &fakeCommitter{err: commit.ErrUnavailable}
	w := newTestWizard(fc)
	fillToReview(t, w)

	_, err := w.Confirm(context.Background())
	assert.ErrorIs(t, err, commit.ErrUnavailable)

	assert.Equal(t, StepReview, w.Step(), "failure lands back on review, never stuck committing")
	assert.ErrorIs(t, w.Err(), commit.ErrUnavailable)
	assert.Nil(t, w.Booking())

	// A retry reuses the same idempotency key.
	fc.err = nil
	_, err = w.Confirm(context.Background())
	require.NoError(t, err)
	require.Len(t, fc.commits, 2)
	assert.Equal(t, fc.commits[0].IdempotencyKey, fc.commits[1].IdempotencyKey)
	assert.Nil(t, w.Err())
}

func TestWizard_EditMode(t *testing.T) {
	existing := &booking.Booking{
		ID:          uuid.New(),
		UserID:      7,
		ClubID:      testClubID,
		GameType:    booking.GameSweetSpot,
		TargetScore: booking.Target37,
		StakeMinor:  booking.Stake20,
		CompDate:    time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC),
		Status:      booking.StatusUpcoming,
	}

	fc := &fakeCommitter{}
	w := NewEdit(existing, fc)
	w.now = func() time.Time { return testNow }

	assert.Equal(t, StepStakeSelect, w.Step(), "edit enters at the stake step")
	assert.True(t, w.IsEdit())
	assert.Equal(t, booking.Stake20, w.Draft().StakeMinor, "pre-populated from the booking")

	// Game selection is fixed; there is nothing behind the stake step.
	assert.ErrorIs(t, w.Back(), ErrBadStep)
	assert.ErrorIs(t, w.SelectGame(booking.GameOnFire), ErrBadStep)

	require.NoError(t, w.SelectStake(50))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next()) // date kept from the booking
	require.Equal(t, StepReview, w.Step())

	_, err := w.Confirm(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Stake updated", w.Message())
	assert.Empty(t, fc.commits)
	require.Len(t, fc.edits, 1)
	assert.Equal(t, existing.ID, fc.edits[0].BookingID)
	assert.Equal(t, booking.Stake50, fc.edits[0].StakeMinor)
}

func TestWizard_CloseDiscardsDraft(t *testing.T) {
	fc := &fakeCommitter{}
	w := newTestWizard(fc)

	require.NoError(t, w.SelectGame(booking.GameSteadyEddie))
	require.NoError(t, w.Next())
	require.NoError(t, w.SelectStake(10))

	require.NoError(t, w.Close())
	assert.Equal(t, booking.Draft{}, w.Draft())

	// Nothing works on a closed wizard, and nothing ever reached the committer.
	assert.ErrorIs(t, w.Next(), ErrBadStep)
	assert.ErrorIs(t, w.SelectStake(20), ErrBadStep)
	assert.Empty(t, fc.commits)
}

func TestWizard_ConfirmErrorsDoNotCloseDraft(t *testing.T) {
	fc := &fakeCommitter{err: errors.New("network down")}
	w := newTestWizard(fc)
	fillToReview(t, w)

	_, err := w.Confirm(context.Background())
	require.Error(t, err)

	// Draft intact for another go.
	assert.Equal(t, booking.Stake20, w.Draft().StakeMinor)
}

func TestQuickPickDates(t *testing.T) {
	dates := QuickPickDates(testNow)
	require.Len(t, dates, 7)

	assert.Equal(t, time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2026, time.March, 17, 0, 0, 0, 0, time.UTC), dates[6])

	// Every offered date passes the same validation the calendar applies.
	for _, d := range dates {
		assert.NoError(t, booking.ValidateCompDate(d, testNow))
	}
}
