package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMultiplierTable(t *testing.T) {
	// The payout table is a product contract: 34 pays 2x, 37 pays 5x, 40 pays 7x.
	tests := []struct {
		score TargetScore
		stake int64
		want  int64
	}{
		{Target34, Stake20, 40_00},
		{Target37, Stake20, 100_00},
		{Target40, Stake20, 140_00},
		{Target34, Stake10, 20_00},
		{Target37, Stake50, 250_00},
		{Target40, Stake50, 350_00},
	}

	for _, tt := range tests {
		got := PotentialReturn(tt.stake, tt.score)
		assert.Equal(t, tt.want, got, "stake=%d score=%d", tt.stake, tt.score)
	}
}

func TestTargetFor(t *testing.T) {
	tests := []struct {
		gt      GameType
		want    TargetScore
		wantErr error
	}{
		{GameSteadyEddie, Target34, nil},
		{GameSweetSpot, Target37, nil},
		{GameOnFire, Target40, nil},
		{GameType("long_drive"), 0, ErrInvalidGameType},
		{GameType(""), 0, ErrInvalidGameType},
	}

	for _, tt := range tests {
		got, err := TargetFor(tt.gt)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestStakeFromUnits(t *testing.T) {
	tests := []struct {
		units   int64
		want    int64
		wantErr bool
	}{
		{10, Stake10, false},
		{20, Stake20, false},
		{50, Stake50, false},
		{0, 0, true},
		{15, 0, true},
		{-20, 0, true},
		{100, 0, true},
	}

	for _, tt := range tests {
		got, err := StakeFromUnits(tt.units)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidStake, "units=%d", tt.units)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidateCompDate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		d       time.Time
		wantErr bool
	}{
		{"tomorrow ok", date(2026, time.March, 11), false},
		{"next week ok", date(2026, time.March, 17), false},
		{"today rejected", date(2026, time.March, 10), true},
		{"yesterday rejected", date(2026, time.March, 9), true},
		{"zero rejected", time.Time{}, true},
		{"tomorrow with time-of-day ok", time.Date(2026, time.March, 11, 6, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCompDate(tt.d, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDateOnly_KeepsCalendarDateAcrossZones(t *testing.T) {
	// A zoned midnight keeps its calendar date; it must not slide into the
	// previous day when converted to UTC.
	east := time.FixedZone("UTC+1", 3600)
	assert.Equal(t, date(2026, time.September, 1),
		DateOnly(time.Date(2026, time.September, 1, 0, 0, 0, 0, east)))

	west := time.FixedZone("UTC-8", -8*3600)
	assert.Equal(t, date(2026, time.June, 20),
		DateOnly(time.Date(2026, time.June, 20, 22, 30, 0, 0, west)))

	assert.Equal(t, date(2026, time.June, 20),
		DateOnly(time.Date(2026, time.June, 20, 23, 59, 59, 0, time.UTC)))
}

func TestCancelCutoff(t *testing.T) {
	compDate := date(2026, time.June, 20)
	want := time.Date(2026, time.June, 19, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, want, CancelCutoff(compDate))
}

func TestDraftValidate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	valid := Draft{
		GameType:    GameSweetSpot,
		TargetScore: Target37,
		StakeMinor:  Stake20,
		CompDate:    date(2026, time.March, 12),
	}

	require.NoError(t, valid.Validate(now))
	assert.Equal(t, int64(100_00), valid.PotentialReturn())

	badStake := valid
	badStake.StakeMinor = 15_00
	assert.ErrorIs(t, badStake.Validate(now), ErrInvalidStake)

	badDate := valid
	badDate.CompDate = date(2026, time.March, 10)
	assert.ErrorIs(t, badDate.Validate(now), ErrInvalidDate)

	badGame := valid
	badGame.GameType = "scramble"
	assert.ErrorIs(t, badGame.Validate(now), ErrInvalidGameType)
}
