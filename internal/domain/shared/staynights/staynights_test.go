package staynights

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidRanges(t *testing.T) {
	day := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	_, err := New(day, day)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(day, day.AddDate(0, 0, -1))
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(time.Time{}, day)
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestNightsAndDates(t *testing.T) {
	sr, err := New(
		time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	require.Equal(t, 3, sr.Nights())
	dates := sr.Dates()
	require.Len(t, dates, 3)
	require.Equal(t, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), dates[0])
	require.Equal(t, time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC), dates[2])
}

func TestNewNormalizesLocalOffsets(t *testing.T) {
	// A feed pushed with a local-time offset must not shift nights across a
	// date boundary once normalized.
	plusFive := time.FixedZone("UTC+5", 5*60*60)
	sr, err := New(
		time.Date(2026, 9, 11, 3, 0, 0, 0, plusFive), // 2026-09-10T22:00Z
		time.Date(2026, 9, 13, 3, 0, 0, 0, plusFive),
	)
	require.NoError(t, err)

	require.Equal(t, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), sr.CheckIn)
	require.Equal(t, 2, sr.Nights())
}

func TestEachNightStopsOnError(t *testing.T) {
	sr, err := New(
		time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	boom := errors.New("boom")
	var visited int
	err = sr.EachNight(func(night time.Time) error {
		visited++
		if visited == 2 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, visited)
}

func TestContainsDateExcludesCheckout(t *testing.T) {
	sr, err := New(
		time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	require.True(t, sr.ContainsDate(time.Date(2026, 9, 10, 18, 30, 0, 0, time.UTC)))
	require.True(t, sr.ContainsDate(time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC)))
	require.False(t, sr.ContainsDate(time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC)))
}

func TestSameDate(t *testing.T) {
	a := time.Date(2026, 9, 10, 23, 59, 0, 0, time.UTC)
	b := time.Date(2026, 9, 10, 0, 1, 0, 0, time.UTC)
	require.True(t, SameDate(a, b))
	require.False(t, SameDate(a, b.AddDate(0, 0, 1)))
}
