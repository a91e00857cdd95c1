package staynights

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("staynights: checkout must be after checkin")
)

// StayRange represents a stay as the half-open interval [checkIn, checkOut).
// Both endpoints are normalized to UTC midnight so that feeds pushed with
// local-time offsets can never shift a night across a date boundary.
type StayRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (StayRange, error) {
	sr := StayRange{CheckIn: Midnight(checkIn), CheckOut: Midnight(checkOut)}
	if err := sr.Validate(); err != nil {
		return StayRange{}, err
	}
	return sr, nil
}

func (sr StayRange) Validate() error {
	if sr.CheckIn.IsZero() || sr.CheckOut.IsZero() {
		return ErrInvalidRange
	}
	if !sr.CheckOut.After(sr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (sr StayRange) Nights() int {
	return int(sr.CheckOut.Sub(sr.CheckIn).Hours() / 24)
}

// EachNight invokes fn for every occupied night of the stay, checkout
// excluded. Stops early if fn returns an error.
func (sr StayRange) EachNight(fn func(night time.Time) error) error {
	for d := sr.CheckIn; d.Before(sr.CheckOut); d = d.AddDate(0, 0, 1) {
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// Dates returns every occupied night of the stay in order.
func (sr StayRange) Dates() []time.Time {
	out := make([]time.Time, 0, sr.Nights())
	for d := sr.CheckIn; d.Before(sr.CheckOut); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func (sr StayRange) ContainsDate(t time.Time) bool {
	t = Midnight(t)
	return !t.Before(sr.CheckIn) && t.Before(sr.CheckOut)
}

// Midnight truncates t to UTC midnight. Every date stored in the inventory
// ledger and rate plan store passes through here before comparison.
func Midnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same UTC calendar date.
func SameDate(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}
