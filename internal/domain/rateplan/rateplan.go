package rateplan

import (
	"context"
	"errors"
	"time"

	"innkeeper/internal/domain/shared/staynights"
)

var (
	ErrChargeNotFound = errors.New("rateplan: no valid rate found for range")
	ErrNoGuestAmount  = errors.New("rateplan: no base amount for guest count")
	ErrStopSell       = errors.New("rateplan: rate plan is stopped for sale")
)

// GuestAmount is one tier of a charge: the pre-tax nightly amount when the
// room holds NumberOfGuests guests.
type GuestAmount struct {
	AmountBeforeTax float64
	NumberOfGuests  int
}

// AdditionalGuestAmount prices guests beyond the base occupancy, keyed by the
// OTA age-qualifying code (10 adult, 8 child).
type AdditionalGuestAmount struct {
	AgeQualifyingCode int
	Amount            float64
}

// DayApplicability masks the days of week a charge may be sold on.
type DayApplicability struct {
	Mon, Tue, Wed, Thu, Fri, Sat, Sun bool
}

// AllDays applies on every day of the week.
func AllDays() DayApplicability {
	return DayApplicability{Mon: true, Tue: true, Wed: true, Thu: true, Fri: true, Sat: true, Sun: true}
}

func (d DayApplicability) AppliesOn(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Monday:
		return d.Mon
	case time.Tuesday:
		return d.Tue
	case time.Wednesday:
		return d.Wed
	case time.Thursday:
		return d.Thu
	case time.Friday:
		return d.Fri
	case time.Saturday:
		return d.Sat
	default:
		return d.Sun
	}
}

// Restrictions are sell-side constraints attached to a charge.
type Restrictions struct {
	MinStay           int
	MaxStay           int
	ClosedToArrival   bool
	ClosedToDeparture bool
	StopSell          bool
}

// Charge is the nightly price definition for one
// (hotel, room type, rate plan, date) cell of the rate plan store.
type Charge struct {
	HotelCode    string
	RoomTypeCode string
	RatePlanCode string
	RatePlanName string
	Date         time.Time
	CurrencyCode string
	BaseByGuest  []GuestAmount
	Additional   []AdditionalGuestAmount
	Days         DayApplicability
	Restrictions Restrictions
	SourceName   string
	Epoch        int64
}

// Key identifies a charge cell. Date is normalized to UTC midnight.
type Key struct {
	HotelCode    string
	RoomTypeCode string
	RatePlanCode string
	Date         time.Time
}

func NewKey(hotel, roomType, ratePlan string, date time.Time) Key {
	return Key{HotelCode: hotel, RoomTypeCode: roomType, RatePlanCode: ratePlan, Date: staynights.Midnight(date)}
}

// AmountForGuests resolves the nightly amount for a guest count. It prefers
// the exact tier, then the largest tier not exceeding the count, and falls
// back to the smallest tier for counts below every tier.
func (c Charge) AmountForGuests(guests int) (float64, error) {
	if len(c.BaseByGuest) == 0 {
		return 0, ErrNoGuestAmount
	}
	var best *GuestAmount
	var smallest *GuestAmount
	for i := range c.BaseByGuest {
		tier := &c.BaseByGuest[i]
		if smallest == nil || tier.NumberOfGuests < smallest.NumberOfGuests {
			smallest = tier
		}
		if tier.NumberOfGuests == guests {
			return tier.AmountBeforeTax, nil
		}
		if tier.NumberOfGuests < guests && (best == nil || tier.NumberOfGuests > best.NumberOfGuests) {
			best = tier
		}
	}
	if best != nil {
		return best.AmountBeforeTax, nil
	}
	return smallest.AmountBeforeTax, nil
}

// Sellable reports whether the charge may price the given night.
func (c Charge) Sellable(night time.Time) bool {
	return !c.Restrictions.StopSell && c.Days.AppliesOn(night)
}

type Store interface {
	// Upsert writes a charge cell idempotently.
	Upsert(ctx context.Context, key Key, charge Charge) error
	// ChargesForDate returns all rate-plan charges for a room type on a date
	// under the hotel's current epoch, in stable rate-plan order.
	ChargesForDate(ctx context.Context, hotel, roomType string, date time.Time, epoch int64) ([]Charge, error)
	// ReleaseStale removes cells written under epochs older than keepEpoch.
	ReleaseStale(ctx context.Context, hotel string, keepEpoch int64) (int64, error)
}

// SelectCharge picks the charge that prices one night: the first sellable
// charge for the date, preferring an exact rate-plan match when a plan code
// is requested. Rate plans are not blended; first match wins.
func SelectCharge(charges []Charge, night time.Time, ratePlanCode string) (*Charge, error) {
	if ratePlanCode != "" {
		for i := range charges {
			c := &charges[i]
			if c.RatePlanCode == ratePlanCode && c.Sellable(night) {
				return c, nil
			}
		}
	}
	for i := range charges {
		if charges[i].Sellable(night) {
			return &charges[i], nil
		}
	}
	return nil, ErrChargeNotFound
}
