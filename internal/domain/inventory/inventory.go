package inventory

import (
	"context"
	"errors"
	"time"

	"innkeeper/internal/domain/shared/staynights"
)

var (
	ErrRecordNotFound    = errors.New("inventory: no record for date")
	ErrInsufficientRooms = errors.New("inventory: not enough rooms available")
	ErrNegativeCounts    = errors.New("inventory: counts cannot be negative")
)

// Record tracks available/sold/blocked room counts for one
// (hotel, room type, date) cell of the ledger. Ingestion upserts it;
// reservation creation moves rooms from available to sold.
type Record struct {
	HotelCode    string
	RoomTypeCode string
	Date         time.Time
	Available    int
	Sold         int
	Blocked      int
	SourceName   string
	Epoch        int64
}

// Key identifies a ledger cell. Date is normalized to UTC midnight.
type Key struct {
	HotelCode    string
	RoomTypeCode string
	Date         time.Time
}

func NewKey(hotel, roomType string, date time.Time) Key {
	return Key{HotelCode: hotel, RoomTypeCode: roomType, Date: staynights.Midnight(date)}
}

// Counts carries the mutable portion of a ledger cell.
type Counts struct {
	Available int
	Sold      int
	Blocked   int
}

func (c Counts) Validate() error {
	if c.Available < 0 || c.Sold < 0 || c.Blocked < 0 {
		return ErrNegativeCounts
	}
	return nil
}

type Ledger interface {
	// Upsert writes a ledger cell idempotently. Re-applying the same payload
	// for the same key leaves the stored state unchanged.
	Upsert(ctx context.Context, key Key, counts Counts, sourceName string, epoch int64) error
	// ByDate reads one cell under the hotel's current epoch.
	ByDate(ctx context.Context, key Key, epoch int64) (*Record, error)
	// RangeByRoomType reads all cells in [start, end] inclusive, ordered by date.
	RangeByRoomType(ctx context.Context, hotel, roomType string, start, end time.Time, epoch int64) ([]Record, error)
	// Reserve atomically decrements available and increments sold for one
	// cell, guarded by available >= rooms. Returns ErrInsufficientRooms when
	// the guard fails; the cell is left untouched.
	Reserve(ctx context.Context, key Key, rooms int, epoch int64) error
	// ReleaseStale removes all cells for the hotel written under an epoch
	// older than keepEpoch. Cleanup after a source swap, not a correctness
	// requirement: reads already filter on the current epoch.
	ReleaseStale(ctx context.Context, hotel string, keepEpoch int64) (int64, error)
}

// CheckAvailability holds when every night of the inclusive range has at
// least requiredRooms available. A single under-available night fails the
// whole range.
func CheckAvailability(ctx context.Context, ledger Ledger, hotel, roomType string, start, end time.Time, requiredRooms int, epoch int64) (bool, error) {
	if requiredRooms <= 0 {
		return false, ErrNegativeCounts
	}
	start = staynights.Midnight(start)
	end = staynights.Midnight(end)
	records, err := ledger.RangeByRoomType(ctx, hotel, roomType, start, end, epoch)
	if err != nil {
		return false, err
	}
	byDate := make(map[time.Time]Record, len(records))
	for _, rec := range records {
		byDate[staynights.Midnight(rec.Date)] = rec
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		rec, ok := byDate[d]
		if !ok {
			return false, nil
		}
		if rec.Available < requiredRooms {
			return false, nil
		}
	}
	return true, nil
}
