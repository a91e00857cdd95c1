package ari

import (
	"fmt"
	"strings"
	"time"
)

// Batch is one Availability-Rate-Inventory push from a PMS or channel
// manager. The whole batch is validated before any row is written; a bad
// item rejects the batch with every offending field reported.
type Batch struct {
	PropertyCode string
	PropertyName string
	Timestamp    time.Time
	Inventory    []InventoryItem
}

type InventoryItem struct {
	InvTypeCode string
	Date        time.Time
	Available   int
	Sold        int
	Blocked     int
	Rates       []RateItem
}

type RateItem struct {
	RatePlanCode      string
	RatePlanName      string
	BaseRate          float64
	CurrencyCode      string
	MinStay           int
	MaxStay           int
	ClosedToArrival   bool
	ClosedToDeparture bool
	StopSell          bool
}

// ValidationErrors collects every malformed field of a rejected batch.
type ValidationErrors struct {
	Issues []string
}

func (e *ValidationErrors) add(format string, args ...any) {
	e.Issues = append(e.Issues, fmt.Sprintf(format, args...))
}

func (e *ValidationErrors) Error() string {
	return "ari: invalid batch: " + strings.Join(e.Issues, "; ")
}

// Validate checks the batch structure. Returns nil when the batch is clean,
// otherwise a *ValidationErrors describing every problem found.
func (b Batch) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(b.PropertyCode) == "" {
		errs.add("propertyCode is required")
	}
	if b.Timestamp.IsZero() {
		errs.add("timestamp is required")
	}
	if len(b.Inventory) == 0 {
		errs.add("inventory must not be empty")
	}
	for i, item := range b.Inventory {
		if strings.TrimSpace(item.InvTypeCode) == "" {
			errs.add("inventory[%d]: invTypeCode is required", i)
		}
		if item.Date.IsZero() {
			errs.add("inventory[%d]: date is required", i)
		}
		if item.Available < 0 {
			errs.add("inventory[%d]: available must not be negative", i)
		}
		for j, rate := range item.Rates {
			if strings.TrimSpace(rate.RatePlanCode) == "" {
				errs.add("inventory[%d].rates[%d]: ratePlanCode is required", i, j)
			}
			if rate.BaseRate < 0 {
				errs.add("inventory[%d].rates[%d]: baseRate must not be negative", i, j)
			}
		}
	}
	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

// Result reports what a committed batch touched, for feed observability.
type Result struct {
	Success                   bool
	SourceName                string
	SourceChanged             bool
	DatesProcessed            int
	RatePlansProcessed        int
	InventoryRecordsProcessed int
}
