package ari

import (
	"time"

	"innkeeper/internal/domain/shared/events"
)

type BatchIngested struct {
	events.BaseEvent
	PropertyCode  string
	SourceName    string
	SourceChanged bool
	Dates         int
	RatePlans     int
	Records       int
}

func NewBatchIngested(propertyCode, sourceName string, sourceChanged bool, dates, ratePlans, records int, at time.Time) BatchIngested {
	return BatchIngested{
		BaseEvent:     events.BaseEvent{Name: "ari.ingested", Aggregate: propertyCode, Time: at},
		PropertyCode:  propertyCode,
		SourceName:    sourceName,
		SourceChanged: sourceChanged,
		Dates:         dates,
		RatePlans:     ratePlans,
		Records:       records,
	}
}
