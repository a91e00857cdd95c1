package provider

import (
	"context"
	"errors"
)

var (
	ErrProviderNotFound = errors.New("provider: data source provider not found")
	ErrProviderInactive = errors.New("provider: data source provider is inactive")
)

type SourceType string

const (
	TypePMS            SourceType = "PMS"
	TypeChannelManager SourceType = "CM"
	TypeInternal       SourceType = "Internal"
)

// DataSourceProvider is the system of record supplying a property's rates and
// inventory. A hotel references exactly one provider at a time.
type DataSourceProvider struct {
	Name        string
	Type        SourceType
	IsActive    bool
	APIEndpoint string
}

// SourceState records which provider most recently wrote a hotel's ledger
// rows, and under which epoch. Rows are stamped with the epoch they were
// written under; reads filter on the current epoch, so advancing the epoch
// hides every row of the previous source in one step.
type SourceState struct {
	HotelCode  string
	SourceName string
	Epoch      int64
}

type Repository interface {
	// ByHotel resolves the provider currently assigned to a hotel.
	ByHotel(ctx context.Context, hotelCode string) (*DataSourceProvider, error)
	// SourceState returns the recorded source and epoch for a hotel. A hotel
	// that has never been ingested gets a zero-valued state.
	SourceState(ctx context.Context, hotelCode string) (SourceState, error)
	// SwapSource records a new source name for the hotel and advances its
	// epoch, returning the new state. Must be atomic with respect to
	// concurrent swaps for the same hotel.
	SwapSource(ctx context.Context, hotelCode, sourceName string) (SourceState, error)
	// AssignProvider binds a hotel to a provider definition.
	AssignProvider(ctx context.Context, hotelCode string, p DataSourceProvider) error
}
