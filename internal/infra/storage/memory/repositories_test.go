package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domaininventory "innkeeper/internal/domain/inventory"
	domainprovider "innkeeper/internal/domain/provider"
	domainrateplan "innkeeper/internal/domain/rateplan"
)

func day(d int) time.Time {
	return time.Date(2026, 9, d, 0, 0, 0, 0, time.UTC)
}

func seedNight(t *testing.T, ledger *InventoryLedger, d int, available int, epoch int64) {
	t.Helper()
	key := domaininventory.NewKey("GRAND", "DLX", day(d))
	counts := domaininventory.Counts{Available: available}
	require.NoError(t, ledger.Upsert(context.Background(), key, counts, "Wincloud", epoch))
}

func TestInventoryReserveGuard(t *testing.T) {
	ledger := NewInventoryLedger()
	seedNight(t, ledger, 10, 2, 1)
	key := domaininventory.NewKey("GRAND", "DLX", day(10))

	require.NoError(t, ledger.Reserve(context.Background(), key, 2, 1))

	err := ledger.Reserve(context.Background(), key, 1, 1)
	require.ErrorIs(t, err, domaininventory.ErrInsufficientRooms)

	rec, err := ledger.ByDate(context.Background(), key, 1)
	require.NoError(t, err)
	require.Zero(t, rec.Available)
	require.Equal(t, 2, rec.Sold)
}

func TestInventoryEpochFiltering(t *testing.T) {
	ledger := NewInventoryLedger()
	seedNight(t, ledger, 10, 5, 1)
	key := domaininventory.NewKey("GRAND", "DLX", day(10))

	_, err := ledger.ByDate(context.Background(), key, 2)
	require.ErrorIs(t, err, domaininventory.ErrRecordNotFound)

	err = ledger.Reserve(context.Background(), key, 1, 2)
	require.ErrorIs(t, err, domaininventory.ErrRecordNotFound)
}

func TestInventoryReleaseStale(t *testing.T) {
	ledger := NewInventoryLedger()
	seedNight(t, ledger, 10, 5, 1)
	seedNight(t, ledger, 11, 5, 2)

	removed, err := ledger.ReleaseStale(context.Background(), "GRAND", 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, err = ledger.ByDate(context.Background(), domaininventory.NewKey("GRAND", "DLX", day(10)), 1)
	require.ErrorIs(t, err, domaininventory.ErrRecordNotFound)
	_, err = ledger.ByDate(context.Background(), domaininventory.NewKey("GRAND", "DLX", day(11)), 2)
	require.NoError(t, err)
}

func TestCheckAvailabilityIsConjunctive(t *testing.T) {
	ledger := NewInventoryLedger()
	seedNight(t, ledger, 10, 3, 1)
	seedNight(t, ledger, 11, 3, 1)
	seedNight(t, ledger, 12, 1, 1)

	ok, err := domaininventory.CheckAvailability(context.Background(), ledger, "GRAND", "DLX", day(10), day(11), 2, 1)
	require.NoError(t, err)
	require.True(t, ok)

	// One under-available night fails the whole range.
	ok, err = domaininventory.CheckAvailability(context.Background(), ledger, "GRAND", "DLX", day(10), day(12), 2, 1)
	require.NoError(t, err)
	require.False(t, ok)

	// A night with no record at all fails too.
	ok, err = domaininventory.CheckAvailability(context.Background(), ledger, "GRAND", "DLX", day(10), day(13), 1, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRatePlanStoreFiltersAndOrders(t *testing.T) {
	store := NewRatePlanStore()
	for _, plan := range []string{"CORP", "BAR"} {
		key := domainrateplan.NewKey("GRAND", "DLX", plan, day(10))
		charge := domainrateplan.Charge{
			HotelCode:    "GRAND",
			RoomTypeCode: "DLX",
			RatePlanCode: plan,
			Date:         day(10),
			BaseByGuest:  []domainrateplan.GuestAmount{{AmountBeforeTax: 100, NumberOfGuests: 2}},
			Days:         domainrateplan.AllDays(),
			Epoch:        1,
		}
		require.NoError(t, store.Upsert(context.Background(), key, charge))
	}

	charges, err := store.ChargesForDate(context.Background(), "GRAND", "DLX", day(10), 1)
	require.NoError(t, err)
	require.Len(t, charges, 2)
	require.Equal(t, "BAR", charges[0].RatePlanCode)
	require.Equal(t, "CORP", charges[1].RatePlanCode)

	charges, err = store.ChargesForDate(context.Background(), "GRAND", "DLX", day(10), 2)
	require.NoError(t, err)
	require.Empty(t, charges)
}

func TestSwapSourceAdvancesEpoch(t *testing.T) {
	repo := NewProviderRepository()

	state, err := repo.SourceState(context.Background(), "GRAND")
	require.NoError(t, err)
	require.Zero(t, state.Epoch)
	require.Empty(t, state.SourceName)

	state, err = repo.SwapSource(context.Background(), "GRAND", "Wincloud")
	require.NoError(t, err)
	require.Equal(t, int64(1), state.Epoch)
	require.Equal(t, "Wincloud", state.SourceName)

	state, err = repo.SwapSource(context.Background(), "GRAND", "QuotusPMS")
	require.NoError(t, err)
	require.Equal(t, int64(2), state.Epoch)

	got, err := repo.SourceState(context.Background(), "GRAND")
	require.NoError(t, err)
	require.Equal(t, state, got)
}

func TestAssignProviderRoundTrip(t *testing.T) {
	repo := NewProviderRepository()

	_, err := repo.ByHotel(context.Background(), "GRAND")
	require.ErrorIs(t, err, domainprovider.ErrProviderNotFound)

	require.NoError(t, repo.AssignProvider(context.Background(), "GRAND", domainprovider.DataSourceProvider{
		Name:     "Wincloud",
		Type:     domainprovider.TypePMS,
		IsActive: true,
	}))

	p, err := repo.ByHotel(context.Background(), "GRAND")
	require.NoError(t, err)
	require.Equal(t, "Wincloud", p.Name)
}
