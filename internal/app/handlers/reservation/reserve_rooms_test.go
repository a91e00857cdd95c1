package reservation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domaininventory "innkeeper/internal/domain/inventory"
	"innkeeper/internal/infra/storage/memory"
)

type capturingNotifier struct {
	mu    sync.Mutex
	mails []string
}

func (n *capturingNotifier) SendMail(ctx context.Context, to, subject, text, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mails = append(n.mails, to)
	return nil
}

func (n *capturingNotifier) SendSMS(ctx context.Context, to, message string) error {
	return nil
}

type reserveEnv struct {
	inventory *memory.InventoryLedger
	providers *memory.ProviderRepository
	outbox    *memory.Outbox
	notifier  *capturingNotifier
	handler   *ReserveRoomsHandler
}

func newReserveEnv(t *testing.T, available int) *reserveEnv {
	t.Helper()
	env := &reserveEnv{
		inventory: memory.NewInventoryLedger(),
		providers: memory.NewProviderRepository(),
		outbox:    memory.NewOutbox(),
		notifier:  &capturingNotifier{},
	}
	ctx := context.Background()

	state, err := env.providers.SwapSource(ctx, "GRAND", "Wincloud")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		date := time.Date(2026, 9, 10+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, env.inventory.Upsert(ctx,
			domaininventory.NewKey("GRAND", "DLX", date),
			domaininventory.Counts{Available: available}, "Wincloud", state.Epoch))
	}

	factory := memory.Factory{
		InventoryRepo: env.inventory,
		RatePlanRepo:  memory.NewRatePlanStore(),
		TaxRepo:       memory.NewTaxRepository(),
		PromoRepo:     memory.NewPromoRepository(),
		CouponRepo:    memory.NewCouponRepository(),
		ProviderRepo:  env.providers,
	}
	env.handler = &ReserveRoomsHandler{
		UoWFactory: factory,
		Outbox:     env.outbox,
		Notifier:   env.notifier,
	}
	return env
}

func reserveCmd(rooms int) ReserveRoomsCommand {
	return ReserveRoomsCommand{
		CommandID:    "res-1",
		HotelCode:    "GRAND",
		RoomTypeCode: "DLX",
		CheckIn:      time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:     time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		Rooms:        rooms,
		CustomerID:   "c1",
		GuestEmail:   "guest@example.com",
	}
}

func TestReserveRoomsMovesAvailableToSold(t *testing.T) {
	env := newReserveEnv(t, 3)

	result, err := env.handler.Handle(context.Background(), reserveCmd(2))
	require.NoError(t, err)
	require.Equal(t, "res-1", result.ReservationID)
	require.Equal(t, 2, result.Nights)

	for i := 0; i < 2; i++ {
		date := time.Date(2026, 9, 10+i, 0, 0, 0, 0, time.UTC)
		rec, err := env.inventory.ByDate(context.Background(), domaininventory.NewKey("GRAND", "DLX", date), 1)
		require.NoError(t, err)
		require.Equal(t, 1, rec.Available)
		require.Equal(t, 2, rec.Sold)
	}

	records := env.outbox.Records()
	require.Len(t, records, 1)
	require.Equal(t, "reservation.created", records[0].Name)

	require.Equal(t, []string{"guest@example.com"}, env.notifier.mails)
}

func TestReserveRoomsRejectsShortNight(t *testing.T) {
	env := newReserveEnv(t, 1)

	_, err := env.handler.Handle(context.Background(), reserveCmd(2))
	require.ErrorIs(t, err, ErrNotAvailable)

	// Nothing was taken.
	for i := 0; i < 2; i++ {
		date := time.Date(2026, 9, 10+i, 0, 0, 0, 0, time.UTC)
		rec, err := env.inventory.ByDate(context.Background(), domaininventory.NewKey("GRAND", "DLX", date), 1)
		require.NoError(t, err)
		require.Equal(t, 1, rec.Available)
		require.Zero(t, rec.Sold)
	}
	require.Empty(t, env.outbox.Records())
	require.Empty(t, env.notifier.mails)
}

func TestReserveRoomsRejectsMissingNight(t *testing.T) {
	env := newReserveEnv(t, 3)

	cmd := reserveCmd(1)
	cmd.CheckOut = time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC)
	_, err := env.handler.Handle(context.Background(), cmd)
	require.ErrorIs(t, err, ErrNotAvailable)
}

func TestReserveRoomsDefaultsToOneRoom(t *testing.T) {
	env := newReserveEnv(t, 1)

	_, err := env.handler.Handle(context.Background(), reserveCmd(0))
	require.NoError(t, err)

	rec, err := env.inventory.ByDate(context.Background(),
		domaininventory.NewKey("GRAND", "DLX", time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)), 1)
	require.NoError(t, err)
	require.Zero(t, rec.Available)
	require.Equal(t, 1, rec.Sold)
}

func TestReserveRoomsRejectsInvalidStay(t *testing.T) {
	env := newReserveEnv(t, 3)

	cmd := reserveCmd(1)
	cmd.CheckOut = cmd.CheckIn
	_, err := env.handler.Handle(context.Background(), cmd)
	require.Error(t, err)
	require.Empty(t, env.outbox.Records())
}
