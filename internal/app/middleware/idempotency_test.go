package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"innkeeper/internal/app/commands"
)

type mapStore struct {
	items map[string]IdempotencyRecord
}

func (s *mapStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.items[rec.Key] = rec
	return nil
}

type pingCommand struct {
	Seq     string
	IdemKey string
}

func (pingCommand) Key() string { return "test.ping" }

func (c pingCommand) IdempotencyKey() string { return c.IdemKey }

func (pingCommand) ResultPrototype() any { return &pingResult{} }

type pingResult struct {
	Echo string `json:"echo"`
}

func newPingBus(t *testing.T, calls *int, fail error) commands.Bus {
	t.Helper()
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, "test.ping",
		commands.HandlerFunc[pingCommand, *pingResult](func(ctx context.Context, cmd pingCommand) (*pingResult, error) {
			*calls++
			if fail != nil {
				return nil, fail
			}
			return &pingResult{Echo: cmd.Seq}, nil
		}))
	return ChainCommands(base, Idempotency(&mapStore{items: map[string]IdempotencyRecord{}}, nil))
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	var calls int
	bus := newPingBus(t, &calls, nil)

	first, err := commands.Dispatch[pingCommand, *pingResult](context.Background(), bus, pingCommand{Seq: "a", IdemKey: "k1"})
	require.NoError(t, err)
	require.Equal(t, "a", first.Echo)

	// Same key replays the stored result; the handler never runs again even
	// though the payload changed.
	second, err := commands.Dispatch[pingCommand, *pingResult](context.Background(), bus, pingCommand{Seq: "b", IdemKey: "k1"})
	require.NoError(t, err)
	require.Equal(t, "a", second.Echo)
	require.Equal(t, 1, calls)
}

func TestIdempotencyDistinctKeysRunSeparately(t *testing.T) {
	var calls int
	bus := newPingBus(t, &calls, nil)

	_, err := commands.Dispatch[pingCommand, *pingResult](context.Background(), bus, pingCommand{Seq: "a", IdemKey: "k1"})
	require.NoError(t, err)
	_, err = commands.Dispatch[pingCommand, *pingResult](context.Background(), bus, pingCommand{Seq: "b", IdemKey: "k2"})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestIdempotencyEmptyKeyBypassesStore(t *testing.T) {
	var calls int
	bus := newPingBus(t, &calls, nil)

	for i := 0; i < 3; i++ {
		_, err := commands.Dispatch[pingCommand, *pingResult](context.Background(), bus, pingCommand{Seq: "a"})
		require.NoError(t, err)
	}
	require.Equal(t, 3, calls)
}

func TestIdempotencyCachesFailures(t *testing.T) {
	var calls int
	boom := errors.New("boom")
	bus := newPingBus(t, &calls, boom)

	_, err := commands.Dispatch[pingCommand, *pingResult](context.Background(), bus, pingCommand{Seq: "a", IdemKey: "k1"})
	require.EqualError(t, err, "boom")

	_, err = commands.Dispatch[pingCommand, *pingResult](context.Background(), bus, pingCommand{Seq: "a", IdemKey: "k1"})
	require.EqualError(t, err, "boom")
	require.Equal(t, 1, calls)
}
