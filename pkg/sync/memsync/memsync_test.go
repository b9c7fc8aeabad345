package memsync

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/stan/pkg/stan"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, hub *Hub, initial any) *stan.Store {
	t.Helper()
	s, err := stan.New(stan.Fields{
		stan.Synchronized("theme", hub.Field(initial)),
	}, stan.WithLogger(quiet()))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestStoresShareWrites(t *testing.T) {
	hub := NewHub(WithLogger(quiet()))
	a := newStore(t, hub, "light")
	b := newStore(t, hub, "light")

	var aCalls, bCalls int
	a.Subscribe(func(any) { aCalls++ }, "theme")
	b.Subscribe(func(any) { bCalls++ }, "theme")

	require.NoError(t, a.Set("theme", "dark"))

	assert.Equal(t, "dark", stan.Get[string](b, "theme"))
	assert.Equal(t, 1, aCalls)
	assert.Equal(t, 1, bCalls)

	v, ok := hub.Get("theme")
	require.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestLaterStoreReadsSharedValue(t *testing.T) {
	hub := NewHub(WithLogger(quiet()))
	a := newStore(t, hub, "light")
	require.NoError(t, a.Set("theme", "dark"))

	b := newStore(t, hub, "light")
	assert.Equal(t, "dark", stan.Get[string](b, "theme"))
}

func TestFirstStoreSeedsHub(t *testing.T) {
	hub := NewHub(WithLogger(quiet()))
	newStore(t, hub, "light")

	assert.Equal(t, []string{"theme"}, hub.Keys())
}

func TestHubSetReachesEveryBinding(t *testing.T) {
	hub := NewHub(WithLogger(quiet()))
	a := newStore(t, hub, "light")
	b := newStore(t, hub, "light")

	hub.Set("theme", "sepia")

	assert.Equal(t, "sepia", stan.Get[string](a, "theme"))
	assert.Equal(t, "sepia", stan.Get[string](b, "theme"))
}

func TestClosedStoreStopsReceiving(t *testing.T) {
	hub := NewHub(WithLogger(quiet()))
	a := newStore(t, hub, "light")
	b := newStore(t, hub, "light")

	b.Close()
	require.NoError(t, a.Set("theme", "dark"))

	assert.Equal(t, "light", stan.Get[string](b, "theme"))
}

func TestBindingsHaveDistinctIDs(t *testing.T) {
	hub := NewHub()
	assert.NotEqual(t, hub.Field(0).ID(), hub.Field(0).ID())
}

func TestAsyncSnapshots(t *testing.T) {
	hub := NewHub(Async(), WithLogger(quiet()))
	hub.Set("theme", "dark")

	s := newStore(t, hub, "light")
	assert.Equal(t, "light", stan.Get[string](s, "theme"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Settle(ctx))
	assert.Equal(t, "dark", stan.Get[string](s, "theme"))
}
