package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tests "github.com/f0mster/reqrep/internal/test"
	"github.com/f0mster/reqrep/pkg/registry"
	"github.com/f0mster/reqrep/pkg/registry/memory"
)

func TestRegistry(t *testing.T) {
	r := memory.New()
	registered := make(chan registry.Endpoint, 10)
	unregistered := make(chan registry.Endpoint, 10)
	cancelReg := r.WatchRegistered("/add_two_ints", func(e registry.Endpoint) { registered <- e })
	cancelUnreg := r.WatchUnregistered("/add_two_ints", func(e registry.Endpoint) { unregistered <- e })

	e := registry.Endpoint{Id: "a", Role: registry.RoleServer, Service: "/add_two_ints"}
	require.NoError(t, r.Register("/add_two_ints", e))
	require.ErrorIs(t, r.Register("/add_two_ints", e), registry.ErrAlreadyRegistered)
	select {
	case got := <-registered:
		require.Equal(t, e, got)
	case <-time.After(time.Second):
		t.Fatal("register was not reported")
	}
	require.Len(t, r.Endpoints("/add_two_ints"), 1)
	require.Equal(t, []string{"/add_two_ints"}, r.Services())

	require.NoError(t, r.Unregister("/add_two_ints", "a"))
	require.ErrorIs(t, r.Unregister("/add_two_ints", "a"), registry.ErrNotRegistered)
	select {
	case got := <-unregistered:
		require.Equal(t, e, got)
	case <-time.After(time.Second):
		t.Fatal("unregister was not reported")
	}
	require.Empty(t, r.Endpoints("/add_two_ints"))
	require.Empty(t, r.Services())

	cancelReg()
	cancelReg()
	cancelUnreg()
	require.NoError(t, r.Register("/add_two_ints", e))
	select {
	case <-registered:
		t.Fatal("cancelled watcher was called")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWatchReportsExisting(t *testing.T) {
	r := memory.New()
	require.NoError(t, r.Register("/s", registry.Endpoint{Id: "x"}))
	got := make(chan registry.Endpoint, 1)
	cancel := r.WatchRegistered("/s", func(e registry.Endpoint) { got <- e })
	defer cancel()
	select {
	case e := <-got:
		require.Equal(t, registry.EndpointId("x"), e.Id)
	case <-time.After(time.Second):
		t.Fatal("existing endpoint was not reported")
	}
	require.Empty(t, r.Endpoints("/unknown"))
}

func TestRegistryConformance(t *testing.T) {
	r := memory.New()
	tests.Registry_Test(r, r, t)
}
