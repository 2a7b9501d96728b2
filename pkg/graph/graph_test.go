package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/graph"
	"github.com/f0mster/reqrep/pkg/registry"
	"github.com/f0mster/reqrep/pkg/registry/memory"
)

func TestCache(t *testing.T) {
	c := graph.New(memory.New())
	srv := registry.Endpoint{Id: "srv", Service: "/add_two_ints", RequestType: "example_interfaces::srv::dds_::AddTwoInts_Request_"}
	cli := registry.Endpoint{Id: "cli", Service: "/add_two_ints", RequestType: "example_interfaces::srv::dds_::AddTwoInts_Request_"}

	require.NoError(t, c.OnServiceCreated(srv))
	require.NoError(t, c.OnClientCreated(cli))
	require.Error(t, c.OnServiceCreated(srv))
	require.Error(t, c.OnClientCreated(registry.Endpoint{Service: "/x"}))

	require.Len(t, c.Servers("/add_two_ints"), 1)
	require.Equal(t, registry.RoleServer, c.Servers("/add_two_ints")[0].Role)
	require.Len(t, c.Clients("/add_two_ints"), 1)
	require.Equal(t, map[string][]string{
		"/add_two_ints": {"example_interfaces::srv::dds_::AddTwoInts_Request_"},
	}, c.ServiceNamesAndTypes())

	require.Error(t, c.OnClientDeleted(srv))
	require.NoError(t, c.OnServiceDeleted(srv))
	require.Error(t, c.OnServiceDeleted(srv))
	require.NoError(t, c.OnClientDeleted(cli))
	require.Empty(t, c.ServiceNamesAndTypes())
}

func TestWaitForServer(t *testing.T) {
	c := graph.New(memory.New())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.WaitForServer(ctx, "/add_two_ints"), context.DeadlineExceeded)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = c.OnServiceCreated(registry.Endpoint{Id: "srv", Service: "/add_two_ints"})
	}()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	require.NoError(t, c.WaitForServer(ctx2, "/add_two_ints"))
}
