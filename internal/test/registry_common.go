package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/registry"
)

func waitEndpoint(t *testing.T, ch chan registry.Endpoint) registry.Endpoint {
	select {
	case e := <-ch:
		return e
	case <-time.After(Timeout):
		t.Fatal("watcher was not called")
	}
	return registry.Endpoint{}
}

// Registry_Test checks that changes made through reg2 are seen by watchers
// of reg1. Both may be the same registry.
func Registry_Test(reg1 registry.Registry, reg2 registry.Registry, t *testing.T) {
	service := RandomName("/svc")
	other := RandomName("/other")
	e := registry.Endpoint{
		Id:            "inst:1",
		Role:          registry.RoleServer,
		Node:          "/node",
		Service:       service,
		RequestTopic:  "rq" + service + "Request",
		ResponseTopic: "rr" + service + "Reply",
		RequestType:   "a::srv::dds_::S_Request_",
		ResponseType:  "a::srv::dds_::S_Response_",
		ReaderGID:     "01",
		WriterGID:     "02",
	}

	registered := make(chan registry.Endpoint, 10)
	unregistered := make(chan registry.Endpoint, 10)
	stop := reg1.WatchRegistered(service, func(e registry.Endpoint) { registered <- e })
	stop1 := reg1.WatchUnregistered(service, func(e registry.Endpoint) { unregistered <- e })
	stop2 := reg1.WatchRegistered(other, func(registry.Endpoint) {
		t.Error("wrong behavior")
	})
	stop3 := reg1.WatchUnregistered(other, func(registry.Endpoint) {
		t.Error("wrong behavior")
	})

	require.NoError(t, reg2.Register(service, e))
	require.ErrorIs(t, reg2.Register(service, e), registry.ErrAlreadyRegistered)
	require.Equal(t, e, waitEndpoint(t, registered))
	require.Equal(t, map[registry.EndpointId]registry.Endpoint{"inst:1": e}, reg1.Endpoints(service))
	require.Contains(t, reg1.Services(), service)

	// late watchers see what is already registered
	late := make(chan registry.Endpoint, 1)
	stop4 := reg1.WatchRegistered(service, func(e registry.Endpoint) { late <- e })
	require.Equal(t, e, waitEndpoint(t, late))
	stop4()

	require.NoError(t, reg2.Unregister(service, "inst:1"))
	require.ErrorIs(t, reg2.Unregister(service, "inst:1"), registry.ErrNotRegistered)
	require.Equal(t, e, waitEndpoint(t, unregistered))
	require.Empty(t, reg1.Endpoints(service))
	require.NotContains(t, reg1.Services(), service)

	stop()
	stop()
	stop1()
	stop2()
	stop3()
	require.NoError(t, reg2.Register(service, e))
	require.NoError(t, reg2.Unregister(service, "inst:1"))
	select {
	case <-registered:
		t.Fatal("cancelled watcher was called")
	case <-unregistered:
		t.Fatal("cancelled watcher was called")
	case <-time.After(100 * time.Millisecond):
	}
}
