package server_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/internal/testlogger"
	"github.com/f0mster/reqrep/pkg/graph"
	"github.com/f0mster/reqrep/pkg/qos"
	regmemory "github.com/f0mster/reqrep/pkg/registry/memory"
	"github.com/f0mster/reqrep/pkg/server"
	"github.com/f0mster/reqrep/pkg/service"
	"github.com/f0mster/reqrep/pkg/transport/memory"
	"github.com/f0mster/reqrep/pkg/typesupport"
	"github.com/f0mster/reqrep/pkg/typesupport/cborts"
)

type addRequest struct {
	A int64 `cbor:"a"`
	B int64 `cbor:"b"`
}

type addResponse struct {
	Sum int64 `cbor:"sum"`
}

var handles = typesupport.Bundle(cborts.New[addRequest, addResponse]("example_interfaces/srv", "AddTwoInts"))

type TestContext struct {
	discovery *graph.Cache
	srvCtx    *service.Context
	cliCtx    *service.Context
	node      *service.Node
	reg       *prometheus.Registry
}

func SetUp(t *testing.T) *TestContext {
	d := memory.NewDomain()
	tc := &TestContext{
		discovery: graph.New(regmemory.New()),
		node:      &service.Node{Name: "add_two_ints_server", Namespace: "/"},
		reg:       prometheus.NewRegistry(),
	}
	var err error
	tc.srvCtx, err = service.NewContext(service.Config{Participant: d.NewParticipant(), Discovery: tc.discovery, Logger: testlogger.New(t)})
	require.NoError(t, err)
	tc.cliCtx, err = service.NewContext(service.Config{Participant: d.NewParticipant(), Discovery: tc.discovery, Logger: testlogger.New(t)})
	require.NoError(t, err)
	return tc
}

func (tc *TestContext) server(t *testing.T, handler server.HandlerFunc) *server.Server {
	s, err := server.NewServer(server.Config{
		Context: tc.srvCtx,
		Node:    tc.node,
		Logger:  testlogger.New(t),
		Metrics: tc.reg,
	})
	require.NoError(t, err)
	require.NoError(t, s.Handle("add_two_ints", handles, nil, handler))
	return s
}

func start(t *testing.T, s *server.Server) chan error {
	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	return done
}

func add(_ context.Context, _ service.RequestHeader, req any) (any, error) {
	r := req.(*addRequest)
	if r.A < 0 {
		return nil, errors.New("negative")
	}
	return addResponse{Sum: r.A + r.B}, nil
}

func (tc *TestContext) call(t *testing.T, cl *service.Client, req addRequest) addResponse {
	seq, err := cl.SendRequest(req)
	require.NoError(t, err)
	resp := addResponse{}
	require.Eventually(t, func() bool {
		h, taken, err := cl.TakeResponse(&resp)
		require.NoError(t, err)
		if taken {
			require.Equal(t, seq, h.RequestID.SequenceNumber)
		}
		return taken
	}, 5*time.Second, time.Millisecond)
	return resp
}

func TestServe(t *testing.T) {
	tc := SetUp(t)
	s := tc.server(t, add)
	done := start(t, s)

	profile := qos.ServicesDefault
	cl, err := tc.cliCtx.CreateClient(tc.node, handles, "add_two_ints", &profile)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, cl.WaitForService(ctx))

	for i := int64(0); i < 5; i++ {
		require.Equal(t, addResponse{Sum: i + 40}, tc.call(t, cl, addRequest{A: i, B: 40}))
	}

	m := s.Metrics()
	require.Equal(t, float64(5), testutil.ToFloat64(m.RequestsTaken.WithLabelValues("/add_two_ints")))
	require.Equal(t, float64(5), testutil.ToFloat64(m.ResponsesSent.WithLabelValues("/add_two_ints")))

	require.NoError(t, s.Stop())
	require.NoError(t, <-done)
	require.Empty(t, tc.discovery.Servers("/add_two_ints"))
	require.NoError(t, tc.cliCtx.DestroyClient(tc.node, cl))
}

func TestHandlerError(t *testing.T) {
	tc := SetUp(t)
	s := tc.server(t, add)
	done := start(t, s)
	defer func() {
		require.NoError(t, s.Stop())
		require.NoError(t, <-done)
	}()

	profile := qos.ServicesDefault
	cl, err := tc.cliCtx.CreateClient(tc.node, handles, "add_two_ints", &profile)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, cl.WaitForService(ctx))

	_, err = cl.SendRequest(addRequest{A: -1})
	require.NoError(t, err)
	m := s.Metrics()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.HandlerErrors.WithLabelValues("/add_two_ints")) == 1
	}, 5*time.Second, time.Millisecond)

	// the failed request gets no answer, the next one does
	require.Equal(t, addResponse{Sum: 3}, tc.call(t, cl, addRequest{A: 1, B: 2}))
}

func TestHooks(t *testing.T) {
	tc := SetUp(t)
	var order []string
	started := make(chan struct{})
	s, err := server.NewServer(server.Config{
		Context:     tc.srvCtx,
		Node:        tc.node,
		Logger:      testlogger.New(t),
		BeforeStart: func() error { order = append(order, "beforeStart"); return nil },
		AfterStart:  func() error { order = append(order, "afterStart"); close(started); return nil },
		BeforeStop:  func() error { order = append(order, "beforeStop"); return nil },
		AfterStop:   func() error { order = append(order, "afterStop"); return nil },
	})
	require.NoError(t, err)
	require.Error(t, s.Start(), "no service registered")
	require.NoError(t, s.Handle("add_two_ints", handles, nil, add))

	done := start(t, s)
	<-started
	require.Len(t, tc.discovery.Servers("/add_two_ints"), 1)
	require.NoError(t, s.Stop())
	require.NoError(t, <-done)
	require.Equal(t, []string{"beforeStart", "afterStart", "beforeStop", "afterStop"}, order)
}

func TestStartFailureRollsBack(t *testing.T) {
	tc := SetUp(t)
	s := tc.server(t, add)
	require.NoError(t, s.Handle("bad name!", handles, nil, add))
	require.Error(t, s.Start())
	require.Empty(t, tc.discovery.ServiceNamesAndTypes())
}

func TestConfig(t *testing.T) {
	_, err := server.NewServer(server.Config{})
	require.Error(t, err)

	tc := SetUp(t)
	s, err := server.NewServer(server.Config{Context: tc.srvCtx, Node: tc.node})
	require.NoError(t, err)
	cfg, err := s.GetConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg.Logger)
	require.NotNil(t, cfg.Metrics)
	require.Error(t, s.Stop(), "not started")
	require.Error(t, s.Handle("x", handles, nil, nil))
}
