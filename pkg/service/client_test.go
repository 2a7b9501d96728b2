package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/errs"
)

func TestResponsesAreRoutedToTheirClient(t *testing.T) {
	for _, mapping := range []string{"basic", "enhanced"} {
		t.Run(mapping, func(t *testing.T) {
			tc := SetUp(t, mapping)
			svc := tc.createService(t)
			a := tc.createClient(t)
			b := tc.createClient(t)
			require.NotEqual(t, a.GID(), b.GID())

			_, err := a.SendRequest(addRequest{A: 1, B: 1})
			require.NoError(t, err)
			_, err = b.SendRequest(addRequest{A: 10, B: 10})
			require.NoError(t, err)

			for i := 0; i < 2; i++ {
				req := addRequest{}
				h, taken, err := svc.TakeRequest(&req)
				require.NoError(t, err)
				require.True(t, taken)
				require.NoError(t, svc.SendResponse(h.RequestID, addResponse{Sum: req.A + req.B}))
			}

			resp := addResponse{}
			h, taken, err := b.TakeResponse(&resp)
			require.NoError(t, err)
			require.True(t, taken)
			require.Equal(t, int64(20), resp.Sum)
			require.Equal(t, b.GID(), h.RequestID.WriterGUID)
			_, taken, err = b.TakeResponse(&resp)
			require.NoError(t, err)
			require.False(t, taken)

			resp = addResponse{}
			h, taken, err = a.TakeResponse(&resp)
			require.NoError(t, err)
			require.True(t, taken)
			require.Equal(t, int64(2), resp.Sum)
			require.Equal(t, int64(1), h.RequestID.SequenceNumber)
		})
	}
}

func TestClientCallback(t *testing.T) {
	tc := SetUp(t, "basic")
	svc := tc.createService(t)
	cl := tc.createClient(t)

	c := &calls{}
	require.NoError(t, cl.SetOnNewResponseCallback(c.cb, nil))
	_, err := cl.SendRequest(addRequest{A: 1})
	require.NoError(t, err)
	h, taken, err := svc.TakeRequest(&addRequest{})
	require.NoError(t, err)
	require.True(t, taken)
	require.NoError(t, svc.SendResponse(h.RequestID, addResponse{Sum: 1}))
	require.Equal(t, []int{1}, c.get())
	require.NoError(t, cl.ClearOnNewResponseCallback())
}

func TestWaitForService(t *testing.T) {
	tc := SetUp(t, "basic")
	cl := tc.createClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, cl.WaitForService(ctx), context.DeadlineExceeded)

	svc := tc.createService(t)
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	require.NoError(t, cl.WaitForService(ctx2))

	require.Len(t, tc.graph.Clients("/add_two_ints"), 1)
	require.NoError(t, tc.ctx.DestroyService(tc.node, svc))
	require.NoError(t, tc.ctx.DestroyClient(tc.node, cl))
	require.NoError(t, tc.ctx.DestroyClient(tc.node, cl))

	_, err := cl.SendRequest(addRequest{})
	require.ErrorIs(t, err, errs.InvalidArgument)
}

func TestClientQoS(t *testing.T) {
	tc := SetUp(t, "basic")
	cl := tc.createClient(t)
	wq, err := cl.RequestPublisherQoS()
	require.NoError(t, err)
	require.Equal(t, 10, wq.Depth)
	rq, err := cl.ResponseSubscriptionQoS()
	require.NoError(t, err)
	require.Zero(t, rq.Lifespan)
}
