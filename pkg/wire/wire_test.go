package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/identity"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/typesupport"
	"github.com/f0mster/reqrep/pkg/typesupport/cborts"
	"github.com/f0mster/reqrep/pkg/wire"
)

type addRequest struct{ A, B int64 }
type addResponse struct{ Sum int64 }

var ts = cborts.New[addRequest, addResponse]("example_interfaces/srv", "AddTwoInts")

func gid() identity.GID {
	var g identity.GID
	for i := range g {
		g[i] = byte(0xa0 + i)
	}
	return g
}

func TestBasicCarriesIdentityInBody(t *testing.T) {
	id := identity.RequestID{WriterGUID: gid(), SequenceNumber: 42}
	data, info, err := wire.Basic{}.EncodeRequest(ts.Request(), id, addRequest{A: 2, B: 3})
	require.NoError(t, err)
	require.Nil(t, info)

	h, _, err := typesupport.DecodeBasicHeader(data)
	require.NoError(t, err)
	require.Equal(t, int32(0), h.SeqHigh)
	require.Equal(t, uint32(42), h.SeqLow)

	out := addRequest{}
	got, err := wire.Basic{}.DecodeRequest(ts.Request(), data, transport.SampleInfoEx{}, &out)
	require.NoError(t, err)
	require.Equal(t, id, got)
	require.Equal(t, addRequest{A: 2, B: 3}, out)
}

func TestEnhancedCarriesIdentityInSampleInfo(t *testing.T) {
	id := identity.RequestID{WriterGUID: gid(), SequenceNumber: 1<<32 + 5}
	data, info, err := wire.Enhanced{}.EncodeResponse(ts.Response(), id, addResponse{Sum: 5})
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, transport.SequenceNumber{High: 1, Low: 5}, info.Seq)

	body, err := ts.Response().Serialize(addResponse{Sum: 5})
	require.NoError(t, err)
	require.Equal(t, body, data)

	out := addResponse{}
	got, err := wire.Enhanced{}.DecodeResponse(ts.Response(), data, *info, &out)
	require.NoError(t, err)
	require.Equal(t, id, got)
	require.Equal(t, int64(5), out.Sum)
}

func TestVariantsDoNotMix(t *testing.T) {
	id := identity.RequestID{WriterGUID: gid(), SequenceNumber: 9}
	data, info, err := wire.Enhanced{}.EncodeRequest(ts.Request(), id, addRequest{A: 1})
	require.NoError(t, err)

	_, err = wire.Basic{}.DecodeRequest(ts.Request(), data, *info, &addRequest{})
	require.ErrorIs(t, err, errs.DeserializationFailed)
}

func TestErrors(t *testing.T) {
	_, _, err := wire.Basic{}.EncodeResponse(ts.Response(), identity.RequestID{}, "wrong")
	require.ErrorIs(t, err, errs.SerializationFailed)
	_, _, err = wire.Enhanced{}.EncodeResponse(ts.Response(), identity.RequestID{}, "wrong")
	require.ErrorIs(t, err, errs.SerializationFailed)

	_, err = wire.Enhanced{}.DecodeRequest(ts.Request(), []byte{0xff}, transport.SampleInfoEx{}, &addRequest{})
	require.ErrorIs(t, err, errs.DeserializationFailed)
}

func TestByName(t *testing.T) {
	v, err := wire.ByName("enhanced")
	require.NoError(t, err)
	require.True(t, v.NeedsSampleIdentity())
	v, err = wire.ByName("")
	require.NoError(t, err)
	require.Equal(t, wire.BasicName, v.Name())
	_, err = wire.ByName("fancy")
	require.ErrorIs(t, err, errs.InvalidArgument)
}
