package cborts_test

import (
	"testing"

	"github.com/stretchr/testify/require"

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

func TestService(t *testing.T) {
	ts := cborts.New[addRequest, addResponse]("example_interfaces/srv", "AddTwoInts")
	require.Equal(t, typesupport.CBORIdentifier, ts.Identifier())
	require.Equal(t, "AddTwoInts_Request", ts.Request().Name())
	require.Equal(t, "AddTwoInts_Response", ts.Response().Name())
	require.Equal(t, "example_interfaces/srv", ts.Response().Namespace())
	require.Contains(t, ts.Request().MetaString(), "int64 a;")
}

func TestRoundTrip(t *testing.T) {
	ts := cborts.New[addRequest, addResponse]("example_interfaces/srv", "AddTwoInts")

	data, err := ts.Request().Serialize(addRequest{A: 2, B: 3})
	require.NoError(t, err)
	byPtr, err := ts.Request().Serialize(&addRequest{A: 2, B: 3})
	require.NoError(t, err)
	require.Equal(t, data, byPtr)

	out := ts.Request().New()
	require.NoError(t, ts.Request().Deserialize(data, out))
	require.Equal(t, &addRequest{A: 2, B: 3}, out)
}

func TestWrongType(t *testing.T) {
	ts := cborts.New[addRequest, addResponse]("example_interfaces/srv", "AddTwoInts")
	_, err := ts.Request().Serialize(addResponse{})
	require.ErrorIs(t, err, typesupport.ErrWrongType)
	_, err = ts.Request().Serialize((*addRequest)(nil))
	require.ErrorIs(t, err, typesupport.ErrWrongType)
	require.ErrorIs(t, ts.Request().Deserialize(nil, &addResponse{}), typesupport.ErrWrongType)
	require.Error(t, ts.Request().Deserialize([]byte{0xff, 0x00}, &addRequest{}))
}
