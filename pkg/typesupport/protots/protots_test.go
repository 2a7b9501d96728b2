package protots_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/f0mster/reqrep/pkg/typesupport"
	"github.com/f0mster/reqrep/pkg/typesupport/protots"
)

func load(t *testing.T) *protots.Service {
	f, err := os.Open("testdata/add_two_ints.proto")
	require.NoError(t, err)
	defer f.Close()
	ts, err := protots.Load(f, "add_two_ints.proto", "AddTwoInts", "Call")
	require.NoError(t, err)
	return ts
}

func TestLoad(t *testing.T) {
	ts := load(t)
	require.Equal(t, typesupport.ProtoIdentifier, ts.Identifier())
	require.Equal(t, "example_interfaces.srv", ts.Request().Namespace())
	require.Equal(t, "AddTwoInts_Request", ts.Request().Name())
	require.Equal(t, "AddTwoInts_Response", ts.Response().Name())
	require.Contains(t, ts.Request().MetaString(), "int64 a = 1;")
	require.NotEqual(t, ts.Request().TypeHash(), ts.Response().TypeHash())
}

func TestRoundTrip(t *testing.T) {
	ts := load(t)
	req := ts.Request().New().(*dynamicpb.Message)
	fields := req.Descriptor().Fields()
	req.Set(fields.ByName("a"), protoreflect.ValueOfInt64(2))
	req.Set(fields.ByName("b"), protoreflect.ValueOfInt64(3))

	data, err := ts.Request().Serialize(req)
	require.NoError(t, err)

	out := ts.Request().New().(*dynamicpb.Message)
	require.NoError(t, ts.Request().Deserialize(data, out))
	require.Equal(t, int64(2), out.Get(fields.ByName("a")).Int())
	require.Equal(t, int64(3), out.Get(fields.ByName("b")).Int())
}

func TestWrongType(t *testing.T) {
	ts := load(t)
	_, err := ts.Request().Serialize(ts.Response().New())
	require.ErrorIs(t, err, typesupport.ErrWrongType)
	_, err = ts.Request().Serialize("text")
	require.ErrorIs(t, err, typesupport.ErrWrongType)
	require.ErrorIs(t, ts.Request().Deserialize(nil, 5), typesupport.ErrWrongType)
}

func TestFromMessages(t *testing.T) {
	ts := protots.FromMessages(&wrapperspb.StringValue{}, &wrapperspb.Int64Value{})
	require.Equal(t, "google.protobuf", ts.Request().Namespace())
	require.Equal(t, "StringValue", ts.Request().Name())

	data, err := ts.Request().Serialize(wrapperspb.String("hi"))
	require.NoError(t, err)
	out := &wrapperspb.StringValue{}
	require.NoError(t, ts.Request().Deserialize(data, out))
	require.Equal(t, "hi", out.GetValue())
}

func TestLoadErrors(t *testing.T) {
	_, err := protots.Load(strings.NewReader(`syntax = "proto3"; message A { int64 a = 1; }`), "a.proto", "Missing", "Call")
	require.Error(t, err)

	_, err = protots.Load(strings.NewReader(`syntax = "proto3"; message A { Unknown a = 1; }`), "b.proto", "S", "Call")
	require.Error(t, err)

	_, err = protots.Load(strings.NewReader(`syntax = "proto3";
message A { int64 a = 1; }
service S { rpc Call (stream A) returns (A); }`), "c.proto", "S", "Call")
	require.Error(t, err)
}
