package main

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/f0mster/reqrep/pkg/config"
	logger2 "github.com/f0mster/reqrep/pkg/interfaces/logger"
	"github.com/f0mster/reqrep/pkg/service"
	"github.com/f0mster/reqrep/pkg/typesupport/protots"
)

func TestAddTwoInts(t *testing.T) {
	ts, err := protots.Load(strings.NewReader(addTwoIntsProto), "add_two_ints.proto", "AddTwoInts", "Call")
	require.NoError(t, err)

	req := ts.Request().New().(proto.Message).ProtoReflect()
	req.Set(req.Descriptor().Fields().ByName("a"), protoreflect.ValueOfInt64(40))
	req.Set(req.Descriptor().Fields().ByName("b"), protoreflect.ValueOfInt64(2))

	resp, err := addTwoInts(ts)(context.Background(), service.RequestHeader{}, req.Interface())
	require.NoError(t, err)
	m := resp.(proto.Message).ProtoReflect()
	require.Equal(t, int64(42), m.Get(m.Descriptor().Fields().ByName("sum")).Int())

	_, err = addTwoInts(ts)(context.Background(), service.RequestHeader{}, resp)
	require.Error(t, err, "response is not a request")
}

func TestDebugFlagRaisesConfiguredLevel(t *testing.T) {
	l, err := newLogger(config.Default(), false)
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, l.(*logger2.DefaultLogger).Log.GetLevel())

	l, err = newLogger(config.Default(), true)
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, l.(*logger2.DefaultLogger).Log.GetLevel())
}
