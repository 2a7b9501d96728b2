package qos_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/qos"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/typesupport"
)

func TestAdaptForServices(t *testing.T) {
	p := qos.AdaptForServices(qos.Profile{
		History:                 qos.KeepLast,
		Depth:                   5,
		Reliability:             qos.BestAvailable,
		Durability:              qos.BestAvailable,
		Liveliness:              qos.BestAvailable,
		Deadline:                qos.Infinite,
		LivelinessLeaseDuration: qos.Infinite,
	})
	require.Equal(t, qos.Reliable, p.Reliability)
	require.Equal(t, qos.Volatile, p.Durability)
	require.Equal(t, qos.Automatic, p.Liveliness)
	require.Equal(t, qos.KeepLast, p.History)
	require.Equal(t, 5, p.Depth)
	require.Zero(t, p.Deadline)
}

func TestReaderWriterQoS(t *testing.T) {
	hash := typesupport.HashOf("message A {}")
	p := qos.Profile{
		History:     qos.KeepLast,
		Depth:       7,
		Reliability: qos.Reliable,
		Durability:  qos.TransientLocal,
		Deadline:    time.Second,
		Lifespan:    2 * time.Second,
	}
	r, err := qos.ReaderQoS(p, hash)
	require.NoError(t, err)
	require.Equal(t, transport.Reliable, r.Reliability)
	require.Equal(t, transport.TransientLocal, r.Durability)
	require.Equal(t, int32(7), r.Depth)
	require.Equal(t, time.Second, r.Deadline)
	require.Equal(t, transport.Infinite, r.LeaseDuration)
	require.Contains(t, string(r.UserData), hash.String())

	w, err := qos.WriterQoS(p, hash)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, w.Lifespan)

	back := qos.FromWriter(w)
	require.Equal(t, qos.KeepLast, back.History)
	require.Equal(t, 7, back.Depth)
	require.Equal(t, qos.Reliable, back.Reliability)
	require.Equal(t, qos.TransientLocal, back.Durability)
	require.Equal(t, qos.Automatic, back.Liveliness)
	require.Equal(t, 2*time.Second, back.Lifespan)

	require.Zero(t, qos.FromReader(r).Lifespan)
}

func TestSystemDefaultKeepsTransportDefaults(t *testing.T) {
	r, err := qos.ReaderQoS(qos.Profile{}, typesupport.TypeHash{})
	require.NoError(t, err)
	def := transport.DefaultReaderQoS()
	require.Equal(t, def.Reliability, r.Reliability)
	require.Equal(t, def.Depth, r.Depth)
}

func TestRejected(t *testing.T) {
	_, err := qos.ReaderQoS(qos.Profile{Reliability: qos.Unknown}, typesupport.TypeHash{})
	require.Error(t, err)
	_, err = qos.WriterQoS(qos.Profile{History: qos.Durability(99)}, typesupport.TypeHash{})
	require.Error(t, err)
	_, err = qos.WriterQoS(qos.Profile{Deadline: -time.Second}, typesupport.TypeHash{})
	require.Error(t, err)
}
