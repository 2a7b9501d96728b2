package tests

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/reqrep/pkg/transport"
)

// Factory returns two participants of one domain.
type Factory func(t *testing.T) (a, b transport.Participant)

const typeName = "conformance::msg::dds_::Blob_"

func topicPair(t *testing.T, a, b transport.Participant) (ta, tb transport.Topic) {
	name := RandomName("rt/conformance")
	_, err := a.RegisterType(typeName, "struct blob { bytes data; }")
	require.NoError(t, err)
	_, err = b.RegisterType(typeName, "struct blob { bytes data; }")
	require.NoError(t, err)

	require.False(t, a.LookupTopicDescription(name))
	q, err := a.DefaultTopicQoS()
	require.NoError(t, err)
	ta, err = a.CreateTopic(name, typeName, q)
	require.NoError(t, err)
	require.True(t, a.LookupTopicDescription(name))
	require.Equal(t, name, ta.Name())
	require.Equal(t, typeName, ta.TypeName())

	require.Eventually(t, func() bool {
		tb, err = b.FindTopic(name, time.Millisecond)
		return err == nil
	}, Timeout, time.Millisecond)
	require.Equal(t, typeName, tb.TypeName())
	return ta, tb
}

// Participant_Test checks the behaviour service endpoints rely on.
func Participant_Test(newParticipants Factory, t *testing.T) {
	t.Run("FindMissingTopic", func(t *testing.T) {
		a, _ := newParticipants(t)
		_, err := a.FindTopic(RandomName("rt/missing"), time.Millisecond)
		require.ErrorIs(t, err, transport.ErrTimeout)
	})

	t.Run("WriteTake", func(t *testing.T) {
		a, b := newParticipants(t)
		ta, tb := topicPair(t, a, b)

		rq := transport.DefaultReaderQoS()
		rq.Reliability = transport.Reliable
		rq.Depth = 10
		r, err := b.CreateReader(tb, rq)
		require.NoError(t, err)
		require.Equal(t, tb.Name(), r.TopicName())
		gotQoS, err := r.QoS()
		require.NoError(t, err)
		require.Equal(t, int32(10), gotQoS.Depth)

		w, err := a.CreateWriter(ta, transport.DefaultWriterQoS())
		require.NoError(t, err)
		require.NotEqual(t, r.GUID(), w.GUID())

		_, err = r.Take(1)
		require.ErrorIs(t, err, transport.ErrNoData)

		cond, err := r.CreateReadCondition(transport.AnyState)
		require.NoError(t, err)
		require.Equal(t, transport.AnyState, cond.Mask())

		var src transport.GUID
		src.Prefix[0], src.EntityID = 0x42, 0x0103
		info := transport.SampleInfoEx{SrcGUID: src, Seq: transport.SequenceNumber{High: 1, Low: 7}}
		// subscriptions of networked transports settle asynchronously
		require.Eventually(t, func() bool {
			require.NoError(t, w.WriteWithInfo([]byte("hello"), info))
			return cond.UnreadCount() > 0
		}, Timeout, 50*time.Millisecond)

		loan := TakeEventually(t, r, 1)
		require.Equal(t, 1, loan.Len())
		require.Equal(t, []byte("hello"), loan.Data[0])
		got := loan.Infos[0]
		require.True(t, got.ValidData)
		require.False(t, got.SourceTimestamp.IsZero())
		require.False(t, got.ReceptionTimestamp.IsZero())
		if a.SupportsSampleIdentity() {
			require.Equal(t, src, got.SrcGUID)
			require.Equal(t, info.Seq, got.Seq)
		}

		_, err = r.Take(1)
		require.Error(t, err, "second take with an outstanding loan")
		require.NoError(t, r.ReturnLoan(loan))
		require.Error(t, r.ReturnLoan(loan))

		// drain whatever the settle loop produced
		for cond.UnreadCount() > 0 {
			l, err := r.Take(0)
			require.NoError(t, err)
			require.NoError(t, r.ReturnLoan(l))
		}

		require.NoError(t, r.DeleteReadCondition(cond))
		require.NoError(t, b.DeleteReader(r))
		require.NoError(t, a.DeleteWriter(w))
		require.NoError(t, b.DeleteTopic(tb))
		require.NoError(t, a.DeleteTopic(ta))
	})

	t.Run("ZeroIdentityKept", func(t *testing.T) {
		a, b := newParticipants(t)
		ta, tb := topicPair(t, a, b)
		rq := transport.DefaultReaderQoS()
		rq.Depth = 100
		r, err := b.CreateReader(tb, rq)
		require.NoError(t, err)
		w, err := a.CreateWriter(ta, transport.DefaultWriterQoS())
		require.NoError(t, err)
		cond, err := r.CreateReadCondition(transport.AnyState)
		require.NoError(t, err)

		info := transport.SampleInfoEx{Seq: transport.SequenceNumber{High: -1, Low: math.MaxUint32}}
		require.Eventually(t, func() bool {
			require.NoError(t, w.WriteWithInfo([]byte("anonymous"), info))
			return cond.UnreadCount() > 0
		}, Timeout, 50*time.Millisecond)

		loan := TakeEventually(t, r, 0)
		for _, got := range loan.Infos {
			require.True(t, got.SrcGUID.IsZero(), "writer GUID leaked into %v", got.SrcGUID)
			if a.SupportsSampleIdentity() {
				require.Equal(t, info.Seq, got.Seq)
			}
		}
		require.NoError(t, r.ReturnLoan(loan))

		require.NoError(t, r.DeleteReadCondition(cond))
		require.NoError(t, b.DeleteReader(r))
		require.NoError(t, a.DeleteWriter(w))
	})

	t.Run("Listener", func(t *testing.T) {
		a, b := newParticipants(t)
		ta, tb := topicPair(t, a, b)
		rq := transport.DefaultReaderQoS()
		rq.Depth = 100
		r, err := b.CreateReader(tb, rq)
		require.NoError(t, err)
		w, err := a.CreateWriter(ta, transport.DefaultWriterQoS())
		require.NoError(t, err)

		var calls int32
		l := &transport.ReaderListener{OnDataAvailable: func(transport.Reader) { atomic.AddInt32(&calls, 1) }}
		require.NoError(t, r.SetListener(l, 0))
		require.NoError(t, w.Write([]byte("silent")))

		require.NoError(t, r.SetListener(l, transport.DataAvailableStatus))
		require.Eventually(t, func() bool {
			require.NoError(t, w.Write([]byte("loud")))
			return atomic.LoadInt32(&calls) > 0
		}, Timeout, 50*time.Millisecond)
		require.NotZero(t, r.StatusChanges()&transport.DataAvailableStatus)

		require.NoError(t, r.SetListener(nil, 0))
		require.NoError(t, b.DeleteReader(r))
		require.NoError(t, a.DeleteWriter(w))
	})

	t.Run("Close", func(t *testing.T) {
		a, _ := newParticipants(t)
		require.NoError(t, a.Close())
		require.NoError(t, a.Close())
		_, err := a.RegisterType(typeName, "x")
		require.Error(t, err)
	})
}
