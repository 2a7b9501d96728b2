package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tests "github.com/f0mster/reqrep/internal/test"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/transport/memory"
)

func TestMemoryParticipant(t *testing.T) {
	tests.Participant_Test(func(t *testing.T) (transport.Participant, transport.Participant) {
		d := memory.NewDomain()
		return d.NewParticipant(), d.NewParticipant()
	}, t)
}

func setUp(t *testing.T, opts ...memory.Option) (*memory.Participant, transport.Reader, transport.Writer) {
	p := memory.New(opts...)
	_, err := p.RegisterType("t", "meta")
	require.NoError(t, err)
	tp, err := p.CreateTopic("rt/x", "t", transport.DefaultTopicQoS())
	require.NoError(t, err)
	rq := transport.DefaultReaderQoS()
	rq.Depth = 2
	r, err := p.CreateReader(tp, rq)
	require.NoError(t, err)
	w, err := p.CreateWriter(tp, transport.DefaultWriterQoS())
	require.NoError(t, err)
	return p, r, w
}

func TestKeepLastDepth(t *testing.T) {
	_, r, w := setUp(t)
	for _, s := range []string{"1", "2", "3"} {
		require.NoError(t, w.Write([]byte(s)))
	}
	loan, err := r.Take(0)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("2"), []byte("3")}, loan.Data)
	require.Equal(t, uint32(2), loan.Infos[0].Seq.Low)
	require.NoError(t, r.ReturnLoan(loan))
}

func TestWithoutSampleIdentity(t *testing.T) {
	p, r, w := setUp(t, memory.WithoutSampleIdentity())
	require.False(t, p.SupportsSampleIdentity())
	var src transport.GUID
	src.EntityID = 9
	require.NoError(t, w.WriteWithInfo([]byte("x"), transport.SampleInfoEx{SrcGUID: src, Seq: transport.SequenceNumber{Low: 5}}))
	loan, err := r.Take(1)
	require.NoError(t, err)
	require.True(t, loan.Infos[0].SrcGUID.IsZero())
	require.Equal(t, transport.SequenceNumber{}, loan.Infos[0].Seq)
	require.False(t, loan.Infos[0].ReceptionTimestamp.IsZero())
	require.NoError(t, r.ReturnLoan(loan))
}

func TestWriteStampsOwnIdentity(t *testing.T) {
	_, r, w := setUp(t)
	require.NoError(t, w.Write([]byte("a")))
	require.NoError(t, w.WriteWithInfo([]byte("b"), transport.SampleInfoEx{}))
	loan, err := r.Take(0)
	require.NoError(t, err)
	require.Equal(t, w.GUID(), loan.Infos[0].SrcGUID)
	require.Equal(t, uint32(1), loan.Infos[0].Seq.Low)
	require.True(t, loan.Infos[1].SrcGUID.IsZero())
	require.Equal(t, transport.SequenceNumber{}, loan.Infos[1].Seq)
	require.NoError(t, r.ReturnLoan(loan))
}

func TestFailNext(t *testing.T) {
	p, r, w := setUp(t)
	boom := errors.New("boom")
	p.FailNext(memory.OpWrite, boom)
	require.ErrorIs(t, w.Write([]byte("x")), boom)
	require.NoError(t, w.Write([]byte("x")))

	p.FailNext(memory.OpTake, boom)
	_, err := r.Take(1)
	require.ErrorIs(t, err, boom)
}

func TestTopics(t *testing.T) {
	d := memory.NewDomain()
	a, b := d.NewParticipant(), d.NewParticipant()
	_, err := a.RegisterType("t", "meta")
	require.NoError(t, err)
	_, err = a.RegisterType("t", "other meta")
	require.Error(t, err)
	_, err = a.CreateTopic("rt/x", "unregistered", transport.DefaultTopicQoS())
	require.Error(t, err)

	ta, err := a.CreateTopic("rt/x", "t", transport.DefaultTopicQoS())
	require.NoError(t, err)
	_, err = a.CreateTopic("rt/x", "t", transport.DefaultTopicQoS())
	require.Error(t, err)

	_, err = b.RegisterType("u", "meta")
	require.NoError(t, err)
	_, err = b.CreateTopic("rt/x", "u", transport.DefaultTopicQoS())
	require.Error(t, err, "type mismatch on the domain")

	again, err := a.FindTopic("rt/x", time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, a.DeleteTopic(again))
	require.True(t, d.HasTopic("rt/x"))
	require.NoError(t, a.DeleteTopic(ta))
	require.False(t, d.HasTopic("rt/x"))
	require.ErrorIs(t, a.DeleteTopic(ta), transport.ErrBadHandle)
}

func TestDeleteReaderWithCondition(t *testing.T) {
	p, r, _ := setUp(t)
	c, err := r.CreateReadCondition(transport.AnyState)
	require.NoError(t, err)
	require.Error(t, p.DeleteReader(r))
	require.NoError(t, r.DeleteReadCondition(c))
	require.NoError(t, p.DeleteReader(r))
	require.ErrorIs(t, p.DeleteReader(r), transport.ErrBadHandle)
}

func TestFindTopicWaits(t *testing.T) {
	d := memory.NewDomain()
	a, b := d.NewParticipant(), d.NewParticipant()
	_, err := a.RegisterType("t", "meta")
	require.NoError(t, err)
	go func() {
		time.Sleep(5 * time.Millisecond)
		_, _ = a.CreateTopic("rt/late", "t", transport.DefaultTopicQoS())
	}()
	tp, err := b.FindTopic("rt/late", time.Second)
	require.NoError(t, err)
	require.Equal(t, "t", tp.TypeName())
}
