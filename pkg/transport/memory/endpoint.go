package memory

import (
	"sync"
	"time"

	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/transport/sampleq"
)

type Reader struct {
	p     *Participant
	guid  transport.GUID
	topic string
	qos   transport.ReaderQoS
	queue *sampleq.Queue
}

var _ transport.Reader = (*Reader)(nil)

func (r *Reader) GUID() transport.GUID { return r.guid }
func (r *Reader) TopicName() string    { return r.topic }

func (r *Reader) QoS() (transport.ReaderQoS, error) {
	if err := r.p.fault(OpQoS); err != nil {
		return transport.ReaderQoS{}, err
	}
	return r.qos, nil
}

func (r *Reader) receive(data []byte, info transport.SampleInfoEx) {
	if !r.p.identity {
		info.SrcGUID = transport.GUID{}
		info.Seq = transport.SequenceNumber{}
	}
	r.queue.Push(data, info)
}

func (r *Reader) Take(max int) (*transport.Loan, error) {
	if err := r.p.fault(OpTake); err != nil {
		return nil, err
	}
	return r.queue.Take(max)
}

func (r *Reader) ReturnLoan(l *transport.Loan) error {
	return r.queue.ReturnLoan(l)
}

// Loaned reports whether a take loan is still outstanding.
func (r *Reader) Loaned() bool {
	return r.queue.Loaned()
}

func (r *Reader) CreateReadCondition(mask transport.StateMask) (transport.ReadCondition, error) {
	if err := r.p.fault(OpCreateReadCondition); err != nil {
		return nil, err
	}
	return r.queue.CreateReadCondition(mask), nil
}

func (r *Reader) DeleteReadCondition(c transport.ReadCondition) error {
	if err := r.p.fault(OpDeleteReadCondition); err != nil {
		return err
	}
	return r.queue.DeleteReadCondition(c)
}

func (r *Reader) SetListener(l *transport.ReaderListener, mask transport.StatusMask) error {
	if err := r.p.fault(OpSetListener); err != nil {
		return err
	}
	r.queue.SetListener(l, mask)
	return nil
}

func (r *Reader) StatusChanges() transport.StatusMask {
	return r.queue.StatusChanges()
}

type Writer struct {
	p     *Participant
	guid  transport.GUID
	topic string
	qos   transport.WriterQoS

	mu  sync.Mutex
	seq int64
}

var _ transport.Writer = (*Writer)(nil)

func (w *Writer) GUID() transport.GUID { return w.guid }
func (w *Writer) TopicName() string    { return w.topic }

func (w *Writer) QoS() (transport.WriterQoS, error) {
	if err := w.p.fault(OpQoS); err != nil {
		return transport.WriterQoS{}, err
	}
	return w.qos, nil
}

func (w *Writer) nextSeq() transport.SequenceNumber {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	return transport.SequenceNumber{High: int32(w.seq >> 32), Low: uint32(w.seq)}
}

func (w *Writer) Write(data []byte) error {
	return w.WriteWithInfo(data, transport.SampleInfoEx{SrcGUID: w.guid, Seq: w.nextSeq()})
}

func (w *Writer) WriteWithInfo(data []byte, info transport.SampleInfoEx) error {
	if err := w.p.fault(OpWrite); err != nil {
		return err
	}
	if info.SourceTimestamp.IsZero() {
		info.SourceTimestamp = transport.TimeFrom(time.Now())
	}
	info.ValidData = true
	info.ReceptionTimestamp = transport.Time{}
	buf := make([]byte, len(data))
	copy(buf, data)
	w.p.domain.deliver(w.topic, buf, info)
	return nil
}

// Dispose delivers a lifecycle sample that carries no data.
func (w *Writer) Dispose() {
	info := transport.SampleInfoEx{SrcGUID: w.guid}
	info.SourceTimestamp = transport.TimeFrom(time.Now())
	w.p.domain.deliver(w.topic, nil, info)
}
