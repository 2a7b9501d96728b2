package redis

import (
	"fmt"
	"sync"
	"time"

	"github.com/mediocregopher/radix/v3"

	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/transport/frame"
	"github.com/f0mster/reqrep/pkg/transport/sampleq"
)

type Reader struct {
	p       *Participant
	guid    transport.GUID
	topic   *topic
	qos     transport.ReaderQoS
	queue   *sampleq.Queue
	msgChan chan radix.PubSubMessage
	done    chan struct{}
	stopped sync.Once
}

var _ transport.Reader = (*Reader)(nil)

func newReader(p *Participant, guid transport.GUID, t *topic, qos transport.ReaderQoS) *Reader {
	r := &Reader{
		p:       p,
		guid:    guid,
		topic:   t,
		qos:     qos,
		msgChan: make(chan radix.PubSubMessage, 10000),
		done:    make(chan struct{}),
	}
	r.queue = sampleq.New(r, qos)
	return r
}

func (r *Reader) loop() {
	for {
		select {
		case <-r.done:
			return
		case msg := <-r.msgChan:
			if len(msg.Message) == 0 {
				continue
			}
			f, err := frame.Unmarshal(msg.Message)
			if err != nil || f.TypeName != r.topic.typeName {
				continue
			}
			r.queue.Push(f.Data, f.Info)
		}
	}
}

func (r *Reader) stop() (err error) {
	r.stopped.Do(func() {
		err = r.p.pubsub.Unsubscribe(r.msgChan, r.p.channel(r.topic.name))
		close(r.done)
		r.queue.Clear()
	})
	return err
}

func (r *Reader) GUID() transport.GUID { return r.guid }
func (r *Reader) TopicName() string    { return r.topic.name }

func (r *Reader) QoS() (transport.ReaderQoS, error) {
	return r.qos, nil
}

func (r *Reader) Take(max int) (*transport.Loan, error) {
	return r.queue.Take(max)
}

func (r *Reader) ReturnLoan(l *transport.Loan) error {
	return r.queue.ReturnLoan(l)
}

func (r *Reader) CreateReadCondition(mask transport.StateMask) (transport.ReadCondition, error) {
	return r.queue.CreateReadCondition(mask), nil
}

func (r *Reader) DeleteReadCondition(c transport.ReadCondition) error {
	return r.queue.DeleteReadCondition(c)
}

func (r *Reader) SetListener(l *transport.ReaderListener, mask transport.StatusMask) error {
	r.queue.SetListener(l, mask)
	return nil
}

func (r *Reader) StatusChanges() transport.StatusMask {
	return r.queue.StatusChanges()
}

type Writer struct {
	p       *Participant
	guid    transport.GUID
	topic   *topic
	qos     transport.WriterQoS
	channel string

	mu  sync.Mutex
	seq int64
}

var _ transport.Writer = (*Writer)(nil)

func (w *Writer) GUID() transport.GUID { return w.guid }
func (w *Writer) TopicName() string    { return w.topic.name }

func (w *Writer) QoS() (transport.WriterQoS, error) {
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
	if info.SourceTimestamp.IsZero() {
		info.SourceTimestamp = transport.TimeFrom(time.Now())
	}
	info.ValidData = true
	if data == nil {
		data = []byte{}
	}
	msg := frame.Marshal(frame.Frame{TypeName: w.topic.typeName, Info: info, Data: data})
	if err := w.p.pool.Do(radix.Cmd(nil, "PUBLISH", w.channel, string(msg))); err != nil {
		return fmt.Errorf("publish %s: %w", w.topic.name, err)
	}
	return nil
}
