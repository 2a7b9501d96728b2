package kafka

import (
	"fmt"
	"sync"
	"time"

	"github.com/Shopify/sarama"

	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/transport/frame"
	"github.com/f0mster/reqrep/pkg/transport/sampleq"
)

type Reader struct {
	guid    transport.GUID
	topic   *topic
	qos     transport.ReaderQoS
	queue   *sampleq.Queue
	pc      sarama.PartitionConsumer
	done    chan struct{}
	loopWG  sync.WaitGroup
	stopped sync.Once
}

var _ transport.Reader = (*Reader)(nil)

func newReader(guid transport.GUID, t *topic, qos transport.ReaderQoS, pc sarama.PartitionConsumer) *Reader {
	r := &Reader{guid: guid, topic: t, qos: qos, pc: pc, done: make(chan struct{})}
	r.queue = sampleq.New(r, qos)
	r.loopWG.Add(1)
	return r
}

func headerValue(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (r *Reader) loop() {
	defer r.loopWG.Done()
	for {
		select {
		case <-r.done:
			return
		case msg, ok := <-r.pc.Messages():
			if !ok {
				return
			}
			if headerValue(msg, typeHeader) != r.topic.typeName {
				continue
			}
			f, err := frame.Unmarshal(msg.Value)
			if err != nil {
				continue
			}
			r.queue.Push(f.Data, f.Info)
		}
	}
}

func (r *Reader) stop() (err error) {
	r.stopped.Do(func() {
		close(r.done)
		r.loopWG.Wait()
		err = r.pc.Close()
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
	producer sarama.SyncProducer
	guid     transport.GUID
	topic    *topic
	qos      transport.WriterQoS

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
	_, _, err := w.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   w.topic.kafka,
		Value:   sarama.ByteEncoder(frame.Marshal(frame.Frame{TypeName: w.topic.typeName, Info: info, Data: data})),
		Headers: []sarama.RecordHeader{{Key: []byte(typeHeader), Value: []byte(w.topic.typeName)}},
	})
	if err != nil {
		return fmt.Errorf("produce %s: %w", w.topic.name, err)
	}
	return nil
}
