package memory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/transport/sampleq"
)

// Tick is the polling granularity of FindTopic.
const Tick = time.Millisecond

const (
	writerKind = 0x03
	readerKind = 0x04
)

type Op string

const (
	OpRegisterType        Op = "RegisterType"
	OpDefaultTopicQoS     Op = "DefaultTopicQoS"
	OpCreateTopic         Op = "CreateTopic"
	OpFindTopic           Op = "FindTopic"
	OpDeleteTopic         Op = "DeleteTopic"
	OpCreateReader        Op = "CreateReader"
	OpDeleteReader        Op = "DeleteReader"
	OpCreateReadCondition Op = "CreateReadCondition"
	OpDeleteReadCondition Op = "DeleteReadCondition"
	OpSetListener         Op = "SetListener"
	OpCreateWriter        Op = "CreateWriter"
	OpDeleteWriter        Op = "DeleteWriter"
	OpTake                Op = "Take"
	OpWrite               Op = "Write"
	OpQoS                 Op = "QoS"
)

type topic struct {
	name     string
	typeName string
	refs     int
}

func (t *topic) Name() string     { return t.name }
func (t *topic) TypeName() string { return t.typeName }

type typeHandle struct {
	name     string
	released int32
}

func (h *typeHandle) TypeName() string { return h.name }
func (h *typeHandle) Release()         { atomic.StoreInt32(&h.released, 1) }

type Participant struct {
	domain   *Domain
	guid     transport.GUID
	identity bool

	mu       sync.Mutex
	closed   bool
	lastEl   uint32
	types    map[string]string
	handles  []*typeHandle
	topics   map[string]*topic
	readers  map[*Reader]bool
	writers  map[*Writer]bool
	faults   map[Op]error
	topicQoS transport.TopicQoS
}

var _ transport.Participant = (*Participant)(nil)

type Option func(p *Participant)

// WithoutSampleIdentity makes the participant drop SrcGUID and Seq on delivery,
// like transports that have no per-sample metadata.
func WithoutSampleIdentity() Option {
	return func(p *Participant) {
		p.identity = false
	}
}

// New returns a participant on its own private domain.
func New(opts ...Option) *Participant {
	return NewDomain().NewParticipant(opts...)
}

func (p *Participant) GUID() transport.GUID {
	return p.guid
}

func (p *Participant) Domain() *Domain {
	return p.domain
}

// FailNext makes the next call of op return err.
func (p *Participant) FailNext(op Op, err error) {
	p.mu.Lock()
	p.faults[op] = err
	p.mu.Unlock()
}

func (p *Participant) fault(op Op) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.faultLocked(op)
}

func (p *Participant) faultLocked(op Op) error {
	if err, ok := p.faults[op]; ok {
		delete(p.faults, op)
		return err
	}
	if p.closed {
		return transport.ErrClosed
	}
	return nil
}

func (p *Participant) SupportsSampleIdentity() bool {
	return p.identity
}

func (p *Participant) RegisterType(typeName, metaString string) (transport.TypeHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.faultLocked(OpRegisterType); err != nil {
		return nil, err
	}
	if old, ok := p.types[typeName]; ok && old != metaString {
		return nil, fmt.Errorf("type %s already registered with a different definition", typeName)
	}
	p.types[typeName] = metaString
	h := &typeHandle{name: typeName}
	p.handles = append(p.handles, h)
	return h, nil
}

// RegisteredType returns the meta string registered for typeName.
func (p *Participant) RegisteredType(typeName string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.types[typeName]
	return m, ok
}

// LiveTypeHandles counts type handles that were not released.
func (p *Participant) LiveTypeHandles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, h := range p.handles {
		if atomic.LoadInt32(&h.released) == 0 {
			n++
		}
	}
	return n
}

func (p *Participant) LookupTopicDescription(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.topics[name]
	return ok
}

func (p *Participant) SetDefaultTopicQoS(qos transport.TopicQoS) {
	p.mu.Lock()
	p.topicQoS = qos
	p.mu.Unlock()
}

func (p *Participant) DefaultTopicQoS() (transport.TopicQoS, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.faultLocked(OpDefaultTopicQoS); err != nil {
		return transport.TopicQoS{}, err
	}
	return p.topicQoS, nil
}

func (p *Participant) CreateTopic(name, typeName string, qos transport.TopicQoS) (transport.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.faultLocked(OpCreateTopic); err != nil {
		return nil, err
	}
	if _, ok := p.types[typeName]; !ok {
		return nil, fmt.Errorf("type %s is not registered", typeName)
	}
	if _, ok := p.topics[name]; ok {
		return nil, fmt.Errorf("topic %s already exists", name)
	}
	if err := p.domain.addTopic(name, typeName); err != nil {
		return nil, err
	}
	t := &topic{name: name, typeName: typeName, refs: 1}
	p.topics[name] = t
	return t, nil
}

// FindTopic waits up to timeout for a topic named name to be known on the
// domain and returns a new reference to it.
func (p *Participant) FindTopic(name string, timeout time.Duration) (transport.Topic, error) {
	if err := p.fault(OpFindTopic); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		if t, ok := p.topics[name]; ok {
			t.refs++
			p.mu.Unlock()
			return t, nil
		}
		if typeName, ok := p.domain.topicType(name); ok {
			if err := p.domain.addTopic(name, typeName); err != nil {
				p.mu.Unlock()
				return nil, err
			}
			t := &topic{name: name, typeName: typeName, refs: 1}
			p.topics[name] = t
			p.mu.Unlock()
			return t, nil
		}
		p.mu.Unlock()
		if !time.Now().Before(deadline) {
			return nil, transport.ErrTimeout
		}
		time.Sleep(Tick)
	}
}

func (p *Participant) DeleteTopic(tt transport.Topic) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.faultLocked(OpDeleteTopic); err != nil {
		return err
	}
	t, ok := tt.(*topic)
	if !ok || p.topics[t.name] != t {
		return transport.ErrBadHandle
	}
	t.refs--
	if t.refs == 0 {
		delete(p.topics, t.name)
		p.domain.removeTopic(t.name)
	}
	return nil
}

// Topics lists the topic names this participant currently references.
func (p *Participant) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.topics))
	for name := range p.topics {
		names = append(names, name)
	}
	return names
}

func (p *Participant) nextGUID(kind uint32) transport.GUID {
	p.lastEl++
	return p.guid.WithEntity(p.lastEl<<8 | kind)
}

func (p *Participant) ownTopic(tt transport.Topic) (*topic, error) {
	t, ok := tt.(*topic)
	if !ok || p.topics[t.name] != t {
		return nil, transport.ErrBadHandle
	}
	return t, nil
}

func (p *Participant) CreateReader(tt transport.Topic, qos transport.ReaderQoS) (transport.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.faultLocked(OpCreateReader); err != nil {
		return nil, err
	}
	t, err := p.ownTopic(tt)
	if err != nil {
		return nil, err
	}
	r := &Reader{p: p, guid: p.nextGUID(readerKind), topic: t.name, qos: qos}
	r.queue = sampleq.New(r, qos)
	p.readers[r] = true
	p.domain.subscribe(t.name, r)
	return r, nil
}

func (p *Participant) DeleteReader(rr transport.Reader) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.faultLocked(OpDeleteReader); err != nil {
		return err
	}
	r, ok := rr.(*Reader)
	if !ok || !p.readers[r] {
		return transport.ErrBadHandle
	}
	if r.queue.Conditions() > 0 {
		return fmt.Errorf("reader %s still has read conditions", r.topic)
	}
	p.domain.unsubscribe(r.topic, r)
	r.queue.Clear()
	delete(p.readers, r)
	return nil
}

func (p *Participant) CreateWriter(tt transport.Topic, qos transport.WriterQoS) (transport.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.faultLocked(OpCreateWriter); err != nil {
		return nil, err
	}
	t, err := p.ownTopic(tt)
	if err != nil {
		return nil, err
	}
	w := &Writer{p: p, guid: p.nextGUID(writerKind), topic: t.name, qos: qos}
	p.writers[w] = true
	return w, nil
}

func (p *Participant) DeleteWriter(ww transport.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.faultLocked(OpDeleteWriter); err != nil {
		return err
	}
	w, ok := ww.(*Writer)
	if !ok || !p.writers[w] {
		return transport.ErrBadHandle
	}
	delete(p.writers, w)
	return nil
}

// Counts reports the number of live readers and writers.
func (p *Participant) Counts() (readers int, writers int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.readers), len(p.writers)
}

func (p *Participant) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	for r := range p.readers {
		p.domain.unsubscribe(r.topic, r)
		r.queue.Clear()
	}
	for name := range p.topics {
		p.domain.removeTopic(name)
	}
	p.readers = map[*Reader]bool{}
	p.writers = map[*Writer]bool{}
	p.topics = map[string]*topic{}
	p.closed = true
	return nil
}
