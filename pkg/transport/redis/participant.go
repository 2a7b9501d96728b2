// Package redis is a transport over redis pub/sub. Every sample is one
// PUBLISH on the topic's channel; topic and type definitions live in two
// hashes so participants in other processes can find them.
package redis

import (
	"fmt"
	"sync"
	"time"

	"github.com/mediocregopher/radix/v3"

	"github.com/f0mster/reqrep/pkg/transport"
)

// Tick is the polling granularity of FindTopic.
const Tick = time.Millisecond

const (
	writerKind = 0x03
	readerKind = 0x04
)

type topic struct {
	name     string
	typeName string
	refs     int
}

func (t *topic) Name() string     { return t.name }
func (t *topic) TypeName() string { return t.typeName }

type typeHandle struct {
	name string
}

func (h *typeHandle) TypeName() string { return h.name }
func (h *typeHandle) Release()         {}

type Config struct {
	Network string
	Addr    string
	// Domain separates independent systems sharing one redis.
	Domain   string
	PoolSize int
}

type Participant struct {
	pool   *radix.Pool
	pubsub radix.PubSubConn
	guid   transport.GUID
	domain string

	mu       sync.Mutex
	closed   bool
	lastEl   uint32
	types    map[string]string
	topics   map[string]*topic
	readers  map[*Reader]bool
	writers  map[*Writer]bool
	topicQoS transport.TopicQoS
}

var _ transport.Participant = (*Participant)(nil)

func New(cfg Config) (p *Participant, err error) {
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.Domain == "" {
		cfg.Domain = "reqrep"
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 8
	}
	p = &Participant{
		guid:     transport.NewGUID().WithEntity(0x000001c1),
		domain:   cfg.Domain,
		types:    map[string]string{},
		topics:   map[string]*topic{},
		readers:  map[*Reader]bool{},
		writers:  map[*Writer]bool{},
		topicQoS: transport.DefaultTopicQoS(),
	}
	p.pubsub, err = radix.PersistentPubSubWithOpts(cfg.Network, cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("radix pubsub create error: %w", err)
	}
	p.pool, err = radix.NewPool(cfg.Network, cfg.Addr, cfg.PoolSize)
	if err != nil {
		p.pubsub.Close()
		return nil, fmt.Errorf("radix pool create error: %w", err)
	}
	return p, nil
}

func (p *Participant) typesKey() string  { return p.domain + ":types" }
func (p *Participant) topicsKey() string { return p.domain + ":topics" }

func (p *Participant) channel(topic string) string {
	return p.domain + ":topic:" + topic
}

func (p *Participant) check() error {
	if p.closed {
		return transport.ErrClosed
	}
	return nil
}

func (p *Participant) SupportsSampleIdentity() bool {
	return true
}

func (p *Participant) RegisterType(typeName, metaString string) (transport.TypeHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return nil, err
	}
	if old, ok := p.types[typeName]; ok && old != metaString {
		return nil, fmt.Errorf("type %s already registered with a different definition", typeName)
	}
	if err := p.pool.Do(radix.Cmd(nil, "HSET", p.typesKey(), typeName, metaString)); err != nil {
		return nil, fmt.Errorf("register type %s: %w", typeName, err)
	}
	p.types[typeName] = metaString
	return &typeHandle{name: typeName}, nil
}

func (p *Participant) LookupTopicDescription(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.topics[name]
	return ok
}

func (p *Participant) DefaultTopicQoS() (transport.TopicQoS, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return transport.TopicQoS{}, err
	}
	return p.topicQoS, nil
}

func (p *Participant) CreateTopic(name, typeName string, qos transport.TopicQoS) (transport.Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return nil, err
	}
	if _, ok := p.types[typeName]; !ok {
		return nil, fmt.Errorf("type %s is not registered", typeName)
	}
	if _, ok := p.topics[name]; ok {
		return nil, fmt.Errorf("topic %s already exists", name)
	}
	created := 0
	if err := p.pool.Do(radix.Cmd(&created, "HSETNX", p.topicsKey(), name, typeName)); err != nil {
		return nil, fmt.Errorf("create topic %s: %w", name, err)
	}
	if created == 0 {
		existing := ""
		if err := p.pool.Do(radix.Cmd(&existing, "HGET", p.topicsKey(), name)); err != nil {
			return nil, fmt.Errorf("create topic %s: %w", name, err)
		}
		if existing != typeName {
			return nil, fmt.Errorf("topic %s exists with type %s", name, existing)
		}
	}
	t := &topic{name: name, typeName: typeName, refs: 1}
	p.topics[name] = t
	return t, nil
}

// FindTopic waits up to timeout for topic name to be created by any
// participant of the domain.
func (p *Participant) FindTopic(name string, timeout time.Duration) (transport.Topic, error) {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		if err := p.check(); err != nil {
			p.mu.Unlock()
			return nil, err
		}
		if t, ok := p.topics[name]; ok {
			t.refs++
			p.mu.Unlock()
			return t, nil
		}
		p.mu.Unlock()

		typeName := ""
		mn := radix.MaybeNil{Rcv: &typeName}
		if err := p.pool.Do(radix.Cmd(&mn, "HGET", p.topicsKey(), name)); err != nil {
			return nil, fmt.Errorf("find topic %s: %w", name, err)
		}
		if !mn.Nil {
			p.mu.Lock()
			t, ok := p.topics[name]
			if ok {
				t.refs++
			} else {
				t = &topic{name: name, typeName: typeName, refs: 1}
				p.topics[name] = t
			}
			p.mu.Unlock()
			return t, nil
		}
		if !time.Now().Before(deadline) {
			return nil, transport.ErrTimeout
		}
		time.Sleep(Tick)
	}
}

// DeleteTopic drops this participant's reference. The topic stays known to
// the domain.
func (p *Participant) DeleteTopic(tt transport.Topic) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := tt.(*topic)
	if !ok || p.topics[t.name] != t {
		return transport.ErrBadHandle
	}
	t.refs--
	if t.refs == 0 {
		delete(p.topics, t.name)
	}
	return nil
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
	if err := p.check(); err != nil {
		return nil, err
	}
	t, err := p.ownTopic(tt)
	if err != nil {
		return nil, err
	}
	r := newReader(p, p.nextGUID(readerKind), t, qos)
	if err := p.pubsub.Subscribe(r.msgChan, p.channel(t.name)); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", t.name, err)
	}
	go r.loop()
	p.readers[r] = true
	return r, nil
}

func (p *Participant) DeleteReader(rr transport.Reader) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := rr.(*Reader)
	if !ok || !p.readers[r] {
		return transport.ErrBadHandle
	}
	if r.queue.Conditions() > 0 {
		return fmt.Errorf("reader %s still has read conditions", r.topic.name)
	}
	if err := r.stop(); err != nil {
		return err
	}
	delete(p.readers, r)
	return nil
}

func (p *Participant) CreateWriter(tt transport.Topic, qos transport.WriterQoS) (transport.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(); err != nil {
		return nil, err
	}
	t, err := p.ownTopic(tt)
	if err != nil {
		return nil, err
	}
	w := &Writer{p: p, guid: p.nextGUID(writerKind), topic: t, qos: qos, channel: p.channel(t.name)}
	p.writers[w] = true
	return w, nil
}

func (p *Participant) DeleteWriter(ww transport.Writer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := ww.(*Writer)
	if !ok || !p.writers[w] {
		return transport.ErrBadHandle
	}
	delete(p.writers, w)
	return nil
}

func (p *Participant) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	for r := range p.readers {
		_ = r.stop()
	}
	p.readers = map[*Reader]bool{}
	p.writers = map[*Writer]bool{}
	p.topics = map[string]*topic{}
	p.pubsub.Close()
	return p.pool.Close()
}
