// Package kafka is a transport over a kafka cluster. Every transport topic is
// one single-partition kafka topic; topic definitions are appended to a
// shared "<domain>.__topics" log that every participant replays.
package kafka

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Shopify/sarama"

	"github.com/f0mster/reqrep/pkg/transport"
)

var ErrNoActiveBrokers = errors.New("failed to find active brokers")

// Tick is the polling granularity of FindTopic.
const Tick = time.Millisecond

const (
	writerKind = 0x03
	readerKind = 0x04

	typeHeader = "reqrep-type"
)

var topicReplacer = strings.NewReplacer("/", ".", "~", "_")

type Config struct {
	Brokers []string
	Domain  string
	// Sarama is used as is when set, see DefaultSaramaConfig.
	Sarama *sarama.Config
	// SetupTimeout bounds the wait for the topic log to become readable.
	SetupTimeout time.Duration
}

func DefaultSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V2_6_0_0
	config.Admin.Retry.Max = 10
	config.Admin.Retry.Backoff = time.Second
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Return.Successes = true
	config.Consumer.Return.Errors = false
	return config
}

func (c *Config) checkConfig() error {
	if len(c.Brokers) == 0 {
		return ErrNoActiveBrokers
	}
	if c.Domain == "" {
		c.Domain = "reqrep"
	}
	if c.Sarama == nil {
		c.Sarama = DefaultSaramaConfig()
	}
	if c.SetupTimeout == 0 {
		c.SetupTimeout = 30 * time.Second
	}
	return nil
}

type topic struct {
	name     string
	kafka    string
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

type Participant struct {
	config   Config
	client   sarama.Client
	producer sarama.SyncProducer
	admin    sarama.ClusterAdmin
	consumer sarama.Consumer
	topicLog sarama.PartitionConsumer
	guid     transport.GUID
	done     chan struct{}
	logDone  sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	lastEl  uint32
	types   map[string]string
	topics  map[string]*topic
	known   map[string]string
	created map[string]bool
	readers map[*Reader]bool
	writers map[*Writer]bool
}

var _ transport.Participant = (*Participant)(nil)

func New(config Config) (*Participant, error) {
	if err := config.checkConfig(); err != nil {
		return nil, err
	}
	client, err := sarama.NewClient(config.Brokers, config.Sarama)
	if err != nil {
		return nil, err
	}
	p := &Participant{
		config:  config,
		client:  client,
		guid:    transport.NewGUID().WithEntity(0x000001c1),
		done:    make(chan struct{}),
		types:   map[string]string{},
		topics:  map[string]*topic{},
		known:   map[string]string{},
		created: map[string]bool{},
		readers: map[*Reader]bool{},
		writers: map[*Writer]bool{},
	}
	if err := p.open(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return p, nil
}

func (p *Participant) open() (err error) {
	if p.admin, err = sarama.NewClusterAdminFromClient(p.client); err != nil {
		return err
	}
	if p.producer, err = sarama.NewSyncProducerFromClient(p.client); err != nil {
		return err
	}
	if p.consumer, err = sarama.NewConsumerFromClient(p.client); err != nil {
		return err
	}
	logTopic := p.topicLogName()
	if err = p.ensureTopic(logTopic); err != nil {
		return err
	}
	p.topicLog, err = p.consumePartition(logTopic, sarama.OffsetOldest)
	if err != nil {
		return err
	}
	p.logDone.Add(1)
	go p.replayTopics()
	return nil
}

// consumePartition retries until the freshly created topic shows up in the
// cluster metadata.
func (p *Participant) consumePartition(name string, offset int64) (sarama.PartitionConsumer, error) {
	deadline := time.Now().Add(p.config.SetupTimeout)
	for {
		pc, err := p.consumer.ConsumePartition(name, 0, offset)
		if err == nil {
			return pc, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("consume %s: %w", name, err)
		}
		_ = p.client.RefreshMetadata(name)
		time.Sleep(100 * time.Millisecond)
	}
}

func (p *Participant) topicLogName() string {
	return p.config.Domain + ".__topics"
}

func (p *Participant) kafkaTopic(name string) string {
	return p.config.Domain + "." + strings.TrimPrefix(topicReplacer.Replace(name), ".")
}

func (p *Participant) ensureTopic(name string) error {
	topicDetail := &sarama.TopicDetail{
		NumPartitions:     1,
		ReplicationFactor: 1,
		ConfigEntries:     map[string]*string{},
	}
	err := p.admin.CreateTopic(name, topicDetail, false)
	var se *sarama.TopicError
	if err != nil && !(errors.As(err, &se) && se.Err == sarama.ErrTopicAlreadyExists) && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return fmt.Errorf("create kafka topic %s: %w", name, err)
	}
	return nil
}

func (p *Participant) replayTopics() {
	defer p.logDone.Done()
	for {
		select {
		case <-p.done:
			return
		case msg, ok := <-p.topicLog.Messages():
			if !ok {
				return
			}
			p.mu.Lock()
			if _, ok := p.known[string(msg.Key)]; !ok {
				p.known[string(msg.Key)] = string(msg.Value)
			}
			p.mu.Unlock()
		}
	}
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
	return transport.DefaultTopicQoS(), nil
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
	if existing, ok := p.known[name]; ok && existing != typeName {
		return nil, fmt.Errorf("topic %s exists with type %s", name, existing)
	}
	kafkaName := p.kafkaTopic(name)
	if !p.created[kafkaName] {
		if err := p.ensureTopic(kafkaName); err != nil {
			return nil, err
		}
		p.created[kafkaName] = true
	}
	if _, ok := p.known[name]; !ok {
		_, _, err := p.producer.SendMessage(&sarama.ProducerMessage{
			Topic: p.topicLogName(),
			Key:   sarama.StringEncoder(name),
			Value: sarama.StringEncoder(typeName),
		})
		if err != nil {
			return nil, fmt.Errorf("announce topic %s: %w", name, err)
		}
		p.known[name] = typeName
	}
	t := &topic{name: name, kafka: kafkaName, typeName: typeName, refs: 1}
	p.topics[name] = t
	return t, nil
}

// FindTopic waits up to timeout for topic name to appear in the topic log.
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
		if typeName, ok := p.known[name]; ok {
			t := &topic{name: name, kafka: p.kafkaTopic(name), typeName: typeName, refs: 1}
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

// DeleteTopic drops this participant's reference. The kafka topic is kept.
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
	pc, err := p.consumePartition(t.kafka, sarama.OffsetNewest)
	if err != nil {
		return nil, err
	}
	r := newReader(p.nextGUID(readerKind), t, qos, pc)
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
	w := &Writer{producer: p.producer, guid: p.nextGUID(writerKind), topic: t, qos: qos}
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
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for r := range p.readers {
		_ = r.stop()
	}
	p.readers = map[*Reader]bool{}
	p.writers = map[*Writer]bool{}
	p.topics = map[string]*topic{}
	p.mu.Unlock()

	close(p.done)
	p.logDone.Wait()
	_ = p.topicLog.Close()
	_ = p.consumer.Close()
	_ = p.producer.Close()
	// closes the shared client too
	return p.admin.Close()
}
