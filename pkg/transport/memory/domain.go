// Package memory is an in-process transport. Participants created from the same
// Domain see each other's topics and exchange samples synchronously: a write
// pushes the sample into every matched reader before it returns.
package memory

import (
	"fmt"
	"sync"

	"github.com/f0mster/reqrep/pkg/transport"
)

type domainTopic struct {
	typeName string
	holders  int
	readers  map[*Reader]bool
}

type Domain struct {
	mu     sync.Mutex
	topics map[string]*domainTopic
}

func NewDomain() *Domain {
	return &Domain{topics: map[string]*domainTopic{}}
}

func (d *Domain) NewParticipant(opts ...Option) *Participant {
	p := &Participant{
		domain:   d,
		guid:     transport.NewGUID().WithEntity(0x000001c1),
		identity: true,
		types:    map[string]string{},
		topics:   map[string]*topic{},
		readers:  map[*Reader]bool{},
		writers:  map[*Writer]bool{},
		faults:   map[Op]error{},
		topicQoS: transport.DefaultTopicQoS(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (d *Domain) initTopic(name string) *domainTopic {
	dt, ok := d.topics[name]
	if !ok {
		dt = &domainTopic{readers: map[*Reader]bool{}}
		d.topics[name] = dt
	}
	return dt
}

func (d *Domain) addTopic(name, typeName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	dt := d.initTopic(name)
	if dt.holders > 0 && dt.typeName != typeName {
		return fmt.Errorf("topic %s exists with type %s", name, dt.typeName)
	}
	dt.typeName = typeName
	dt.holders++
	return nil
}

func (d *Domain) removeTopic(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dt, ok := d.topics[name]
	if !ok {
		return
	}
	dt.holders--
	if dt.holders <= 0 && len(dt.readers) == 0 {
		delete(d.topics, name)
	}
}

func (d *Domain) topicType(name string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dt, ok := d.topics[name]
	if !ok || dt.holders == 0 {
		return "", false
	}
	return dt.typeName, true
}

// HasTopic reports whether any participant still holds a topic named name.
func (d *Domain) HasTopic(name string) bool {
	_, ok := d.topicType(name)
	return ok
}

func (d *Domain) subscribe(name string, r *Reader) {
	d.mu.Lock()
	d.initTopic(name).readers[r] = true
	d.mu.Unlock()
}

func (d *Domain) unsubscribe(name string, r *Reader) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dt, ok := d.topics[name]
	if !ok {
		return
	}
	delete(dt.readers, r)
	if dt.holders <= 0 && len(dt.readers) == 0 {
		delete(d.topics, name)
	}
}

func (d *Domain) deliver(name string, data []byte, info transport.SampleInfoEx) {
	d.mu.Lock()
	dt, ok := d.topics[name]
	if !ok {
		d.mu.Unlock()
		return
	}
	readers := make([]*Reader, 0, len(dt.readers))
	for r := range dt.readers {
		readers = append(readers, r)
	}
	d.mu.Unlock()

	for _, r := range readers {
		r.receive(data, info)
	}
}
