// Package redis is a registry shared by every process connected to one redis.
// Endpoints of a service live in the hash "<prefix>:svc:<service>"; changes
// are announced on the channel "<prefix>:events:<service>".
package redis

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/mediocregopher/radix/v3"

	"github.com/f0mster/reqrep/pkg/registry"
)

const (
	eventRegistered   = "registered"
	eventUnregistered = "unregistered"
)

type event struct {
	Kind     string            `cbor:"kind"`
	Endpoint registry.Endpoint `cbor:"endpoint"`
}

type watchers struct {
	registered   map[int64]func(e registry.Endpoint)
	unregistered map[int64]func(e registry.Endpoint)
	last         int64
}

func (w *watchers) empty() bool {
	return len(w.registered) == 0 && len(w.unregistered) == 0
}

type Registry struct {
	pool    *radix.Pool
	pubsub  radix.PubSubConn
	prefix  string
	msgChan chan radix.PubSubMessage
	done    chan struct{}
	wg      sync.WaitGroup

	mu    sync.Mutex
	watch map[string]*watchers
}

var _ registry.Registry = (*Registry)(nil)

func New(network, addr string, poolsize int, prefix string) (r *Registry, err error) {
	if prefix == "" {
		prefix = "reqrep"
	}
	r = &Registry{
		prefix:  prefix,
		msgChan: make(chan radix.PubSubMessage, 1000),
		done:    make(chan struct{}),
		watch:   map[string]*watchers{},
	}
	r.pool, err = radix.NewPool(network, addr, poolsize)
	if err != nil {
		return nil, err
	}
	r.pubsub, err = radix.PersistentPubSubWithOpts(network, addr)
	if err != nil {
		r.pool.Close()
		return nil, err
	}
	r.wg.Add(1)
	go r.dispatch()
	return r, nil
}

func (r *Registry) serviceKey(service string) string {
	return r.prefix + ":svc:" + service
}

func (r *Registry) servicesKey() string {
	return r.prefix + ":services"
}

func (r *Registry) channel(service string) string {
	return r.prefix + ":events:" + service
}

func (r *Registry) publish(service, kind string, e registry.Endpoint) error {
	b, err := cbor.Marshal(event{Kind: kind, Endpoint: e})
	if err != nil {
		return err
	}
	return r.pool.Do(radix.Cmd(nil, "PUBLISH", r.channel(service), string(b)))
}

func (r *Registry) Register(service string, e registry.Endpoint) error {
	b, err := cbor.Marshal(e)
	if err != nil {
		return err
	}
	created := 0
	if err := r.pool.Do(radix.Cmd(&created, "HSETNX", r.serviceKey(service), string(e.Id), string(b))); err != nil {
		return err
	}
	if created == 0 {
		return fmt.Errorf("%s/%s: %w", service, e.Id, registry.ErrAlreadyRegistered)
	}
	if err := r.pool.Do(radix.Cmd(nil, "SADD", r.servicesKey(), service)); err != nil {
		return err
	}
	return r.publish(service, eventRegistered, e)
}

func (r *Registry) Unregister(service string, id registry.EndpointId) error {
	var raw []byte
	mn := radix.MaybeNil{Rcv: &raw}
	if err := r.pool.Do(radix.Cmd(&mn, "HGET", r.serviceKey(service), string(id))); err != nil {
		return err
	}
	deleted := 0
	if err := r.pool.Do(radix.Cmd(&deleted, "HDEL", r.serviceKey(service), string(id))); err != nil {
		return err
	}
	if mn.Nil || deleted == 0 {
		return fmt.Errorf("%s/%s: %w", service, id, registry.ErrNotRegistered)
	}
	left := 0
	if err := r.pool.Do(radix.Cmd(&left, "HLEN", r.serviceKey(service))); err != nil {
		return err
	}
	if left == 0 {
		if err := r.pool.Do(radix.Cmd(nil, "SREM", r.servicesKey(), service)); err != nil {
			return err
		}
	}
	e := registry.Endpoint{}
	if err := cbor.Unmarshal(raw, &e); err != nil {
		e = registry.Endpoint{Id: id, Service: service}
	}
	return r.publish(service, eventUnregistered, e)
}

func (r *Registry) Endpoints(service string) map[registry.EndpointId]registry.Endpoint {
	resp := map[registry.EndpointId]registry.Endpoint{}
	all := map[string]string{}
	if err := r.pool.Do(radix.Cmd(&all, "HGETALL", r.serviceKey(service))); err != nil {
		return resp
	}
	for id, raw := range all {
		e := registry.Endpoint{}
		if err := cbor.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		resp[registry.EndpointId(id)] = e
	}
	return resp
}

func (r *Registry) Services() []string {
	resp := []string{}
	if err := r.pool.Do(radix.Cmd(&resp, "SMEMBERS", r.servicesKey())); err != nil {
		return []string{}
	}
	sort.Strings(resp)
	return resp
}

func (r *Registry) WatchRegistered(service string, onchange func(e registry.Endpoint)) registry.CancelFunc {
	cancel := r.addWatcher(service, true, onchange)
	for _, e := range r.Endpoints(service) {
		go onchange(e)
	}
	return cancel
}

func (r *Registry) WatchUnregistered(service string, onchange func(e registry.Endpoint)) registry.CancelFunc {
	return r.addWatcher(service, false, onchange)
}

func (r *Registry) addWatcher(service string, registered bool, onchange func(e registry.Endpoint)) registry.CancelFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watch[service]
	if !ok {
		w = &watchers{
			registered:   map[int64]func(e registry.Endpoint){},
			unregistered: map[int64]func(e registry.Endpoint){},
		}
		r.watch[service] = w
		// TODO: surface subscribe errors once CancelFunc can carry one
		_ = r.pubsub.Subscribe(r.msgChan, r.channel(service))
	}
	w.last++
	i := w.last
	data := w.unregistered
	if registered {
		data = w.registered
	}
	data[i] = onchange
	deleted := false
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if deleted {
			return
		}
		deleted = true
		delete(data, i)
		if w.empty() && r.watch[service] == w {
			delete(r.watch, service)
			_ = r.pubsub.Unsubscribe(r.msgChan, r.channel(service))
		}
	}
}

func (r *Registry) dispatch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case msg := <-r.msgChan:
			service := strings.TrimPrefix(msg.Channel, r.prefix+":events:")
			ev := event{}
			if err := cbor.Unmarshal(msg.Message, &ev); err != nil {
				continue
			}
			r.mu.Lock()
			if w, ok := r.watch[service]; ok {
				data := w.unregistered
				if ev.Kind == eventRegistered {
					data = w.registered
				}
				for _, v := range data {
					go v(ev.Endpoint)
				}
			}
			r.mu.Unlock()
		}
	}
}

func (r *Registry) Close() error {
	close(r.done)
	r.wg.Wait()
	r.pubsub.Close()
	return r.pool.Close()
}
