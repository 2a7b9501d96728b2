package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/f0mster/reqrep/pkg/registry"
)

type data struct {
	endpoints                  map[registry.EndpointId]registry.Endpoint
	watchRegisteredCallbacks   map[int64]func(e registry.Endpoint)
	watchUnregisteredCallbacks map[int64]func(e registry.Endpoint)
}

type memRegistry struct {
	reg      map[string]*data
	regMutex sync.RWMutex
}

func New() *memRegistry {
	return &memRegistry{
		reg: map[string]*data{},
	}
}

func (m *memRegistry) Register(service string, e registry.Endpoint) error {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	rns := m.initService(service)
	if _, ok := rns.endpoints[e.Id]; ok {
		return fmt.Errorf("%s/%s: %w", service, e.Id, registry.ErrAlreadyRegistered)
	}
	rns.endpoints[e.Id] = e
	for _, v := range rns.watchRegisteredCallbacks {
		go v(e)
	}
	return nil
}

func (m *memRegistry) Unregister(service string, id registry.EndpointId) error {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	rns := m.initService(service)
	e, ok := rns.endpoints[id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", service, id, registry.ErrNotRegistered)
	}
	delete(rns.endpoints, id)
	for _, v := range rns.watchUnregisteredCallbacks {
		go v(e)
	}
	return nil
}

func (m *memRegistry) Endpoints(service string) map[registry.EndpointId]registry.Endpoint {
	m.regMutex.RLock()
	defer m.regMutex.RUnlock()
	resp := map[registry.EndpointId]registry.Endpoint{}
	rns, ok := m.reg[service]
	if !ok {
		return resp
	}
	for k, v := range rns.endpoints {
		resp[k] = v
	}
	return resp
}

func (m *memRegistry) Services() []string {
	m.regMutex.RLock()
	defer m.regMutex.RUnlock()
	resp := []string{}
	for name, rns := range m.reg {
		if len(rns.endpoints) > 0 {
			resp = append(resp, name)
		}
	}
	sort.Strings(resp)
	return resp
}

func (m *memRegistry) WatchUnregistered(service string, onchange func(e registry.Endpoint)) registry.CancelFunc {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	data := m.initService(service).watchUnregisteredCallbacks
	return m.watch(data, onchange)
}

func (m *memRegistry) WatchRegistered(service string, onchange func(e registry.Endpoint)) registry.CancelFunc {
	m.regMutex.Lock()
	defer m.regMutex.Unlock()
	rns := m.initService(service)
	for _, e := range rns.endpoints {
		go onchange(e)
	}
	return m.watch(rns.watchRegisteredCallbacks, onchange)
}

// watch must be called with regMutex held.
func (m *memRegistry) watch(data map[int64]func(e registry.Endpoint), onchange func(e registry.Endpoint)) registry.CancelFunc {
	i := int64(0)
	for {
		if _, ok := data[i]; !ok {
			break
		}
		i++
	}
	data[i] = onchange
	deleted := false
	return func() {
		m.regMutex.Lock()
		defer m.regMutex.Unlock()
		if deleted {
			return
		}
		delete(data, i)
		deleted = true
	}
}

func (m *memRegistry) initService(service string) *data {
	if _, ok := m.reg[service]; !ok {
		m.reg[service] = &data{
			endpoints:                  map[registry.EndpointId]registry.Endpoint{},
			watchRegisteredCallbacks:   map[int64]func(e registry.Endpoint){},
			watchUnregisteredCallbacks: map[int64]func(e registry.Endpoint){},
		}
	}
	return m.reg[service]
}
