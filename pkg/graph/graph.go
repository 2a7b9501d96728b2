// Package graph keeps the discovery view of service servers and clients on
// top of a registry.
package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/f0mster/reqrep/pkg/registry"
)

type Cache struct {
	reg registry.Registry
}

func New(reg registry.Registry) *Cache {
	return &Cache{reg: reg}
}

func (c *Cache) add(role registry.Role, e registry.Endpoint) error {
	e.Role = role
	if e.Id == "" {
		return fmt.Errorf("%s %s has no id", role, e.Service)
	}
	return c.reg.Register(e.Service, e)
}

func (c *Cache) remove(role registry.Role, e registry.Endpoint) error {
	cur, ok := c.reg.Endpoints(e.Service)[e.Id]
	if !ok {
		return fmt.Errorf("%s %s/%s: %w", role, e.Service, e.Id, registry.ErrNotRegistered)
	}
	if cur.Role != role {
		return fmt.Errorf("%s/%s is a %s, not a %s", e.Service, e.Id, cur.Role, role)
	}
	return c.reg.Unregister(e.Service, e.Id)
}

func (c *Cache) OnServiceCreated(e registry.Endpoint) error {
	return c.add(registry.RoleServer, e)
}

func (c *Cache) OnServiceDeleted(e registry.Endpoint) error {
	return c.remove(registry.RoleServer, e)
}

func (c *Cache) OnClientCreated(e registry.Endpoint) error {
	return c.add(registry.RoleClient, e)
}

func (c *Cache) OnClientDeleted(e registry.Endpoint) error {
	return c.remove(registry.RoleClient, e)
}

func (c *Cache) byRole(service string, role registry.Role) []registry.Endpoint {
	var resp []registry.Endpoint
	for _, e := range c.reg.Endpoints(service) {
		if e.Role == role {
			resp = append(resp, e)
		}
	}
	sort.Slice(resp, func(i, j int) bool { return resp[i].Id < resp[j].Id })
	return resp
}

func (c *Cache) Servers(service string) []registry.Endpoint {
	return c.byRole(service, registry.RoleServer)
}

func (c *Cache) Clients(service string) []registry.Endpoint {
	return c.byRole(service, registry.RoleClient)
}

// ServiceNamesAndTypes maps every service with at least one endpoint to the
// request types its endpoints use.
func (c *Cache) ServiceNamesAndTypes() map[string][]string {
	resp := map[string][]string{}
	for _, service := range c.reg.Services() {
		seen := map[string]bool{}
		for _, e := range c.reg.Endpoints(service) {
			if !seen[e.RequestType] {
				seen[e.RequestType] = true
				resp[service] = append(resp[service], e.RequestType)
			}
		}
		sort.Strings(resp[service])
	}
	return resp
}

// WaitForServer blocks until service has a server or ctx is done.
func (c *Cache) WaitForServer(ctx context.Context, service string) error {
	found := make(chan struct{}, 1)
	cancel := c.reg.WatchRegistered(service, func(e registry.Endpoint) {
		if e.Role != registry.RoleServer {
			return
		}
		select {
		case found <- struct{}{}:
		default:
		}
	})
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if len(c.Servers(service)) > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-found:
		case <-ticker.C:
		}
	}
}
