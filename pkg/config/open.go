package config

import (
	"fmt"

	"github.com/f0mster/reqrep/interfaces/logger"
	"github.com/f0mster/reqrep/pkg/graph"
	logger2 "github.com/f0mster/reqrep/pkg/interfaces/logger"
	regmemory "github.com/f0mster/reqrep/pkg/registry/memory"
	regredis "github.com/f0mster/reqrep/pkg/registry/redis"
	"github.com/f0mster/reqrep/pkg/service"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/transport/kafka"
	"github.com/f0mster/reqrep/pkg/transport/memory"
	"github.com/f0mster/reqrep/pkg/transport/redis"
)

func (c *Config) NewLogger() (logger.Logger, error) {
	o := logger2.Options{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		JSON:       c.Log.JSON,
	}
	if c.Log.Backend == "zerolog" {
		return logger2.NewZerolog(o)
	}
	return logger2.NewWithOptions(o)
}

// NewParticipant connects to the configured transport.
func (c *Config) NewParticipant() (transport.Participant, error) {
	switch c.Transport.Kind {
	case "memory":
		return memory.New(), nil
	case "redis":
		return redis.New(redis.Config{
			Network:  c.Transport.Redis.Network,
			Addr:     c.Transport.Redis.Addr,
			Domain:   c.Transport.Domain,
			PoolSize: c.Transport.Redis.PoolSize,
		})
	case "kafka":
		return kafka.New(kafka.Config{
			Brokers: c.Transport.Kafka.Brokers,
			Domain:  c.Transport.Domain,
		})
	}
	return nil, fmt.Errorf("unknown transport %q", c.Transport.Kind)
}

// NewDiscovery returns the graph cache over the configured registry and a
// func releasing the registry's connections.
func (c *Config) NewDiscovery() (*graph.Cache, func() error, error) {
	if c.Discovery.Kind == "redis" {
		r := c.Transport.Redis
		reg, err := regredis.New(r.Network, r.Addr, r.PoolSize, c.Transport.Domain)
		if err != nil {
			return nil, nil, err
		}
		return graph.New(reg), reg.Close, nil
	}
	return graph.New(regmemory.New()), func() error { return nil }, nil
}

func (c *Config) ServiceNode() *service.Node {
	return &service.Node{Name: c.Node.Name, Namespace: c.Node.Namespace}
}

// ServiceConfig fills everything but Participant and Discovery.
func (c *Config) ServiceConfig(log logger.Logger) service.Config {
	return service.Config{
		ServiceMapping: c.ServiceMapping,
		TopicWait:      c.TopicWait,
		Logger:         log,
	}
}
