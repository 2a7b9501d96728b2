// Package config loads the configuration of a reqrep process from a YAML
// file and REQREP_* environment variables.
// Example: REQREP_TRANSPORT_KIND=redis REQREP_SERVICE_MAPPING=enhanced
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/f0mster/reqrep/pkg/wire"
)

type Config struct {
	// ServiceMapping selects the wire variant: basic or enhanced.
	ServiceMapping string `mapstructure:"service_mapping"`
	// TopicWait bounds the lookup of an existing topic on endpoint creation.
	TopicWait time.Duration   `mapstructure:"topic_wait"`
	Node      NodeConfig      `mapstructure:"node"`
	Transport TransportConfig `mapstructure:"transport"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type NodeConfig struct {
	Name      string `mapstructure:"name"`
	Namespace string `mapstructure:"namespace"`
}

type TransportConfig struct {
	// Kind is memory, redis or kafka.
	Kind   string      `mapstructure:"kind"`
	Domain string      `mapstructure:"domain"`
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type RedisConfig struct {
	Network  string `mapstructure:"network"`
	Addr     string `mapstructure:"addr"`
	PoolSize int    `mapstructure:"pool_size"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type DiscoveryConfig struct {
	// Kind is memory or redis. A redis discovery shares
	// transport.redis.addr and transport.domain.
	Kind string `mapstructure:"kind"`
}

type LogConfig struct {
	// Backend is logrus or zerolog.
	Backend    string `mapstructure:"backend"`
	Level      string `mapstructure:"level"`
	JSON       bool   `mapstructure:"json"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type MetricsConfig struct {
	// Listen is the address of the /metrics endpoint, disabled when empty.
	Listen string `mapstructure:"listen"`
}

func Default() *Config {
	return &Config{
		ServiceMapping: wire.BasicName,
		TopicWait:      time.Millisecond,
		Node:           NodeConfig{Name: "reqrep_server", Namespace: "/"},
		Transport: TransportConfig{
			Kind:   "memory",
			Domain: "reqrep",
			Redis:  RedisConfig{Network: "tcp", Addr: "127.0.0.1:6379", PoolSize: 8},
			Kafka:  KafkaConfig{Brokers: []string{"127.0.0.1:9092"}},
		},
		Discovery: DiscoveryConfig{Kind: "memory"},
		Log: LogConfig{
			Backend:    "logrus",
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// Load reads path when it is not empty, otherwise reqrep.yaml from the
// working directory if present. Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("REQREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("service_mapping", cfg.ServiceMapping)
	v.SetDefault("topic_wait", cfg.TopicWait)
	v.SetDefault("node.name", cfg.Node.Name)
	v.SetDefault("node.namespace", cfg.Node.Namespace)
	v.SetDefault("transport.kind", cfg.Transport.Kind)
	v.SetDefault("transport.domain", cfg.Transport.Domain)
	v.SetDefault("transport.redis.network", cfg.Transport.Redis.Network)
	v.SetDefault("transport.redis.addr", cfg.Transport.Redis.Addr)
	v.SetDefault("transport.redis.pool_size", cfg.Transport.Redis.PoolSize)
	v.SetDefault("transport.kafka.brokers", cfg.Transport.Kafka.Brokers)
	v.SetDefault("discovery.kind", cfg.Discovery.Kind)
	v.SetDefault("log.backend", cfg.Log.Backend)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.json", cfg.Log.JSON)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.max_size_mb", cfg.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", cfg.Log.MaxBackups)
	v.SetDefault("metrics.listen", cfg.Metrics.Listen)

	if path == "" {
		path = os.Getenv("REQREP_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("reqrep")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &viperConfigFileNotFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.ServiceMapping = strings.ToLower(strings.TrimSpace(c.ServiceMapping))
	if _, err := wire.ByName(c.ServiceMapping); err != nil {
		return fmt.Errorf("invalid service_mapping: %q", c.ServiceMapping)
	}
	if c.TopicWait < 0 {
		return fmt.Errorf("invalid topic_wait: %s", c.TopicWait)
	}
	c.Transport.Kind = strings.ToLower(strings.TrimSpace(c.Transport.Kind))
	switch c.Transport.Kind {
	case "memory", "redis", "kafka":
	default:
		return fmt.Errorf("invalid transport.kind: %q", c.Transport.Kind)
	}
	if c.Transport.Kind == "kafka" && len(c.Transport.Kafka.Brokers) == 0 {
		return fmt.Errorf("transport.kafka.brokers must not be empty")
	}
	c.Discovery.Kind = strings.ToLower(strings.TrimSpace(c.Discovery.Kind))
	switch c.Discovery.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid discovery.kind: %q", c.Discovery.Kind)
	}
	switch strings.ToLower(c.Log.Backend) {
	case "logrus", "zerolog":
	default:
		return fmt.Errorf("invalid log.backend: %q", c.Log.Backend)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	return nil
}
