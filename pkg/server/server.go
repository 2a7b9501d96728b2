// Package server runs request handlers on top of service endpoints.
// A Server owns a set of runners; Start creates their endpoints and blocks
// until Stop tears them down again.
package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/f0mster/reqrep/interfaces/logger"
	logger2 "github.com/f0mster/reqrep/pkg/interfaces/logger"
	"github.com/f0mster/reqrep/pkg/service"
)

// HandlerWrap surrounds every handler call, e.g. for tracing or recovery.
type HandlerWrap func(ctx context.Context, serviceName string, handler func(ctx context.Context) error) error

type Server struct {
	services []runner
	config   *Config
	metrics  *Metrics
	started  int32
	mu       sync.Mutex
	runLock  chan bool
}

func NewServer(config Config) (*Server, error) {
	s := &Server{
		config:   &config,
		services: []runner{},
		runLock:  make(chan bool),
	}
	if err := s.checkConfig(); err != nil {
		return nil, err
	}
	metrics, err := NewMetrics(s.config.Metrics)
	if err != nil {
		return nil, err
	}
	s.metrics = metrics
	return s, nil
}

type runner interface {
	Start() error
	Stop() error
}

func (s *Server) checkConfig() error {
	if s.config == nil {
		return fmt.Errorf("you must use NewServer constructor")
	}
	if s.config.Context == nil {
		return fmt.Errorf("service context must be set")
	}
	if s.config.Node == nil {
		return fmt.Errorf("node must be set")
	}
	if s.config.Logger == nil {
		s.config.Logger = logger2.New()
	}
	if s.config.Metrics == nil {
		s.config.Metrics = prometheus.NewRegistry()
	}
	if s.config.Wrapper == nil {
		s.config.Wrapper = func(ctx context.Context, _ string, handler func(ctx context.Context) error) error {
			return handler(ctx)
		}
	}
	return nil
}

func (s *Server) GetConfig() (Config, error) {
	cfg := Config{}
	if s.config != nil {
		cfg = *s.config
	}
	return cfg, s.checkConfig()
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start brings every registered runner up and blocks until Stop.
func (s *Server) Start() error {
	if err := s.checkConfig(); err != nil {
		return err
	}

	if len(s.services) == 0 {
		return fmt.Errorf("no service registered")
	}
	if !atomic.CompareAndSwapInt32(&s.started, 0, 1) {
		return fmt.Errorf("server already started")
	}
	defer atomic.StoreInt32(&s.started, 0)
	if s.config.BeforeStart != nil {
		err := s.config.BeforeStart()
		if err != nil {
			return err
		}
		if atomic.LoadInt32(&s.started) == -1 {
			return nil
		}
	}
	s.mu.Lock()
	for i, si := range s.services {
		if err := si.Start(); err != nil {
			for j := i - 1; j >= 0; j-- {
				if e := s.services[j].Stop(); e != nil {
					s.config.Logger.Error(e, "can't stop runner", "", "", "")
				}
			}
			s.mu.Unlock()
			return err
		}
	}
	s.mu.Unlock()

	if !atomic.CompareAndSwapInt32(&s.started, 1, 2) {
		return nil
	}
	if s.config.AfterStart != nil {
		err := s.config.AfterStart()
		if err != nil {
			_ = s.Stop()
			return err
		}
	}
	if !atomic.CompareAndSwapInt32(&s.started, 2, 3) {
		_ = s.Stop()
		return nil
	}
	<-s.runLock
	return nil
}

func (s *Server) Stop() error {
	var err error
	old := atomic.SwapInt32(&s.started, -1)
	if old == 0 {
		atomic.StoreInt32(&s.started, 0)
		return fmt.Errorf("service wasn't started")
	}
	if old == -1 {
		return nil
	}
	if s.config.BeforeStop != nil {
		err = s.config.BeforeStop()
	}
	s.mu.Lock()
	for _, si := range s.services {
		if e := si.Stop(); e != nil && err == nil {
			err = e
		}
	}
	s.mu.Unlock()

	if old == 3 {
		s.runLock <- true
	}
	if err == nil && s.config.AfterStop != nil {
		err = s.config.AfterStop()
	}
	return err
}

func (s *Server) Register(sr runner) error {
	if s.services == nil {
		return fmt.Errorf("server must be created using NewServer")
	}
	if atomic.LoadInt32(&s.started) != 0 {
		return fmt.Errorf("server already started")
	}
	s.mu.Lock()
	s.services = append(s.services, sr)
	s.mu.Unlock()
	return nil
}

type Config struct {
	Context *service.Context
	Node    *service.Node
	Wrapper HandlerWrap
	Logger  logger.Logger
	// Metrics receives the server's collectors. A private registry is used
	// when nil.
	Metrics *prometheus.Registry

	// If any of these callback returns error - server will be stopped and no other callback will be called
	BeforeStart func() error
	BeforeStop  func() error
	AfterStart  func() error
	AfterStop   func() error
}
