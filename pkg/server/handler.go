package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/f0mster/reqrep/pkg/qos"
	"github.com/f0mster/reqrep/pkg/service"
	"github.com/f0mster/reqrep/pkg/typesupport"
)

// HandlerFunc answers one request. req is a fresh value produced by the
// request type support; the returned value is serialized by the response one.
type HandlerFunc func(ctx context.Context, header service.RequestHeader, req any) (any, error)

type handlerRunner struct {
	s       *Server
	name    string
	handles typesupport.ServiceHandles
	profile qos.Profile
	handler HandlerFunc

	svc    *service.Service
	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Handle registers handler as the implementation of serviceName. The
// service endpoint is created when the server starts.
func (s *Server) Handle(serviceName string, handles typesupport.ServiceHandles, profile *qos.Profile, handler HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}
	p := qos.ServicesDefault
	if profile != nil {
		p = *profile
	}
	return s.Register(&handlerRunner{
		s:       s,
		name:    serviceName,
		handles: handles,
		profile: p,
		handler: handler,
	})
}

func (h *handlerRunner) Start() error {
	svc, err := h.s.config.Context.CreateService(h.s.config.Node, h.handles, h.name, &h.profile)
	if err != nil {
		return err
	}
	h.svc = svc
	h.wake = make(chan struct{}, 1)
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.wg.Add(1)
	go h.loop()
	if err := svc.SetOnNewRequestCallback(h.notify, nil); err != nil {
		h.stopLoop()
		_ = h.s.config.Context.DestroyService(h.s.config.Node, svc)
		return err
	}
	h.s.config.Logger.Info("service started ("+h.s.config.Context.Variant().Name()+" mapping)", svc.Name(), svc.RequestTopic())
	return nil
}

func (h *handlerRunner) notify(_ any, _ int) {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *handlerRunner) loop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.wake:
			h.drain()
		}
	}
}

func (h *handlerRunner) drain() {
	name := h.svc.Name()
	for h.ctx.Err() == nil {
		req := h.svc.TypeSupport().Request().New()
		header, taken, err := h.svc.TakeRequest(req)
		if err != nil {
			h.s.metrics.HandlerErrors.WithLabelValues(name).Inc()
			h.s.config.Logger.Error(err, "can't take request", name, h.svc.RequestTopic(), "")
			return
		}
		if !taken {
			return
		}
		h.s.metrics.RequestsTaken.WithLabelValues(name).Inc()

		var resp any
		err = h.s.config.Wrapper(h.ctx, name, func(ctx context.Context) (err error) {
			resp, err = h.handler(ctx, header, req)
			return err
		})
		if err != nil {
			h.s.metrics.HandlerErrors.WithLabelValues(name).Inc()
			h.s.config.Logger.Error(err, "handler failed", name, h.svc.RequestTopic(), header.RequestID.String())
			continue
		}
		if err := h.svc.SendResponse(header.RequestID, resp); err != nil {
			h.s.metrics.HandlerErrors.WithLabelValues(name).Inc()
			h.s.config.Logger.Error(err, "can't send response", name, h.svc.ResponseTopic(), header.RequestID.String())
			continue
		}
		h.s.metrics.ResponsesSent.WithLabelValues(name).Inc()
	}
}

func (h *handlerRunner) stopLoop() {
	h.cancel()
	h.wg.Wait()
}

func (h *handlerRunner) Stop() error {
	if h.svc == nil {
		return nil
	}
	if err := h.svc.ClearOnNewRequestCallback(); err != nil {
		h.s.config.Logger.Error(err, "can't clear request callback", h.svc.Name(), h.svc.RequestTopic(), "")
	}
	h.stopLoop()
	if err := h.s.config.Context.DestroyService(h.s.config.Node, h.svc); err != nil {
		return err
	}
	h.s.config.Logger.Info("service stopped", h.svc.Name(), h.svc.RequestTopic())
	h.svc = nil
	return nil
}
