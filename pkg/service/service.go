// Package service implements request/response endpoints on top of a
// publish/subscribe transport. A server reads requests from "rq<name>Request"
// and answers on "rr<name>Reply", echoing the caller identity and sequence
// number of every request.
package service

import (
	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/identity"
	"github.com/f0mster/reqrep/pkg/qos"
	"github.com/f0mster/reqrep/pkg/registry"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/typesupport"
)

// RequestHeader is the correlation data of a taken request. Timestamps are
// nanoseconds since the epoch.
type RequestHeader struct {
	RequestID         identity.RequestID
	SourceTimestamp   int64
	ReceivedTimestamp int64
}

type Service struct {
	ep *endpoint
}

// CreateService creates a server for serviceName. Everything allocated on the
// way is released again when creation fails.
func (c *Context) CreateService(node *Node, handles typesupport.ServiceHandles, serviceName string, profile *qos.Profile) (*Service, error) {
	ep, err := c.createEndpoint(registry.RoleServer, node, handles, serviceName, profile)
	if err != nil {
		return nil, err
	}
	return &Service{ep: ep}, nil
}

// DestroyService deletes the server's writer, read condition and reader and
// unregisters it. Destroying twice is a no-op.
func (c *Context) DestroyService(node *Node, svc *Service) error {
	if node == nil {
		return errs.New(errs.InvalidArgument, "node is nil")
	}
	if svc == nil {
		return errs.New(errs.InvalidArgument, "service is nil")
	}
	if svc.ep == nil {
		return nil
	}
	if svc.ep.ctx != c {
		return errs.New(errs.InvalidArgument, "service belongs to another context")
	}
	return c.destroyEndpoint(svc.ep)
}

func (s *Service) Name() string {
	return s.ep.name
}

func (s *Service) TypeSupport() typesupport.ServiceTypeSupport {
	return s.ep.ts
}

// ReaderGID is the subscriber identity of the request reader.
func (s *Service) ReaderGID() identity.GID {
	return s.ep.readerGID
}

// WriterGID is the publisher identity of the response writer.
func (s *Service) WriterGID() identity.GID {
	return s.ep.writerGID
}

func (s *Service) RequestTopic() string {
	return s.ep.info.RequestTopic
}

func (s *Service) ResponseTopic() string {
	return s.ep.info.ResponseTopic
}

// Reader and Writer expose the underlying transport endpoints; nil once the
// service is destroyed.
func (s *Service) Reader() transport.Reader {
	return s.ep.reader
}

func (s *Service) Writer() transport.Writer {
	return s.ep.writer
}
