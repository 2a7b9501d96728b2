package service

import (
	"context"
	"sync/atomic"

	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/identity"
	"github.com/f0mster/reqrep/pkg/qos"
	"github.com/f0mster/reqrep/pkg/registry"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/typesupport"
)

// Client sends requests to a service and takes the responses addressed to it.
type Client struct {
	ep  *endpoint
	seq int64
}

func (c *Context) CreateClient(node *Node, handles typesupport.ServiceHandles, serviceName string, profile *qos.Profile) (*Client, error) {
	ep, err := c.createEndpoint(registry.RoleClient, node, handles, serviceName, profile)
	if err != nil {
		return nil, err
	}
	return &Client{ep: ep}, nil
}

func (c *Context) DestroyClient(node *Node, cl *Client) error {
	if node == nil {
		return errs.New(errs.InvalidArgument, "node is nil")
	}
	if cl == nil {
		return errs.New(errs.InvalidArgument, "client is nil")
	}
	if cl.ep == nil {
		return nil
	}
	if cl.ep.ctx != c {
		return errs.New(errs.InvalidArgument, "client belongs to another context")
	}
	return c.destroyEndpoint(cl.ep)
}

func (cl *Client) Name() string {
	return cl.ep.name
}

// GID is the caller identity the client's requests carry.
func (cl *Client) GID() identity.GID {
	return cl.ep.writerGID
}

// SendRequest publishes in and returns its sequence number. Sequence numbers
// start at 1 and grow by one per request.
func (cl *Client) SendRequest(in any) (int64, error) {
	if in == nil {
		return 0, errs.New(errs.InvalidArgument, "ros request is nil")
	}
	if err := cl.ep.live(); err != nil {
		return 0, err
	}
	seq := atomic.AddInt64(&cl.seq, 1)
	id := identity.RequestID{WriterGUID: cl.ep.writerGID, SequenceNumber: seq}
	data, info, err := cl.ep.variant.EncodeRequest(cl.ep.writeMsg, id, in)
	if err != nil {
		return 0, err
	}
	if err := cl.ep.write(data, info); err != nil {
		return 0, err
	}
	return seq, nil
}

// TakeResponse takes the next response addressed to this client without
// blocking. Responses for other clients are dropped.
func (cl *Client) TakeResponse(out any) (header RequestHeader, taken bool, err error) {
	if out == nil {
		return RequestHeader{}, false, errs.New(errs.InvalidArgument, "ros response is nil")
	}
	if err := cl.ep.live(); err != nil {
		return RequestHeader{}, false, err
	}
	for {
		mine := false
		taken, err = cl.ep.take(func(data []byte, info transport.SampleInfoEx) error {
			id, err := cl.ep.variant.Peek(data, info)
			if err != nil {
				return err
			}
			if id.WriterGUID != cl.ep.writerGID {
				return nil
			}
			if _, err := cl.ep.variant.DecodeResponse(cl.ep.readMsg, data, info, out); err != nil {
				return err
			}
			mine = true
			header = RequestHeader{
				RequestID:         id,
				SourceTimestamp:   identity.Nanoseconds(info.SourceTimestamp),
				ReceivedTimestamp: identity.Nanoseconds(info.ReceptionTimestamp),
			}
			return nil
		})
		if err != nil {
			return RequestHeader{}, false, err
		}
		if mine {
			return header, true, nil
		}
		// the sample was invalid or for another client
		if !taken && cl.ep.cond.UnreadCount() == 0 {
			return RequestHeader{}, false, nil
		}
	}
}

// SetOnNewResponseCallback and ClearOnNewResponseCallback mirror the
// request callbacks of Service.
func (cl *Client) SetOnNewResponseCallback(cb Callback, userData any) error {
	if err := cl.ep.live(); err != nil {
		return err
	}
	if cb == nil {
		return cl.ep.gate.clear()
	}
	return cl.ep.gate.set(cb, userData)
}

func (cl *Client) ClearOnNewResponseCallback() error {
	if err := cl.ep.live(); err != nil {
		return err
	}
	return cl.ep.gate.clear()
}

// WaitForService blocks until a server for the client's service is known,
// when the context's discovery can tell.
func (cl *Client) WaitForService(ctx context.Context) error {
	w, ok := cl.ep.ctx.config.Discovery.(interface {
		WaitForServer(ctx context.Context, service string) error
	})
	if !ok {
		return errs.New(errs.InvalidArgument, "discovery cannot wait for servers")
	}
	return w.WaitForServer(ctx, cl.ep.name)
}

func (cl *Client) RequestPublisherQoS() (qos.Profile, error) {
	if err := cl.ep.live(); err != nil {
		return qos.Profile{}, err
	}
	wq, err := cl.ep.writer.QoS()
	if err != nil {
		return qos.Profile{}, errs.Wrap(errs.TransportError, err, "failed to get writer qos")
	}
	return qos.FromWriter(wq), nil
}

func (cl *Client) ResponseSubscriptionQoS() (qos.Profile, error) {
	if err := cl.ep.live(); err != nil {
		return qos.Profile{}, err
	}
	rq, err := cl.ep.reader.QoS()
	if err != nil {
		return qos.Profile{}, errs.Wrap(errs.TransportError, err, "failed to get reader qos")
	}
	return qos.FromReader(rq), nil
}
