package service

import (
	"errors"

	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/identity"
	"github.com/f0mster/reqrep/pkg/names"
	"github.com/f0mster/reqrep/pkg/qos"
	"github.com/f0mster/reqrep/pkg/registry"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/typesupport"
	"github.com/f0mster/reqrep/pkg/wire"
)

// takeDepth is how many samples one take borrows.
const takeDepth = 1

// endpoint is the reader/writer pair shared by servers and clients. Servers
// read requests and write responses, clients the other way around.
type endpoint struct {
	ctx     *Context
	role    registry.Role
	name    string
	ts      typesupport.ServiceTypeSupport
	variant wire.Variant

	readMsg  typesupport.MessageTypeSupport
	writeMsg typesupport.MessageTypeSupport

	reader    transport.Reader
	writer    transport.Writer
	cond      transport.ReadCondition
	gate      *gate
	loanCap   int
	readerGID identity.GID
	writerGID identity.GID
	info      registry.Endpoint
}

func (c *Context) createEndpoint(role registry.Role, node *Node, handles typesupport.ServiceHandles, serviceName string, profile *qos.Profile) (*endpoint, error) {
	switch {
	case node == nil:
		return nil, errs.New(errs.InvalidArgument, "node is nil")
	case handles == nil:
		return nil, errs.New(errs.InvalidArgument, "type support is nil")
	case serviceName == "":
		return nil, errs.New(errs.InvalidArgument, "service name is empty")
	case profile == nil:
		return nil, errs.New(errs.InvalidArgument, "qos profile is nil")
	}
	if err := node.validate(); err != nil {
		return nil, err
	}
	ts, err := typesupport.Resolve(handles, c.config.TypeSupportPreference)
	if err != nil {
		return nil, errs.Wrap(errs.TypeSupportUnavailable, err, "type support not from this implementation")
	}

	c.endpointMu.Lock()
	defer c.endpointMu.Unlock()

	adapted := qos.AdaptForServices(*profile)
	avoid := adapted.AvoidROSNamespaceConventions
	fullName := names.Expand(serviceName, node.Name, node.Namespace)
	if !avoid {
		if reason := names.ValidateFullTopicName(fullName); reason != "" {
			return nil, errs.Newf(errs.InvalidName, "service name is invalid: %s", reason)
		}
	}

	reqType, respType, err := names.ServiceTypeNames(ts)
	if err != nil {
		return nil, errs.Wrap(errs.NameDerivationFailed, err, "failed to create type names")
	}
	reqMeta, respMeta, err := names.ServiceMetaStrings(ts)
	if err != nil {
		return nil, errs.Wrap(errs.NameDerivationFailed, err, "failed to create meta strings")
	}
	reqTopic := names.RequestTopic(fullName, avoid)
	respTopic := names.ReplyTopic(fullName, avoid)

	ep := &endpoint{ctx: c, role: role, name: fullName, ts: ts, variant: c.variant}
	readTopic, readType, writeTopic, writeType := reqTopic, reqType, respTopic, respType
	ep.readMsg, ep.writeMsg = ts.Request(), ts.Response()
	if role == registry.RoleClient {
		readTopic, readType, writeTopic, writeType = respTopic, respType, reqTopic, reqType
		ep.readMsg, ep.writeMsg = ts.Response(), ts.Request()
	}

	p := c.config.Participant
	log := c.config.Logger
	rb := &rollback{}
	fail := func(err error) (*endpoint, error) {
		rb.run(log, fullName)
		return nil, err
	}

	reqHandle, err := p.RegisterType(reqType, reqMeta)
	if err != nil {
		return fail(errs.Wrap(errs.TransportError, err, "failed to register request type"))
	}
	rb.push("request type", func() error { reqHandle.Release(); return nil })
	respHandle, err := p.RegisterType(respType, respMeta)
	if err != nil {
		return fail(errs.Wrap(errs.TransportError, err, "failed to register response type"))
	}
	rb.push("response type", func() error { respHandle.Release(); return nil })

	rt, err := c.topicFor(readTopic, readType)
	if err != nil {
		return fail(err)
	}
	rb.push(readTopic, func() error { return p.DeleteTopic(rt) })
	wt, err := c.topicFor(writeTopic, writeType)
	if err != nil {
		return fail(err)
	}
	rb.push(writeTopic, func() error { return p.DeleteTopic(wt) })

	rq, err := qos.ReaderQoS(adapted, ep.readMsg.TypeHash())
	if err != nil {
		return fail(errs.Wrap(errs.QosRejected, err, "failed to create reader qos"))
	}
	ep.reader, err = p.CreateReader(rt, rq)
	if err != nil {
		return fail(errs.Wrap(errs.TransportError, err, "failed to create reader"))
	}
	rb.push("reader", func() error { return p.DeleteReader(ep.reader) })
	ep.cond, err = ep.reader.CreateReadCondition(transport.AnyState)
	if err != nil {
		return fail(errs.Wrap(errs.TransportError, err, "failed to create read condition"))
	}
	rb.push("read condition", func() error { return ep.reader.DeleteReadCondition(ep.cond) })

	wq, err := qos.WriterQoS(adapted, ep.writeMsg.TypeHash())
	if err != nil {
		return fail(errs.Wrap(errs.QosRejected, err, "failed to create writer qos"))
	}
	ep.writer, err = p.CreateWriter(wt, wq)
	if err != nil {
		return fail(errs.Wrap(errs.TransportError, err, "failed to create writer"))
	}
	rb.push("writer", func() error { return p.DeleteWriter(ep.writer) })

	ep.loanCap = takeDepth

	ep.gate = newGate(ep.reader, ep.cond)
	if err := ep.gate.install(); err != nil {
		return fail(errs.Wrap(errs.TransportError, err, "failed to set reader listener"))
	}
	rb.push("listener", ep.gate.detach)

	ep.readerGID = identity.FromGUID(ep.reader.GUID())
	ep.writerGID = identity.FromGUID(ep.writer.GUID())
	ep.info = registry.Endpoint{
		Role:          role,
		Node:          node.FQN(),
		Service:       fullName,
		RequestTopic:  reqTopic,
		ResponseTopic: respTopic,
		RequestType:   reqType,
		ResponseType:  respType,
		ReaderGID:     ep.readerGID.String(),
		WriterGID:     ep.writerGID.String(),
	}
	if role == registry.RoleServer {
		ep.info.Id = registry.EndpointId(ep.info.ReaderGID)
		err = c.config.Discovery.OnServiceCreated(ep.info)
	} else {
		ep.info.Id = registry.EndpointId(ep.info.WriterGID)
		err = c.config.Discovery.OnClientCreated(ep.info)
	}
	if err != nil {
		return fail(errs.Wrap(errs.DiscoveryUpdateFailed, err, "failed to update graph"))
	}

	reqHandle.Release()
	respHandle.Release()
	log.Debug("created "+string(role)+" endpoint", fullName, readTopic)
	return ep, nil
}

// destroy tears the endpoint down in place. It stops at the first failure and
// can be called again to finish.
func (c *Context) destroyEndpoint(ep *endpoint) error {
	c.endpointMu.Lock()
	defer c.endpointMu.Unlock()
	if ep.reader == nil && ep.writer == nil {
		return nil
	}
	p := c.config.Participant

	if ep.writer != nil {
		if err := p.DeleteWriter(ep.writer); err != nil {
			return errs.Wrap(errs.TeardownFailed, err, "failed to delete writer")
		}
		ep.writer = nil
	}
	ep.loanCap = 0

	if ep.reader != nil {
		if ep.gate != nil {
			if err := ep.gate.detach(); err != nil {
				return errs.Wrap(errs.TeardownFailed, err, "failed to remove reader listener")
			}
			ep.gate = nil
		}
		if ep.cond != nil {
			if err := ep.reader.DeleteReadCondition(ep.cond); err != nil {
				return errs.Wrap(errs.TeardownFailed, err, "failed to delete read condition")
			}
			ep.cond = nil
		}
		if err := p.DeleteReader(ep.reader); err != nil {
			return errs.Wrap(errs.TeardownFailed, err, "failed to delete reader")
		}
		ep.reader = nil
	}

	var err error
	if ep.role == registry.RoleServer {
		err = c.config.Discovery.OnServiceDeleted(ep.info)
	} else {
		err = c.config.Discovery.OnClientDeleted(ep.info)
	}
	if err != nil {
		return errs.Wrap(errs.DiscoveryUpdateFailed, err, "failed to update graph")
	}
	c.config.Logger.Debug("destroyed "+string(ep.role)+" endpoint", ep.name, "")
	return nil
}

func (ep *endpoint) live() error {
	if ep == nil || ep.reader == nil || ep.writer == nil {
		return errs.New(errs.InvalidArgument, "endpoint is destroyed")
	}
	return nil
}

// take borrows one sample and hands it to decode. The loan is returned on
// every path.
func (ep *endpoint) take(decode func(data []byte, info transport.SampleInfoEx) error) (taken bool, err error) {
	loan, err := ep.reader.Take(ep.loanCap)
	if errors.Is(err, transport.ErrNoData) {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.TransportError, err, "failed to take sample")
	}
	defer func() {
		if rerr := ep.reader.ReturnLoan(loan); rerr != nil && err == nil {
			taken, err = false, errs.Wrap(errs.TransportError, rerr, "failed to return loan")
		}
	}()
	if loan.Len() == 0 || !loan.Infos[0].ValidData {
		return false, nil
	}
	if err := decode(loan.Data[0], loan.Infos[0]); err != nil {
		return false, err
	}
	return true, nil
}

func (ep *endpoint) write(data []byte, info *transport.SampleInfoEx) error {
	var err error
	if info == nil {
		err = ep.writer.Write(data)
	} else {
		err = ep.writer.WriteWithInfo(data, *info)
	}
	if err != nil {
		return errs.Wrap(errs.TransportError, err, "failed to publish")
	}
	return nil
}
