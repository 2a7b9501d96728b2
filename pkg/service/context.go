package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/f0mster/reqrep/interfaces/logger"
	"github.com/f0mster/reqrep/pkg/errs"
	logger2 "github.com/f0mster/reqrep/pkg/interfaces/logger"
	"github.com/f0mster/reqrep/pkg/names"
	"github.com/f0mster/reqrep/pkg/registry"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/typesupport"
	"github.com/f0mster/reqrep/pkg/wire"
)

// DefaultTopicWait bounds how long an existing topic is looked up.
const DefaultTopicWait = time.Millisecond

// Discovery is told about every service endpoint that comes and goes.
type Discovery interface {
	OnServiceCreated(e registry.Endpoint) error
	OnServiceDeleted(e registry.Endpoint) error
	OnClientCreated(e registry.Endpoint) error
	OnClientDeleted(e registry.Endpoint) error
}

type Config struct {
	Participant transport.Participant
	Discovery   Discovery
	// ServiceMapping selects how correlation data travels: "basic" (default)
	// or "enhanced".
	ServiceMapping string
	// TypeSupportPreference is the identifier order type supports are
	// resolved in.
	TypeSupportPreference []string
	TopicWait             time.Duration
	Logger                logger.Logger
}

// Node owns service endpoints. Name and Namespace are used to expand relative
// service names.
type Node struct {
	Name      string
	Namespace string
}

func (n *Node) FQN() string {
	return names.Join(n.Namespace, n.Name)
}

func (n *Node) validate() error {
	if reason := names.ValidateNodeName(n.Name); reason != "" {
		return errs.New(errs.InvalidArgument, reason)
	}
	if reason := names.ValidateNamespace(n.Namespace); reason != "" {
		return errs.New(errs.InvalidArgument, reason)
	}
	return nil
}

// Context binds endpoints to one participant and one wire variant.
type Context struct {
	config  *Config
	variant wire.Variant
	// endpointMu serializes endpoint creation and destruction.
	endpointMu sync.Mutex
}

func NewContext(config Config) (*Context, error) {
	c := &Context{config: &config}
	if err := c.checkConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Context) checkConfig() error {
	if c.config == nil {
		return fmt.Errorf("you must use NewContext constructor")
	}
	if c.config.Participant == nil {
		return errs.New(errs.InvalidArgument, "participant must be set")
	}
	if c.config.Discovery == nil {
		return errs.New(errs.InvalidArgument, "discovery must be set")
	}
	if c.variant == nil {
		v, err := wire.ByName(c.config.ServiceMapping)
		if err != nil {
			return err
		}
		if v.NeedsSampleIdentity() && !c.config.Participant.SupportsSampleIdentity() {
			return errs.Newf(errs.InvalidArgument, "%s service mapping needs a transport with sample identity", v.Name())
		}
		c.variant = v
	}
	if len(c.config.TypeSupportPreference) == 0 {
		c.config.TypeSupportPreference = typesupport.DefaultPreference
	}
	if c.config.TopicWait <= 0 {
		c.config.TopicWait = DefaultTopicWait
	}
	if c.config.Logger == nil {
		c.config.Logger = logger2.New()
	}
	return nil
}

func (c *Context) Variant() wire.Variant {
	return c.variant
}

func (c *Context) Participant() transport.Participant {
	return c.config.Participant
}
