package registry

import "errors"

// Do not call any of this methods directly or from client.
// Methods are called by the graph cache when endpoints are created and destroyed.

var (
	ErrAlreadyRegistered = errors.New("endpoint already registered")
	ErrNotRegistered     = errors.New("endpoint not registered")
)

type EndpointId string
type CancelFunc func()

type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// Endpoint describes one service server or client as seen by discovery.
type Endpoint struct {
	Id   EndpointId
	Role Role
	// Node is the fully qualified name of the owning node.
	Node          string
	Service       string
	RequestTopic  string
	ResponseTopic string
	RequestType   string
	ResponseType  string
	// ReaderGID and WriterGID are the hex caller identities of the endpoint's
	// reader and writer.
	ReaderGID string
	WriterGID string
}

type Registerer interface {
	Register(service string, e Endpoint) error
	Unregister(service string, id EndpointId) error
}

type Watcher interface {
	// WatchRegistered will call onchange for every registration until CancelFunc called.
	// Endpoints registered before the call are reported too.
	WatchRegistered(service string, onchange func(e Endpoint)) CancelFunc
	WatchUnregistered(service string, onchange func(e Endpoint)) CancelFunc
	// Endpoints enumerates registered endpoints by service.
	Endpoints(service string) map[EndpointId]Endpoint
	Services() []string
}

type Registry interface {
	Registerer
	Watcher
}
