package service

import (
	"sync"

	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/transport"
)

// Callback is told how many samples wait to be taken.
type Callback func(userData any, count int)

// gate delivers data-available events of one reader to at most one callback.
// Callbacks run with the gate locked and must not change the callback.
type gate struct {
	mu       sync.Mutex
	reader   transport.Reader
	cond     transport.ReadCondition
	listener *transport.ReaderListener
	cb       Callback
	userData any
}

func newGate(reader transport.Reader, cond transport.ReadCondition) *gate {
	g := &gate{reader: reader, cond: cond}
	g.listener = &transport.ReaderListener{
		OnDataAvailable: func(transport.Reader) { g.dispatch() },
	}
	return g
}

// install attaches the listener with no status enabled.
func (g *gate) install() error {
	return g.reader.SetListener(g.listener, 0)
}

func (g *gate) set(cb Callback, userData any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n := g.cond.UnreadCount(); n > 0 {
		cb(userData, n)
	}
	g.cb, g.userData = cb, userData
	if err := g.reader.SetListener(g.listener, transport.DataAvailableStatus); err != nil {
		return errs.Wrap(errs.TransportError, err, "failed to enable data available status")
	}
	return nil
}

func (g *gate) clear() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cb, g.userData = nil, nil
	if err := g.reader.SetListener(g.listener, 0); err != nil {
		return errs.Wrap(errs.TransportError, err, "failed to disable data available status")
	}
	return nil
}

// detach removes the listener from the reader for good.
func (g *gate) detach() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cb, g.userData = nil, nil
	return g.reader.SetListener(nil, 0)
}

func (g *gate) dispatch() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cb == nil {
		return
	}
	g.cb(g.userData, g.cond.UnreadCount())
}
