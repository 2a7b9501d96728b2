package service

import (
	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/identity"
)

// SendResponse publishes in as the answer to the request identified by id.
func (s *Service) SendResponse(id identity.RequestID, in any) error {
	if in == nil {
		return errs.New(errs.InvalidArgument, "ros response is nil")
	}
	if err := s.ep.live(); err != nil {
		return err
	}
	data, info, err := s.ep.variant.EncodeResponse(s.ep.writeMsg, id, in)
	if err != nil {
		return err
	}
	return s.ep.write(data, info)
}

// SetOnNewRequestCallback switches the service to push mode. If requests are
// already waiting, cb is called once with their count before it returns.
func (s *Service) SetOnNewRequestCallback(cb Callback, userData any) error {
	if err := s.ep.live(); err != nil {
		return err
	}
	if cb == nil {
		return s.ep.gate.clear()
	}
	return s.ep.gate.set(cb, userData)
}

// ClearOnNewRequestCallback switches the service back to polling.
func (s *Service) ClearOnNewRequestCallback() error {
	if err := s.ep.live(); err != nil {
		return err
	}
	return s.ep.gate.clear()
}
