package service

import (
	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/qos"
)

// ResponsePublisherQoS reads back the QoS the transport applied to the
// response writer.
func (s *Service) ResponsePublisherQoS() (qos.Profile, error) {
	if err := s.ep.live(); err != nil {
		return qos.Profile{}, err
	}
	wq, err := s.ep.writer.QoS()
	if err != nil {
		return qos.Profile{}, errs.Wrap(errs.TransportError, err, "failed to get writer qos")
	}
	return qos.FromWriter(wq), nil
}

// RequestSubscriptionQoS reads back the QoS the transport applied to the
// request reader.
func (s *Service) RequestSubscriptionQoS() (qos.Profile, error) {
	if err := s.ep.live(); err != nil {
		return qos.Profile{}, err
	}
	rq, err := s.ep.reader.QoS()
	if err != nil {
		return qos.Profile{}, errs.Wrap(errs.TransportError, err, "failed to get reader qos")
	}
	return qos.FromReader(rq), nil
}
