package service

import (
	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/identity"
	"github.com/f0mster/reqrep/pkg/transport"
)

// TakeRequest takes at most one request without blocking and deserializes it
// into out. taken is false, with out untouched, when nothing valid was waiting.
func (s *Service) TakeRequest(out any) (header RequestHeader, taken bool, err error) {
	if out == nil {
		return RequestHeader{}, false, errs.New(errs.InvalidArgument, "ros request is nil")
	}
	if err := s.ep.live(); err != nil {
		return RequestHeader{}, false, err
	}
	taken, err = s.ep.take(func(data []byte, info transport.SampleInfoEx) error {
		id, err := s.ep.variant.DecodeRequest(s.ep.readMsg, data, info, out)
		if err != nil {
			return err
		}
		header = RequestHeader{
			RequestID:         id,
			SourceTimestamp:   identity.Nanoseconds(info.SourceTimestamp),
			ReceivedTimestamp: identity.Nanoseconds(info.ReceptionTimestamp),
		}
		return nil
	})
	if err != nil || !taken {
		return RequestHeader{}, false, err
	}
	return header, true, nil
}
