// Package wire maps request/response correlation data onto samples. The basic
// mapping carries it in front of the serialized body, the enhanced mapping in
// the transport's per-sample identity.
package wire

import (
	"fmt"

	"github.com/f0mster/reqrep/pkg/errs"
	"github.com/f0mster/reqrep/pkg/identity"
	"github.com/f0mster/reqrep/pkg/transport"
	"github.com/f0mster/reqrep/pkg/typesupport"
)

const (
	BasicName    = "basic"
	EnhancedName = "enhanced"
)

// Variant encodes and decodes one sample of a service. Encoders return the
// sample identity the writer must publish with, or nil for a plain write.
type Variant interface {
	Name() string
	// NeedsSampleIdentity reports whether the transport must carry
	// SampleInfoEx.SrcGUID and Seq end to end.
	NeedsSampleIdentity() bool

	DecodeRequest(msg typesupport.MessageTypeSupport, data []byte, info transport.SampleInfoEx, out any) (identity.RequestID, error)
	EncodeResponse(msg typesupport.MessageTypeSupport, id identity.RequestID, in any) ([]byte, *transport.SampleInfoEx, error)

	EncodeRequest(msg typesupport.MessageTypeSupport, id identity.RequestID, in any) ([]byte, *transport.SampleInfoEx, error)
	DecodeResponse(msg typesupport.MessageTypeSupport, data []byte, info transport.SampleInfoEx, out any) (identity.RequestID, error)

	// Peek reads the correlation data of a sample without touching its body.
	Peek(data []byte, info transport.SampleInfoEx) (identity.RequestID, error)
}

// ByName returns the variant called name.
func ByName(name string) (Variant, error) {
	switch name {
	case BasicName, "":
		return Basic{}, nil
	case EnhancedName:
		return Enhanced{}, nil
	}
	return nil, errs.Newf(errs.InvalidArgument, "unknown service mapping %q", name)
}

func serialize(msg typesupport.MessageTypeSupport, in any) ([]byte, error) {
	body, err := msg.Serialize(in)
	if err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, err, fmt.Sprintf("failed to serialize %s", msg.Name()))
	}
	return body, nil
}

func deserialize(msg typesupport.MessageTypeSupport, body []byte, out any) error {
	if err := msg.Deserialize(body, out); err != nil {
		return errs.Wrap(errs.DeserializationFailed, err, fmt.Sprintf("failed to deserialize %s", msg.Name()))
	}
	return nil
}

type Basic struct{}

func (Basic) Name() string              { return BasicName }
func (Basic) NeedsSampleIdentity() bool { return false }

func (b Basic) encode(msg typesupport.MessageTypeSupport, id identity.RequestID, in any) ([]byte, *transport.SampleInfoEx, error) {
	body, err := serialize(msg, in)
	if err != nil {
		return nil, nil, err
	}
	h := typesupport.BasicHeader{GUID: id.WriterGUID}
	h.SeqHigh, h.SeqLow = identity.SplitSequence(id.SequenceNumber)
	return typesupport.EncodeBasicHeader(h, body), nil, nil
}

func (b Basic) header(data []byte) (identity.RequestID, []byte, error) {
	h, body, err := typesupport.DecodeBasicHeader(data)
	if err != nil {
		return identity.RequestID{}, nil, errs.Wrap(errs.DeserializationFailed, err, "failed to decode correlation header")
	}
	return identity.RequestID{
		WriterGUID:     h.GUID,
		SequenceNumber: identity.JoinSequence(h.SeqHigh, h.SeqLow),
	}, body, nil
}

func (b Basic) decode(msg typesupport.MessageTypeSupport, data []byte, out any) (identity.RequestID, error) {
	id, body, err := b.header(data)
	if err != nil {
		return identity.RequestID{}, err
	}
	if err := deserialize(msg, body, out); err != nil {
		return identity.RequestID{}, err
	}
	return id, nil
}

func (b Basic) Peek(data []byte, _ transport.SampleInfoEx) (identity.RequestID, error) {
	id, _, err := b.header(data)
	return id, err
}

func (b Basic) DecodeRequest(msg typesupport.MessageTypeSupport, data []byte, _ transport.SampleInfoEx, out any) (identity.RequestID, error) {
	return b.decode(msg, data, out)
}

func (b Basic) EncodeResponse(msg typesupport.MessageTypeSupport, id identity.RequestID, in any) ([]byte, *transport.SampleInfoEx, error) {
	return b.encode(msg, id, in)
}

func (b Basic) EncodeRequest(msg typesupport.MessageTypeSupport, id identity.RequestID, in any) ([]byte, *transport.SampleInfoEx, error) {
	return b.encode(msg, id, in)
}

func (b Basic) DecodeResponse(msg typesupport.MessageTypeSupport, data []byte, _ transport.SampleInfoEx, out any) (identity.RequestID, error) {
	return b.decode(msg, data, out)
}

type Enhanced struct{}

func (Enhanced) Name() string              { return EnhancedName }
func (Enhanced) NeedsSampleIdentity() bool { return true }

func (e Enhanced) encode(msg typesupport.MessageTypeSupport, id identity.RequestID, in any) ([]byte, *transport.SampleInfoEx, error) {
	body, err := serialize(msg, in)
	if err != nil {
		return nil, nil, err
	}
	info := &transport.SampleInfoEx{
		SrcGUID: identity.ToGUID(id.WriterGUID),
		Seq:     identity.ToSequenceNumber(id.SequenceNumber),
	}
	return body, info, nil
}

func (e Enhanced) decode(msg typesupport.MessageTypeSupport, data []byte, info transport.SampleInfoEx, out any) (identity.RequestID, error) {
	if err := deserialize(msg, data, out); err != nil {
		return identity.RequestID{}, err
	}
	return e.Peek(data, info)
}

func (e Enhanced) Peek(_ []byte, info transport.SampleInfoEx) (identity.RequestID, error) {
	return identity.RequestID{
		WriterGUID:     identity.FromGUID(info.SrcGUID),
		SequenceNumber: identity.FromSequenceNumber(info.Seq),
	}, nil
}

func (e Enhanced) DecodeRequest(msg typesupport.MessageTypeSupport, data []byte, info transport.SampleInfoEx, out any) (identity.RequestID, error) {
	return e.decode(msg, data, info, out)
}

func (e Enhanced) EncodeResponse(msg typesupport.MessageTypeSupport, id identity.RequestID, in any) ([]byte, *transport.SampleInfoEx, error) {
	return e.encode(msg, id, in)
}

func (e Enhanced) EncodeRequest(msg typesupport.MessageTypeSupport, id identity.RequestID, in any) ([]byte, *transport.SampleInfoEx, error) {
	return e.encode(msg, id, in)
}

func (e Enhanced) DecodeResponse(msg typesupport.MessageTypeSupport, data []byte, info transport.SampleInfoEx, out any) (identity.RequestID, error) {
	return e.decode(msg, data, info, out)
}
