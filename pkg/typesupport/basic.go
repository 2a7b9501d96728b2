package typesupport

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// BasicHeader is the correlation data the basic mapping carries in front of
// every serialized body.
type BasicHeader struct {
	GUID    [16]byte
	SeqHigh int32
	SeqLow  uint32
}

const (
	fieldGUID    protowire.Number = 1
	fieldSeqHigh protowire.Number = 2
	fieldSeqLow  protowire.Number = 3
	fieldBody    protowire.Number = 4
)

// EncodeBasicHeader prefixes body with h.
func EncodeBasicHeader(h BasicHeader, body []byte) []byte {
	b := make([]byte, 0, len(body)+48)
	b = protowire.AppendTag(b, fieldGUID, protowire.BytesType)
	b = protowire.AppendBytes(b, h.GUID[:])
	b = protowire.AppendTag(b, fieldSeqHigh, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, uint32(h.SeqHigh))
	b = protowire.AppendTag(b, fieldSeqLow, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, h.SeqLow)
	b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
	b = protowire.AppendBytes(b, body)
	return b
}

// DecodeBasicHeader splits data into its correlation header and body. The body
// aliases data.
func DecodeBasicHeader(data []byte) (BasicHeader, []byte, error) {
	var (
		h    BasicHeader
		body []byte
		seen = map[protowire.Number]bool{}
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return BasicHeader{}, nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch {
		case num == fieldGUID && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return BasicHeader{}, nil, protowire.ParseError(m)
			}
			if len(v) != len(h.GUID) {
				return BasicHeader{}, nil, fmt.Errorf("caller identity has %d bytes", len(v))
			}
			copy(h.GUID[:], v)
			n = m
		case num == fieldSeqHigh && typ == protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(data)
			if m < 0 {
				return BasicHeader{}, nil, protowire.ParseError(m)
			}
			h.SeqHigh = int32(v)
			n = m
		case num == fieldSeqLow && typ == protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(data)
			if m < 0 {
				return BasicHeader{}, nil, protowire.ParseError(m)
			}
			h.SeqLow = v
			n = m
		case num == fieldBody && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return BasicHeader{}, nil, protowire.ParseError(m)
			}
			body = v
			n = m
		default:
			return BasicHeader{}, nil, fmt.Errorf("unexpected field %d of wire type %d", num, typ)
		}
		seen[num] = true
		data = data[n:]
	}
	for _, num := range []protowire.Number{fieldGUID, fieldSeqHigh, fieldSeqLow, fieldBody} {
		if !seen[num] {
			return BasicHeader{}, nil, ErrShortHeader
		}
	}
	return h, body, nil
}
