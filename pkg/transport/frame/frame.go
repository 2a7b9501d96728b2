// Package frame serializes one sample together with its sample info for
// transports that move opaque byte messages.
package frame

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/f0mster/reqrep/pkg/transport"
)

const (
	fieldPrefix   protowire.Number = 1
	fieldEntity   protowire.Number = 2
	fieldSeqHigh  protowire.Number = 3
	fieldSeqLow   protowire.Number = 4
	fieldSec      protowire.Number = 5
	fieldNanosec  protowire.Number = 6
	fieldValid    protowire.Number = 7
	fieldData     protowire.Number = 8
	fieldTypeName protowire.Number = 9
)

// Frame is a sample on the wire. TypeName lets receivers drop samples of a
// foreign type published on the same channel.
type Frame struct {
	TypeName string
	Info     transport.SampleInfoEx
	Data     []byte
}

func Marshal(f Frame) []byte {
	b := make([]byte, 0, len(f.Data)+len(f.TypeName)+64)
	b = protowire.AppendTag(b, fieldPrefix, protowire.BytesType)
	b = protowire.AppendBytes(b, f.Info.SrcGUID.Prefix[:])
	b = protowire.AppendTag(b, fieldEntity, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, f.Info.SrcGUID.EntityID)
	b = protowire.AppendTag(b, fieldSeqHigh, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, uint32(f.Info.Seq.High))
	b = protowire.AppendTag(b, fieldSeqLow, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, f.Info.Seq.Low)
	b = protowire.AppendTag(b, fieldSec, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, uint32(f.Info.SourceTimestamp.Sec))
	b = protowire.AppendTag(b, fieldNanosec, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, f.Info.SourceTimestamp.Nanosec)
	b = protowire.AppendTag(b, fieldValid, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(f.Info.ValidData))
	b = protowire.AppendTag(b, fieldTypeName, protowire.BytesType)
	b = protowire.AppendString(b, f.TypeName)
	if f.Data != nil {
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Data)
	}
	return b
}

// Unmarshal decodes b. Unknown fields are skipped so newer writers can add
// fields. The returned data aliases b.
func Unmarshal(b []byte) (Frame, error) {
	f := Frame{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Frame{}, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldPrefix && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return Frame{}, protowire.ParseError(m)
			}
			if len(v) != len(f.Info.SrcGUID.Prefix) {
				return Frame{}, fmt.Errorf("guid prefix has %d bytes", len(v))
			}
			copy(f.Info.SrcGUID.Prefix[:], v)
			n = m
		case typ == protowire.Fixed32Type && num >= fieldEntity && num <= fieldNanosec:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return Frame{}, protowire.ParseError(m)
			}
			switch num {
			case fieldEntity:
				f.Info.SrcGUID.EntityID = v
			case fieldSeqHigh:
				f.Info.Seq.High = int32(v)
			case fieldSeqLow:
				f.Info.Seq.Low = v
			case fieldSec:
				f.Info.SourceTimestamp.Sec = int32(v)
			case fieldNanosec:
				f.Info.SourceTimestamp.Nanosec = v
			}
			n = m
		case num == fieldValid && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return Frame{}, protowire.ParseError(m)
			}
			f.Info.ValidData = protowire.DecodeBool(v)
			n = m
		case num == fieldTypeName && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return Frame{}, protowire.ParseError(m)
			}
			f.TypeName = v
			n = m
		case num == fieldData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return Frame{}, protowire.ParseError(m)
			}
			f.Data = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Frame{}, protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return f, nil
}
