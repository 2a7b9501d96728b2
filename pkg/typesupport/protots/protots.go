// Package protots is the protobuf type support. Payloads are proto.Message
// values: generated messages, or dynamic messages built from .proto source.
package protots

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/f0mster/reqrep/internal/protoparse"
	"github.com/f0mster/reqrep/pkg/typesupport"
)

type Message struct {
	desc protoreflect.MessageDescriptor
	meta string
	hash typesupport.TypeHash
}

var _ typesupport.MessageTypeSupport = (*Message)(nil)

func NewMessage(desc protoreflect.MessageDescriptor) *Message {
	meta := describe(desc)
	return &Message{desc: desc, meta: meta, hash: typesupport.HashOf(meta)}
}

func (m *Message) Namespace() string {
	return string(m.desc.ParentFile().Package())
}

func (m *Message) Name() string {
	return string(m.desc.Name())
}

func (m *Message) MetaString() string {
	return m.meta
}

func (m *Message) TypeHash() typesupport.TypeHash {
	return m.hash
}

func (m *Message) Descriptor() protoreflect.MessageDescriptor {
	return m.desc
}

func (m *Message) New() any {
	return dynamicpb.NewMessage(m.desc)
}

func (m *Message) check(v any) (proto.Message, error) {
	msg, ok := v.(proto.Message)
	if !ok || msg == nil {
		return nil, fmt.Errorf("%w: %T is not a proto.Message", typesupport.ErrWrongType, v)
	}
	if got := msg.ProtoReflect().Descriptor().FullName(); got != m.desc.FullName() {
		return nil, fmt.Errorf("%w: %s, expected %s", typesupport.ErrWrongType, got, m.desc.FullName())
	}
	return msg, nil
}

func (m *Message) Serialize(in any) ([]byte, error) {
	msg, err := m.check(in)
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(msg)
}

func (m *Message) Deserialize(data []byte, out any) error {
	msg, err := m.check(out)
	if err != nil {
		return err
	}
	return proto.Unmarshal(data, msg)
}

type Service struct {
	req  *Message
	resp *Message
}

var _ typesupport.ServiceTypeSupport = (*Service)(nil)

func (s *Service) Identifier() string                       { return typesupport.ProtoIdentifier }
func (s *Service) Request() typesupport.MessageTypeSupport  { return s.req }
func (s *Service) Response() typesupport.MessageTypeSupport { return s.resp }

// New builds a service type support from the request and response descriptors.
func New(req, resp protoreflect.MessageDescriptor) *Service {
	return &Service{req: NewMessage(req), resp: NewMessage(resp)}
}

// FromMessages builds a service type support from two message values, e.g.
// generated message types.
func FromMessages(req, resp proto.Message) *Service {
	return New(req.ProtoReflect().Descriptor(), resp.ProtoReflect().Descriptor())
}

// Load parses .proto source and returns the type support of method rpc of
// service svc.
func Load(r io.Reader, filename, svc, rpc string) (*Service, error) {
	fd, err := protoparse.Parse(r, filename)
	if err != nil {
		return nil, err
	}
	sd := fd.Services().ByName(protoreflect.Name(svc))
	if sd == nil {
		return nil, fmt.Errorf("%s: service %s not found", filename, svc)
	}
	md := sd.Methods().ByName(protoreflect.Name(rpc))
	if md == nil {
		return nil, fmt.Errorf("%s: rpc %s.%s not found", filename, svc, rpc)
	}
	return New(md.Input(), md.Output()), nil
}

// describe renders the message layout one field per line. Field order follows
// field numbers so equal layouts give equal strings.
func describe(md protoreflect.MessageDescriptor) string {
	sb := strings.Builder{}
	seen := map[protoreflect.FullName]bool{}
	describeInto(&sb, md, seen)
	return sb.String()
}

func describeInto(sb *strings.Builder, md protoreflect.MessageDescriptor, seen map[protoreflect.FullName]bool) {
	if seen[md.FullName()] {
		return
	}
	seen[md.FullName()] = true
	fmt.Fprintf(sb, "message %s {\n", md.FullName())
	fields := md.Fields()
	ordered := make([]protoreflect.FieldDescriptor, fields.Len())
	for i := range ordered {
		ordered[i] = fields.Get(i)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Number() < ordered[j].Number() })
	var nested []protoreflect.MessageDescriptor
	for _, f := range ordered {
		label := ""
		if f.Cardinality() == protoreflect.Repeated {
			label = "repeated "
		}
		typ := f.Kind().String()
		switch f.Kind() {
		case protoreflect.MessageKind, protoreflect.GroupKind:
			typ = string(f.Message().FullName())
			nested = append(nested, f.Message())
		case protoreflect.EnumKind:
			typ = string(f.Enum().FullName())
		}
		fmt.Fprintf(sb, "  %s%s %s = %d;\n", label, typ, f.Name(), f.Number())
	}
	sb.WriteString("}\n")
	for _, n := range nested {
		describeInto(sb, n, seen)
	}
}
