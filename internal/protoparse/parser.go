// Package protoparse turns .proto source into a descriptor the protobuf runtime
// can build dynamic messages from. Only what service payloads need is supported:
// top-level messages with scalar, repeated and message-typed fields, enums, and
// unary rpcs.
package protoparse

import (
	"fmt"
	"io"
	"strings"

	"github.com/emicklei/proto"
	protobuf "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

var scalars = map[string]descriptorpb.FieldDescriptorProto_Type{
	"double":   descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	"float":    descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	"int64":    descriptorpb.FieldDescriptorProto_TYPE_INT64,
	"uint64":   descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	"int32":    descriptorpb.FieldDescriptorProto_TYPE_INT32,
	"fixed64":  descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
	"fixed32":  descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
	"bool":     descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	"string":   descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"bytes":    descriptorpb.FieldDescriptorProto_TYPE_BYTES,
	"uint32":   descriptorpb.FieldDescriptorProto_TYPE_UINT32,
	"sfixed32": descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
	"sfixed64": descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
	"sint32":   descriptorpb.FieldDescriptorProto_TYPE_SINT32,
	"sint64":   descriptorpb.FieldDescriptorProto_TYPE_SINT64,
}

type (
	Parser struct {
		Pkg      string
		Filename string
		// messages and enums in declaration order
		messages []*proto.Message
		enums    []*proto.Enum
		known    map[string]bool
		services []*descriptorpb.ServiceDescriptorProto
		errs     []error
	}
)

func NewParser(filename string) *Parser {
	return &Parser{
		Filename: filename,
		known:    map[string]bool{},
	}
}

// Parse reads one .proto file and returns its descriptor.
func Parse(r io.Reader, filename string) (protoreflect.FileDescriptor, error) {
	parser := proto.NewParser(r)
	parser.Filename(filename)
	definition, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("parser error: %w", err)
	}

	p := NewParser(filename)

	// step 1: collect package and type names
	proto.Walk(definition,
		proto.WithPackage(p.handlePackage),
		proto.WithMessage(p.handleMessage),
		proto.WithEnum(p.handleEnum),
		proto.WithImport(p.handleImport),
	)

	// step 2: services need every message name resolved
	proto.Walk(definition,
		proto.WithService(p.handleService),
	)
	if len(p.errs) > 0 {
		return nil, p.errs[0]
	}
	return p.build()
}

func (g *Parser) handlePackage(p *proto.Package) {
	g.Pkg = p.Name
}

func (g *Parser) handleImport(i *proto.Import) {
	g.errs = append(g.errs, fmt.Errorf("%s: imports are not supported (%s)", g.Filename, i.Filename))
}

func (g *Parser) handleMessage(m *proto.Message) {
	if _, top := m.Parent.(*proto.Proto); !top {
		g.errs = append(g.errs, fmt.Errorf("%s: nested message %s is not supported", g.Filename, m.Name))
		return
	}
	g.messages = append(g.messages, m)
	g.known[m.Name] = true
}

func (g *Parser) handleEnum(e *proto.Enum) {
	if _, top := e.Parent.(*proto.Proto); !top {
		g.errs = append(g.errs, fmt.Errorf("%s: nested enum %s is not supported", g.Filename, e.Name))
		return
	}
	g.enums = append(g.enums, e)
	g.known[e.Name] = true
}

func (g *Parser) handleService(s *proto.Service) {
	sd := &descriptorpb.ServiceDescriptorProto{Name: protobuf.String(s.Name)}
	for _, el := range s.Elements {
		rpc, ok := el.(*proto.RPC)
		if !ok {
			continue
		}
		if rpc.StreamsRequest || rpc.StreamsReturns {
			g.errs = append(g.errs, fmt.Errorf("%s: streaming rpc %s.%s is not supported", g.Filename, s.Name, rpc.Name))
			continue
		}
		for _, typ := range []string{rpc.RequestType, rpc.ReturnsType} {
			if !g.known[typ] {
				g.errs = append(g.errs, fmt.Errorf("%s: rpc %s.%s uses unknown message %s", g.Filename, s.Name, rpc.Name, typ))
			}
		}
		sd.Method = append(sd.Method, &descriptorpb.MethodDescriptorProto{
			Name:       protobuf.String(rpc.Name),
			InputType:  protobuf.String(g.qualify(rpc.RequestType)),
			OutputType: protobuf.String(g.qualify(rpc.ReturnsType)),
		})
	}
	g.services = append(g.services, sd)
}

func (g *Parser) qualify(name string) string {
	if g.Pkg == "" {
		return "." + name
	}
	return "." + g.Pkg + "." + name
}

func (g *Parser) field(f *proto.Field, repeated bool) (*descriptorpb.FieldDescriptorProto, error) {
	fd := &descriptorpb.FieldDescriptorProto{
		Name:     protobuf.String(f.Name),
		Number:   protobuf.Int32(int32(f.Sequence)),
		JsonName: protobuf.String(jsonName(f.Name)),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
	}
	if repeated {
		fd.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	}
	if t, ok := scalars[f.Type]; ok {
		fd.Type = t.Enum()
		return fd, nil
	}
	if !g.known[f.Type] {
		return nil, fmt.Errorf("%s: field %s has unknown type %s", g.Filename, f.Name, f.Type)
	}
	fd.TypeName = protobuf.String(g.qualify(f.Type))
	fd.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
	for _, e := range g.enums {
		if e.Name == f.Type {
			fd.Type = descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum()
		}
	}
	return fd, nil
}

func (g *Parser) build() (protoreflect.FileDescriptor, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:   protobuf.String(g.Filename),
		Syntax: protobuf.String("proto3"),
	}
	if g.Pkg != "" {
		fdp.Package = protobuf.String(g.Pkg)
	}
	for _, e := range g.enums {
		ed := &descriptorpb.EnumDescriptorProto{Name: protobuf.String(e.Name)}
		for _, el := range e.Elements {
			if v, ok := el.(*proto.EnumField); ok {
				ed.Value = append(ed.Value, &descriptorpb.EnumValueDescriptorProto{
					Name:   protobuf.String(v.Name),
					Number: protobuf.Int32(int32(v.Integer)),
				})
			}
		}
		fdp.EnumType = append(fdp.EnumType, ed)
	}
	for _, m := range g.messages {
		md := &descriptorpb.DescriptorProto{Name: protobuf.String(m.Name)}
		for _, el := range m.Elements {
			var (
				fd  *descriptorpb.FieldDescriptorProto
				err error
			)
			switch f := el.(type) {
			case *proto.NormalField:
				fd, err = g.field(f.Field, f.Repeated)
			case *proto.MapField, *proto.Oneof:
				err = fmt.Errorf("%s: message %s: maps and oneofs are not supported", g.Filename, m.Name)
			default:
				continue
			}
			if err != nil {
				return nil, err
			}
			md.Field = append(md.Field, fd)
		}
		fdp.MessageType = append(fdp.MessageType, md)
	}
	fdp.Service = g.services
	return protodesc.NewFile(fdp, protoregistry.GlobalFiles)
}

func jsonName(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
