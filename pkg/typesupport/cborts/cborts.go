// Package cborts is the CBOR type support for plain Go struct payloads.
package cborts

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/f0mster/reqrep/pkg/typesupport"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

type Message[T any] struct {
	namespace string
	name      string
	meta      string
	hash      typesupport.TypeHash
}

var _ typesupport.MessageTypeSupport = (*Message[struct{}])(nil)

// NewMessage describes T as message name inside namespace.
func NewMessage[T any](namespace, name string) *Message[T] {
	meta := describe(reflect.TypeOf((*T)(nil)).Elem(), namespace, name)
	return &Message[T]{
		namespace: namespace,
		name:      name,
		meta:      meta,
		hash:      typesupport.HashOf(meta),
	}
}

func (m *Message[T]) Namespace() string              { return m.namespace }
func (m *Message[T]) Name() string                   { return m.name }
func (m *Message[T]) MetaString() string             { return m.meta }
func (m *Message[T]) TypeHash() typesupport.TypeHash { return m.hash }

func (m *Message[T]) New() any {
	return new(T)
}

func (m *Message[T]) Serialize(in any) ([]byte, error) {
	switch v := in.(type) {
	case T:
		return encMode.Marshal(v)
	case *T:
		if v == nil {
			return nil, fmt.Errorf("%w: nil %T", typesupport.ErrWrongType, in)
		}
		return encMode.Marshal(*v)
	default:
		return nil, fmt.Errorf("%w: %T", typesupport.ErrWrongType, in)
	}
}

func (m *Message[T]) Deserialize(data []byte, out any) error {
	v, ok := out.(*T)
	if !ok || v == nil {
		return fmt.Errorf("%w: %T", typesupport.ErrWrongType, out)
	}
	return decMode.Unmarshal(data, v)
}

type Service[Req, Resp any] struct {
	req  *Message[Req]
	resp *Message[Resp]
}

// New returns the type support of service name in namespace, whose request
// and response payloads are Req and Resp. The messages are named
// name_Request and name_Response.
func New[Req, Resp any](namespace, name string) *Service[Req, Resp] {
	return &Service[Req, Resp]{
		req:  NewMessage[Req](namespace, name+"_Request"),
		resp: NewMessage[Resp](namespace, name+"_Response"),
	}
}

func (s *Service[Req, Resp]) Identifier() string                       { return typesupport.CBORIdentifier }
func (s *Service[Req, Resp]) Request() typesupport.MessageTypeSupport  { return s.req }
func (s *Service[Req, Resp]) Response() typesupport.MessageTypeSupport { return s.resp }

func describe(t reflect.Type, namespace, name string) string {
	sb := strings.Builder{}
	fmt.Fprintf(&sb, "struct %s/%s {\n", namespace, name)
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			key := f.Name
			if tag, ok := f.Tag.Lookup("cbor"); ok {
				if n := strings.Split(tag, ",")[0]; n != "" {
					key = n
				}
			}
			fmt.Fprintf(&sb, "  %s %s;\n", f.Type, key)
		}
	} else {
		fmt.Fprintf(&sb, "  %s value;\n", t)
	}
	sb.WriteString("}\n")
	return sb.String()
}
