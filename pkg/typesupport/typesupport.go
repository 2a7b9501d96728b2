// Package typesupport describes how request and response payloads of a service
// are named, described and (de)serialized.
package typesupport

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Identifiers of the serialization backends shipped with this module, in the
// default preference order.
const (
	ProtoIdentifier = "reqrep_proto"
	CBORIdentifier  = "reqrep_cbor"
)

var DefaultPreference = []string{ProtoIdentifier, CBORIdentifier}

var (
	ErrWrongType   = errors.New("payload has the wrong type")
	ErrNoHandle    = errors.New("no type support for any known identifier")
	ErrShortHeader = errors.New("correlation header is incomplete")
)

// TypeHash identifies a message definition independently of its name.
type TypeHash [sha256.Size]byte

func (h TypeHash) String() string {
	return "RIHS01_" + hex.EncodeToString(h[:])
}

// HashOf derives the type hash of a message from its meta string.
func HashOf(metaString string) TypeHash {
	return sha256.Sum256([]byte(metaString))
}

type MessageTypeSupport interface {
	// Namespace is the package part of the type name, dot or slash separated,
	// e.g. "example_interfaces.srv".
	Namespace() string
	// Name is the message name inside Namespace, e.g. "AddTwoInts_Request".
	Name() string
	// MetaString is a textual, stable description of the message layout.
	MetaString() string
	TypeHash() TypeHash
	// New returns a fresh payload value that Deserialize accepts.
	New() any
	Serialize(in any) ([]byte, error)
	Deserialize(data []byte, out any) error
}

type ServiceTypeSupport interface {
	Identifier() string
	Request() MessageTypeSupport
	Response() MessageTypeSupport
}

// ServiceHandles is the set of type supports a service type was built with,
// one per serialization backend.
type ServiceHandles interface {
	Handle(identifier string) (ServiceTypeSupport, bool)
}

// Handles is the simplest ServiceHandles: a map keyed by identifier.
type Handles map[string]ServiceTypeSupport

func (h Handles) Handle(identifier string) (ServiceTypeSupport, bool) {
	ts, ok := h[identifier]
	return ts, ok
}

// Bundle collects type supports under their own identifiers.
func Bundle(supports ...ServiceTypeSupport) Handles {
	h := Handles{}
	for _, ts := range supports {
		h[ts.Identifier()] = ts
	}
	return h
}

// Resolve returns the first type support found in preference order.
func Resolve(h ServiceHandles, preference []string) (ServiceTypeSupport, error) {
	if h == nil {
		return nil, ErrNoHandle
	}
	for _, id := range preference {
		if ts, ok := h.Handle(id); ok && ts != nil {
			return ts, nil
		}
	}
	return nil, ErrNoHandle
}
