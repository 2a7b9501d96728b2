package errs

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind classifies every failure returned by the service layer.
// A Kind is itself an error so callers can write errors.Is(err, errs.TopicUnavailable).
type Kind string

func (k Kind) Error() string {
	return string(k)
}

const (
	InvalidArgument        Kind = "invalid argument"
	InvalidName            Kind = "invalid name"
	TypeSupportUnavailable Kind = "type support unavailable"
	NameDerivationFailed   Kind = "name derivation failed"
	TopicUnavailable       Kind = "topic unavailable"
	QosRejected            Kind = "qos rejected"
	TransportError         Kind = "transport error"
	SerializationFailed    Kind = "serialization failed"
	DeserializationFailed  Kind = "deserialization failed"
	DiscoveryUpdateFailed  Kind = "discovery update failed"
	TeardownFailed         Kind = "teardown failed"
)

var codeByKind = map[Kind]codes.Code{
	InvalidArgument:        codes.InvalidArgument,
	InvalidName:            codes.InvalidArgument,
	TypeSupportUnavailable: codes.Unimplemented,
	NameDerivationFailed:   codes.Internal,
	TopicUnavailable:       codes.Unavailable,
	QosRejected:            codes.FailedPrecondition,
	TransportError:         codes.Unavailable,
	SerializationFailed:    codes.Internal,
	DeserializationFailed:  codes.DataLoss,
	DiscoveryUpdateFailed:  codes.Internal,
	TeardownFailed:         codes.Internal,
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// GRPCStatus lets status.Code and status.FromError classify service errors.
func (e *Error) GRPCStatus() *status.Status {
	code, ok := codeByKind[e.Kind]
	if !ok {
		code = codes.Unknown
	}
	return status.New(code, e.Error())
}

func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or "" when err was not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
