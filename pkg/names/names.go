// Package names validates and derives the topic and type names used by
// service endpoints.
package names

import (
	"errors"
	"fmt"
	"strings"

	"github.com/f0mster/reqrep/pkg/typesupport"
)

const (
	RequestPrefix = "rq"
	ReplyPrefix   = "rr"
	RequestSuffix = "Request"
	ReplySuffix   = "Reply"

	// MaxTopicNameLength leaves room for the request/reply prefix and suffix.
	MaxTopicNameLength = 247
)

var ErrEmptyTypeName = errors.New("type support produced an empty type name")

// ValidateFullTopicName returns "" if name is a valid absolute topic name,
// otherwise the reason it is not.
func ValidateFullTopicName(name string) string {
	if name == "" {
		return "topic name must not be empty"
	}
	if name[0] != '/' {
		return "topic name must be absolute, it must lead with a '/'"
	}
	if len(name) > 1 && name[len(name)-1] == '/' {
		return "topic name must not end with a forward slash"
	}
	if len(name) > MaxTopicNameLength {
		return fmt.Sprintf("topic name length should not exceed '%d'", MaxTopicNameLength)
	}
	for i := 0; i < len(name); i++ {
		if !validChar(name[i]) {
			return fmt.Sprintf("topic name must not contain characters other than alphanumerics, '_', or '/', found %q at %d", name[i], i)
		}
		if name[i] == '/' && i+1 < len(name) {
			if name[i+1] == '/' {
				return fmt.Sprintf("topic name must not contain repeated forward slashes, at %d", i)
			}
			if isDigit(name[i+1]) {
				return fmt.Sprintf("topic name tokens must not start with a number, at %d", i+1)
			}
		}
	}
	return ""
}

// ValidateNodeName returns "" if name is a valid node name.
func ValidateNodeName(name string) string {
	if name == "" {
		return "node name must not be empty"
	}
	if isDigit(name[0]) {
		return "node name must not start with a number"
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' || !validChar(name[i]) {
			return fmt.Sprintf("node name must not contain characters other than alphanumerics or '_', found %q at %d", name[i], i)
		}
	}
	return ""
}

// ValidateNamespace returns "" if ns is a valid absolute namespace.
func ValidateNamespace(ns string) string {
	if ns == "/" {
		return ""
	}
	if reason := ValidateFullTopicName(ns); reason != "" {
		return strings.Replace(reason, "topic name", "namespace", 1)
	}
	return ""
}

// Expand makes name absolute: a leading '~' is replaced by the node's fully
// qualified name, a relative name is put under namespace.
func Expand(name, nodeName, namespace string) string {
	fqn := Join(namespace, nodeName)
	switch {
	case strings.HasPrefix(name, "/"):
		return name
	case name == "~":
		return fqn
	case strings.HasPrefix(name, "~/"):
		return fqn + name[1:]
	default:
		return Join(namespace, name)
	}
}

func Join(namespace, name string) string {
	if namespace == "" || namespace == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(namespace, "/") + "/" + name
}

// CreateTopicName prefixes and suffixes name. The prefix is dropped when
// avoidConventions is set.
func CreateTopicName(prefix, name, suffix string, avoidConventions bool) string {
	if avoidConventions {
		prefix = ""
	}
	return prefix + name + suffix
}

// RequestTopic and ReplyTopic derive the two topics of service name.
func RequestTopic(name string, avoidConventions bool) string {
	return CreateTopicName(RequestPrefix, name, RequestSuffix, avoidConventions)
}

func ReplyTopic(name string, avoidConventions bool) string {
	return CreateTopicName(ReplyPrefix, name, ReplySuffix, avoidConventions)
}

// TypeName derives the transport type name of a message:
// "example_interfaces.srv" + "AddTwoInts_Request" gives
// "example_interfaces::srv::dds_::AddTwoInts_Request_".
func TypeName(ts typesupport.MessageTypeSupport) (string, error) {
	if ts == nil || ts.Name() == "" {
		return "", ErrEmptyTypeName
	}
	ns := strings.FieldsFunc(ts.Namespace(), func(r rune) bool { return r == '.' || r == '/' || r == ':' })
	parts := append(ns, "dds_", ts.Name()+"_")
	return strings.Join(parts, "::"), nil
}

// ServiceTypeNames derives the request and response type names of ts.
func ServiceTypeNames(ts typesupport.ServiceTypeSupport) (request, response string, err error) {
	if request, err = TypeName(ts.Request()); err != nil {
		return "", "", fmt.Errorf("request: %w", err)
	}
	if response, err = TypeName(ts.Response()); err != nil {
		return "", "", fmt.Errorf("response: %w", err)
	}
	return request, response, nil
}

// ServiceMetaStrings returns the layout descriptions of both messages of ts.
func ServiceMetaStrings(ts typesupport.ServiceTypeSupport) (request, response string, err error) {
	request, response = ts.Request().MetaString(), ts.Response().MetaString()
	if request == "" {
		return "", "", errors.New("request: empty meta string")
	}
	if response == "" {
		return "", "", errors.New("response: empty meta string")
	}
	return request, response, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func validChar(c byte) bool {
	return c == '/' || c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
