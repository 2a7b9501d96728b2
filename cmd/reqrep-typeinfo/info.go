package main

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/f0mster/reqrep/internal/protoparse"
	"github.com/f0mster/reqrep/pkg/names"
	"github.com/f0mster/reqrep/pkg/typesupport"
	"github.com/f0mster/reqrep/pkg/typesupport/protots"
)

type Options struct {
	ServiceName      string
	AvoidConventions bool
	Meta             bool
}

var snakeBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

func snakeCase(s string) string {
	return strings.ToLower(snakeBoundary.ReplaceAllString(s, "${1}_${2}"))
}

// Describe prints, for every rpc of every service in the .proto source, the
// topics and transport types a service endpoint would use.
func Describe(r io.Reader, filename string, w io.Writer, o Options) error {
	fd, err := protoparse.Parse(r, filename)
	if err != nil {
		return err
	}
	if fd.Services().Len() == 0 {
		return fmt.Errorf("%s: no service defined", filename)
	}
	for i := 0; i < fd.Services().Len(); i++ {
		sd := fd.Services().Get(i)
		name := o.ServiceName
		if name == "" {
			name = snakeCase(string(sd.Name()))
		}
		if !strings.HasPrefix(name, "/") {
			name = "/" + name
		}
		log.Debugf("service %s as %s", sd.FullName(), name)
		for j := 0; j < sd.Methods().Len(); j++ {
			if err := describeMethod(w, name, sd.Methods().Get(j), o); err != nil {
				return err
			}
		}
	}
	return nil
}

func describeMethod(w io.Writer, name string, md protoreflect.MethodDescriptor, o Options) error {
	ts := protots.New(md.Input(), md.Output())
	reqType, respType, err := names.ServiceTypeNames(ts)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s)\n", name, md.FullName())
	fmt.Fprintf(w, "  request topic:  %s\n", names.RequestTopic(name, o.AvoidConventions))
	fmt.Fprintf(w, "  response topic: %s\n", names.ReplyTopic(name, o.AvoidConventions))
	for _, m := range []struct {
		kind, typeName string
		ts             typesupport.MessageTypeSupport
	}{
		{"request", reqType, ts.Request()},
		{"response", respType, ts.Response()},
	} {
		fmt.Fprintf(w, "  %s type: %s %s\n", m.kind, m.typeName, m.ts.TypeHash())
		if o.Meta {
			for _, line := range strings.Split(strings.TrimRight(m.ts.MetaString(), "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}
	return nil
}
