package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"runtime"

	log "github.com/sirupsen/logrus"
)

const appTitle = "reqrep service type info"

var version = "unknown"

func main() {
	fmt.Println(appTitle)
	fmt.Println("Version:", version)

	fDebug := flag.Bool("d", false, "debug mode")
	fVerboseDebug := flag.Bool("dd", false, "more verbose debug mode")
	fProto := flag.String("proto", "", "path to proto file")
	fService := flag.String("service", "", "ros service name, defaults to the snake case proto service name")
	fAvoid := flag.Bool("avoid-ros-namespace-conventions", false, "no rq/rr topic prefixes")
	fMeta := flag.Bool("meta", false, "print type meta strings")
	flag.Parse()

	if *fDebug || *fVerboseDebug {
		log.Info("debug mode")
		log.SetLevel(log.DebugLevel)

		if *fVerboseDebug {
			log.SetReportCaller(true)
			formatter := &log.TextFormatter{
				CallerPrettyfier: func(f *runtime.Frame) (string, string) {
					return fmt.Sprintf("%s()", f.Function),
						fmt.Sprintf(" %s:%d", path.Base(f.File), f.Line)
				},
			}
			log.SetFormatter(formatter)
		}
	} else {
		log.SetLevel(log.InfoLevel)
	}

	if *fProto == "" {
		log.Warn("-proto flag must be used")
		os.Exit(1)
	}
	r, err := os.Open(*fProto)
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
	defer r.Close()

	err = Describe(r, path.Base(*fProto), os.Stdout, Options{
		ServiceName:      *fService,
		AvoidConventions: *fAvoid,
		Meta:             *fMeta,
	})
	if err != nil {
		log.Errorf("describe error: %s", err)
		os.Exit(1)
	}
}
