package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"runtime"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/f0mster/reqrep/interfaces/logger"
	"github.com/f0mster/reqrep/pkg/config"
	"github.com/f0mster/reqrep/pkg/server"
	"github.com/f0mster/reqrep/pkg/service"
	"github.com/f0mster/reqrep/pkg/typesupport"
	"github.com/f0mster/reqrep/pkg/typesupport/protots"
)

const appTitle = "reqrep add_two_ints server"

var version = "unknown"

//go:embed add_two_ints.proto
var addTwoIntsProto string

func main() {
	fmt.Println(appTitle)
	fmt.Println("Version:", version)

	fDebug := flag.Bool("d", false, "debug mode")
	fVerboseDebug := flag.Bool("dd", false, "more verbose debug mode")
	fConfig := flag.String("config", "", "path to config file")
	fService := flag.String("service", "add_two_ints", "service name")
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
	}

	if err := run(*fConfig, *fService, *fDebug || *fVerboseDebug); err != nil {
		log.Errorf("server error: %s", err)
		os.Exit(1)
	}
	log.Println("done.")
}

// newLogger builds the configured logger; debug overrides the configured level.
func newLogger(cfg *config.Config, debug bool) (logger.Logger, error) {
	if debug {
		cfg.Log.Level = "debug"
	}
	return cfg.NewLogger()
}

func run(configPath, serviceName string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, debug)
	if err != nil {
		return err
	}
	participant, err := cfg.NewParticipant()
	if err != nil {
		return err
	}
	defer participant.Close()

	sc := cfg.ServiceConfig(logger)
	sc.Participant = participant
	discovery, closeDiscovery, err := cfg.NewDiscovery()
	if err != nil {
		return err
	}
	defer closeDiscovery()
	sc.Discovery = discovery
	ctx, err := service.NewContext(sc)
	if err != nil {
		return err
	}

	ts, err := protots.Load(strings.NewReader(addTwoIntsProto), "add_two_ints.proto", "AddTwoInts", "Call")
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	srv, err := server.NewServer(server.Config{
		Context: ctx,
		Node:    cfg.ServiceNode(),
		Logger:  logger,
		Metrics: reg,
	})
	if err != nil {
		return err
	}
	if err := srv.Handle(serviceName, typesupport.Bundle(ts), nil, addTwoInts(ts)); err != nil {
		return err
	}

	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		hs := &http.Server{Addr: cfg.Metrics.Listen, Handler: mux}
		go func() {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("metrics listener: %s", err)
			}
		}()
		defer hs.Close()
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		if err := srv.Stop(); err != nil {
			log.Errorf("stop: %s", err)
		}
	}()
	return srv.Start()
}

// addTwoInts answers requests with "a" and "b" int64 fields by setting
// "sum" in the response.
func addTwoInts(ts typesupport.ServiceTypeSupport) server.HandlerFunc {
	return func(_ context.Context, header service.RequestHeader, req any) (any, error) {
		in := req.(proto.Message).ProtoReflect()
		fields := in.Descriptor().Fields()
		a, b := fields.ByName("a"), fields.ByName("b")
		if a == nil || b == nil {
			return nil, fmt.Errorf("unexpected request type %s", in.Descriptor().FullName())
		}
		log.Debugf("request %s: %d + %d", header.RequestID, in.Get(a).Int(), in.Get(b).Int())

		resp := ts.Response().New().(proto.Message).ProtoReflect()
		sum := resp.Descriptor().Fields().ByName("sum")
		if sum == nil {
			return nil, fmt.Errorf("unexpected response type %s", resp.Descriptor().FullName())
		}
		resp.Set(sum, protoreflect.ValueOfInt64(in.Get(a).Int()+in.Get(b).Int()))
		return resp.Interface(), nil
	}
}
