package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	// Level is a logrus level name, "info" when empty.
	Level string
	// File enables rotated file output instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	JSON       bool
}

type DefaultLogger struct {
	Log *logrus.Logger
}

// New returns a logrus backed logger writing to stderr.
func New() *DefaultLogger {
	return &DefaultLogger{Log: logrus.StandardLogger()}
}

// NewWithOptions configures level, format and rotation.
func NewWithOptions(o Options) (*DefaultLogger, error) {
	l := logrus.New()
	lvl := logrus.InfoLevel
	if o.Level != "" {
		var err error
		if lvl, err = logrus.ParseLevel(o.Level); err != nil {
			return nil, err
		}
	}
	l.SetLevel(lvl)
	if o.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	var out io.Writer = os.Stderr
	if o.File != "" {
		out = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
		}
	}
	l.SetOutput(out)
	return &DefaultLogger{Log: l}, nil
}

func (d *DefaultLogger) Error(err error, text, serviceName, topic, value string) {
	d.Log.WithError(err).WithFields(logrus.Fields{
		"service": serviceName,
		"topic":   topic,
		"value":   value,
	}).Error(text)
}

func (d *DefaultLogger) Info(text string, serviceName string, topic string) {
	d.Log.WithFields(logrus.Fields{"service": serviceName, "topic": topic}).Info(text)
}

func (d *DefaultLogger) Debug(text string, serviceName string, topic string) {
	d.Log.WithFields(logrus.Fields{"service": serviceName, "topic": topic}).Debug(text)
}
