package testlogger

import (
	"testing"
)

type Logger struct {
	T testing.TB
}

func (s *Logger) Error(err error, text, serviceName, topic, value string) {
	s.T.Logf("ERROR %s in service %s on topic %s: '%s' error %s", text, serviceName, topic, value, err)
}

func (s *Logger) Info(text string, serviceName string, topic string) {
	s.T.Logf("INFO service %s; topic %s; text '%s'", serviceName, topic, text)
}

func (s *Logger) Debug(text string, serviceName string, topic string) {
	s.T.Logf("DEBUG service %s; topic %s; text '%s'", serviceName, topic, text)
}

func New(t testing.TB) *Logger {
	return &Logger{T: t}
}
