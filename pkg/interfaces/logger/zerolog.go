package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ZeroLogger struct {
	Log zerolog.Logger
}

// NewZerolog takes the same options as NewWithOptions. Without JSON the
// output is zerolog's console format.
func NewZerolog(o Options) (*ZeroLogger, error) {
	lvl := zerolog.InfoLevel
	if o.Level != "" {
		var err error
		if lvl, err = zerolog.ParseLevel(o.Level); err != nil {
			return nil, err
		}
	}
	var out io.Writer = os.Stderr
	if o.File != "" {
		out = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
		}
	}
	if !o.JSON {
		out = zerolog.ConsoleWriter{Out: out, NoColor: o.File != ""}
	}
	return &ZeroLogger{Log: zerolog.New(out).Level(lvl).With().Timestamp().Logger()}, nil
}

func (z *ZeroLogger) Error(err error, text, serviceName, topic, value string) {
	z.Log.Error().Err(err).
		Str("service", serviceName).
		Str("topic", topic).
		Str("value", value).
		Msg(text)
}

func (z *ZeroLogger) Info(text string, serviceName string, topic string) {
	z.Log.Info().Str("service", serviceName).Str("topic", topic).Msg(text)
}

func (z *ZeroLogger) Debug(text string, serviceName string, topic string) {
	z.Log.Debug().Str("service", serviceName).Str("topic", topic).Msg(text)
}
