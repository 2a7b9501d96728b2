package logger

type Logger interface {
	Error(err error, text, serviceName string, topic, value string)
	Info(text string, serviceName string, topic string)
	Debug(text string, serviceName string, topic string)
}
