package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	RequestsTaken *prometheus.CounterVec
	ResponsesSent *prometheus.CounterVec
	HandlerErrors *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		RequestsTaken: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqrep",
			Name:      "requests_taken_total",
			Help:      "Requests taken from the request topic.",
		}, []string{"service"}),
		ResponsesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqrep",
			Name:      "responses_sent_total",
			Help:      "Responses published on the reply topic.",
		}, []string{"service"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reqrep",
			Name:      "handler_errors_total",
			Help:      "Failed takes, handler calls and sends.",
		}, []string{"service"}),
	}
	for _, c := range []prometheus.Collector{m.RequestsTaken, m.ResponsesSent, m.HandlerErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
