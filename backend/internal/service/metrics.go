package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matcherRecalculations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goteo",
			Name:      "matcher_recalculations_total",
			Help:      "Matcher saves that recomputed the derived totals, by operation",
		},
		[]string{"operation", "result"},
	)

	messageWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goteo",
			Name:      "message_writes_total",
			Help:      "Message writes by operation and result",
		},
		[]string{"operation", "result"},
	)
)

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
