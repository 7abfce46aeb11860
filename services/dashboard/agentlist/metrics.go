package agentlist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentdash",
		Subsystem: "agentlist",
		Name:      "loads_total",
		Help:      "Agent list loads by outcome (success, failure, stale).",
	}, []string{"result"})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentdash",
		Subsystem: "agentlist",
		Name:      "deletes_total",
		Help:      "Agent delete actions by outcome.",
	}, []string{"result"})

	viewsMounted = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentdash",
		Subsystem: "agentlist",
		Name:      "views_mounted",
		Help:      "Agent list views currently mounted.",
	})
)
