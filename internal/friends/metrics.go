package friends

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "arena",
	Subsystem: "friends",
	Name:      "request_outcomes_total",
	Help:      "Friend request protocol outcomes by reason code.",
}, []string{"reason"})
