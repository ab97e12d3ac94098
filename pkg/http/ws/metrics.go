package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "arena",
	Subsystem: "ws",
	Name:      "active_connections",
	Help:      "Live WebSocket connections registered in the hub.",
})
